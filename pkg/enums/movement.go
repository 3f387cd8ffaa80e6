package enums

import "fmt"

// MovementType classifies a stock movement.
type MovementType string

const (
	MovementInbound     MovementType = "inbound"
	MovementOutbound    MovementType = "outbound"
	MovementAdjustment  MovementType = "adjustment"
	MovementTransferOut MovementType = "transfer_out"
	MovementTransferIn  MovementType = "transfer_in"
	MovementReturn      MovementType = "return"
)

var validMovementTypes = []MovementType{
	MovementInbound,
	MovementOutbound,
	MovementAdjustment,
	MovementTransferOut,
	MovementTransferIn,
	MovementReturn,
}

// String implements fmt.Stringer.
func (m MovementType) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MovementType.
func (m MovementType) IsValid() bool {
	for _, candidate := range validMovementTypes {
		if candidate == m {
			return true
		}
	}
	return false
}

// IsOutbound reports whether the movement removes stock from its location.
func (m MovementType) IsOutbound() bool {
	return m == MovementOutbound || m == MovementTransferOut
}

// IsAbsolute reports whether the movement sets the balance instead of adding to it.
func (m MovementType) IsAbsolute() bool {
	return m == MovementAdjustment
}

// ParseMovementType converts raw input into a MovementType.
func ParseMovementType(value string) (MovementType, error) {
	for _, candidate := range validMovementTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid movement type %q", value)
}

// MovementRefType names the document a movement originates from.
type MovementRefType string

const (
	RefOrder        MovementRefType = "order"
	RefPurchase     MovementRefType = "purchase"
	RefCancellation MovementRefType = "cancellation"
	RefReturn       MovementRefType = "return"
	RefTransfer     MovementRefType = "transfer"
	RefAdjustment   MovementRefType = "adjustment"
)

var validMovementRefTypes = []MovementRefType{
	RefOrder,
	RefPurchase,
	RefCancellation,
	RefReturn,
	RefTransfer,
	RefAdjustment,
}

func (r MovementRefType) String() string {
	return string(r)
}

func (r MovementRefType) IsValid() bool {
	for _, candidate := range validMovementRefTypes {
		if candidate == r {
			return true
		}
	}
	return false
}
