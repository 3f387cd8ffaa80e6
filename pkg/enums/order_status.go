package enums

import "fmt"

// OrderStatus tracks the lifecycle of a quote or sale.
//
//	quote -> completed -> cancelled
//	completed -> returned (full return)
type OrderStatus string

const (
	OrderStatusQuote     OrderStatus = "quote"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusReturned  OrderStatus = "returned"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusQuote,
	OrderStatusCompleted,
	OrderStatusCancelled,
	OrderStatusReturned,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
