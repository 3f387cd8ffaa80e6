package enums

import "fmt"

// PaymentMethod enumerates the tenders accepted at the till. Mixed is only
// ever used as the order-level tag when more than one payment is recorded.
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodCard     PaymentMethod = "card"
	PaymentMethodTransfer PaymentMethod = "transfer"
	PaymentMethodCredit   PaymentMethod = "credit"
	PaymentMethodMixed    PaymentMethod = "mixed"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCash,
	PaymentMethodCard,
	PaymentMethodTransfer,
	PaymentMethodCredit,
}

func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value can be used on an individual payment.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsCashEquivalent reports whether the tender lands in the cash drawer.
func (p PaymentMethod) IsCashEquivalent() bool {
	return p == PaymentMethodCash
}

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
