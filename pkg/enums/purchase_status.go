package enums

// PurchaseStatus tracks whether a supplier purchase has been received into stock.
type PurchaseStatus string

const (
	PurchaseStatusPending  PurchaseStatus = "pending"
	PurchaseStatusReceived PurchaseStatus = "received"
)

func (s PurchaseStatus) String() string {
	return string(s)
}

func (s PurchaseStatus) IsValid() bool {
	return s == PurchaseStatusPending || s == PurchaseStatusReceived
}
