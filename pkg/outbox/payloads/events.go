package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pos-backend/pkg/enums"
)

// OrderCreatedEvent is emitted for completed sales, including confirmed quotes.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID            `json:"order_id"`
	BusinessID    uuid.UUID            `json:"business_id"`
	Number        string               `json:"number"`
	ShiftID       *uuid.UUID           `json:"shift_id,omitempty"`
	CustomerID    *uuid.UUID           `json:"customer_id,omitempty"`
	Total         decimal.Decimal      `json:"total"`
	PaymentMethod *enums.PaymentMethod `json:"payment_method,omitempty"`
	CreditUsed    decimal.Decimal      `json:"credit_used"`
	LineCount     int                  `json:"line_count"`
}

// QuoteEvent covers quote creation and confirmation.
type QuoteEvent struct {
	OrderID    uuid.UUID       `json:"order_id"`
	BusinessID uuid.UUID       `json:"business_id"`
	Number     string          `json:"number"`
	Total      decimal.Decimal `json:"total"`
}

type OrderCancelledEvent struct {
	OrderID        uuid.UUID       `json:"order_id"`
	BusinessID     uuid.UUID       `json:"business_id"`
	Number         string          `json:"number"`
	Reason         string          `json:"reason"`
	CreditReleased decimal.Decimal `json:"credit_released"`
	CancelledAt    time.Time       `json:"cancelled_at"`
}

type ReturnedLine struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type OrderReturnedEvent struct {
	OrderID        uuid.UUID       `json:"order_id"`
	BusinessID     uuid.UUID       `json:"business_id"`
	ReturnNumber   string          `json:"return_number"`
	Lines          []ReturnedLine  `json:"lines"`
	ReturnedAmount decimal.Decimal `json:"returned_amount"`
	CreditReleased decimal.Decimal `json:"credit_released"`
	FullyReturned  bool            `json:"fully_returned"`
}

type ShiftOpenedEvent struct {
	ShiftID      uuid.UUID       `json:"shift_id"`
	BusinessID   uuid.UUID       `json:"business_id"`
	TillID       string          `json:"till_id"`
	OperatorID   uuid.UUID       `json:"operator_id"`
	OpeningFloat decimal.Decimal `json:"opening_float"`
}

type ShiftClosedEvent struct {
	ShiftID  uuid.UUID       `json:"shift_id"`
	Expected decimal.Decimal `json:"expected"`
	Counted  decimal.Decimal `json:"counted"`
	Variance decimal.Decimal `json:"variance"`
	ClosedBy uuid.UUID       `json:"closed_by"`
}

type PurchaseReceivedEvent struct {
	PurchaseID uuid.UUID       `json:"purchase_id"`
	BusinessID uuid.UUID       `json:"business_id"`
	LocationID uuid.UUID       `json:"location_id"`
	Total      decimal.Decimal `json:"total"`
	LineCount  int             `json:"line_count"`
}

type StockTransferredEvent struct {
	ProductID      uuid.UUID `json:"product_id"`
	FromLocationID uuid.UUID `json:"from_location_id"`
	ToLocationID   uuid.UUID `json:"to_location_id"`
	Quantity       int       `json:"quantity"`
}

type StockAdjustedEvent struct {
	ProductID  uuid.UUID `json:"product_id"`
	LocationID uuid.UUID `json:"location_id"`
	Before     int       `json:"before"`
	After      int       `json:"after"`
	Reason     string    `json:"reason,omitempty"`
}
