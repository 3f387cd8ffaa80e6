package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pos-backend/pkg/db/models"
	"github.com/angelmondragon/pos-backend/pkg/enums"
)

// LineInput is one requested line. A nil UnitPrice uses the catalog price,
// the wholesale one when Wholesale is set and the product has it.
type LineInput struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice *decimal.Decimal
	Discount  decimal.Decimal
	Wholesale bool
}

type PaymentInput struct {
	Method    enums.PaymentMethod
	Amount    decimal.Decimal
	Reference string
}

type SaleInput struct {
	BusinessID uuid.UUID
	ActorID    uuid.UUID
	CustomerID *uuid.UUID
	Lines      []LineInput
	Payments   []PaymentInput
	Notes      string
}

type QuoteInput struct {
	BusinessID uuid.UUID
	ActorID    uuid.UUID
	CustomerID *uuid.UUID
	Lines      []LineInput
	Notes      string
}

type ConfirmQuoteInput struct {
	BusinessID uuid.UUID
	OrderID    uuid.UUID
	Payments   []PaymentInput
	ActorID    uuid.UUID
}

type CancelInput struct {
	BusinessID uuid.UUID
	OrderID    uuid.UUID
	Reason     string
	ActorID    uuid.UUID
}

type ReturnItem struct {
	LineID   uuid.UUID
	Quantity int
}

type ReturnInput struct {
	BusinessID uuid.UUID
	OrderID    uuid.UUID
	Items      []ReturnItem
	Reason     string
	ActorID    uuid.UUID
}

// OrderDetail is an order with its lines and payments.
type OrderDetail struct {
	Order    models.Order       `json:"order"`
	Lines    []models.OrderLine `json:"lines"`
	Payments []models.Payment   `json:"payments"`
}

type ReturnResult struct {
	Order          models.Order           `json:"order"`
	ReturnNumber   string                 `json:"return_number"`
	ReturnedAmount decimal.Decimal        `json:"returned_amount"`
	CreditReleased decimal.Decimal        `json:"credit_released"`
	Movements      []models.StockMovement `json:"movements"`
}
