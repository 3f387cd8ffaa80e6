package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	internalorders "github.com/angelmondragon/pos-backend/internal/orders"
	"github.com/angelmondragon/pos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
)

type lineRequest struct {
	ProductID uuid.UUID        `json:"product_id" validate:"required"`
	Quantity  int              `json:"quantity" validate:"gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	Discount  decimal.Decimal  `json:"discount"`
	Wholesale bool             `json:"wholesale"`
}

type paymentRequest struct {
	Method    string          `json:"method" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference,omitempty" validate:"max=128"`
}

type saleRequest struct {
	CustomerID *uuid.UUID       `json:"customer_id,omitempty"`
	Lines      []lineRequest    `json:"lines" validate:"required,min=1,dive"`
	Payments   []paymentRequest `json:"payments" validate:"required,min=1,dive"`
	Notes      string           `json:"notes,omitempty" validate:"max=500"`
}

type quoteRequest struct {
	CustomerID *uuid.UUID    `json:"customer_id,omitempty"`
	Lines      []lineRequest `json:"lines" validate:"required,min=1,dive"`
	Notes      string        `json:"notes,omitempty" validate:"max=500"`
}

type confirmRequest struct {
	Payments []paymentRequest `json:"payments" validate:"required,min=1,dive"`
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type returnItemRequest struct {
	LineID   uuid.UUID `json:"line_id" validate:"required"`
	Quantity int       `json:"quantity" validate:"gt=0"`
}

type returnRequest struct {
	Items  []returnItemRequest `json:"items" validate:"required,min=1,dive"`
	Reason string              `json:"reason,omitempty" validate:"max=500"`
}

func toLineInputs(lines []lineRequest) []internalorders.LineInput {
	out := make([]internalorders.LineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, internalorders.LineInput{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Discount:  line.Discount,
			Wholesale: line.Wholesale,
		})
	}
	return out
}

func toPaymentInputs(payments []paymentRequest) ([]internalorders.PaymentInput, error) {
	out := make([]internalorders.PaymentInput, 0, len(payments))
	for i, payment := range payments {
		method, err := enums.ParsePaymentMethod(payment.Method)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method").
				WithDetails(map[string]any{"index": i, "method": payment.Method})
		}
		out = append(out, internalorders.PaymentInput{
			Method:    method,
			Amount:    payment.Amount,
			Reference: payment.Reference,
		})
	}
	return out, nil
}

func toReturnItems(items []returnItemRequest) []internalorders.ReturnItem {
	out := make([]internalorders.ReturnItem, 0, len(items))
	for _, item := range items {
		out = append(out, internalorders.ReturnItem{LineID: item.LineID, Quantity: item.Quantity})
	}
	return out
}
