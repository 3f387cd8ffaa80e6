package orders

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pos-backend/pkg/db/models"
	"github.com/angelmondragon/pos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
)

// tender is the evaluated payment side of a sale.
type tender struct {
	payments   []models.Payment
	amountPaid decimal.Decimal
	change     decimal.Decimal
	creditUsed decimal.Decimal
	method     enums.PaymentMethod
}

// evaluateTender checks payments against the order total. Change is handed
// out of the drawer, so credit alone may never exceed the total.
func evaluateTender(inputs []PaymentInput, total decimal.Decimal, customerID *uuid.UUID) (*tender, error) {
	if len(inputs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one payment required")
	}
	t := &tender{amountPaid: decimal.Zero, creditUsed: decimal.Zero}
	for _, in := range inputs {
		if !in.Method.IsValid() {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid payment method %q", in.Method)
		}
		amount := in.Amount.Round(2)
		if !amount.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
		}
		if in.Method == enums.PaymentMethodCredit {
			if customerID == nil {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "credit payments require a customer")
			}
			t.creditUsed = t.creditUsed.Add(amount)
		}
		t.amountPaid = t.amountPaid.Add(amount)
		t.payments = append(t.payments, models.Payment{
			Method:    in.Method,
			Amount:    amount,
			Reference: optionalString(strings.TrimSpace(in.Reference)),
		})
	}

	if t.amountPaid.LessThan(total) {
		return nil, pkgerrors.Newf(pkgerrors.CodeBusinessRule, "payment below total, paid %s, total %s",
			t.amountPaid.StringFixed(2), total.StringFixed(2)).
			WithDetails(map[string]any{"paid": t.amountPaid.StringFixed(2), "total": total.StringFixed(2)})
	}
	if t.creditUsed.GreaterThan(total) {
		return nil, pkgerrors.Newf(pkgerrors.CodeBusinessRule, "credit payments cannot exceed the order total, credit %s, total %s",
			t.creditUsed.StringFixed(2), total.StringFixed(2)).
			WithDetails(map[string]any{"credit": t.creditUsed.StringFixed(2), "total": total.StringFixed(2)})
	}
	t.change = t.amountPaid.Sub(total)

	t.method = enums.PaymentMethodMixed
	if len(t.payments) == 1 {
		t.method = t.payments[0].Method
	}
	return t, nil
}
