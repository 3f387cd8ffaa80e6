package controllers

import (
	"net/http"

	"github.com/angelmondragon/pos-backend/api/middleware"
	"github.com/angelmondragon/pos-backend/api/responses"
	"github.com/angelmondragon/pos-backend/api/validators"
	"github.com/angelmondragon/pos-backend/internal/credit"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/logger"
)

// CustomerCredit returns how much credit a customer can still draw.
func CustomerCredit(ledger credit.Ledger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ledger == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "credit ledger unavailable"))
			return
		}
		customerID, err := validators.ParseURLUUID(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		available, err := ledger.Available(r.Context(), middleware.BusinessIDFromContext(r.Context()), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"customer_id":      customerID,
			"available_credit": available.StringFixed(2),
		})
	}
}
