package orders

import (
	"net/http"

	"github.com/angelmondragon/pos-backend/api/middleware"
	"github.com/angelmondragon/pos-backend/api/responses"
	"github.com/angelmondragon/pos-backend/api/validators"
	internalorders "github.com/angelmondragon/pos-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/logger"
)

func serviceUnavailable(r *http.Request, w http.ResponseWriter, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
}

// CreateSale rings up a sale for the calling operator.
func CreateSale(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(r, w, logg)
			return
		}
		var req saleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payments, err := toPaymentInputs(req.Payments)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		detail, err := svc.CreateSale(r.Context(), internalorders.SaleInput{
			BusinessID: actor.BusinessID,
			ActorID:    actor.ID,
			CustomerID: req.CustomerID,
			Lines:      toLineInputs(req.Lines),
			Payments:   payments,
			Notes:      validators.SanitizeString(req.Notes, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, detail)
	}
}

// CreateQuote stores a priced quote without touching stock.
func CreateQuote(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(r, w, logg)
			return
		}
		var req quoteRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		detail, err := svc.CreateQuote(r.Context(), internalorders.QuoteInput{
			BusinessID: actor.BusinessID,
			ActorID:    actor.ID,
			CustomerID: req.CustomerID,
			Lines:      toLineInputs(req.Lines),
			Notes:      validators.SanitizeString(req.Notes, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, detail)
	}
}

func ConfirmQuote(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(r, w, logg)
			return
		}
		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req confirmRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payments, err := toPaymentInputs(req.Payments)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		detail, err := svc.ConfirmQuote(r.Context(), internalorders.ConfirmQuoteInput{
			BusinessID: actor.BusinessID,
			OrderID:    orderID,
			Payments:   payments,
			ActorID:    actor.ID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(r, w, logg)
			return
		}
		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req cancelRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		detail, err := svc.CancelSale(r.Context(), internalorders.CancelInput{
			BusinessID: actor.BusinessID,
			OrderID:    orderID,
			Reason:     validators.SanitizeString(req.Reason, 500),
			ActorID:    actor.ID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// Return books a partial or full return against a completed sale.
func Return(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(r, w, logg)
			return
		}
		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req returnRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		result, err := svc.ReturnSale(r.Context(), internalorders.ReturnInput{
			BusinessID: actor.BusinessID,
			OrderID:    orderID,
			Items:      toReturnItems(req.Items),
			Reason:     validators.SanitizeString(req.Reason, 500),
			ActorID:    actor.ID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, result)
	}
}

func Get(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(r, w, logg)
			return
		}
		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail, err := svc.Get(r.Context(), middleware.BusinessIDFromContext(r.Context()), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}
