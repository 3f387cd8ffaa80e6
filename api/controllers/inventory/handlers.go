package inventory

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/pos-backend/api/middleware"
	"github.com/angelmondragon/pos-backend/api/responses"
	"github.com/angelmondragon/pos-backend/api/validators"
	internalinventory "github.com/angelmondragon/pos-backend/internal/inventory"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/logger"
	"github.com/angelmondragon/pos-backend/pkg/pagination"
)

func serviceUnavailable(r *http.Request, w http.ResponseWriter, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
}

// locationOrPrimary reads location_id from the query and falls back to the
// business's primary location.
func locationOrPrimary(ctx context.Context, svc internalinventory.Service, r *http.Request, businessID uuid.UUID) (uuid.UUID, error) {
	locationID, err := validators.ParseOptionalQueryUUID(r, "location_id")
	if err != nil {
		return uuid.Nil, err
	}
	if locationID != nil {
		return *locationID, nil
	}
	location, err := svc.PrimaryLocation(ctx, nil, businessID)
	if err != nil {
		return uuid.Nil, err
	}
	return location.ID, nil
}

func Balance(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(r, w, logg)
			return
		}
		businessID := middleware.BusinessIDFromContext(r.Context())
		productID, err := validators.ParseQueryUUID(r, "product_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		locationID, err := locationOrPrimary(r.Context(), svc, r, businessID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.GetBalance(r.Context(), businessID, productID, locationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// LowStock lists tracked products at or below their reorder threshold.
func LowStock(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(r, w, logg)
			return
		}
		businessID := middleware.BusinessIDFromContext(r.Context())
		locationID, err := locationOrPrimary(r.Context(), svc, r, businessID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.ListLowStock(r.Context(), businessID, locationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func Movements(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(r, w, logg)
			return
		}
		businessID := middleware.BusinessIDFromContext(r.Context())
		productID, err := validators.ParseQueryUUID(r, "product_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		locationID, err := locationOrPrimary(r.Context(), svc, r, businessID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListMovements(r.Context(), businessID, productID, locationID, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// Adjust sets a balance to a counted quantity.
func Adjust(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(r, w, logg)
			return
		}
		var req adjustRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		result, err := svc.Adjust(r.Context(), internalinventory.AdjustInput{
			BusinessID: actor.BusinessID,
			ProductID:  req.ProductID,
			LocationID: req.LocationID,
			Quantity:   req.Quantity,
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

func Transfer(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(r, w, logg)
			return
		}
		var req transferRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		result, err := svc.Transfer(r.Context(), internalinventory.TransferInput{
			BusinessID:     actor.BusinessID,
			ProductID:      req.ProductID,
			FromLocationID: req.FromLocationID,
			ToLocationID:   req.ToLocationID,
			Quantity:       req.Quantity,
			Note:           validators.SanitizeString(req.Note, 500),
			ActorID:        actor.ID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, result)
	}
}

// Verify replays the movement history of one balance and reports drift.
func Verify(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(r, w, logg)
			return
		}
		businessID := middleware.BusinessIDFromContext(r.Context())
		productID, err := validators.ParseQueryUUID(r, "product_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		locationID, err := locationOrPrimary(r.Context(), svc, r, businessID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		report, err := svc.VerifyLedger(r.Context(), businessID, productID, locationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}
