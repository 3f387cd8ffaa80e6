package shifts

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pos-backend/api/middleware"
	"github.com/angelmondragon/pos-backend/api/responses"
	"github.com/angelmondragon/pos-backend/api/validators"
	internalshifts "github.com/angelmondragon/pos-backend/internal/shifts"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/logger"
)

type openShiftRequest struct {
	TillID       string          `json:"till_id" validate:"required,max=64"`
	OpeningFloat decimal.Decimal `json:"opening_float"`
}

type closeShiftRequest struct {
	CountedAmount decimal.Decimal `json:"counted_amount"`
}

// Open starts a shift for the calling operator.
func Open(svc internalshifts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shift service unavailable"))
			return
		}
		var req openShiftRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		shift, err := svc.Open(r.Context(), internalshifts.OpenInput{
			BusinessID:   actor.BusinessID,
			TillID:       validators.SanitizeString(req.TillID, 64),
			OperatorID:   actor.ID,
			OpeningFloat: req.OpeningFloat,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, shift)
	}
}

// Close records the counted cash and reconciles the shift.
func Close(svc internalshifts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shift service unavailable"))
			return
		}
		shiftID, err := validators.ParseURLUUID(r, "shiftId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req closeShiftRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		shift, err := svc.Close(r.Context(), internalshifts.CloseInput{
			ShiftID:       shiftID,
			BusinessID:    actor.BusinessID,
			CountedAmount: req.CountedAmount,
			ActorID:       actor.ID,
			ActorRole:     actor.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shift)
	}
}

// Current returns the caller's open shift.
func Current(svc internalshifts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shift service unavailable"))
			return
		}
		actor := middleware.ActorFromContext(r.Context())
		shift, err := svc.CurrentForOperator(r.Context(), actor.BusinessID, actor.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shift)
	}
}

func Get(svc internalshifts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shift service unavailable"))
			return
		}
		shiftID, err := validators.ParseURLUUID(r, "shiftId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		shift, err := svc.Get(r.Context(), middleware.BusinessIDFromContext(r.Context()), shiftID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shift)
	}
}
