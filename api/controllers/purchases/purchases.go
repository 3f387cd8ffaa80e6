package purchases

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pos-backend/api/middleware"
	"github.com/angelmondragon/pos-backend/api/responses"
	"github.com/angelmondragon/pos-backend/api/validators"
	internalpurchases "github.com/angelmondragon/pos-backend/internal/purchases"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/logger"
)

type purchaseLineRequest struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

type createPurchaseRequest struct {
	SupplierName string                `json:"supplier_name" validate:"required,max=200"`
	Reference    string                `json:"reference,omitempty" validate:"max=100"`
	Lines        []purchaseLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type receivePurchaseRequest struct {
	LocationID *uuid.UUID `json:"location_id,omitempty"`
}

func Create(svc internalpurchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchase service unavailable"))
			return
		}
		var req createPurchaseRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines := make([]internalpurchases.LineInput, 0, len(req.Lines))
		for _, line := range req.Lines {
			lines = append(lines, internalpurchases.LineInput{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitCost:  line.UnitCost,
			})
		}
		actor := middleware.ActorFromContext(r.Context())
		detail, err := svc.Create(r.Context(), internalpurchases.CreateInput{
			BusinessID:   actor.BusinessID,
			ActorID:      actor.ID,
			SupplierName: validators.SanitizeString(req.SupplierName, 200),
			Reference:    validators.SanitizeString(req.Reference, 100),
			Lines:        lines,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, detail)
	}
}

// Receive books a pending purchase into stock. The body is optional and only
// names a location other than the primary one.
func Receive(svc internalpurchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchase service unavailable"))
			return
		}
		purchaseID, err := validators.ParseURLUUID(r, "purchaseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req receivePurchaseRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		actor := middleware.ActorFromContext(r.Context())
		detail, err := svc.Receive(r.Context(), internalpurchases.ReceiveInput{
			PurchaseID: purchaseID,
			BusinessID: actor.BusinessID,
			LocationID: req.LocationID,
			ActorID:    actor.ID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

func Get(svc internalpurchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchase service unavailable"))
			return
		}
		purchaseID, err := validators.ParseURLUUID(r, "purchaseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail, err := svc.Get(r.Context(), middleware.BusinessIDFromContext(r.Context()), purchaseID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}
