package purchases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pos-backend/internal/inventory"
	"github.com/angelmondragon/pos-backend/internal/products"
	"github.com/angelmondragon/pos-backend/pkg/db/models"
	"github.com/angelmondragon/pos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/logger"
	"github.com/angelmondragon/pos-backend/pkg/metrics"
	"github.com/angelmondragon/pos-backend/pkg/outbox"
	"github.com/angelmondragon/pos-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockLedger interface {
	ApplyMovement(ctx context.Context, tx *gorm.DB, input inventory.MovementInput) (*models.StockMovement, *models.StockBalance, error)
	PrimaryLocation(ctx context.Context, tx *gorm.DB, businessID uuid.UUID) (*models.Location, error)
	ActiveLocation(ctx context.Context, tx *gorm.DB, businessID, id uuid.UUID) (*models.Location, error)
	Invalidate(ctx context.Context, businessID uuid.UUID)
}

// Service records supplier purchases and receives them into stock.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*PurchaseDetail, error)
	Receive(ctx context.Context, input ReceiveInput) (*PurchaseDetail, error)
	Get(ctx context.Context, businessID, id uuid.UUID) (*PurchaseDetail, error)
}

type ServiceParams struct {
	Tx        txRunner
	Repo      Repository
	Products  products.Repository
	Catalog   products.Catalog
	Inventory stockLedger
	Outbox    outbox.Emitter
	Logger    *logger.Logger
	Metrics   *metrics.WorkflowMetrics
	Now       func() time.Time
}

type service struct {
	tx        txRunner
	repo      Repository
	products  products.Repository
	catalog   products.Catalog
	inventory stockLedger
	outbox    outbox.Emitter
	logg      *logger.Logger
	metrics   *metrics.WorkflowMetrics
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("purchase repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("product catalog required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		tx:        params.Tx,
		repo:      params.Repo,
		products:  params.Products,
		catalog:   params.Catalog,
		inventory: params.Inventory,
		outbox:    params.Outbox,
		logg:      logg,
		metrics:   params.Metrics,
		now:       now,
	}, nil
}

// Create stores a pending purchase. Nothing touches stock until it is received.
func (s *service) Create(ctx context.Context, input CreateInput) (detail *PurchaseDetail, err error) {
	defer s.metrics.Track("purchase_create", time.Now(), &err)

	supplier := strings.TrimSpace(input.SupplierName)
	if supplier == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier name required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line required")
	}
	ids := make([]uuid.UUID, 0, len(input.Lines))
	for _, line := range input.Lines {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		if line.UnitCost.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit cost cannot be negative")
		}
		ids = append(ids, line.ProductID)
	}
	if _, err := s.catalog.LoadActive(ctx, nil, input.BusinessID, ids); err != nil {
		return nil, err
	}

	total := decimal.Zero
	lines := make([]models.PurchaseLine, 0, len(input.Lines))
	for i, line := range input.Lines {
		cost := line.UnitCost.Round(2)
		total = total.Add(cost.Mul(decimal.NewFromInt(int64(line.Quantity))))
		lines = append(lines, models.PurchaseLine{
			Position:  i + 1,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitCost:  cost,
		})
	}

	purchase := &models.Purchase{
		BusinessID:   input.BusinessID,
		SupplierName: supplier,
		Status:       enums.PurchaseStatusPending,
		Total:        total.Round(2),
		CreatedBy:    input.ActorID,
	}
	if ref := strings.TrimSpace(input.Reference); ref != "" {
		purchase.Reference = &ref
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Create(ctx, purchase, lines)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create purchase")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"purchase_id": purchase.ID.String(),
		"supplier":    supplier,
		"total":       purchase.Total.StringFixed(2),
	}), "purchase created")
	return &PurchaseDetail{Purchase: *purchase, Lines: lines}, nil
}

// Receive books every line in as an inbound movement at the chosen location
// and makes the line cost the product's cost price. It happens once.
func (s *service) Receive(ctx context.Context, input ReceiveInput) (detail *PurchaseDetail, err error) {
	defer s.metrics.Track("purchase_receive", time.Now(), &err)

	now := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		purchase, err := repo.LockByID(ctx, input.BusinessID, input.PurchaseID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load purchase")
		}
		if purchase == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
		}
		if purchase.Status == enums.PurchaseStatusReceived {
			return pkgerrors.New(pkgerrors.CodeBusinessRule, "purchase already received").
				WithDetails(map[string]any{"purchase_id": purchase.ID})
		}

		var location *models.Location
		if input.LocationID == nil {
			location, err = s.inventory.PrimaryLocation(ctx, tx, input.BusinessID)
		} else {
			location, err = s.inventory.ActiveLocation(ctx, tx, input.BusinessID, *input.LocationID)
		}
		if err != nil {
			return err
		}

		lines, err := repo.ListLines(ctx, purchase.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load purchase lines")
		}
		productRepo := s.products.WithTx(tx)
		purchaseID := purchase.ID
		for _, line := range lines {
			product, err := s.catalog.Get(ctx, tx, input.BusinessID, line.ProductID)
			if err != nil {
				return err
			}
			if product.TrackStock {
				if _, _, err := s.inventory.ApplyMovement(ctx, tx, inventory.MovementInput{
					BusinessID: input.BusinessID,
					ProductID:  line.ProductID,
					LocationID: location.ID,
					Type:       enums.MovementInbound,
					Quantity:   line.Quantity,
					UnitCost:   line.UnitCost,
					RefType:    enums.RefPurchase,
					RefID:      &purchaseID,
					ActorID:    input.ActorID,
				}); err != nil {
					return err
				}
			}
			if err := productRepo.UpdateCostPrice(ctx, input.BusinessID, line.ProductID, line.UnitCost); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cost price")
			}
		}

		actor := input.ActorID
		purchase.Status = enums.PurchaseStatusReceived
		purchase.LocationID = &location.ID
		purchase.ReceivedAt = &now
		purchase.ReceivedBy = &actor
		if err := repo.MarkReceived(ctx, purchase); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark purchase received")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPurchaseReceived,
			AggregateType: enums.AggregatePurchase,
			AggregateID:   purchase.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, BusinessID: &input.BusinessID},
			Data: payloads.PurchaseReceivedEvent{
				PurchaseID: purchase.ID,
				BusinessID: purchase.BusinessID,
				LocationID: location.ID,
				Total:      purchase.Total,
				LineCount:  len(lines),
			},
		}); err != nil {
			return err
		}

		detail = &PurchaseDetail{Purchase: *purchase, Lines: lines}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.inventory.Invalidate(ctx, input.BusinessID)

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"purchase_id": detail.Purchase.ID.String(),
		"location_id": detail.Purchase.LocationID.String(),
		"lines":       len(detail.Lines),
	}), "purchase received")
	return detail, nil
}

func (s *service) Get(ctx context.Context, businessID, id uuid.UUID) (*PurchaseDetail, error) {
	purchase, err := s.repo.FindByID(ctx, businessID, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load purchase")
	}
	if purchase == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
	}
	lines, err := s.repo.ListLines(ctx, purchase.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load purchase lines")
	}
	return &PurchaseDetail{Purchase: *purchase, Lines: lines}, nil
}
