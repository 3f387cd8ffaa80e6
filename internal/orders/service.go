package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pos-backend/internal/credit"
	"github.com/angelmondragon/pos-backend/internal/inventory"
	"github.com/angelmondragon/pos-backend/internal/products"
	"github.com/angelmondragon/pos-backend/pkg/db/models"
	"github.com/angelmondragon/pos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/logger"
	"github.com/angelmondragon/pos-backend/pkg/metrics"
	"github.com/angelmondragon/pos-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockLedger interface {
	ApplyMovement(ctx context.Context, tx *gorm.DB, input inventory.MovementInput) (*models.StockMovement, *models.StockBalance, error)
	Available(ctx context.Context, tx *gorm.DB, businessID, productID, locationID uuid.UUID) (int, error)
	PrimaryLocation(ctx context.Context, tx *gorm.DB, businessID uuid.UUID) (*models.Location, error)
	Invalidate(ctx context.Context, businessID uuid.UUID)
}

type shiftRegister interface {
	RequireOpenShift(ctx context.Context, tx *gorm.DB, businessID, operatorID uuid.UUID) (*models.CashShift, error)
}

type creditLedger interface {
	Reserve(ctx context.Context, tx *gorm.DB, businessID, customerID uuid.UUID, amount decimal.Decimal) (*models.Customer, error)
	Release(ctx context.Context, tx *gorm.DB, businessID, customerID uuid.UUID, amount decimal.Decimal) (*models.Customer, error)
	Available(ctx context.Context, businessID, customerID uuid.UUID) (decimal.Decimal, error)
}

type documentNumberer interface {
	Next(ctx context.Context, tx *gorm.DB, businessID uuid.UUID, docType enums.DocumentType, at time.Time) (string, error)
}

// Service runs the order workflow: sales, quotes, cancellations and returns.
type Service interface {
	CreateSale(ctx context.Context, input SaleInput) (*OrderDetail, error)
	CreateQuote(ctx context.Context, input QuoteInput) (*OrderDetail, error)
	ConfirmQuote(ctx context.Context, input ConfirmQuoteInput) (*OrderDetail, error)
	CancelSale(ctx context.Context, input CancelInput) (*OrderDetail, error)
	ReturnSale(ctx context.Context, input ReturnInput) (*ReturnResult, error)
	Get(ctx context.Context, businessID, orderID uuid.UUID) (*OrderDetail, error)
}

// ServiceParams bundles the collaborators of the order workflow.
type ServiceParams struct {
	Tx        txRunner
	Repo      Repository
	Catalog   products.Catalog
	Inventory stockLedger
	Shifts    shiftRegister
	Credit    creditLedger
	Numbers   documentNumberer
	Outbox    outbox.Emitter
	Logger    *logger.Logger
	Metrics   *metrics.WorkflowMetrics
	TaxPolicy TaxPolicy
	Now       func() time.Time
}

type service struct {
	tx        txRunner
	repo      Repository
	catalog   products.Catalog
	inventory stockLedger
	shifts    shiftRegister
	credit    creditLedger
	numbers   documentNumberer
	outbox    outbox.Emitter
	logg      *logger.Logger
	metrics   *metrics.WorkflowMetrics
	policy    TaxPolicy
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("product catalog required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if params.Shifts == nil {
		return nil, fmt.Errorf("shift service required")
	}
	if params.Credit == nil {
		return nil, fmt.Errorf("credit ledger required")
	}
	if params.Numbers == nil {
		return nil, fmt.Errorf("numbering service required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	policy := params.TaxPolicy
	if policy == "" {
		policy = TaxPerProduct
	}
	if _, err := ParseTaxPolicy(string(policy)); err != nil {
		return nil, err
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
		catalog:   params.Catalog,
		inventory: params.Inventory,
		shifts:    params.Shifts,
		credit:    params.Credit,
		numbers:   params.Numbers,
		outbox:    params.Outbox,
		logg:      logg,
		metrics:   params.Metrics,
		policy:    policy,
		now:       now,
	}, nil
}

func (s *service) Get(ctx context.Context, businessID, orderID uuid.UUID) (*OrderDetail, error) {
	order, err := s.repo.FindOrder(ctx, businessID, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return s.detail(ctx, s.repo, order)
}

func (s *service) detail(ctx context.Context, repo Repository, order *models.Order) (*OrderDetail, error) {
	lines, err := repo.ListLines(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order lines")
	}
	payments, err := repo.ListPayments(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payments")
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	return &OrderDetail{Order: *order, Lines: lines, Payments: payments}, nil
}

func (s *service) loadOrder(ctx context.Context, repo Repository, businessID, orderID uuid.UUID, lock bool) (*models.Order, error) {
	var (
		order *models.Order
		err   error
	)
	if lock {
		order, err = repo.LockOrder(ctx, businessID, orderID)
	} else {
		order, err = repo.FindOrder(ctx, businessID, orderID)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) productIDs(lines []LineInput) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	return ids
}

// stockNeed sums the tracked quantity per product, keeping first-seen order so
// errors are deterministic.
type stockNeed struct {
	productID uuid.UUID
	quantity  int
}

func trackedNeeds(lines []models.OrderLine) []stockNeed {
	index := make(map[uuid.UUID]int)
	var needs []stockNeed
	for _, line := range lines {
		if !line.TrackStock {
			continue
		}
		if i, ok := index[line.ProductID]; ok {
			needs[i].quantity += line.Quantity
			continue
		}
		index[line.ProductID] = len(needs)
		needs = append(needs, stockNeed{productID: line.ProductID, quantity: line.Quantity})
	}
	return needs
}

func (s *service) checkStock(ctx context.Context, tx *gorm.DB, businessID, locationID uuid.UUID, needs []stockNeed) error {
	for _, need := range needs {
		available, err := s.inventory.Available(ctx, tx, businessID, need.productID, locationID)
		if err != nil {
			return err
		}
		if available < need.quantity {
			return inventory.InsufficientStock(need.productID, available, need.quantity)
		}
	}
	return nil
}

func (s *service) applyOutbound(ctx context.Context, tx *gorm.DB, order *models.Order, lines []models.OrderLine, actorID uuid.UUID) error {
	for _, line := range lines {
		if !line.TrackStock {
			continue
		}
		orderID := order.ID
		if _, _, err := s.inventory.ApplyMovement(ctx, tx, inventory.MovementInput{
			BusinessID: order.BusinessID,
			ProductID:  line.ProductID,
			LocationID: *order.LocationID,
			Type:       enums.MovementOutbound,
			Quantity:   line.Quantity,
			UnitCost:   line.UnitCost,
			RefType:    enums.RefOrder,
			RefID:      &orderID,
			ActorID:    actorID,
		}); err != nil {
			return err
		}
	}
	return nil
}

// checkCustomer confirms the customer exists and, when credit is used, that it
// has the headroom. The reservation inside the transaction re-checks it.
func (s *service) checkCustomer(ctx context.Context, businessID uuid.UUID, customerID *uuid.UUID, creditUsed decimal.Decimal) error {
	if customerID == nil {
		return nil
	}
	available, err := s.credit.Available(ctx, businessID, *customerID)
	if err != nil {
		return err
	}
	if creditUsed.GreaterThan(available) {
		return credit.InsufficientCredit(*customerID, available, creditUsed)
	}
	return nil
}

func ptr[T any](v T) *T {
	return &v
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
