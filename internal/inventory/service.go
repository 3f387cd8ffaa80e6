package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pos-backend/internal/products"
	"github.com/angelmondragon/pos-backend/pkg/cache"
	"github.com/angelmondragon/pos-backend/pkg/db/models"
	"github.com/angelmondragon/pos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/logger"
	"github.com/angelmondragon/pos-backend/pkg/metrics"
	"github.com/angelmondragon/pos-backend/pkg/outbox"
	"github.com/angelmondragon/pos-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/pos-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns every change to stock balances. Workflows call ApplyMovement
// inside their own transaction; Adjust and Transfer open one themselves.
type Service interface {
	ApplyMovement(ctx context.Context, tx *gorm.DB, input MovementInput) (*models.StockMovement, *models.StockBalance, error)
	Adjust(ctx context.Context, input AdjustInput) (*MovementResult, error)
	Transfer(ctx context.Context, input TransferInput) (*TransferResult, error)

	Available(ctx context.Context, tx *gorm.DB, businessID, productID, locationID uuid.UUID) (int, error)
	GetBalance(ctx context.Context, businessID, productID, locationID uuid.UUID) (*BalanceView, error)
	ListLowStock(ctx context.Context, businessID, locationID uuid.UUID) ([]LowStockItem, error)
	ListMovements(ctx context.Context, businessID, productID, locationID uuid.UUID, params pagination.Params) (*MovementPage, error)
	VerifyLedger(ctx context.Context, businessID, productID, locationID uuid.UUID) (*LedgerReport, error)
	VerifyAll(ctx context.Context) ([]LedgerReport, error)

	PrimaryLocation(ctx context.Context, tx *gorm.DB, businessID uuid.UUID) (*models.Location, error)
	ActiveLocation(ctx context.Context, tx *gorm.DB, businessID, id uuid.UUID) (*models.Location, error)
	ActiveLocations(ctx context.Context) ([]models.Location, error)

	// Invalidate drops cached balances of a business. Call it after commit.
	Invalidate(ctx context.Context, businessID uuid.UUID)
}

type service struct {
	tx      txRunner
	repo    Repository
	catalog products.Catalog
	outbox  outbox.Emitter
	cache   cache.Cache
	logg    *logger.Logger
	metrics *metrics.WorkflowMetrics
}

// NewService wires the stock ledger. A nil cache disables caching.
func NewService(
	tx txRunner,
	repo Repository,
	catalog products.Catalog,
	emitter outbox.Emitter,
	c cache.Cache,
	logg *logger.Logger,
	m *metrics.WorkflowMetrics,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("product catalog required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if c == nil {
		c = cache.Noop{}
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		tx:      tx,
		repo:    repo,
		catalog: catalog,
		outbox:  emitter,
		cache:   c,
		logg:    logg,
		metrics: m,
	}, nil
}

func (s *service) ApplyMovement(ctx context.Context, tx *gorm.DB, input MovementInput) (*models.StockMovement, *models.StockBalance, error) {
	if tx == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeInternal, "stock movements require a transaction")
	}
	if err := validateMovement(input); err != nil {
		return nil, nil, err
	}

	product, err := s.catalog.Get(ctx, tx, input.BusinessID, input.ProductID)
	if err != nil {
		return nil, nil, err
	}
	if !product.TrackStock {
		return nil, nil, pkgerrors.Newf(pkgerrors.CodeValidation, "product %s does not track stock", product.Code).
			WithDetails(map[string]any{"product_id": product.ID})
	}

	repo := s.repo.WithTx(tx)
	var balance *models.StockBalance
	if input.Type.IsOutbound() {
		balance, err = repo.LockBalance(ctx, input.ProductID, input.LocationID)
	} else {
		balance, err = repo.EnsureBalance(ctx, input.BusinessID, input.ProductID, input.LocationID)
	}
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock stock balance")
	}

	before := 0
	if balance != nil {
		before = balance.Quantity
	}
	after := nextQuantity(input.Type, before, input.Quantity)
	if after < 0 {
		return nil, nil, InsufficientStock(input.ProductID, before, input.Quantity)
	}

	if balance == nil {
		// Outbound from a pair with no row only reaches here for quantity 0,
		// which validateMovement already refuses.
		return nil, nil, pkgerrors.New(pkgerrors.CodeInternal, "missing stock balance")
	}
	if err := repo.SetQuantity(ctx, input.ProductID, input.LocationID, after); err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update stock balance")
	}
	balance.Quantity = after

	movement := &models.StockMovement{
		BusinessID:     input.BusinessID,
		ProductID:      input.ProductID,
		LocationID:     input.LocationID,
		Type:           input.Type,
		Quantity:       input.Quantity,
		QuantityBefore: before,
		QuantityAfter:  after,
		Delta:          after - before,
		UnitCost:       input.UnitCost.Round(2),
		RefType:        input.RefType,
		RefID:          input.RefID,
		ActorID:        input.ActorID,
		Note:           input.Note,
	}
	if err := repo.AppendMovement(ctx, movement); err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append stock movement")
	}

	s.metrics.IncMovement(string(input.Type))
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"product_id":  input.ProductID.String(),
		"location_id": input.LocationID.String(),
		"type":        string(input.Type),
		"before":      before,
		"after":       after,
		"ref_type":    string(input.RefType),
	})
	s.logg.Info(logCtx, "stock movement applied")

	return movement, balance, nil
}

func validateMovement(input MovementInput) error {
	if input.BusinessID == uuid.Nil || input.ProductID == uuid.Nil || input.LocationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "business, product and location are required")
	}
	if !input.Type.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid movement type %q", input.Type)
	}
	if !input.RefType.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid reference type %q", input.RefType)
	}
	if input.Type.IsAbsolute() {
		if input.Quantity < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "counted quantity cannot be negative")
		}
		return nil
	}
	if input.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return nil
}

func nextQuantity(t enums.MovementType, current, qty int) int {
	switch {
	case t.IsAbsolute():
		return qty
	case t.IsOutbound():
		return current - qty
	default:
		return current + qty
	}
}

// InsufficientStock builds the error reported when a movement would drive a
// balance below zero.
func InsufficientStock(productID uuid.UUID, available, requested int) error {
	return pkgerrors.Newf(pkgerrors.CodeBusinessRule, "insufficient stock, available %d, requested %d", available, requested).
		WithDetails(map[string]any{
			"product_id": productID,
			"available":  available,
			"requested":  requested,
		})
}

func (s *service) Adjust(ctx context.Context, input AdjustInput) (result *MovementResult, err error) {
	defer s.metrics.Track("stock_adjust", time.Now(), &err)

	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "counted quantity cannot be negative")
	}
	if strings.TrimSpace(input.Reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment reason required")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var loc *models.Location
		var err error
		if input.LocationID == nil {
			loc, err = s.PrimaryLocation(ctx, tx, input.BusinessID)
		} else {
			loc, err = s.ActiveLocation(ctx, tx, input.BusinessID, *input.LocationID)
		}
		if err != nil {
			return err
		}

		note := input.Reason
		movement, balance, err := s.ApplyMovement(ctx, tx, MovementInput{
			BusinessID: input.BusinessID,
			ProductID:  input.ProductID,
			LocationID: loc.ID,
			Type:       enums.MovementAdjustment,
			Quantity:   input.Quantity,
			UnitCost:   decimal.Zero,
			RefType:    enums.RefAdjustment,
			ActorID:    input.ActorID,
			Note:       &note,
		})
		if err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventStockAdjusted,
			AggregateType: enums.AggregateStock,
			AggregateID:   input.ProductID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, BusinessID: &input.BusinessID},
			Data: payloads.StockAdjustedEvent{
				ProductID:  input.ProductID,
				LocationID: loc.ID,
				Before:     movement.QuantityBefore,
				After:      movement.QuantityAfter,
				Reason:     input.Reason,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit stock adjusted event")
		}

		result = &MovementResult{Movement: *movement, Balance: *balance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Invalidate(ctx, input.BusinessID)
	return result, nil
}

func (s *service) Transfer(ctx context.Context, input TransferInput) (result *TransferResult, err error) {
	defer s.metrics.Track("stock_transfer", time.Now(), &err)

	if input.FromLocationID == input.ToLocationID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source and destination locations must differ")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	transferID := uuid.New()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.ActiveLocation(ctx, tx, input.BusinessID, input.FromLocationID); err != nil {
			return err
		}
		if _, err := s.ActiveLocation(ctx, tx, input.BusinessID, input.ToLocationID); err != nil {
			return err
		}

		var note *string
		if trimmed := strings.TrimSpace(input.Note); trimmed != "" {
			note = &trimmed
		}
		base := MovementInput{
			BusinessID: input.BusinessID,
			ProductID:  input.ProductID,
			Quantity:   input.Quantity,
			UnitCost:   decimal.Zero,
			RefType:    enums.RefTransfer,
			RefID:      &transferID,
			ActorID:    input.ActorID,
			Note:       note,
		}

		outLeg := base
		outLeg.LocationID = input.FromLocationID
		outLeg.Type = enums.MovementTransferOut
		out, _, err := s.ApplyMovement(ctx, tx, outLeg)
		if err != nil {
			return err
		}

		inLeg := base
		inLeg.LocationID = input.ToLocationID
		inLeg.Type = enums.MovementTransferIn
		in, _, err := s.ApplyMovement(ctx, tx, inLeg)
		if err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventStockTransferred,
			AggregateType: enums.AggregateStock,
			AggregateID:   transferID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, BusinessID: &input.BusinessID},
			Data: payloads.StockTransferredEvent{
				ProductID:      input.ProductID,
				FromLocationID: input.FromLocationID,
				ToLocationID:   input.ToLocationID,
				Quantity:       input.Quantity,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit stock transferred event")
		}

		result = &TransferResult{TransferID: transferID, Out: *out, In: *in}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Invalidate(ctx, input.BusinessID)
	return result, nil
}

// Available reads the stored quantity without the cache; a pair without a
// balance row holds nothing.
func (s *service) Available(ctx context.Context, tx *gorm.DB, businessID, productID, locationID uuid.UUID) (int, error) {
	balance, err := s.repo.WithTx(tx).FindBalance(ctx, businessID, productID, locationID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read stock balance")
	}
	if balance == nil {
		return 0, nil
	}
	return balance.Quantity, nil
}

func (s *service) GetBalance(ctx context.Context, businessID, productID, locationID uuid.UUID) (*BalanceView, error) {
	key := cache.BalanceKey(businessID, productID, locationID)
	var cached BalanceView
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "balance cache read failed")
	}
	if hit {
		return &cached, nil
	}

	product, err := s.catalog.Get(ctx, nil, businessID, productID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ActiveLocation(ctx, nil, businessID, locationID); err != nil {
		return nil, err
	}
	balance, err := s.repo.FindBalance(ctx, businessID, productID, locationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read stock balance")
	}

	view := &BalanceView{
		ProductID:        productID,
		LocationID:       locationID,
		ReorderThreshold: product.ReorderThreshold,
	}
	if balance != nil {
		view.Quantity = balance.Quantity
	}
	view.LowStock = product.TrackStock && view.Quantity < product.ReorderThreshold

	if err := s.cache.Set(ctx, key, view); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "balance cache write failed")
	}
	return view, nil
}

func (s *service) ListLowStock(ctx context.Context, businessID, locationID uuid.UUID) ([]LowStockItem, error) {
	if _, err := s.ActiveLocation(ctx, nil, businessID, locationID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListLowStock(ctx, businessID, locationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list low stock")
	}
	if items == nil {
		items = []LowStockItem{}
	}
	return items, nil
}

func (s *service) ListMovements(ctx context.Context, businessID, productID, locationID uuid.UUID, params pagination.Params) (*MovementPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	var after int64
	if cursor != nil {
		after = cursor.After
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListMovements(ctx, businessID, productID, locationID, after, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stock movements")
	}

	page := &MovementPage{Items: rows}
	if len(rows) > limit {
		page.Items = rows[:limit]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{After: page.Items[limit-1].ID})
	}
	if page.Items == nil {
		page.Items = []models.StockMovement{}
	}
	return page, nil
}

func (s *service) VerifyLedger(ctx context.Context, businessID, productID, locationID uuid.UUID) (*LedgerReport, error) {
	balance, err := s.repo.FindBalance(ctx, businessID, productID, locationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read stock balance")
	}
	movements, err := s.repo.AllMovements(ctx, businessID, productID, locationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read stock movements")
	}
	if balance == nil && len(movements) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock balance not found")
	}

	report := &LedgerReport{
		BusinessID:    businessID,
		ProductID:     productID,
		LocationID:    locationID,
		MovementCount: len(movements),
	}
	if balance != nil {
		report.StoredQuantity = balance.Quantity
	}

	replayed, replayErr := Replay(movements)
	report.ReplayedQuantity = replayed
	switch {
	case replayErr != nil:
		report.Problem = replayErr.Error()
	case replayed != report.StoredQuantity:
		report.Problem = fmt.Sprintf("stored quantity %d differs from replayed %d", report.StoredQuantity, replayed)
	default:
		report.Consistent = true
	}
	return report, nil
}

// VerifyAll replays every stored balance. Used by the ledger audit job.
func (s *service) VerifyAll(ctx context.Context) ([]LedgerReport, error) {
	keys, err := s.repo.ListBalanceKeys(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stock balances")
	}
	reports := make([]LedgerReport, 0, len(keys))
	for _, key := range keys {
		report, err := s.VerifyLedger(ctx, key.BusinessID, key.ProductID, key.LocationID)
		if err != nil {
			return reports, err
		}
		reports = append(reports, *report)
	}
	return reports, nil
}

func (s *service) PrimaryLocation(ctx context.Context, tx *gorm.DB, businessID uuid.UUID) (*models.Location, error) {
	loc, err := s.repo.WithTx(tx).FindPrimaryLocation(ctx, businessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load primary location")
	}
	if loc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "business has no primary location")
	}
	return loc, nil
}

func (s *service) ActiveLocation(ctx context.Context, tx *gorm.DB, businessID, id uuid.UUID) (*models.Location, error) {
	loc, err := s.repo.WithTx(tx).FindLocation(ctx, businessID, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load location")
	}
	if loc == nil || !loc.Active {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "location not found")
	}
	return loc, nil
}

func (s *service) ActiveLocations(ctx context.Context) ([]models.Location, error) {
	locs, err := s.repo.ListActiveLocations(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list locations")
	}
	return locs, nil
}

func (s *service) Invalidate(ctx context.Context, businessID uuid.UUID) {
	if err := s.cache.InvalidatePrefix(ctx, cache.BalancePrefix(businessID)); err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"business_id": businessID.String(),
			"error":       err.Error(),
		}), "balance cache invalidation failed")
	}
}
