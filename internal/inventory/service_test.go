package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/pos-backend/internal/products"
	tu "github.com/angelmondragon/pos-backend/internal/testutil"
	"github.com/angelmondragon/pos-backend/pkg/db/models"
	"github.com/angelmondragon/pos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/metrics"
	"github.com/angelmondragon/pos-backend/pkg/outbox"
	"github.com/angelmondragon/pos-backend/pkg/pagination"
)

type memoryCache struct {
	entries     map[string]BalanceView
	invalidated []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]BalanceView{}}
}

func (m *memoryCache) Get(_ context.Context, key string, dest any) (bool, error) {
	v, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	*(dest.(*BalanceView)) = v
	return true, nil
}

func (m *memoryCache) Set(_ context.Context, key string, value any) error {
	m.entries[key] = *(value.(*BalanceView))
	return nil
}

func (m *memoryCache) InvalidatePrefix(_ context.Context, prefix string) error {
	m.invalidated = append(m.invalidated, prefix)
	for k := range m.entries {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(m.entries, k)
		}
	}
	return nil
}

type fixture struct {
	conn     *gorm.DB
	svc      Service
	cache    *memoryCache
	registry *prometheus.Registry
	business uuid.UUID
	primary  *models.Location
	actor    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := tu.OpenDB(t)
	catalog, err := products.NewCatalog(products.NewRepository(conn))
	require.NoError(t, err)
	c := newMemoryCache()
	reg := prometheus.NewRegistry()
	m := metrics.NewWorkflowMetrics(reg)
	svc, err := NewService(tu.Client(conn), NewRepository(conn), catalog, outbox.NewService(outbox.NewRepository(conn), nil), c, nil, m)
	require.NoError(t, err)
	business := uuid.New()
	return &fixture{
		conn:     conn,
		svc:      svc,
		cache:    c,
		registry: reg,
		business: business,
		primary:  tu.SeedLocation(t, conn, business, true),
		actor:    uuid.New(),
	}
}

func (f *fixture) apply(t *testing.T, productID uuid.UUID, mt enums.MovementType, qty int) (*models.StockMovement, error) {
	t.Helper()
	var out *models.StockMovement
	err := tu.Client(f.conn).WithTx(context.Background(), func(tx *gorm.DB) error {
		m, _, err := f.svc.ApplyMovement(context.Background(), tx, MovementInput{
			BusinessID: f.business,
			ProductID:  productID,
			LocationID: f.primary.ID,
			Type:       mt,
			Quantity:   qty,
			UnitCost:   tu.Money("4.5"),
			RefType:    enums.RefAdjustment,
			ActorID:    f.actor,
		})
		out = m
		return err
	})
	return out, err
}

func movementCount(t *testing.T, reg *prometheus.Registry, movementType string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() != "pos_stock_movements_total" {
			continue
		}
		for _, metric := range fam.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "type" && label.GetValue() == movementType {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	conn := tu.OpenDB(t)
	catalog, err := products.NewCatalog(products.NewRepository(conn))
	require.NoError(t, err)
	_, err = NewService(nil, NewRepository(conn), catalog, outbox.NewService(outbox.NewRepository(conn), nil), nil, nil, nil)
	require.Error(t, err)
	_, err = NewService(tu.Client(conn), NewRepository(conn), catalog, nil, nil, nil, nil)
	require.Error(t, err)
}

func TestApplyMovementCreatesBalanceLazilyAndRecordsChain(t *testing.T) {
	f := newFixture(t)
	p := tu.SeedProduct(t, f.conn, f.business, tu.ProductOpts{})

	in, err := f.apply(t, p.ID, enums.MovementInbound, 10)
	require.NoError(t, err)
	require.Equal(t, 0, in.QuantityBefore)
	require.Equal(t, 10, in.QuantityAfter)
	require.Equal(t, 10, in.Delta)
	require.True(t, tu.Money("4.5").Equal(in.UnitCost))

	out, err := f.apply(t, p.ID, enums.MovementOutbound, 3)
	require.NoError(t, err)
	require.Equal(t, 10, out.QuantityBefore)
	require.Equal(t, 7, out.QuantityAfter)
	require.Equal(t, -3, out.Delta)
	require.Equal(t, 3, out.Quantity)

	adj, err := f.apply(t, p.ID, enums.MovementAdjustment, 2)
	require.NoError(t, err)
	require.Equal(t, -5, adj.Delta)

	require.Equal(t, 2, tu.Quantity(t, f.conn, p.ID, f.primary.ID))
	require.Equal(t, float64(1), movementCount(t, f.registry, "outbound"))
	require.Equal(t, float64(1), movementCount(t, f.registry, "inbound"))
}

func TestApplyMovementRejectsNegativeBalance(t *testing.T) {
	f := newFixture(t)
	p := tu.SeedProduct(t, f.conn, f.business, tu.ProductOpts{})
	tu.SeedStock(t, f.conn, f.business, p.ID, f.primary.ID, 2)

	_, err := f.apply(t, p.ID, enums.MovementOutbound, 3)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBusinessRule))
	require.Contains(t, err.Error(), "insufficient stock, available 2, requested 3")
	details := pkgerrors.As(err).Details().(map[string]any)
	require.Equal(t, 2, details["available"])
	require.Equal(t, 3, details["requested"])

	require.Equal(t, 2, tu.Quantity(t, f.conn, p.ID, f.primary.ID))
	require.EqualValues(t, 1, tu.Count(t, f.conn, &models.StockMovement{}, "product_id = ?", p.ID))
}

func TestApplyMovementOutboundWithoutBalanceRow(t *testing.T) {
	f := newFixture(t)
	p := tu.SeedProduct(t, f.conn, f.business, tu.ProductOpts{})

	_, err := f.apply(t, p.ID, enums.MovementOutbound, 1)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBusinessRule))
	require.Contains(t, err.Error(), "available 0, requested 1")
}

func TestApplyMovementValidatesInput(t *testing.T) {
	f := newFixture(t)
	p := tu.SeedProduct(t, f.conn, f.business, tu.ProductOpts{})
	untracked := tu.SeedProduct(t, f.conn, f.business, tu.ProductOpts{Untracked: true})

	_, err := f.apply(t, p.ID, enums.MovementInbound, 0)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.apply(t, p.ID, enums.MovementAdjustment, -1)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.apply(t, untracked.ID, enums.MovementInbound, 1)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.apply(t, uuid.New(), enums.MovementInbound, 1)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	err = tu.Client(f.conn).WithTx(context.Background(), func(tx *gorm.DB) error {
		_, _, err := f.svc.ApplyMovement(context.Background(), tx, MovementInput{
			BusinessID: f.business, ProductID: p.ID, LocationID: f.primary.ID,
			Type: "teleport", Quantity: 1, RefType: enums.RefAdjustment,
		})
		return err
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestAdjustSetsCountedQuantityAndEmitsEvent(t *testing.T) {
	f := newFixture(t)
	p := tu.SeedProduct(t, f.conn, f.business, tu.ProductOpts{})
	tu.SeedStock(t, f.conn, f.business, p.ID, f.primary.ID, 8)

	res, err := f.svc.Adjust(context.Background(), AdjustInput{
		BusinessID: f.business,
		ProductID:  p.ID,
		Quantity:   5,
		Reason:     "cycle count",
		ActorID:    f.actor,
	})
	require.NoError(t, err)
	require.Equal(t, 5, res.Balance.Quantity)
	require.Equal(t, -3, res.Movement.Delta)
	require.Equal(t, enums.RefAdjustment, res.Movement.RefType)
	require.EqualValues(t, 1, tu.Count(t, f.conn, &models.OutboxEvent{}, "event_type = ?", enums.EventStockAdjusted))
	require.Contains(t, f.cache.invalidated, "balance:"+f.business.String()+":")

	_, err = f.svc.Adjust(context.Background(), AdjustInput{BusinessID: f.business, ProductID: p.ID, Quantity: 1})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestTransferMovesBothLegsAtomically(t *testing.T) {
	f := newFixture(t)
	p := tu.SeedProduct(t, f.conn, f.business, tu.ProductOpts{})
	backroom := tu.SeedLocation(t, f.conn, f.business, false)
	tu.SeedStock(t, f.conn, f.business, p.ID, f.primary.ID, 6)

	res, err := f.svc.Transfer(context.Background(), TransferInput{
		BusinessID:     f.business,
		ProductID:      p.ID,
		FromLocationID: f.primary.ID,
		ToLocationID:   backroom.ID,
		Quantity:       4,
		ActorID:        f.actor,
	})
	require.NoError(t, err)
	require.Equal(t, res.TransferID, *res.Out.RefID)
	require.Equal(t, res.TransferID, *res.In.RefID)
	require.Equal(t, 2, tu.Quantity(t, f.conn, p.ID, f.primary.ID))
	require.Equal(t, 4, tu.Quantity(t, f.conn, p.ID, backroom.ID))

	_, err = f.svc.Transfer(context.Background(), TransferInput{
		BusinessID: f.business, ProductID: p.ID,
		FromLocationID: f.primary.ID, ToLocationID: backroom.ID,
		Quantity: 3, ActorID: f.actor,
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBusinessRule))
	require.Equal(t, 2, tu.Quantity(t, f.conn, p.ID, f.primary.ID))
	require.Equal(t, 4, tu.Quantity(t, f.conn, p.ID, backroom.ID))

	_, err = f.svc.Transfer(context.Background(), TransferInput{
		BusinessID: f.business, ProductID: p.ID,
		FromLocationID: backroom.ID, ToLocationID: backroom.ID, Quantity: 1,
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestTransferIntoForeignLocationIsNotFound(t *testing.T) {
	f := newFixture(t)
	p := tu.SeedProduct(t, f.conn, f.business, tu.ProductOpts{})
	foreign := tu.SeedLocation(t, f.conn, uuid.New(), false)
	tu.SeedStock(t, f.conn, f.business, p.ID, f.primary.ID, 6)

	_, err := f.svc.Transfer(context.Background(), TransferInput{
		BusinessID: f.business, ProductID: p.ID,
		FromLocationID: f.primary.ID, ToLocationID: foreign.ID, Quantity: 1,
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	require.Equal(t, 6, tu.Quantity(t, f.conn, p.ID, f.primary.ID))
}

func TestGetBalanceUsesCacheUntilInvalidated(t *testing.T) {
	f := newFixture(t)
	p := tu.SeedProduct(t, f.conn, f.business, tu.ProductOpts{ReorderThreshold: 5})
	tu.SeedStock(t, f.conn, f.business, p.ID, f.primary.ID, 3)
	ctx := context.Background()

	view, err := f.svc.GetBalance(ctx, f.business, p.ID, f.primary.ID)
	require.NoError(t, err)
	require.Equal(t, 3, view.Quantity)
	require.True(t, view.LowStock)

	require.NoError(t, f.conn.Model(&models.StockBalance{}).Where("product_id = ?", p.ID).Update("quantity", 9).Error)
	view, err = f.svc.GetBalance(ctx, f.business, p.ID, f.primary.ID)
	require.NoError(t, err)
	require.Equal(t, 3, view.Quantity, "served from cache")

	f.svc.Invalidate(ctx, f.business)
	view, err = f.svc.GetBalance(ctx, f.business, p.ID, f.primary.ID)
	require.NoError(t, err)
	require.Equal(t, 9, view.Quantity)
	require.False(t, view.LowStock)
}

func TestListLowStockIncludesProductsWithoutBalance(t *testing.T) {
	f := newFixture(t)
	low := tu.SeedProduct(t, f.conn, f.business, tu.ProductOpts{Code: "A-LOW", ReorderThreshold: 5})
	ok := tu.SeedProduct(t, f.conn, f.business, tu.ProductOpts{Code: "B-OK", ReorderThreshold: 5})
	empty := tu.SeedProduct(t, f.conn, f.business, tu.ProductOpts{Code: "C-EMPTY", ReorderThreshold: 1})
	tu.SeedProduct(t, f.conn, f.business, tu.ProductOpts{Code: "D-UNTRACKED", ReorderThreshold: 5, Untracked: true})
	tu.SeedProduct(t, f.conn, f.business, tu.ProductOpts{Code: "E-INACTIVE", ReorderThreshold: 5, Inactive: true})
	tu.SeedStock(t, f.conn, f.business, low.ID, f.primary.ID, 4)
	tu.SeedStock(t, f.conn, f.business, ok.ID, f.primary.ID, 5)

	items, err := f.svc.ListLowStock(context.Background(), f.business, f.primary.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, low.ID, items[0].ProductID)
	require.Equal(t, 4, items[0].Quantity)
	require.Equal(t, empty.ID, items[1].ProductID)
	require.Equal(t, 0, items[1].Quantity)
	require.Equal(t, f.primary.ID, items[1].LocationID)
}

func TestListMovementsPagesInInsertionOrder(t *testing.T) {
	f := newFixture(t)
	p := tu.SeedProduct(t, f.conn, f.business, tu.ProductOpts{})
	for i := 0; i < 5; i++ {
		_, err := f.apply(t, p.ID, enums.MovementInbound, i+1)
		require.NoError(t, err)
	}
	ctx := context.Background()

	page, err := f.svc.ListMovements(ctx, f.business, p.ID, f.primary.ID, pagination.Params{Limit: 3})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	require.NotEmpty(t, page.NextCursor)
	require.Equal(t, 1, page.Items[0].Quantity)

	next, err := f.svc.ListMovements(ctx, f.business, p.ID, f.primary.ID, pagination.Params{Limit: 3, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 2)
	require.Empty(t, next.NextCursor)
	require.Equal(t, 4, next.Items[0].Quantity)

	_, err = f.svc.ListMovements(ctx, f.business, p.ID, f.primary.ID, pagination.Params{Cursor: "%%%"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestVerifyLedgerMatchesReplayAndFlagsDrift(t *testing.T) {
	f := newFixture(t)
	p := tu.SeedProduct(t, f.conn, f.business, tu.ProductOpts{})
	_, err := f.apply(t, p.ID, enums.MovementInbound, 10)
	require.NoError(t, err)
	_, err = f.apply(t, p.ID, enums.MovementOutbound, 4)
	require.NoError(t, err)
	ctx := context.Background()

	report, err := f.svc.VerifyLedger(ctx, f.business, p.ID, f.primary.ID)
	require.NoError(t, err)
	require.True(t, report.Consistent)
	require.Equal(t, 6, report.ReplayedQuantity)
	require.Equal(t, 2, report.MovementCount)

	require.NoError(t, f.conn.Model(&models.StockBalance{}).Where("product_id = ?", p.ID).Update("quantity", 7).Error)
	report, err = f.svc.VerifyLedger(ctx, f.business, p.ID, f.primary.ID)
	require.NoError(t, err)
	require.False(t, report.Consistent)
	require.Contains(t, report.Problem, "differs")

	reports, err := f.svc.VerifyAll(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)

	_, err = f.svc.VerifyLedger(ctx, f.business, uuid.New(), f.primary.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestPrimaryLocationMissing(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.PrimaryLocation(context.Background(), nil, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBusinessRule))
}

func TestAvailableTreatsMissingRowAsZero(t *testing.T) {
	f := newFixture(t)
	p := tu.SeedProduct(t, f.conn, f.business, tu.ProductOpts{})
	qty, err := f.svc.Available(context.Background(), nil, f.business, p.ID, f.primary.ID)
	require.NoError(t, err)
	require.Zero(t, qty)

	tu.SeedStock(t, f.conn, f.business, p.ID, f.primary.ID, 7)
	qty, err = f.svc.Available(context.Background(), nil, f.business, p.ID, f.primary.ID)
	require.NoError(t, err)
	require.Equal(t, 7, qty)
}
