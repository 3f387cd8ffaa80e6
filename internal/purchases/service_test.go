package purchases

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/pos-backend/internal/inventory"
	"github.com/angelmondragon/pos-backend/internal/products"
	"github.com/angelmondragon/pos-backend/internal/testutil"
	"github.com/angelmondragon/pos-backend/pkg/db/models"
	"github.com/angelmondragon/pos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/outbox"
)

func newTestService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	client := testutil.Client(conn)
	emitter := outbox.NewService(outbox.NewRepository(conn), nil)
	productRepo := products.NewRepository(conn)
	catalog, err := products.NewCatalog(productRepo)
	require.NoError(t, err)
	inv, err := inventory.NewService(client, inventory.NewRepository(conn), catalog, emitter, nil, nil, nil)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Tx:        client,
		Repo:      NewRepository(conn),
		Products:  productRepo,
		Catalog:   catalog,
		Inventory: inv,
		Outbox:    emitter,
		Now:       func() time.Time { return time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return svc
}

func TestReceivePurchaseBooksStockAndCost(t *testing.T) {
	conn := testutil.OpenDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()
	business, actor := uuid.New(), uuid.New()
	primary := testutil.SeedLocation(t, conn, business, true)
	backroom := testutil.SeedLocation(t, conn, business, false)
	tracked := testutil.SeedProduct(t, conn, business, testutil.ProductOpts{CostPrice: "10"})
	labor := testutil.SeedProduct(t, conn, business, testutil.ProductOpts{CostPrice: "5", Untracked: true})
	testutil.SeedStock(t, conn, business, tracked.ID, backroom.ID, 3)

	created, err := svc.Create(ctx, CreateInput{
		BusinessID:   business,
		ActorID:      actor,
		SupplierName: " Acme Supply ",
		Reference:    "INV-778",
		Lines: []LineInput{
			{ProductID: tracked.ID, Quantity: 12, UnitCost: testutil.Money("11.50")},
			{ProductID: labor.ID, Quantity: 1, UnitCost: testutil.Money("7")},
		},
	})
	require.NoError(t, err)
	require.Equal(t, enums.PurchaseStatusPending, created.Purchase.Status)
	require.Equal(t, "Acme Supply", created.Purchase.SupplierName)
	require.True(t, testutil.Money("145").Equal(created.Purchase.Total))
	require.Equal(t, 0, testutil.Quantity(t, conn, tracked.ID, primary.ID))

	received, err := svc.Receive(ctx, ReceiveInput{PurchaseID: created.Purchase.ID, BusinessID: business, LocationID: &backroom.ID, ActorID: actor})
	require.NoError(t, err)
	require.Equal(t, enums.PurchaseStatusReceived, received.Purchase.Status)
	require.Equal(t, backroom.ID, *received.Purchase.LocationID)
	require.Equal(t, actor, *received.Purchase.ReceivedBy)
	require.NotNil(t, received.Purchase.ReceivedAt)

	require.Equal(t, 15, testutil.Quantity(t, conn, tracked.ID, backroom.ID))
	require.EqualValues(t, 1, testutil.Count(t, conn, &models.StockMovement{}, "ref_id = ? AND ref_type = ?", created.Purchase.ID, enums.RefPurchase))
	require.EqualValues(t, 0, testutil.Count(t, conn, &models.StockMovement{}, "product_id = ?", labor.ID))
	require.EqualValues(t, 1, testutil.Count(t, conn, &models.OutboxEvent{}, "event_type = ?", enums.EventPurchaseReceived))

	var p models.Product
	require.NoError(t, conn.First(&p, "id = ?", tracked.ID).Error)
	require.True(t, testutil.Money("11.50").Equal(p.CostPrice))
	require.NoError(t, conn.First(&p, "id = ?", labor.ID).Error)
	require.True(t, testutil.Money("7").Equal(p.CostPrice))

	_, err = svc.Receive(ctx, ReceiveInput{PurchaseID: created.Purchase.ID, BusinessID: business, ActorID: actor})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBusinessRule))
	require.Contains(t, err.Error(), "purchase already received")
	require.Equal(t, 15, testutil.Quantity(t, conn, tracked.ID, backroom.ID))

	got, err := svc.Get(ctx, business, created.Purchase.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 2)
	require.Equal(t, 1, got.Lines[0].Position)
}

func TestReceivePurchaseDefaultsToPrimaryLocation(t *testing.T) {
	conn := testutil.OpenDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()
	business := uuid.New()
	primary := testutil.SeedLocation(t, conn, business, true)
	product := testutil.SeedProduct(t, conn, business, testutil.ProductOpts{})

	created, err := svc.Create(ctx, CreateInput{BusinessID: business, ActorID: uuid.New(), SupplierName: "Acme",
		Lines: []LineInput{{ProductID: product.ID, Quantity: 4, UnitCost: testutil.Money("9")}}})
	require.NoError(t, err)

	received, err := svc.Receive(ctx, ReceiveInput{PurchaseID: created.Purchase.ID, BusinessID: business, ActorID: uuid.New()})
	require.NoError(t, err)
	require.Equal(t, primary.ID, *received.Purchase.LocationID)
	require.Equal(t, 4, testutil.Quantity(t, conn, product.ID, primary.ID))
}

func TestReceivePurchaseRejectsUnusableLocation(t *testing.T) {
	conn := testutil.OpenDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()
	business := uuid.New()
	testutil.SeedLocation(t, conn, business, true)
	closed := testutil.SeedLocation(t, conn, business, false)
	require.NoError(t, conn.Model(&models.Location{}).Where("id = ?", closed.ID).Update("active", false).Error)
	foreign := testutil.SeedLocation(t, conn, uuid.New(), true)
	product := testutil.SeedProduct(t, conn, business, testutil.ProductOpts{})

	created, err := svc.Create(ctx, CreateInput{BusinessID: business, ActorID: uuid.New(), SupplierName: "Acme",
		Lines: []LineInput{{ProductID: product.ID, Quantity: 4, UnitCost: testutil.Money("9")}}})
	require.NoError(t, err)

	for _, loc := range []uuid.UUID{closed.ID, foreign.ID} {
		_, err = svc.Receive(ctx, ReceiveInput{PurchaseID: created.Purchase.ID, BusinessID: business, LocationID: &loc, ActorID: uuid.New()})
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	}

	got, err := svc.Get(ctx, business, created.Purchase.ID)
	require.NoError(t, err)
	require.Equal(t, enums.PurchaseStatusPending, got.Purchase.Status)
	require.EqualValues(t, 0, testutil.Count(t, conn, &models.StockMovement{}, ""))
}

func TestCreatePurchaseValidation(t *testing.T) {
	conn := testutil.OpenDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()
	business := uuid.New()
	product := testutil.SeedProduct(t, conn, business, testutil.ProductOpts{})

	cases := []CreateInput{
		{BusinessID: business, SupplierName: " ", Lines: []LineInput{{ProductID: product.ID, Quantity: 1}}},
		{BusinessID: business, SupplierName: "Acme"},
		{BusinessID: business, SupplierName: "Acme", Lines: []LineInput{{ProductID: product.ID, Quantity: 0}}},
		{BusinessID: business, SupplierName: "Acme", Lines: []LineInput{{ProductID: product.ID, Quantity: 1, UnitCost: testutil.Money("-1")}}},
		{BusinessID: business, SupplierName: "Acme", Lines: []LineInput{{ProductID: uuid.New(), Quantity: 1}}},
	}
	for _, in := range cases {
		_, err := svc.Create(ctx, in)
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "%+v", in)
	}

	_, err := svc.Get(ctx, business, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
