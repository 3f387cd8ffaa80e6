// Package testutil holds sqlite fixtures shared by the workflow tests.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/pos-backend/pkg/db"
	"github.com/angelmondragon/pos-backend/pkg/db/models"
	"github.com/angelmondragon/pos-backend/pkg/enums"
)

// OpenDB returns an isolated in-memory sqlite database with every model migrated.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:pos_" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=1"
	return open(t, dsn)
}

// OpenFileDB returns a file-backed sqlite database whose transactions take the
// write lock up front, so concurrent writers queue instead of failing.
func OpenFileDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pos.db")
	dsn := "file:" + path + "?_busy_timeout=10000&_txlock=immediate&_journal_mode=WAL"
	return open(t, dsn)
}

func open(t *testing.T, dsn string) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate models: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

// Client wraps conn in the transaction runner used by the services.
func Client(conn *gorm.DB) *db.Client {
	return db.Wrap(conn, 5*time.Second)
}

// Money parses a decimal literal and panics on typos.
func Money(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

type ProductOpts struct {
	Code             string
	SalePrice        string
	CostPrice        string
	TaxRate          string
	TaxExcluded      bool
	Untracked        bool
	Inactive         bool
	ReorderThreshold int
}

func SeedProduct(t *testing.T, conn *gorm.DB, businessID uuid.UUID, opts ProductOpts) *models.Product {
	t.Helper()
	if opts.Code == "" {
		opts.Code = "P-" + uuid.NewString()[:8]
	}
	if opts.SalePrice == "" {
		opts.SalePrice = "20"
	}
	if opts.CostPrice == "" {
		opts.CostPrice = "10"
	}
	if opts.TaxRate == "" {
		opts.TaxRate = "0.16"
	}
	p := &models.Product{
		BusinessID:       businessID,
		Code:             opts.Code,
		Name:             "Product " + opts.Code,
		CostPrice:        Money(opts.CostPrice),
		SalePrice:        Money(opts.SalePrice),
		TaxRate:          Money(opts.TaxRate),
		TaxIncluded:      !opts.TaxExcluded,
		TrackStock:       !opts.Untracked,
		ReorderThreshold: opts.ReorderThreshold,
		Active:           !opts.Inactive,
	}
	if err := conn.Create(p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func SeedLocation(t *testing.T, conn *gorm.DB, businessID uuid.UUID, primary bool) *models.Location {
	t.Helper()
	loc := &models.Location{BusinessID: businessID, Name: "Location", IsPrimary: primary, Active: true}
	if err := conn.Create(loc).Error; err != nil {
		t.Fatalf("seed location: %v", err)
	}
	return loc
}

func SeedCustomer(t *testing.T, conn *gorm.DB, businessID uuid.UUID, limit, utilized string) *models.Customer {
	t.Helper()
	c := &models.Customer{
		BusinessID:     businessID,
		Name:           "Customer",
		CreditLimit:    Money(limit),
		CreditUtilized: Money(utilized),
		Active:         true,
	}
	if err := conn.Create(c).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return c
}

// SeedStock writes an opening balance together with the inbound movement that
// explains it, keeping the ledger replayable.
func SeedStock(t *testing.T, conn *gorm.DB, businessID, productID, locationID uuid.UUID, qty int) {
	t.Helper()
	bal := &models.StockBalance{ProductID: productID, LocationID: locationID, BusinessID: businessID, Quantity: qty}
	if err := conn.Create(bal).Error; err != nil {
		t.Fatalf("seed balance: %v", err)
	}
	mv := &models.StockMovement{
		BusinessID:     businessID,
		ProductID:      productID,
		LocationID:     locationID,
		Type:           enums.MovementInbound,
		Quantity:       qty,
		QuantityBefore: 0,
		QuantityAfter:  qty,
		Delta:          qty,
		UnitCost:       decimal.Zero,
		RefType:        enums.RefAdjustment,
		ActorID:        uuid.New(),
	}
	if err := conn.Create(mv).Error; err != nil {
		t.Fatalf("seed movement: %v", err)
	}
}

func SeedOpenShift(t *testing.T, conn *gorm.DB, businessID, operatorID uuid.UUID, till string, float string) *models.CashShift {
	t.Helper()
	s := &models.CashShift{
		BusinessID:   businessID,
		TillID:       till,
		OperatorID:   operatorID,
		Status:       enums.ShiftStatusOpen,
		OpeningFloat: Money(float),
		OpenedAt:     time.Now().UTC(),
	}
	if err := conn.Create(s).Error; err != nil {
		t.Fatalf("seed shift: %v", err)
	}
	return s
}

// Quantity reads the stored balance, treating a missing row as zero.
func Quantity(t *testing.T, conn *gorm.DB, productID, locationID uuid.UUID) int {
	t.Helper()
	var bal models.StockBalance
	err := conn.Where("product_id = ? AND location_id = ?", productID, locationID).Limit(1).Find(&bal).Error
	if err != nil {
		t.Fatalf("read balance: %v", err)
	}
	return bal.Quantity
}

// Count returns the number of rows of model matching the optional condition.
func Count(t *testing.T, conn *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	q := conn.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
