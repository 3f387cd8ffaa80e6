package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/pos-backend/pkg/db/models"
)

// Repository persists balances, the append-only movement ledger and locations.
// Movements can only be appended.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	LockBalance(ctx context.Context, productID, locationID uuid.UUID) (*models.StockBalance, error)
	EnsureBalance(ctx context.Context, businessID, productID, locationID uuid.UUID) (*models.StockBalance, error)
	SetQuantity(ctx context.Context, productID, locationID uuid.UUID, quantity int) error
	FindBalance(ctx context.Context, businessID, productID, locationID uuid.UUID) (*models.StockBalance, error)
	ListBalanceKeys(ctx context.Context) ([]BalanceKey, error)

	AppendMovement(ctx context.Context, movement *models.StockMovement) error
	ListMovements(ctx context.Context, businessID, productID, locationID uuid.UUID, afterID int64, limit int) ([]models.StockMovement, error)
	AllMovements(ctx context.Context, businessID, productID, locationID uuid.UUID) ([]models.StockMovement, error)

	ListLowStock(ctx context.Context, businessID, locationID uuid.UUID) ([]LowStockItem, error)

	FindPrimaryLocation(ctx context.Context, businessID uuid.UUID) (*models.Location, error)
	FindLocation(ctx context.Context, businessID, id uuid.UUID) (*models.Location, error)
	ListActiveLocations(ctx context.Context) ([]models.Location, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// LockBalance returns the row locked for update, or nil when the pair has no
// balance yet.
func (r *repository) LockBalance(ctx context.Context, productID, locationID uuid.UUID) (*models.StockBalance, error) {
	var bal models.StockBalance
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ? AND location_id = ?", productID, locationID).
		First(&bal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bal, nil
}

// EnsureBalance creates the zero row on first use and returns it locked.
func (r *repository) EnsureBalance(ctx context.Context, businessID, productID, locationID uuid.UUID) (*models.StockBalance, error) {
	seed := models.StockBalance{ProductID: productID, LocationID: locationID, BusinessID: businessID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "location_id"}},
			DoNothing: true,
		}).
		Create(&seed).Error
	if err != nil {
		return nil, err
	}
	bal, err := r.LockBalance(ctx, productID, locationID)
	if err != nil {
		return nil, err
	}
	if bal == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return bal, nil
}

func (r *repository) SetQuantity(ctx context.Context, productID, locationID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.StockBalance{}).
		Where("product_id = ? AND location_id = ?", productID, locationID).
		Updates(map[string]any{
			"quantity":   quantity,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *repository) FindBalance(ctx context.Context, businessID, productID, locationID uuid.UUID) (*models.StockBalance, error) {
	var bal models.StockBalance
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND product_id = ? AND location_id = ?", businessID, productID, locationID).
		First(&bal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bal, nil
}

func (r *repository) ListBalanceKeys(ctx context.Context) ([]BalanceKey, error) {
	var rows []models.StockBalance
	err := r.db.WithContext(ctx).
		Select("business_id", "product_id", "location_id").
		Order("business_id, product_id, location_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	keys := make([]BalanceKey, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, BalanceKey{BusinessID: row.BusinessID, ProductID: row.ProductID, LocationID: row.LocationID})
	}
	return keys, nil
}

func (r *repository) AppendMovement(ctx context.Context, movement *models.StockMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

func (r *repository) ListMovements(ctx context.Context, businessID, productID, locationID uuid.UUID, afterID int64, limit int) ([]models.StockMovement, error) {
	var rows []models.StockMovement
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND product_id = ? AND location_id = ? AND id > ?", businessID, productID, locationID, afterID).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) AllMovements(ctx context.Context, businessID, productID, locationID uuid.UUID) ([]models.StockMovement, error) {
	var rows []models.StockMovement
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND product_id = ? AND location_id = ?", businessID, productID, locationID).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

const lowStockQuery = `
SELECT p.id AS product_id,
       p.code,
       p.name,
       COALESCE(b.quantity, 0) AS quantity,
       p.reorder_threshold
FROM products p
LEFT JOIN stock_balances b
  ON b.product_id = p.id AND b.location_id = ?
WHERE p.business_id = ?
  AND p.active = ?
  AND p.track_stock = ?
  AND COALESCE(b.quantity, 0) < p.reorder_threshold
ORDER BY p.code ASC`

func (r *repository) ListLowStock(ctx context.Context, businessID, locationID uuid.UUID) ([]LowStockItem, error) {
	var rows []LowStockItem
	err := r.db.WithContext(ctx).
		Raw(lowStockQuery, locationID, businessID, true, true).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].LocationID = locationID
	}
	return rows, nil
}

func (r *repository) FindPrimaryLocation(ctx context.Context, businessID uuid.UUID) (*models.Location, error) {
	var loc models.Location
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND is_primary = ? AND active = ?", businessID, true, true).
		First(&loc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

func (r *repository) FindLocation(ctx context.Context, businessID, id uuid.UUID) (*models.Location, error) {
	var loc models.Location
	err := r.db.WithContext(ctx).
		Where("id = ? AND business_id = ?", id, businessID).
		First(&loc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

// ListActiveLocations returns every active location across businesses for the
// background scans.
func (r *repository) ListActiveLocations(ctx context.Context) ([]models.Location, error) {
	var locs []models.Location
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("business_id ASC, name ASC").
		Find(&locs).Error
	return locs, err
}
