package products

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pos-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
)

// Repository reads catalog rows for the transaction workflows. Catalog
// management itself lives elsewhere.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, product *models.Product) (*models.Product, error)
	FindByID(ctx context.Context, businessID, id uuid.UUID) (*models.Product, error)
	FindByIDs(ctx context.Context, businessID uuid.UUID, ids []uuid.UUID) ([]models.Product, error)
	UpdateCostPrice(ctx context.Context, businessID, id uuid.UUID, cost decimal.Decimal) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a product repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func (r *repository) FindByID(ctx context.Context, businessID, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("id = ? AND business_id = ?", id, businessID).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindByIDs(ctx context.Context, businessID uuid.UUID, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND id IN ?", businessID, ids).
		Find(&rows).Error
	return rows, err
}

func (r *repository) UpdateCostPrice(ctx context.Context, businessID, id uuid.UUID, cost decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND business_id = ?", id, businessID).
		Update("cost_price", cost)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}
