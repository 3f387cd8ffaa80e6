package credit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/pos-backend/pkg/db/models"
)

// Repository reads and writes the credit columns of customers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindCustomer(ctx context.Context, businessID, id uuid.UUID) (*models.Customer, error)
	LockCustomer(ctx context.Context, businessID, id uuid.UUID) (*models.Customer, error)
	SetUtilized(ctx context.Context, id uuid.UUID, utilized decimal.Decimal) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindCustomer(ctx context.Context, businessID, id uuid.UUID) (*models.Customer, error) {
	return r.find(r.db.WithContext(ctx), businessID, id)
}

func (r *repository) LockCustomer(ctx context.Context, businessID, id uuid.UUID) (*models.Customer, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), businessID, id)
}

func (r *repository) find(q *gorm.DB, businessID, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	err := q.Where("id = ? AND business_id = ?", id, businessID).First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repository) SetUtilized(ctx context.Context, id uuid.UUID, utilized decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"credit_utilized": utilized,
			"updated_at":      time.Now().UTC(),
		}).Error
}
