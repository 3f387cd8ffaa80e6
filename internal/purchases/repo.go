package purchases

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/pos-backend/pkg/db/models"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, purchase *models.Purchase, lines []models.PurchaseLine) error
	FindByID(ctx context.Context, businessID, id uuid.UUID) (*models.Purchase, error)
	LockByID(ctx context.Context, businessID, id uuid.UUID) (*models.Purchase, error)
	ListLines(ctx context.Context, purchaseID uuid.UUID) ([]models.PurchaseLine, error)
	MarkReceived(ctx context.Context, purchase *models.Purchase) error
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

func (r *repository) Create(ctx context.Context, purchase *models.Purchase, lines []models.PurchaseLine) error {
	db := r.db.WithContext(ctx)
	if err := db.Create(purchase).Error; err != nil {
		return err
	}
	for i := range lines {
		lines[i].PurchaseID = purchase.ID
	}
	if len(lines) == 0 {
		return nil
	}
	return db.Create(&lines).Error
}

func (r *repository) FindByID(ctx context.Context, businessID, id uuid.UUID) (*models.Purchase, error) {
	return first(r.db.WithContext(ctx).Where("id = ? AND business_id = ?", id, businessID))
}

func (r *repository) LockByID(ctx context.Context, businessID, id uuid.UUID) (*models.Purchase, error) {
	return first(r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND business_id = ?", id, businessID))
}

func (r *repository) ListLines(ctx context.Context, purchaseID uuid.UUID) ([]models.PurchaseLine, error) {
	var lines []models.PurchaseLine
	err := r.db.WithContext(ctx).
		Where("purchase_id = ?", purchaseID).
		Order("position ASC").
		Find(&lines).Error
	return lines, err
}

func (r *repository) MarkReceived(ctx context.Context, purchase *models.Purchase) error {
	return r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("id = ?", purchase.ID).
		Updates(map[string]any{
			"status":      purchase.Status,
			"location_id": purchase.LocationID,
			"received_at": purchase.ReceivedAt,
			"received_by": purchase.ReceivedBy,
		}).Error
}

func first(q *gorm.DB) (*models.Purchase, error) {
	var purchase models.Purchase
	if err := q.First(&purchase).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &purchase, nil
}
