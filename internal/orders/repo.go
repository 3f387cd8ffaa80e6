package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/pos-backend/pkg/db/models"
)

// Repository persists orders, their lines and payments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrder(ctx context.Context, order *models.Order, lines []models.OrderLine, payments []models.Payment) error
	InsertPayments(ctx context.Context, payments []models.Payment) error
	FindOrder(ctx context.Context, businessID, id uuid.UUID) (*models.Order, error)
	LockOrder(ctx context.Context, businessID, id uuid.UUID) (*models.Order, error)
	ListLines(ctx context.Context, orderID uuid.UUID) ([]models.OrderLine, error)
	ListPayments(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, fields map[string]any) error
	SetReturnedQuantity(ctx context.Context, lineID uuid.UUID, quantity int) error
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

// CreateOrder inserts the order and stamps OrderID on its children before
// inserting them.
func (r *repository) CreateOrder(ctx context.Context, order *models.Order, lines []models.OrderLine, payments []models.Payment) error {
	db := r.db.WithContext(ctx)
	if err := db.Create(order).Error; err != nil {
		return err
	}
	for i := range lines {
		lines[i].OrderID = order.ID
	}
	if len(lines) > 0 {
		if err := db.Create(&lines).Error; err != nil {
			return err
		}
	}
	for i := range payments {
		payments[i].OrderID = order.ID
	}
	return r.InsertPayments(ctx, payments)
}

func (r *repository) InsertPayments(ctx context.Context, payments []models.Payment) error {
	if len(payments) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&payments).Error
}

func (r *repository) FindOrder(ctx context.Context, businessID, id uuid.UUID) (*models.Order, error) {
	return firstOrder(r.db.WithContext(ctx).Where("id = ? AND business_id = ?", id, businessID))
}

func (r *repository) LockOrder(ctx context.Context, businessID, id uuid.UUID) (*models.Order, error) {
	return firstOrder(r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND business_id = ?", id, businessID))
}

func (r *repository) ListLines(ctx context.Context, orderID uuid.UUID) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("position ASC").
		Find(&lines).Error
	return lines, err
}

func (r *repository) ListPayments(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&payments).Error
	return payments, err
}

func (r *repository) UpdateOrder(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repository) SetReturnedQuantity(ctx context.Context, lineID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderLine{}).
		Where("id = ?", lineID).
		Update("returned_quantity", quantity).Error
}

func firstOrder(q *gorm.DB) (*models.Order, error) {
	var order models.Order
	err := q.First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}
