package shifts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/pos-backend/pkg/db/models"
	"github.com/angelmondragon/pos-backend/pkg/enums"
)

// Repository persists cash shifts and reads the till activity needed to close them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, shift *models.CashShift) error
	FindByID(ctx context.Context, businessID, id uuid.UUID) (*models.CashShift, error)
	LockByID(ctx context.Context, businessID, id uuid.UUID) (*models.CashShift, error)
	FindOpenByTill(ctx context.Context, businessID uuid.UUID, tillID string) (*models.CashShift, error)
	FindOpenByOperator(ctx context.Context, businessID, operatorID uuid.UUID) (*models.CashShift, error)
	FindAnyOpenByOperator(ctx context.Context, operatorID uuid.UUID) (*models.CashShift, error)
	SaveClosing(ctx context.Context, shift *models.CashShift) error
	CashActivity(ctx context.Context, shiftID uuid.UUID) (CashActivity, error)
}

// CashActivity is what completed orders of a shift moved through the drawer.
type CashActivity struct {
	CashIn     decimal.Decimal
	ChangeOut  decimal.Decimal
	OrderCount int
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

func (r *repository) Create(ctx context.Context, shift *models.CashShift) error {
	return r.db.WithContext(ctx).Create(shift).Error
}

func (r *repository) FindByID(ctx context.Context, businessID, id uuid.UUID) (*models.CashShift, error) {
	return first(r.db.WithContext(ctx).Where("id = ? AND business_id = ?", id, businessID))
}

func (r *repository) LockByID(ctx context.Context, businessID, id uuid.UUID) (*models.CashShift, error) {
	return first(r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND business_id = ?", id, businessID))
}

func (r *repository) FindOpenByTill(ctx context.Context, businessID uuid.UUID, tillID string) (*models.CashShift, error) {
	return first(r.db.WithContext(ctx).
		Where("business_id = ? AND till_id = ? AND status = ?", businessID, tillID, enums.ShiftStatusOpen))
}

func (r *repository) FindOpenByOperator(ctx context.Context, businessID, operatorID uuid.UUID) (*models.CashShift, error) {
	return first(r.db.WithContext(ctx).
		Where("business_id = ? AND operator_id = ? AND status = ?", businessID, operatorID, enums.ShiftStatusOpen))
}

// FindAnyOpenByOperator looks across every business; an operator holds one
// open shift system-wide.
func (r *repository) FindAnyOpenByOperator(ctx context.Context, operatorID uuid.UUID) (*models.CashShift, error) {
	return first(r.db.WithContext(ctx).
		Where("operator_id = ? AND status = ?", operatorID, enums.ShiftStatusOpen))
}

func (r *repository) SaveClosing(ctx context.Context, shift *models.CashShift) error {
	return r.db.WithContext(ctx).
		Model(&models.CashShift{}).
		Where("id = ?", shift.ID).
		Updates(map[string]any{
			"status":          shift.Status,
			"counted_amount":  shift.CountedAmount,
			"expected_amount": shift.ExpectedAmount,
			"variance":        shift.Variance,
			"closed_at":       shift.ClosedAt,
			"closed_by":       shift.ClosedBy,
		}).Error
}

// CashActivity loads amounts row by row so the sums are computed in decimal.
func (r *repository) CashActivity(ctx context.Context, shiftID uuid.UUID) (CashActivity, error) {
	activity := CashActivity{CashIn: decimal.Zero, ChangeOut: decimal.Zero}

	var orders []models.Order
	err := r.db.WithContext(ctx).
		Select("id", "change_amount").
		Where("shift_id = ? AND status = ?", shiftID, enums.OrderStatusCompleted).
		Find(&orders).Error
	if err != nil {
		return activity, err
	}
	if len(orders) == 0 {
		return activity, nil
	}

	ids := make([]uuid.UUID, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
		activity.ChangeOut = activity.ChangeOut.Add(o.ChangeAmount)
	}
	activity.OrderCount = len(orders)

	var payments []models.Payment
	err = r.db.WithContext(ctx).
		Select("amount").
		Where("order_id IN ? AND method = ?", ids, enums.PaymentMethodCash).
		Find(&payments).Error
	if err != nil {
		return activity, err
	}
	for _, p := range payments {
		activity.CashIn = activity.CashIn.Add(p.Amount)
	}
	return activity, nil
}

func first(q *gorm.DB) (*models.CashShift, error) {
	var shift models.CashShift
	err := q.First(&shift).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &shift, nil
}
