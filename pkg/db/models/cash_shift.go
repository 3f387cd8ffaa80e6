package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pos-backend/pkg/enums"
)

// CashShift is one operator's working period on a till. Closed shifts are
// never modified again.
type CashShift struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	BusinessID     uuid.UUID           `gorm:"column:business_id;type:uuid;not null;index"`
	TillID         string              `gorm:"column:till_id;not null"`
	OperatorID     uuid.UUID           `gorm:"column:operator_id;type:uuid;not null"`
	Status         enums.ShiftStatus   `gorm:"column:status;type:text;not null"`
	OpeningFloat   decimal.Decimal     `gorm:"column:opening_float;type:numeric(14,2);not null"`
	CountedAmount  decimal.NullDecimal `gorm:"column:counted_amount;type:numeric(14,2)"`
	ExpectedAmount decimal.NullDecimal `gorm:"column:expected_amount;type:numeric(14,2)"`
	Variance       decimal.NullDecimal `gorm:"column:variance;type:numeric(14,2)"`
	OpenedAt       time.Time           `gorm:"column:opened_at;not null"`
	ClosedAt       *time.Time          `gorm:"column:closed_at"`
	ClosedBy       *uuid.UUID          `gorm:"column:closed_by;type:uuid"`
}

func (s *CashShift) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
