package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Customer carries the credit fields the order workflow maintains.
type Customer struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	BusinessID     uuid.UUID       `gorm:"column:business_id;type:uuid;not null;index"`
	Name           string          `gorm:"column:name;not null"`
	CreditLimit    decimal.Decimal `gorm:"column:credit_limit;type:numeric(14,2);not null"`
	CreditUtilized decimal.Decimal `gorm:"column:credit_utilized;type:numeric(14,2);not null"`
	Active         bool            `gorm:"column:active;not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Customer) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// AvailableCredit is the headroom left under the limit.
func (c Customer) AvailableCredit() decimal.Decimal {
	return c.CreditLimit.Sub(c.CreditUtilized)
}
