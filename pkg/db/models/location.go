package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Location is a stock-holding place. One location per business is primary and
// sales draw from it.
type Location struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	BusinessID uuid.UUID `gorm:"column:business_id;type:uuid;not null;index"`
	Name       string    `gorm:"column:name;not null"`
	IsPrimary  bool      `gorm:"column:is_primary;not null"`
	Active     bool      `gorm:"column:active;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (l *Location) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}
