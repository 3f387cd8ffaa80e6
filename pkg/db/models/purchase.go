package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pos-backend/pkg/enums"
)

type Purchase struct {
	ID           uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	BusinessID   uuid.UUID            `gorm:"column:business_id;type:uuid;not null;index"`
	SupplierName string               `gorm:"column:supplier_name;not null"`
	Reference    *string              `gorm:"column:reference"`
	Status       enums.PurchaseStatus `gorm:"column:status;type:text;not null"`
	Total        decimal.Decimal      `gorm:"column:total;type:numeric(14,2);not null"`
	CreatedBy    uuid.UUID            `gorm:"column:created_by;type:uuid;not null"`
	LocationID   *uuid.UUID           `gorm:"column:location_id;type:uuid"`
	ReceivedAt   *time.Time           `gorm:"column:received_at"`
	ReceivedBy   *uuid.UUID           `gorm:"column:received_by;type:uuid"`
	CreatedAt    time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Purchase) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

type PurchaseLine struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	PurchaseID uuid.UUID       `gorm:"column:purchase_id;type:uuid;not null;index"`
	Position   int             `gorm:"column:position;not null"`
	ProductID  uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Quantity   int             `gorm:"column:quantity;not null"`
	UnitCost   decimal.Decimal `gorm:"column:unit_cost;type:numeric(14,2);not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (l *PurchaseLine) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}
