package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pos-backend/pkg/enums"
)

// StockBalance is the on-hand quantity of a product at a location.
type StockBalance struct {
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	LocationID uuid.UUID `gorm:"column:location_id;type:uuid;primaryKey"`
	BusinessID uuid.UUID `gorm:"column:business_id;type:uuid;not null;index"`
	Quantity   int       `gorm:"column:quantity;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// StockMovement is one append-only ledger entry. The bigserial id gives the
// insertion order used when replaying a balance.
type StockMovement struct {
	ID             int64                 `gorm:"column:id;primaryKey;autoIncrement"`
	BusinessID     uuid.UUID             `gorm:"column:business_id;type:uuid;not null"`
	ProductID      uuid.UUID             `gorm:"column:product_id;type:uuid;not null;index:idx_stock_movements_product_location,priority:1"`
	LocationID     uuid.UUID             `gorm:"column:location_id;type:uuid;not null;index:idx_stock_movements_product_location,priority:2"`
	Type           enums.MovementType    `gorm:"column:type;type:text;not null"`
	Quantity       int                   `gorm:"column:quantity;not null"`
	QuantityBefore int                   `gorm:"column:quantity_before;not null"`
	QuantityAfter  int                   `gorm:"column:quantity_after;not null"`
	Delta          int                   `gorm:"column:delta;not null"`
	UnitCost       decimal.Decimal       `gorm:"column:unit_cost;type:numeric(14,2);not null"`
	RefType        enums.MovementRefType `gorm:"column:ref_type;type:text;not null"`
	RefID          *uuid.UUID            `gorm:"column:ref_id;type:uuid;index"`
	ActorID        uuid.UUID             `gorm:"column:actor_id;type:uuid;not null"`
	Note           *string               `gorm:"column:note"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
}
