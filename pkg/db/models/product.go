package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a catalog item. Only purchase receiving mutates CostPrice.
type Product struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	BusinessID       uuid.UUID           `gorm:"column:business_id;type:uuid;not null;index"`
	Code             string              `gorm:"column:code;not null"`
	Barcode          *string             `gorm:"column:barcode"`
	Name             string              `gorm:"column:name;not null"`
	CostPrice        decimal.Decimal     `gorm:"column:cost_price;type:numeric(14,2);not null"`
	SalePrice        decimal.Decimal     `gorm:"column:sale_price;type:numeric(14,2);not null"`
	WholesalePrice   decimal.NullDecimal `gorm:"column:wholesale_price;type:numeric(14,2)"`
	TaxRate          decimal.Decimal     `gorm:"column:tax_rate;type:numeric(6,4);not null"`
	TaxIncluded      bool                `gorm:"column:tax_included;not null"`
	TrackStock       bool                `gorm:"column:track_stock;not null"`
	ReorderThreshold int                 `gorm:"column:reorder_threshold;not null"`
	Active           bool                `gorm:"column:active;not null"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
