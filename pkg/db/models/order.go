package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pos-backend/pkg/enums"
)

// Order is a quote or a sale. Amounts are stored rounded to cents.
type Order struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	BusinessID     uuid.UUID            `gorm:"column:business_id;type:uuid;not null;uniqueIndex:ux_orders_business_number,priority:1"`
	Number         string               `gorm:"column:number;not null;uniqueIndex:ux_orders_business_number,priority:2"`
	Status         enums.OrderStatus    `gorm:"column:status;type:text;not null"`
	CustomerID     *uuid.UUID           `gorm:"column:customer_id;type:uuid"`
	ShiftID        *uuid.UUID           `gorm:"column:shift_id;type:uuid;index"`
	LocationID     *uuid.UUID           `gorm:"column:location_id;type:uuid"`
	ActorID        uuid.UUID            `gorm:"column:actor_id;type:uuid;not null"`
	Subtotal       decimal.Decimal      `gorm:"column:subtotal;type:numeric(14,2);not null"`
	DiscountTotal  decimal.Decimal      `gorm:"column:discount_total;type:numeric(14,2);not null"`
	TaxTotal       decimal.Decimal      `gorm:"column:tax_total;type:numeric(14,2);not null"`
	Total          decimal.Decimal      `gorm:"column:total;type:numeric(14,2);not null"`
	PaymentMethod  *enums.PaymentMethod `gorm:"column:payment_method;type:text"`
	AmountPaid     decimal.Decimal      `gorm:"column:amount_paid;type:numeric(14,2);not null"`
	ChangeAmount   decimal.Decimal      `gorm:"column:change_amount;type:numeric(14,2);not null"`
	CreditUsed     decimal.Decimal      `gorm:"column:credit_used;type:numeric(14,2);not null"`
	CreditReleased decimal.Decimal      `gorm:"column:credit_released;type:numeric(14,2);not null"`
	ReturnedAmount decimal.Decimal      `gorm:"column:returned_amount;type:numeric(14,2);not null"`
	Notes          *string              `gorm:"column:notes"`
	CancelReason   *string              `gorm:"column:cancel_reason"`
	CancelledBy    *uuid.UUID           `gorm:"column:cancelled_by;type:uuid"`
	CancelledAt    *time.Time           `gorm:"column:cancelled_at"`
	ConfirmedAt    *time.Time           `gorm:"column:confirmed_at"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderLine snapshots price, cost and tax treatment at order time.
type OrderLine struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID          uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	Position         int             `gorm:"column:position;not null"`
	ProductID        uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Quantity         int             `gorm:"column:quantity;not null"`
	ReturnedQuantity int             `gorm:"column:returned_quantity;not null"`
	UnitPrice        decimal.Decimal `gorm:"column:unit_price;type:numeric(14,2);not null"`
	UnitCost         decimal.Decimal `gorm:"column:unit_cost;type:numeric(14,2);not null"`
	Discount         decimal.Decimal `gorm:"column:discount;type:numeric(14,2);not null"`
	TaxRate          decimal.Decimal `gorm:"column:tax_rate;type:numeric(6,4);not null"`
	TaxIncluded      bool            `gorm:"column:tax_included;not null"`
	TaxAmount        decimal.Decimal `gorm:"column:tax_amount;type:numeric(14,2);not null"`
	Subtotal         decimal.Decimal `gorm:"column:subtotal;type:numeric(14,2);not null"`
	TrackStock       bool            `gorm:"column:track_stock;not null"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (l *OrderLine) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}

// RemainingQuantity is the quantity still eligible for return or reversal.
func (l OrderLine) RemainingQuantity() int {
	return l.Quantity - l.ReturnedQuantity
}

// Payment is one tender applied to an order.
type Payment struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	Method    enums.PaymentMethod `gorm:"column:method;type:text;not null"`
	Amount    decimal.Decimal     `gorm:"column:amount;type:numeric(14,2);not null"`
	Reference *string             `gorm:"column:reference"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
