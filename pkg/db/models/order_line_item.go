package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/vendomarket-backend/pkg/enums"
	"github.com/angelmondragon/vendomarket-backend/pkg/types"
)

// OrderLineItem snapshots one product/quantity/price/seller entry. TotalCents
// is authoritative; UnitPriceCents is derived after discount allocation.
type OrderLineItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	SellerID  uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index"`

	Name           string `gorm:"column:name;not null"`
	Qty            int    `gorm:"column:qty;not null"`
	UnitPriceCents int    `gorm:"column:unit_price_cents;not null"`
	DiscountCents  int    `gorm:"column:discount_cents;not null;default:0"`
	TotalCents     int    `gorm:"column:total_cents;not null"`

	Status   enums.LineItemStatus `gorm:"column:status;type:text;not null;default:'confirmed'"`
	Timeline types.Timeline       `gorm:"column:timeline;type:jsonb;serializer:json"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
