package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem snapshots a product plus quantity. UnitPriceCents, when present, is
// the already-discounted price the cart negotiated; checkout trusts it instead
// of recomputing from the catalog.
type CartItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CartID    uuid.UUID `gorm:"column:cart_id;type:uuid;not null;index"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	SellerID  uuid.UUID `gorm:"column:seller_id;type:uuid;not null"`

	Qty            int  `gorm:"column:qty;not null"`
	UnitPriceCents *int `gorm:"column:unit_price_cents"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
