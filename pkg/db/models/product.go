package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendomarket-backend/pkg/enums"
)

// Product is the sellable catalog entry. Stock is mutated only through
// conditional updates inside the materializer and the refund adjuster.
type Product struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SellerID uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index"`

	Title      string `gorm:"column:title;not null"`
	PriceCents int    `gorm:"column:price_cents;not null"`
	StockQty   int    `gorm:"column:stock_qty;not null;default:0"`

	DiscountType        *enums.DiscountType `gorm:"column:discount_type;type:text"`
	DiscountAmountCents *int                `gorm:"column:discount_amount_cents"`
	DiscountPercent     *decimal.Decimal    `gorm:"column:discount_percent;type:numeric(6,3)"`
	DiscountExpiresAt   *time.Time          `gorm:"column:discount_expires_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
