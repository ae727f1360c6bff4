package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendomarket-backend/pkg/enums"
)

// PlatformConfig is the mutable global pricing configuration: tax rate,
// platform fee, and the optional limited-time offer. It is read once per quote
// and snapshotted into session metadata so materialization never rereads it.
type PlatformConfig struct {
	ID     uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Active bool      `gorm:"column:active;not null;default:false"`

	TaxRatePercent decimal.Decimal `gorm:"column:tax_rate_percent;type:numeric(6,3);not null"`

	PlatformFeeType  enums.DiscountType `gorm:"column:platform_fee_type;type:text;not null;default:'fixed'"`
	PlatformFeeCents int                `gorm:"column:platform_fee_cents;not null;default:0"`
	PlatformFeePct   *decimal.Decimal   `gorm:"column:platform_fee_pct;type:numeric(6,3)"`

	OfferPercent          *decimal.Decimal `gorm:"column:offer_percent;type:numeric(6,3)"`
	OfferMinSubtotalCents *int             `gorm:"column:offer_min_subtotal_cents"`
	OfferExpiresAt        *time.Time       `gorm:"column:offer_expires_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
