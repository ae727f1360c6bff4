package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendomarket-backend/pkg/enums"
)

// PromoCode is a seller-scoped discount code. UsageCount is incremented inside
// the materialization transaction, never at quote time.
type PromoCode struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SellerID uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index"`
	Code     string    `gorm:"column:code;not null;uniqueIndex"`

	Type        enums.DiscountType `gorm:"column:type;type:text;not null"`
	AmountCents int                `gorm:"column:amount_cents;not null;default:0"`
	Percent     *decimal.Decimal   `gorm:"column:percent;type:numeric(6,3)"`

	MinOrderCents int        `gorm:"column:min_order_cents;not null;default:0"`
	UsageLimit    int        `gorm:"column:usage_limit;not null;default:0"`
	UsageCount    int        `gorm:"column:usage_count;not null;default:0"`
	PerUserLimit  int        `gorm:"column:per_user_limit;not null;default:1"`
	ExpiresAt     *time.Time `gorm:"column:expires_at"`
	Active        bool       `gorm:"column:active;not null;default:true"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
