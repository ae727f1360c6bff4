package models

import (
	"time"

	"github.com/google/uuid"
)

// PromoCodeUsage links a buyer, a promo code, and the order that consumed it.
// Immutable once written; enforces per-user usage limits.
type PromoCodeUsage struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	PromoCodeID uuid.UUID `gorm:"column:promo_code_id;type:uuid;not null;index"`
	BuyerID     uuid.UUID `gorm:"column:buyer_id;type:uuid;not null;index"`
	OrderID     uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
