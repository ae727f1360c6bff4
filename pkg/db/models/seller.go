package models

import (
	"time"

	"github.com/google/uuid"
)

// Seller is the vendor side of the marketplace. PayoutAccountID references the
// processor's connected account; transfers are refused while it is absent or
// payouts are disabled.
type Seller struct {
	ID   uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name string    `gorm:"column:name;not null"`

	PayoutAccountID *string `gorm:"column:payout_account_id;uniqueIndex"`
	PayoutsEnabled  bool    `gorm:"column:payouts_enabled;not null;default:false"`

	ShippingFlatCents          int  `gorm:"column:shipping_flat_cents;not null;default:0"`
	FreeShippingThresholdCents *int `gorm:"column:free_shipping_threshold_cents"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
