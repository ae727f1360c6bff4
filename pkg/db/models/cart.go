package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/vendomarket-backend/pkg/enums"
)

// Cart holds the buyer's pending items until checkout converts it.
type Cart struct {
	ID      uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	BuyerID uuid.UUID        `gorm:"column:buyer_id;type:uuid;not null;index"`
	Status  enums.CartStatus `gorm:"column:status;type:text;not null;default:'active'"`

	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
