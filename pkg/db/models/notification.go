package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/vendomarket-backend/pkg/enums"
)

// Notification is the fire-and-forget record created for a seller when an
// order event touches them. Delivery is out of scope; this is the sink.
type Notification struct {
	ID       uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	SellerID uuid.UUID  `gorm:"column:seller_id;type:uuid;not null;index"`
	OrderID  *uuid.UUID `gorm:"column:order_id;type:uuid"`

	Type    enums.NotificationType `gorm:"column:type;type:text;not null"`
	Message string                 `gorm:"column:message;not null"`
	ReadAt  *time.Time             `gorm:"column:read_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
