package models

import (
	"time"

	"github.com/google/uuid"
)

// Buyer is the purchasing account. Loyalty points accrue at order
// materialization time.
type Buyer struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Email         string    `gorm:"column:email;not null;uniqueIndex"`
	Name          string    `gorm:"column:name;not null"`
	LoyaltyPoints int       `gorm:"column:loyalty_points;not null;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
