package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/vendomarket-backend/pkg/enums"
)

// Settlement is the per-seller-per-order payout obligation. CommissionCents is
// reduced by refund/dispute deductions while the row is still pending; a
// refund arriving after payout is recorded as a separate negative pending row
// that nets against the seller's future sales.
type Settlement struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SellerID uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index:idx_settlements_seller_order,priority:1"`
	OrderID  uuid.UUID `gorm:"column:order_id;type:uuid;not null;index:idx_settlements_seller_order,priority:2"`

	OrderTotalCents      int `gorm:"column:order_total_cents;not null"`
	CommissionCents      int `gorm:"column:commission_cents;not null"`
	PlatformFeeCents     int `gorm:"column:platform_fee_cents;not null;default:0"`
	RefundDeductionCents int `gorm:"column:refund_deduction_cents;not null;default:0"`

	Status       enums.SettlementStatus `gorm:"column:status;type:text;not null;default:'pending';index"`
	ScheduledFor time.Time              `gorm:"column:scheduled_for;not null;index"`
	SettledAt    *time.Time             `gorm:"column:settled_at"`
	TransferID   *string                `gorm:"column:transfer_id"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
