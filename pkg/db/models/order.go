package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/vendomarket-backend/pkg/enums"
	"github.com/angelmondragon/vendomarket-backend/pkg/types"
)

// Order is the aggregate produced by a confirmed payment. Exactly one order
// exists per external payment reference; the unique indexes on the intent and
// session ids are the final backstop against concurrent webhook retries.
type Order struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Code           string    `gorm:"column:code;not null;uniqueIndex:uq_orders_code"`
	TrackingNumber string    `gorm:"column:tracking_number;not null;uniqueIndex:uq_orders_tracking_number"`
	BuyerID        uuid.UUID `gorm:"column:buyer_id;type:uuid;not null;index"`

	ShippingAddress types.Address `gorm:"column:shipping_address;type:jsonb;serializer:json"`

	Currency                enums.Currency `gorm:"column:currency;type:text;not null;default:'USD'"`
	SubtotalCents           int            `gorm:"column:subtotal_cents;not null"`
	PromoDiscountCents      int            `gorm:"column:promo_discount_cents;not null;default:0"`
	PlatformDiscountCents   int            `gorm:"column:platform_discount_cents;not null;default:0"`
	DiscountedSubtotalCents int            `gorm:"column:discounted_subtotal_cents;not null"`
	ShippingCents           int            `gorm:"column:shipping_cents;not null;default:0"`
	TaxCents                int            `gorm:"column:tax_cents;not null;default:0"`
	PlatformFeeCents        int            `gorm:"column:platform_fee_cents;not null;default:0"`
	TotalCents              int            `gorm:"column:total_cents;not null"`
	RefundedCents           int            `gorm:"column:refunded_cents;not null;default:0"`
	FeeReversedCents        int            `gorm:"column:fee_reversed_cents;not null;default:0"`

	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	Status        enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'new'"`

	PaymentIntentID   *string `gorm:"column:payment_intent_id;uniqueIndex:uq_orders_payment_intent_id"`
	CheckoutSessionID *string `gorm:"column:checkout_session_id;uniqueIndex:uq_orders_checkout_session_id"`

	DisputeID          *string              `gorm:"column:dispute_id"`
	DisputeReason      *string              `gorm:"column:dispute_reason"`
	DisputeStatus      *enums.DisputeStatus `gorm:"column:dispute_status;type:text"`
	DisputeAmountCents *int                 `gorm:"column:dispute_amount_cents"`
	DisputedAt         *time.Time           `gorm:"column:disputed_at"`
	DisputeClosedAt    *time.Time           `gorm:"column:dispute_closed_at"`

	Timeline types.Timeline `gorm:"column:timeline;type:jsonb;serializer:json"`

	Items []OrderLineItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// PaymentRef returns whichever external payment reference the order carries.
func (o *Order) PaymentRef() string {
	if o.PaymentIntentID != nil && *o.PaymentIntentID != "" {
		return *o.PaymentIntentID
	}
	if o.CheckoutSessionID != nil && *o.CheckoutSessionID != "" {
		return *o.CheckoutSessionID
	}
	return ""
}
