package orders

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/vendomarket-backend/pkg/enums"
	"github.com/angelmondragon/vendomarket-backend/pkg/types"
)

// PaymentRefKind distinguishes the two external payment references an order
// can be keyed on.
type PaymentRefKind string

const (
	RefPaymentIntent   PaymentRefKind = "payment_intent"
	RefCheckoutSession PaymentRefKind = "checkout_session"
)

// ConfirmedItem is one priced line extracted from payment session metadata.
// TotalCents is authoritative.
type ConfirmedItem struct {
	ProductID      uuid.UUID `json:"product_id"`
	SellerID       uuid.UUID `json:"seller_id"`
	Name           string    `json:"name"`
	Qty            int       `json:"qty"`
	UnitPriceCents int       `json:"unit_price_cents"`
	DiscountCents  int       `json:"discount_cents"`
	TotalCents     int       `json:"total_cents"`
}

// PaymentConfirmation is everything the materializer needs to turn one
// confirmed payment into an order. It is reconstructed entirely from the
// session metadata snapshot so materialization never rereads mutable state.
type PaymentConfirmation struct {
	RefKind    PaymentRefKind
	PaymentRef string

	// LinkedIntentID carries the payment intent spawned by a checkout
	// session. Persisting both references keeps materialization idempotent
	// across the session-completed and intent-succeeded events for one
	// payment.
	LinkedIntentID string

	BuyerID  uuid.UUID
	SellerID uuid.UUID

	Items           []ConfirmedItem
	ShippingAddress types.Address
	Currency        enums.Currency
	Breakdown       types.PricingBreakdown

	PromoCodeID *uuid.UUID
	PromoCode   string
}

// Validate rejects confirmations that cannot possibly materialize.
func (c *PaymentConfirmation) Validate() bool {
	if c.PaymentRef == "" || c.BuyerID == uuid.Nil || len(c.Items) == 0 {
		return false
	}
	if c.RefKind != RefPaymentIntent && c.RefKind != RefCheckoutSession {
		return false
	}
	for _, item := range c.Items {
		if item.ProductID == uuid.Nil || item.Qty < 1 {
			return false
		}
	}
	return true
}
