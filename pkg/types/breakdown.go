package types

// PricingBreakdown is the checkout-time money snapshot. It is embedded in the
// payment session metadata and copied onto the order at materialization so the
// order is immune to pricing-config changes made after checkout.
type PricingBreakdown struct {
	SubtotalCents           int `json:"subtotal_cents"`
	PromoDiscountCents      int `json:"promo_discount_cents"`
	PlatformDiscountCents   int `json:"platform_discount_cents"`
	DiscountedSubtotalCents int `json:"discounted_subtotal_cents"`
	ShippingCents           int `json:"shipping_cents"`
	TaxCents                int `json:"tax_cents"`
	PlatformFeeCents        int `json:"platform_fee_cents"`
	TotalCents              int `json:"total_cents"`
}

// TotalDiscountCents is the promo plus platform discount.
func (b PricingBreakdown) TotalDiscountCents() int {
	return b.PromoDiscountCents + b.PlatformDiscountCents
}
