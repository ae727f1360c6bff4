package pricing

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/vendomarket-backend/pkg/enums"
	"github.com/angelmondragon/vendomarket-backend/pkg/types"
)

// QuoteItem is one cart entry submitted for pricing. UnitPriceCents, when
// present, is the already-discounted price the cart negotiated and is trusted
// as-is; otherwise the catalog price (minus any active item discount) applies.
type QuoteItem struct {
	ProductID      uuid.UUID
	Qty            int
	UnitPriceCents *int
}

// QuoteInput is everything the engine needs to price one checkout. All items
// must belong to the single seller referenced here; multi-seller checkouts are
// rejected.
type QuoteInput struct {
	BuyerID         uuid.UUID
	SellerID        uuid.UUID
	Items           []QuoteItem
	ShippingAddress types.Address
	ShippingMethod  enums.ShippingMethod
	PromoCode       string
}

// QuoteLine is the priced form of one item. TotalCents is authoritative: the
// sum of line totals always equals the discounted subtotal exactly.
// UnitPriceCents is derived from it for display.
type QuoteLine struct {
	ProductID          uuid.UUID `json:"product_id"`
	SellerID           uuid.UUID `json:"seller_id"`
	Name               string    `json:"name"`
	Qty                int       `json:"qty"`
	BaseUnitPriceCents int       `json:"base_unit_price_cents"`
	DiscountCents      int       `json:"discount_cents"`
	TotalCents         int       `json:"total_cents"`
	UnitPriceCents     int       `json:"unit_price_cents"`
}

// Quote is the full pricing result handed to the payment session manager.
type Quote struct {
	Lines       []QuoteLine            `json:"lines"`
	Breakdown   types.PricingBreakdown `json:"breakdown"`
	PromoCodeID *uuid.UUID             `json:"promo_code_id,omitempty"`
	PromoCode   string                 `json:"promo_code,omitempty"`
}
