package checkout

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/angelmondragon/vendomarket-backend/internal/orders"
	"github.com/angelmondragon/vendomarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendomarket-backend/pkg/errors"
	"github.com/angelmondragon/vendomarket-backend/pkg/types"
)

// Metadata keys carried on payment intents and checkout sessions. The
// processor round-trips them verbatim; together they are the sole input the
// materializer consumes, so the order survives any local state change between
// checkout and confirmation.
const (
	metaBuyerID     = "buyer_id"
	metaSellerID    = "seller_id"
	metaItems       = "items"
	metaAddress     = "shipping_address"
	metaBreakdown   = "breakdown"
	metaCurrency    = "currency"
	metaPromoCodeID = "promo_code_id"
	metaPromoCode   = "promo_code"
)

type checkoutSnapshot struct {
	BuyerID         uuid.UUID
	SellerID        uuid.UUID
	Items           []orders.ConfirmedItem
	ShippingAddress types.Address
	Breakdown       types.PricingBreakdown
	Currency        enums.Currency
	PromoCodeID     *uuid.UUID
	PromoCode       string
}

// encodeMetadata flattens the checkout snapshot into the processor's
// string-to-string metadata map.
func encodeMetadata(snap checkoutSnapshot) (map[string]string, error) {
	items, err := json.Marshal(snap.Items)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode line items")
	}
	address, err := json.Marshal(snap.ShippingAddress)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode shipping address")
	}
	breakdown, err := json.Marshal(snap.Breakdown)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode breakdown")
	}

	meta := map[string]string{
		metaBuyerID:   snap.BuyerID.String(),
		metaSellerID:  snap.SellerID.String(),
		metaItems:     string(items),
		metaAddress:   string(address),
		metaBreakdown: string(breakdown),
		metaCurrency:  string(snap.Currency),
	}
	if snap.PromoCodeID != nil {
		meta[metaPromoCodeID] = snap.PromoCodeID.String()
		meta[metaPromoCode] = snap.PromoCode
	}
	return meta, nil
}

// HasSnapshot reports whether metadata carries a checkout snapshot. Payment
// intents created outside the checkout flow do not.
func HasSnapshot(meta map[string]string) bool {
	return meta[metaBuyerID] != ""
}

// DecodeConfirmation rebuilds a materializer input from session metadata. The
// payment reference and its kind come from the event envelope, everything else
// from the snapshot taken at checkout time.
func DecodeConfirmation(refKind orders.PaymentRefKind, paymentRef string, meta map[string]string) (orders.PaymentConfirmation, error) {
	var conf orders.PaymentConfirmation
	conf.RefKind = refKind
	conf.PaymentRef = paymentRef

	buyerID, err := uuid.Parse(meta[metaBuyerID])
	if err != nil {
		return conf, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "metadata missing buyer id")
	}
	conf.BuyerID = buyerID

	if raw := meta[metaSellerID]; raw != "" {
		sellerID, err := uuid.Parse(raw)
		if err != nil {
			return conf, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "metadata seller id invalid")
		}
		conf.SellerID = sellerID
	}

	if err := json.Unmarshal([]byte(meta[metaItems]), &conf.Items); err != nil {
		return conf, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "metadata line items invalid")
	}
	if err := json.Unmarshal([]byte(meta[metaAddress]), &conf.ShippingAddress); err != nil {
		return conf, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "metadata shipping address invalid")
	}
	if err := json.Unmarshal([]byte(meta[metaBreakdown]), &conf.Breakdown); err != nil {
		return conf, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "metadata breakdown invalid")
	}

	conf.Currency = enums.Currency(meta[metaCurrency])
	if conf.Currency == "" {
		conf.Currency = enums.CurrencyUSD
	}

	if raw := meta[metaPromoCodeID]; raw != "" {
		promoID, err := uuid.Parse(raw)
		if err != nil {
			return conf, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "metadata promo code id invalid")
		}
		conf.PromoCodeID = &promoID
		conf.PromoCode = meta[metaPromoCode]
	}
	return conf, nil
}
