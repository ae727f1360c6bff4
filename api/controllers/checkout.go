package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/vendomarket-backend/api/middleware"
	"github.com/angelmondragon/vendomarket-backend/api/responses"
	"github.com/angelmondragon/vendomarket-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/vendomarket-backend/internal/checkout"
	"github.com/angelmondragon/vendomarket-backend/internal/pricing"
	"github.com/angelmondragon/vendomarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendomarket-backend/pkg/errors"
	"github.com/angelmondragon/vendomarket-backend/pkg/logger"
	"github.com/angelmondragon/vendomarket-backend/pkg/types"
)

type checkoutItemRequest struct {
	ProductID      string `json:"product_id" validate:"required,uuid"`
	Qty            int    `json:"qty" validate:"required,min=1"`
	UnitPriceCents *int   `json:"unit_price_cents,omitempty"`
}

type checkoutRequest struct {
	SellerID        string                `json:"seller_id" validate:"required,uuid"`
	Items           []checkoutItemRequest `json:"items" validate:"required,min=1,dive"`
	ShippingAddress types.Address         `json:"shipping_address" validate:"required"`
	ShippingMethod  string                `json:"shipping_method,omitempty"`
	PromoCode       string                `json:"promo_code,omitempty"`
}

func (p checkoutRequest) toQuoteInput(buyerID uuid.UUID) (pricing.QuoteInput, error) {
	sellerID, err := uuid.Parse(p.SellerID)
	if err != nil {
		return pricing.QuoteInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "seller id invalid")
	}
	input := pricing.QuoteInput{
		BuyerID:         buyerID,
		SellerID:        sellerID,
		ShippingAddress: p.ShippingAddress,
		ShippingMethod:  enums.ShippingMethod(p.ShippingMethod),
		PromoCode:       p.PromoCode,
	}
	for _, item := range p.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return pricing.QuoteInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "product id invalid")
		}
		input.Items = append(input.Items, pricing.QuoteItem{
			ProductID:      productID,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
		})
	}
	return input, nil
}

func buyerIDFromContext(r *http.Request) (uuid.UUID, error) {
	raw := middleware.ActorIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}
	buyerID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "buyer identity invalid")
	}
	return buyerID, nil
}

// CheckoutPaymentIntent prices the cart and opens a payment intent for an
// embedded payment form.
func CheckoutPaymentIntent(svc *checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		buyerID, err := buyerIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toQuoteInput(buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreatePaymentIntent(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// CheckoutSession prices the cart and opens a hosted checkout session.
func CheckoutSession(svc *checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		buyerID, err := buyerIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toQuoteInput(buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateCheckoutSession(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
