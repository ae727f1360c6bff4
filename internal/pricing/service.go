package pricing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendomarket-backend/pkg/db/models"
	"github.com/angelmondragon/vendomarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendomarket-backend/pkg/errors"
	"github.com/angelmondragon/vendomarket-backend/pkg/logger"
	"github.com/angelmondragon/vendomarket-backend/pkg/types"
)

// Carrier-tier prices for expedited methods. Standard shipping uses the
// seller's flat charge instead.
const (
	expressShippingCents   = 1599
	overnightShippingCents = 2999
)

// ProductLoader resolves catalog entries during a quote.
type ProductLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// SellerLoader resolves the seller whose shipping and payout settings apply.
type SellerLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Seller, error)
}

// PromoSource looks up promo codes and per-buyer usage counts.
type PromoSource interface {
	FindActiveByCode(ctx context.Context, sellerID uuid.UUID, code string) (*models.PromoCode, error)
	CountUsageByBuyer(ctx context.Context, promoCodeID, buyerID uuid.UUID) (int64, error)
}

// Service is the pricing engine. It performs reads through the injected
// loaders and writes nothing.
type Service struct {
	products ProductLoader
	sellers  SellerLoader
	promos   PromoSource
	config   ConfigProvider
	log      *logger.Logger
	now      func() time.Time
}

// ServiceParams collects the pricing engine dependencies.
type ServiceParams struct {
	Products ProductLoader
	Sellers  SellerLoader
	Promos   PromoSource
	Config   ConfigProvider
	Logger   *logger.Logger
}

// NewService validates the dependency set and builds the engine.
func NewService(params ServiceParams) (*Service, error) {
	if params.Products == nil {
		return nil, fmt.Errorf("pricing service requires a product loader")
	}
	if params.Sellers == nil {
		return nil, fmt.Errorf("pricing service requires a seller loader")
	}
	if params.Promos == nil {
		return nil, fmt.Errorf("pricing service requires a promo source")
	}
	if params.Config == nil {
		return nil, fmt.Errorf("pricing service requires a config provider")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("pricing service requires a logger")
	}
	return &Service{
		products: params.Products,
		sellers:  params.Sellers,
		promos:   params.Promos,
		config:   params.Config,
		log:      params.Logger,
		now:      time.Now,
	}, nil
}

// Quote prices one checkout. An unusable promo code is logged and skipped
// rather than failing the quote; every other problem is an error.
func (s *Service) Quote(ctx context.Context, input QuoteInput) (*Quote, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	method := input.ShippingMethod
	if method == "" {
		method = enums.ShippingMethodStandard
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown shipping method")
	}

	seller, err := s.sellers.FindByID(ctx, input.SellerID)
	if err != nil {
		return nil, err
	}
	cfg, err := s.config.Active(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()

	lines := make([]QuoteLine, 0, len(input.Items))
	subtotal := 0
	for _, item := range input.Items {
		if item.Qty < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be at least 1")
		}
		product, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if product.SellerID != input.SellerID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "all items must belong to one seller")
		}
		unit := resolveUnitPrice(product, item, now)
		total := unit * item.Qty
		subtotal += total
		lines = append(lines, QuoteLine{
			ProductID:          product.ID,
			SellerID:           product.SellerID,
			Name:               product.Title,
			Qty:                item.Qty,
			BaseUnitPriceCents: unit,
			TotalCents:         total,
			UnitPriceCents:     unit,
		})
	}

	shipping := shippingCost(seller, method, subtotal)

	promoDiscount := 0
	var promoID *uuid.UUID
	appliedCode := ""
	if input.PromoCode != "" {
		if promo := s.usablePromo(ctx, input, subtotal); promo != nil {
			promoDiscount = promoDiscountCents(promo, subtotal)
			id := promo.ID
			promoID = &id
			appliedCode = promo.Code
		}
	}

	platformDiscount := offerDiscountCents(cfg, subtotal, now)

	totalDiscount := promoDiscount + platformDiscount
	if totalDiscount > subtotal {
		totalDiscount = subtotal
	}
	allocateDiscount(lines, subtotal, totalDiscount)

	discounted := subtotal - totalDiscount
	tax := percentOf(discounted+shipping, cfg.TaxRatePercent)
	total := discounted + shipping + tax

	fee := 0
	if seller.PayoutAccountID != nil && *seller.PayoutAccountID != "" && seller.PayoutsEnabled {
		fee = platformFeeCents(cfg, total)
	}

	return &Quote{
		Lines: lines,
		Breakdown: types.PricingBreakdown{
			SubtotalCents:           subtotal,
			PromoDiscountCents:      promoDiscount,
			PlatformDiscountCents:   platformDiscount,
			DiscountedSubtotalCents: discounted,
			ShippingCents:           shipping,
			TaxCents:                tax,
			PlatformFeeCents:        fee,
			TotalCents:              total,
		},
		PromoCodeID: promoID,
		PromoCode:   appliedCode,
	}, nil
}

// resolveUnitPrice trusts a client-supplied price when present; the cart is
// the source of truth for already-discounted prices. Otherwise it applies the
// product's own active discount to the catalog price.
func resolveUnitPrice(product *models.Product, item QuoteItem, now time.Time) int {
	if item.UnitPriceCents != nil {
		if *item.UnitPriceCents < 0 {
			return 0
		}
		return *item.UnitPriceCents
	}
	price := product.PriceCents
	if product.DiscountType != nil && !discountExpired(product.DiscountExpiresAt, now) {
		switch *product.DiscountType {
		case enums.DiscountTypeFixed:
			if product.DiscountAmountCents != nil {
				price -= *product.DiscountAmountCents
			}
		case enums.DiscountTypePercentage:
			if product.DiscountPercent != nil {
				price -= percentOf(price, *product.DiscountPercent)
			}
		}
	}
	if price < 0 {
		return 0
	}
	return price
}

func discountExpired(expiresAt *time.Time, now time.Time) bool {
	return expiresAt != nil && expiresAt.Before(now)
}

func shippingCost(seller *models.Seller, method enums.ShippingMethod, subtotal int) int {
	switch method {
	case enums.ShippingMethodExpress:
		return expressShippingCents
	case enums.ShippingMethodOvernight:
		return overnightShippingCents
	}
	if seller.FreeShippingThresholdCents != nil && subtotal >= *seller.FreeShippingThresholdCents {
		return 0
	}
	return seller.ShippingFlatCents
}

// usablePromo returns the promo when every gate passes, nil otherwise. A
// rejected promo is a warning, never an error: the checkout proceeds without
// the discount.
func (s *Service) usablePromo(ctx context.Context, input QuoteInput, subtotal int) *models.PromoCode {
	ctx = s.log.WithBuyerID(ctx, input.BuyerID.String())
	promo, err := s.promos.FindActiveByCode(ctx, input.SellerID, input.PromoCode)
	if err != nil {
		s.log.Warn(s.log.WithField(ctx, "promo_code", input.PromoCode), "promo code not applied: lookup failed")
		return nil
	}
	ctx = s.log.WithField(ctx, "promo_code", promo.Code)
	if promo.ExpiresAt != nil && promo.ExpiresAt.Before(s.now()) {
		s.log.Warn(ctx, "promo code not applied: expired")
		return nil
	}
	if subtotal < promo.MinOrderCents {
		s.log.Warn(ctx, "promo code not applied: below minimum order amount")
		return nil
	}
	if promo.UsageLimit > 0 && promo.UsageCount >= promo.UsageLimit {
		s.log.Warn(ctx, "promo code not applied: usage limit reached")
		return nil
	}
	if promo.PerUserLimit > 0 {
		used, err := s.promos.CountUsageByBuyer(ctx, promo.ID, input.BuyerID)
		if err != nil {
			s.log.Warn(ctx, "promo code not applied: usage count unavailable")
			return nil
		}
		if used >= int64(promo.PerUserLimit) {
			s.log.Warn(ctx, "promo code not applied: per-user limit reached")
			return nil
		}
	}
	return promo
}

func promoDiscountCents(promo *models.PromoCode, subtotal int) int {
	var discount int
	switch promo.Type {
	case enums.DiscountTypeFixed:
		discount = promo.AmountCents
	case enums.DiscountTypePercentage:
		if promo.Percent != nil {
			discount = percentOf(subtotal, *promo.Percent)
		}
	}
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}

func offerDiscountCents(cfg *models.PlatformConfig, subtotal int, now time.Time) int {
	if cfg.OfferPercent == nil {
		return 0
	}
	if cfg.OfferExpiresAt != nil && cfg.OfferExpiresAt.Before(now) {
		return 0
	}
	if cfg.OfferMinSubtotalCents != nil && subtotal < *cfg.OfferMinSubtotalCents {
		return 0
	}
	return percentOf(subtotal, *cfg.OfferPercent)
}

func platformFeeCents(cfg *models.PlatformConfig, totalCents int) int {
	switch cfg.PlatformFeeType {
	case enums.DiscountTypePercentage:
		if cfg.PlatformFeePct != nil {
			return percentOf(totalCents, *cfg.PlatformFeePct)
		}
		return 0
	default:
		return cfg.PlatformFeeCents
	}
}

// allocateDiscount spreads totalDiscount across lines proportionally to each
// line's share of the subtotal, using largest-remainder rounding so the line
// totals sum exactly to subtotal-totalDiscount. Line TotalCents is
// authoritative; UnitPriceCents is derived from it for display.
func allocateDiscount(lines []QuoteLine, subtotal, totalDiscount int) {
	if totalDiscount <= 0 || subtotal <= 0 {
		return
	}
	type share struct {
		idx       int
		remainder int64
	}
	shares := make([]share, len(lines))
	allocated := 0
	for i := range lines {
		exact := int64(totalDiscount) * int64(lines[i].TotalCents)
		floor := int(exact / int64(subtotal))
		lines[i].DiscountCents = floor
		allocated += floor
		shares[i] = share{idx: i, remainder: exact % int64(subtotal)}
	}
	sort.SliceStable(shares, func(a, b int) bool {
		return shares[a].remainder > shares[b].remainder
	})
	for i := 0; i < totalDiscount-allocated; i++ {
		lines[shares[i%len(shares)].idx].DiscountCents++
	}
	for i := range lines {
		lines[i].TotalCents -= lines[i].DiscountCents
		lines[i].UnitPriceCents = roundDiv(lines[i].TotalCents, lines[i].Qty)
	}
}

// percentOf computes cents*pct/100 rounded half-up.
func percentOf(cents int, pct decimal.Decimal) int {
	if pct.IsZero() {
		return 0
	}
	return int(decimal.NewFromInt(int64(cents)).
		Mul(pct).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart())
}

func roundDiv(n, d int) int {
	if d == 0 {
		return 0
	}
	return int(decimal.NewFromInt(int64(n)).
		Div(decimal.NewFromInt(int64(d))).
		Round(0).
		IntPart())
}
