package pricing

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendomarket-backend/pkg/db/models"
	"github.com/angelmondragon/vendomarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendomarket-backend/pkg/errors"
	"github.com/angelmondragon/vendomarket-backend/pkg/logger"
)

type stubProducts struct {
	byID map[uuid.UUID]*models.Product
}

func (s *stubProducts) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	p, ok := s.byID[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return p, nil
}

type stubSellers struct {
	seller *models.Seller
}

func (s *stubSellers) FindByID(_ context.Context, _ uuid.UUID) (*models.Seller, error) {
	return s.seller, nil
}

type stubPromos struct {
	promo     *models.PromoCode
	buyerUsed int64
}

func (s *stubPromos) FindActiveByCode(_ context.Context, _ uuid.UUID, code string) (*models.PromoCode, error) {
	if s.promo == nil || s.promo.Code != code {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promo code not found")
	}
	return s.promo, nil
}

func (s *stubPromos) CountUsageByBuyer(_ context.Context, _, _ uuid.UUID) (int64, error) {
	return s.buyerUsed, nil
}

type stubConfig struct {
	cfg *models.PlatformConfig
}

func (s *stubConfig) Active(_ context.Context) (*models.PlatformConfig, error) {
	if s.cfg == nil {
		return &models.PlatformConfig{}, nil
	}
	return s.cfg, nil
}

func testEngine(t *testing.T, products *stubProducts, sellers *stubSellers, promos *stubPromos, config *stubConfig) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Products: products,
		Sellers:  sellers,
		Promos:   promos,
		Config:   config,
		Logger:   logger.New(logger.Options{Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func pct(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func TestQuoteNoPromo(t *testing.T) {
	sellerID := uuid.New()
	productID := uuid.New()
	svc := testEngine(t,
		&stubProducts{byID: map[uuid.UUID]*models.Product{
			productID: {ID: productID, SellerID: sellerID, Title: "mug", PriceCents: 1000, StockQty: 5},
		}},
		&stubSellers{seller: &models.Seller{ID: sellerID, ShippingFlatCents: 500}},
		&stubPromos{},
		&stubConfig{cfg: &models.PlatformConfig{TaxRatePercent: decimal.RequireFromString("8")}},
	)

	quote, err := svc.Quote(context.Background(), QuoteInput{
		BuyerID:  uuid.New(),
		SellerID: sellerID,
		Items:    []QuoteItem{{ProductID: productID, Qty: 2}},
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}

	b := quote.Breakdown
	if b.SubtotalCents != 2000 {
		t.Errorf("subtotal = %d, want 2000", b.SubtotalCents)
	}
	if b.ShippingCents != 500 {
		t.Errorf("shipping = %d, want 500", b.ShippingCents)
	}
	if b.TaxCents != 200 {
		t.Errorf("tax = %d, want 200", b.TaxCents)
	}
	if b.TotalCents != 2700 {
		t.Errorf("total = %d, want 2700", b.TotalCents)
	}
}

func TestQuoteFixedPromo(t *testing.T) {
	sellerID := uuid.New()
	productID := uuid.New()
	svc := testEngine(t,
		&stubProducts{byID: map[uuid.UUID]*models.Product{
			productID: {ID: productID, SellerID: sellerID, Title: "mug", PriceCents: 1000, StockQty: 5},
		}},
		&stubSellers{seller: &models.Seller{ID: sellerID, ShippingFlatCents: 500}},
		&stubPromos{promo: &models.PromoCode{
			ID:       uuid.New(),
			SellerID: sellerID,
			Code:     "SAVE5",
			Type:        enums.DiscountTypeFixed,
			AmountCents: 500,
			Active:      true,
		}},
		&stubConfig{cfg: &models.PlatformConfig{TaxRatePercent: decimal.RequireFromString("8")}},
	)

	quote, err := svc.Quote(context.Background(), QuoteInput{
		BuyerID:   uuid.New(),
		SellerID:  sellerID,
		Items:     []QuoteItem{{ProductID: productID, Qty: 2}},
		PromoCode: "SAVE5",
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}

	b := quote.Breakdown
	if b.PromoDiscountCents != 500 {
		t.Errorf("promo discount = %d, want 500", b.PromoDiscountCents)
	}
	if b.DiscountedSubtotalCents != 1500 {
		t.Errorf("discounted subtotal = %d, want 1500", b.DiscountedSubtotalCents)
	}
	if quote.Lines[0].UnitPriceCents != 750 {
		t.Errorf("unit price = %d, want 750", quote.Lines[0].UnitPriceCents)
	}
	if b.TaxCents != 160 {
		t.Errorf("tax = %d, want 160", b.TaxCents)
	}
	if b.TotalCents != 2160 {
		t.Errorf("total = %d, want 2160", b.TotalCents)
	}
	if quote.PromoCodeID == nil {
		t.Error("expected promo code id on quote")
	}
}

func TestQuoteAllocationSumsExactly(t *testing.T) {
	sellerID := uuid.New()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	svc := testEngine(t,
		&stubProducts{byID: map[uuid.UUID]*models.Product{
			a: {ID: a, SellerID: sellerID, Title: "a", PriceCents: 333},
			b: {ID: b, SellerID: sellerID, Title: "b", PriceCents: 777},
			c: {ID: c, SellerID: sellerID, Title: "c", PriceCents: 995},
		}},
		&stubSellers{seller: &models.Seller{ID: sellerID}},
		&stubPromos{promo: &models.PromoCode{
			ID: uuid.New(), SellerID: sellerID, Code: "ODD", Active: true,
			Type: enums.DiscountTypePercentage, Percent: pct("13.7"),
		}},
		&stubConfig{},
	)

	quote, err := svc.Quote(context.Background(), QuoteInput{
		BuyerID:  uuid.New(),
		SellerID: sellerID,
		Items: []QuoteItem{
			{ProductID: a, Qty: 3},
			{ProductID: b, Qty: 1},
			{ProductID: c, Qty: 2},
		},
		PromoCode: "ODD",
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}

	sum := 0
	for _, line := range quote.Lines {
		sum += line.TotalCents
	}
	if sum != quote.Breakdown.DiscountedSubtotalCents {
		t.Errorf("line totals sum to %d, want discounted subtotal %d", sum, quote.Breakdown.DiscountedSubtotalCents)
	}
	allocated := 0
	for _, line := range quote.Lines {
		allocated += line.DiscountCents
	}
	if allocated != quote.Breakdown.TotalDiscountCents() {
		t.Errorf("allocated discount %d, want %d", allocated, quote.Breakdown.TotalDiscountCents())
	}
}

func TestQuotePerUserLimitSkipsPromo(t *testing.T) {
	sellerID := uuid.New()
	productID := uuid.New()
	svc := testEngine(t,
		&stubProducts{byID: map[uuid.UUID]*models.Product{
			productID: {ID: productID, SellerID: sellerID, Title: "mug", PriceCents: 1000},
		}},
		&stubSellers{seller: &models.Seller{ID: sellerID}},
		&stubPromos{
			promo: &models.PromoCode{
				ID: uuid.New(), SellerID: sellerID, Code: "ONCE", Active: true,
				Type: enums.DiscountTypeFixed, AmountCents: 200, PerUserLimit: 1,
			},
			buyerUsed: 1,
		},
		&stubConfig{},
	)

	quote, err := svc.Quote(context.Background(), QuoteInput{
		BuyerID:   uuid.New(),
		SellerID:  sellerID,
		Items:     []QuoteItem{{ProductID: productID, Qty: 1}},
		PromoCode: "ONCE",
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if quote.Breakdown.PromoDiscountCents != 0 {
		t.Errorf("promo discount = %d, want 0 when per-user limit reached", quote.Breakdown.PromoDiscountCents)
	}
	if quote.PromoCodeID != nil {
		t.Error("promo code id should not be set when promo is skipped")
	}
}

func TestQuoteExpiredPromoSkipped(t *testing.T) {
	sellerID := uuid.New()
	productID := uuid.New()
	past := time.Now().Add(-time.Hour)
	svc := testEngine(t,
		&stubProducts{byID: map[uuid.UUID]*models.Product{
			productID: {ID: productID, SellerID: sellerID, Title: "mug", PriceCents: 1000},
		}},
		&stubSellers{seller: &models.Seller{ID: sellerID}},
		&stubPromos{promo: &models.PromoCode{
			ID: uuid.New(), SellerID: sellerID, Code: "OLD", Active: true,
			Type: enums.DiscountTypeFixed, AmountCents: 200, ExpiresAt: &past,
		}},
		&stubConfig{},
	)

	quote, err := svc.Quote(context.Background(), QuoteInput{
		BuyerID:   uuid.New(),
		SellerID:  sellerID,
		Items:     []QuoteItem{{ProductID: productID, Qty: 1}},
		PromoCode: "OLD",
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if quote.Breakdown.PromoDiscountCents != 0 {
		t.Errorf("promo discount = %d, want 0 for expired promo", quote.Breakdown.PromoDiscountCents)
	}
}

func TestQuoteFreeShippingThreshold(t *testing.T) {
	sellerID := uuid.New()
	productID := uuid.New()
	threshold := 2000
	svc := testEngine(t,
		&stubProducts{byID: map[uuid.UUID]*models.Product{
			productID: {ID: productID, SellerID: sellerID, Title: "mug", PriceCents: 1000},
		}},
		&stubSellers{seller: &models.Seller{
			ID: sellerID, ShippingFlatCents: 500, FreeShippingThresholdCents: &threshold,
		}},
		&stubPromos{},
		&stubConfig{},
	)

	quote, err := svc.Quote(context.Background(), QuoteInput{
		BuyerID:  uuid.New(),
		SellerID: sellerID,
		Items:    []QuoteItem{{ProductID: productID, Qty: 2}},
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if quote.Breakdown.ShippingCents != 0 {
		t.Errorf("shipping = %d, want 0 above free-shipping threshold", quote.Breakdown.ShippingCents)
	}
}

func TestQuoteExpressOverridesFlat(t *testing.T) {
	sellerID := uuid.New()
	productID := uuid.New()
	svc := testEngine(t,
		&stubProducts{byID: map[uuid.UUID]*models.Product{
			productID: {ID: productID, SellerID: sellerID, Title: "mug", PriceCents: 1000},
		}},
		&stubSellers{seller: &models.Seller{ID: sellerID, ShippingFlatCents: 500}},
		&stubPromos{},
		&stubConfig{},
	)

	quote, err := svc.Quote(context.Background(), QuoteInput{
		BuyerID:        uuid.New(),
		SellerID:       sellerID,
		Items:          []QuoteItem{{ProductID: productID, Qty: 1}},
		ShippingMethod: enums.ShippingMethodExpress,
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if quote.Breakdown.ShippingCents != expressShippingCents {
		t.Errorf("shipping = %d, want carrier tier %d", quote.Breakdown.ShippingCents, expressShippingCents)
	}
}

func TestQuotePlatformFeeRequiresPayoutAccount(t *testing.T) {
	sellerID := uuid.New()
	productID := uuid.New()
	cfg := &models.PlatformConfig{
		TaxRatePercent:  decimal.Zero,
		PlatformFeeType: enums.DiscountTypePercentage,
		PlatformFeePct:  pct("10"),
	}
	products := &stubProducts{byID: map[uuid.UUID]*models.Product{
		productID: {ID: productID, SellerID: sellerID, Title: "mug", PriceCents: 1000},
	}}
	input := QuoteInput{
		BuyerID:  uuid.New(),
		SellerID: sellerID,
		Items:    []QuoteItem{{ProductID: productID, Qty: 1}},
	}

	svc := testEngine(t, products, &stubSellers{seller: &models.Seller{ID: sellerID}}, &stubPromos{}, &stubConfig{cfg: cfg})
	quote, err := svc.Quote(context.Background(), input)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if quote.Breakdown.PlatformFeeCents != 0 {
		t.Errorf("fee = %d, want 0 without payout account", quote.Breakdown.PlatformFeeCents)
	}

	account := "acct_123"
	svc = testEngine(t, products, &stubSellers{seller: &models.Seller{
		ID: sellerID, PayoutAccountID: &account, PayoutsEnabled: true,
	}}, &stubPromos{}, &stubConfig{cfg: cfg})
	quote, err = svc.Quote(context.Background(), input)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if quote.Breakdown.PlatformFeeCents != 100 {
		t.Errorf("fee = %d, want 100 with connected account", quote.Breakdown.PlatformFeeCents)
	}
}

func TestQuoteClientPriceTrusted(t *testing.T) {
	sellerID := uuid.New()
	productID := uuid.New()
	svc := testEngine(t,
		&stubProducts{byID: map[uuid.UUID]*models.Product{
			productID: {ID: productID, SellerID: sellerID, Title: "mug", PriceCents: 1000},
		}},
		&stubSellers{seller: &models.Seller{ID: sellerID}},
		&stubPromos{},
		&stubConfig{},
	)

	clientPrice := 800
	quote, err := svc.Quote(context.Background(), QuoteInput{
		BuyerID:  uuid.New(),
		SellerID: sellerID,
		Items:    []QuoteItem{{ProductID: productID, Qty: 2, UnitPriceCents: &clientPrice}},
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if quote.Breakdown.SubtotalCents != 1600 {
		t.Errorf("subtotal = %d, want 1600 from client-supplied price", quote.Breakdown.SubtotalCents)
	}
}

func TestQuoteItemDiscountApplied(t *testing.T) {
	sellerID := uuid.New()
	productID := uuid.New()
	fixed := enums.DiscountTypeFixed
	amount := 250
	svc := testEngine(t,
		&stubProducts{byID: map[uuid.UUID]*models.Product{
			productID: {
				ID: productID, SellerID: sellerID, Title: "mug", PriceCents: 1000,
				DiscountType: &fixed, DiscountAmountCents: &amount,
			},
		}},
		&stubSellers{seller: &models.Seller{ID: sellerID}},
		&stubPromos{},
		&stubConfig{},
	)

	quote, err := svc.Quote(context.Background(), QuoteInput{
		BuyerID:  uuid.New(),
		SellerID: sellerID,
		Items:    []QuoteItem{{ProductID: productID, Qty: 1}},
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if quote.Breakdown.SubtotalCents != 750 {
		t.Errorf("subtotal = %d, want 750 after item discount", quote.Breakdown.SubtotalCents)
	}
}

func TestQuoteEmptyCartRejected(t *testing.T) {
	svc := testEngine(t, &stubProducts{}, &stubSellers{seller: &models.Seller{}}, &stubPromos{}, &stubConfig{})
	_, err := svc.Quote(context.Background(), QuoteInput{BuyerID: uuid.New(), SellerID: uuid.New()})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestQuoteForeignSellerItemRejected(t *testing.T) {
	sellerID := uuid.New()
	productID := uuid.New()
	svc := testEngine(t,
		&stubProducts{byID: map[uuid.UUID]*models.Product{
			productID: {ID: productID, SellerID: uuid.New(), Title: "mug", PriceCents: 1000},
		}},
		&stubSellers{seller: &models.Seller{ID: sellerID}},
		&stubPromos{},
		&stubConfig{},
	)
	_, err := svc.Quote(context.Background(), QuoteInput{
		BuyerID:  uuid.New(),
		SellerID: sellerID,
		Items:    []QuoteItem{{ProductID: productID, Qty: 1}},
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
