package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/vendomarket-backend/internal/orders"
	"github.com/angelmondragon/vendomarket-backend/internal/pricing"
	"github.com/angelmondragon/vendomarket-backend/pkg/config"
	"github.com/angelmondragon/vendomarket-backend/pkg/db/models"
	"github.com/angelmondragon/vendomarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendomarket-backend/pkg/errors"
	"github.com/angelmondragon/vendomarket-backend/pkg/logger"
	"github.com/angelmondragon/vendomarket-backend/pkg/types"
)

// QuoteEngine prices a checkout.
type QuoteEngine interface {
	Quote(ctx context.Context, input pricing.QuoteInput) (*pricing.Quote, error)
}

// Materializer converts a confirmed payment into an order.
type Materializer interface {
	Materialize(ctx context.Context, conf orders.PaymentConfirmation) (*models.Order, error)
}

// Service is the payment session manager. It prices the cart, snapshots the
// result into processor metadata, and opens the payment authorization. It
// never mutates local state itself; materialization happens when the payment
// confirms.
type Service struct {
	pricing      QuoteEngine
	stripe       StripeCheckoutClient
	materializer Materializer
	cfg          config.StripeConfig
	log          *logger.Logger
}

// ServiceParams collects the checkout service dependencies.
type ServiceParams struct {
	Pricing      QuoteEngine
	Stripe       StripeCheckoutClient
	Materializer Materializer
	Config       config.StripeConfig
	Logger       *logger.Logger
}

// NewService validates the dependency set and builds the session manager.
func NewService(params ServiceParams) (*Service, error) {
	if params.Pricing == nil {
		return nil, fmt.Errorf("checkout service requires a pricing engine")
	}
	if params.Stripe == nil {
		return nil, fmt.Errorf("checkout service requires a stripe client")
	}
	if params.Materializer == nil {
		return nil, fmt.Errorf("checkout service requires a materializer")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("checkout service requires a logger")
	}
	return &Service{
		pricing:      params.Pricing,
		stripe:       params.Stripe,
		materializer: params.Materializer,
		cfg:          params.Config,
		log:          params.Logger,
	}, nil
}

// PaymentIntentResult is returned to an embedded payment form.
type PaymentIntentResult struct {
	PaymentIntentID string                 `json:"payment_intent_id"`
	ClientSecret    string                 `json:"client_secret"`
	Breakdown       types.PricingBreakdown `json:"breakdown"`
	Lines           []pricing.QuoteLine    `json:"lines"`
}

// CheckoutSessionResult points the buyer at a hosted payment page.
type CheckoutSessionResult struct {
	SessionID   string                 `json:"session_id"`
	RedirectURL string                 `json:"redirect_url"`
	Breakdown   types.PricingBreakdown `json:"breakdown"`
	Lines       []pricing.QuoteLine    `json:"lines"`
}

// CreatePaymentIntent prices the cart and opens a payment intent carrying the
// full checkout snapshot as metadata.
func (s *Service) CreatePaymentIntent(ctx context.Context, input pricing.QuoteInput) (*PaymentIntentResult, error) {
	quote, meta, err := s.quoteAndSnapshot(ctx, input)
	if err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(quote.Breakdown.TotalCents)),
		Currency: stripe.String(string(stripe.CurrencyUSD)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Metadata = meta

	intent, err := s.stripe.CreatePaymentIntent(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}
	s.log.Info(s.log.WithPaymentRef(ctx, intent.ID), "payment intent created")

	s.maybeMaterializeNow(ctx, orders.RefPaymentIntent, intent.ID, meta)

	return &PaymentIntentResult{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Breakdown:       quote.Breakdown,
		Lines:           quote.Lines,
	}, nil
}

// CreateCheckoutSession prices the cart and opens a hosted checkout session
// with explicit line items. The snapshot rides on both the session and the
// intent it spawns so either confirmation event can materialize the order.
func (s *Service) CreateCheckoutSession(ctx context.Context, input pricing.QuoteInput) (*CheckoutSessionResult, error) {
	quote, meta, err := s.quoteAndSnapshot(ctx, input)
	if err != nil {
		return nil, err
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(quote.Lines)+1)
	for _, line := range quote.Lines {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount: stripe.Int64(int64(line.TotalCents)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(fmt.Sprintf("%s x%d", line.Name, line.Qty)),
				},
			},
			Quantity: stripe.Int64(1),
		})
	}
	if extra := quote.Breakdown.ShippingCents + quote.Breakdown.TaxCents; extra > 0 {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount: stripe.Int64(int64(extra)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("Shipping & tax"),
				},
			},
			Quantity: stripe.Int64(1),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  lineItems,
		SuccessURL: stripe.String(s.cfg.FrontendBaseURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(s.cfg.FrontendBaseURL + "/checkout/cancel"),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: meta,
		},
	}
	params.Metadata = meta

	session, err := s.stripe.CreateCheckoutSession(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}
	s.log.Info(s.log.WithPaymentRef(ctx, session.ID), "checkout session created")

	s.maybeMaterializeNow(ctx, orders.RefCheckoutSession, session.ID, meta)

	return &CheckoutSessionResult{
		SessionID:   session.ID,
		RedirectURL: session.URL,
		Breakdown:   quote.Breakdown,
		Lines:       quote.Lines,
	}, nil
}

// ConfirmOrder is the synchronous confirmation path: it re-verifies with the
// processor that the payment actually succeeded before funnelling into the
// same idempotent materialization the webhook uses.
func (s *Service) ConfirmOrder(ctx context.Context, paymentRef string) (*models.Order, error) {
	if paymentRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}
	ctx = s.log.WithPaymentRef(ctx, paymentRef)

	var (
		refKind orders.PaymentRefKind
		meta    map[string]string
	)
	if strings.HasPrefix(paymentRef, "cs_") {
		session, err := s.stripe.GetCheckoutSession(ctx, paymentRef)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout session")
		}
		if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment has not completed")
		}
		refKind = orders.RefCheckoutSession
		meta = session.Metadata
	} else {
		intent, err := s.stripe.GetPaymentIntent(ctx, paymentRef)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment intent")
		}
		if intent.Status != stripe.PaymentIntentStatusSucceeded {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment has not completed")
		}
		refKind = orders.RefPaymentIntent
		meta = intent.Metadata
	}

	conf, err := DecodeConfirmation(refKind, paymentRef, meta)
	if err != nil {
		return nil, err
	}
	return s.materializer.Materialize(ctx, conf)
}

func (s *Service) quoteAndSnapshot(ctx context.Context, input pricing.QuoteInput) (*pricing.Quote, map[string]string, error) {
	quote, err := s.pricing.Quote(ctx, input)
	if err != nil {
		return nil, nil, err
	}

	items := make([]orders.ConfirmedItem, 0, len(quote.Lines))
	for _, line := range quote.Lines {
		items = append(items, orders.ConfirmedItem{
			ProductID:      line.ProductID,
			SellerID:       line.SellerID,
			Name:           line.Name,
			Qty:            line.Qty,
			UnitPriceCents: line.UnitPriceCents,
			DiscountCents:  line.DiscountCents,
			TotalCents:     line.TotalCents,
		})
	}
	meta, err := encodeMetadata(checkoutSnapshot{
		BuyerID:         input.BuyerID,
		SellerID:        input.SellerID,
		Items:           items,
		ShippingAddress: input.ShippingAddress,
		Breakdown:       quote.Breakdown,
		Currency:        enums.CurrencyUSD,
		PromoCodeID:     quote.PromoCodeID,
		PromoCode:       quote.PromoCode,
	})
	if err != nil {
		return nil, nil, err
	}
	return quote, meta, nil
}

// maybeMaterializeNow is the local-dev shortcut for environments without a
// reachable webhook endpoint. Load refuses the flag outside dev, and a
// shortcut failure never fails the checkout call itself.
func (s *Service) maybeMaterializeNow(ctx context.Context, refKind orders.PaymentRefKind, paymentRef string, meta map[string]string) {
	if !s.cfg.SkipWebhookConfirmation {
		return
	}
	conf, err := DecodeConfirmation(refKind, paymentRef, meta)
	if err != nil {
		s.log.Error(ctx, "dev shortcut: snapshot decode failed", err)
		return
	}
	if _, err := s.materializer.Materialize(ctx, conf); err != nil {
		s.log.Error(ctx, "dev shortcut: immediate materialization failed", err)
	}
}
