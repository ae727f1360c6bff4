package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/vendomarket-backend/internal/checkout"
	"github.com/angelmondragon/vendomarket-backend/internal/orders"
	"github.com/angelmondragon/vendomarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/vendomarket-backend/pkg/errors"
	"github.com/angelmondragon/vendomarket-backend/pkg/logger"
	"github.com/angelmondragon/vendomarket-backend/pkg/types"
)

type stubMaterializer struct {
	confs []orders.PaymentConfirmation
	err   error
}

func (s *stubMaterializer) Materialize(_ context.Context, conf orders.PaymentConfirmation) (*models.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.confs = append(s.confs, conf)
	return &models.Order{ID: uuid.New()}, nil
}

type adjusterCall struct {
	kind   string
	ref    string
	amount int
	won    bool
}

type stubAdjuster struct {
	calls []adjusterCall
}

func (s *stubAdjuster) ApplyRefund(_ context.Context, ref string, cents int) error {
	s.calls = append(s.calls, adjusterCall{kind: "refund", ref: ref, amount: cents})
	return nil
}

func (s *stubAdjuster) DisputeOpened(_ context.Context, ref, _, _ string, cents int, _ time.Time) error {
	s.calls = append(s.calls, adjusterCall{kind: "opened", ref: ref, amount: cents})
	return nil
}

func (s *stubAdjuster) DisputeUpdated(_ context.Context, ref, _ string) error {
	s.calls = append(s.calls, adjusterCall{kind: "updated", ref: ref})
	return nil
}

func (s *stubAdjuster) DisputeClosed(_ context.Context, ref string, won bool, cents int) error {
	s.calls = append(s.calls, adjusterCall{kind: "closed", ref: ref, amount: cents, won: won})
	return nil
}

type stubSellers struct {
	seller  *models.Seller
	updates map[uuid.UUID]bool
}

func (s *stubSellers) FindByPayoutAccountID(_ context.Context, accountID string) (*models.Seller, error) {
	if s.seller == nil || s.seller.PayoutAccountID == nil || *s.seller.PayoutAccountID != accountID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller not found for payout account")
	}
	return s.seller, nil
}

func (s *stubSellers) UpdatePayoutsEnabled(_ context.Context, sellerID uuid.UUID, enabled bool) error {
	if s.updates == nil {
		s.updates = map[uuid.UUID]bool{}
	}
	s.updates[sellerID] = enabled
	return nil
}

type stubStripe struct {
	intent *stripe.PaymentIntent
}

func (s *stubStripe) CreatePaymentIntent(_ context.Context, _ *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return nil, fmt.Errorf("not used")
}

func (s *stubStripe) GetPaymentIntent(_ context.Context, id string) (*stripe.PaymentIntent, error) {
	if s.intent == nil || s.intent.ID != id {
		return nil, fmt.Errorf("intent %s not found", id)
	}
	return s.intent, nil
}

func (s *stubStripe) CreateCheckoutSession(_ context.Context, _ *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return nil, fmt.Errorf("not used")
}

func (s *stubStripe) GetCheckoutSession(_ context.Context, _ string) (*stripe.CheckoutSession, error) {
	return nil, fmt.Errorf("not used")
}

func snapshotMeta(t *testing.T) map[string]string {
	t.Helper()
	items, _ := json.Marshal([]orders.ConfirmedItem{{
		ProductID: uuid.New(), SellerID: uuid.New(), Name: "widget",
		Qty: 1, UnitPriceCents: 1000, TotalCents: 1000,
	}})
	address, _ := json.Marshal(types.Address{Line1: "1 Main St", City: "Austin", PostalCode: "78701", Country: "US"})
	breakdown, _ := json.Marshal(types.PricingBreakdown{SubtotalCents: 1000, DiscountedSubtotalCents: 1000, TotalCents: 1000})
	return map[string]string{
		"buyer_id":         uuid.New().String(),
		"seller_id":        uuid.New().String(),
		"items":            string(items),
		"shipping_address": string(address),
		"breakdown":        string(breakdown),
		"currency":         "USD",
	}
}

func newService(t *testing.T, mat *stubMaterializer, adj *stubAdjuster, sellers *stubSellers, api *stubStripe) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Materializer: mat,
		Adjuster:     adj,
		Sellers:      sellers,
		Stripe:       api,
		Logger:       logger.New(logger.Options{Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func event(t *testing.T, kind stripe.EventType, payload any) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return &stripe.Event{Type: kind, Data: &stripe.EventData{Raw: raw}}
}

func TestHandlePaymentIntentSucceeded(t *testing.T) {
	mat := &stubMaterializer{}
	svc := newService(t, mat, &stubAdjuster{}, &stubSellers{}, &stubStripe{})
	meta := snapshotMeta(t)

	err := svc.HandleEvent(context.Background(), event(t, stripe.EventTypePaymentIntentSucceeded,
		map[string]any{"id": "pi_1", "metadata": meta}))
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(mat.confs) != 1 {
		t.Fatalf("materializations = %d, want 1", len(mat.confs))
	}
	if mat.confs[0].PaymentRef != "pi_1" || mat.confs[0].RefKind != orders.RefPaymentIntent {
		t.Errorf("conf = %+v", mat.confs[0])
	}
}

func TestHandlePaymentIntentWithoutSnapshotIgnored(t *testing.T) {
	mat := &stubMaterializer{}
	svc := newService(t, mat, &stubAdjuster{}, &stubSellers{}, &stubStripe{})

	err := svc.HandleEvent(context.Background(), event(t, stripe.EventTypePaymentIntentSucceeded,
		map[string]any{"id": "pi_sub", "metadata": map[string]string{}}))
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(mat.confs) != 0 {
		t.Fatal("intent without checkout snapshot must be ignored")
	}
}

func TestHandleChargeSucceededFetchesIntentSnapshot(t *testing.T) {
	mat := &stubMaterializer{}
	api := &stubStripe{intent: &stripe.PaymentIntent{ID: "pi_2", Metadata: snapshotMeta(t)}}
	svc := newService(t, mat, &stubAdjuster{}, &stubSellers{}, api)

	err := svc.HandleEvent(context.Background(), event(t, stripe.EventTypeChargeSucceeded,
		map[string]any{"id": "ch_1", "payment_intent": "pi_2"}))
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(mat.confs) != 1 || mat.confs[0].PaymentRef != "pi_2" {
		t.Fatalf("confs = %+v, want intent-keyed materialization", mat.confs)
	}
}

func TestHandleCheckoutSessionCompletedLinksIntent(t *testing.T) {
	mat := &stubMaterializer{}
	svc := newService(t, mat, &stubAdjuster{}, &stubSellers{}, &stubStripe{})

	err := svc.HandleEvent(context.Background(), event(t, stripe.EventTypeCheckoutSessionCompleted,
		map[string]any{
			"id":             "cs_1",
			"payment_status": "paid",
			"payment_intent": "pi_3",
			"metadata":       snapshotMeta(t),
		}))
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(mat.confs) != 1 {
		t.Fatalf("materializations = %d, want 1", len(mat.confs))
	}
	conf := mat.confs[0]
	if conf.RefKind != orders.RefCheckoutSession || conf.PaymentRef != "cs_1" || conf.LinkedIntentID != "pi_3" {
		t.Errorf("conf = %+v, want session ref with linked intent", conf)
	}
}

func TestHandleUnpaidSessionIgnored(t *testing.T) {
	mat := &stubMaterializer{}
	svc := newService(t, mat, &stubAdjuster{}, &stubSellers{}, &stubStripe{})

	err := svc.HandleEvent(context.Background(), event(t, stripe.EventTypeCheckoutSessionCompleted,
		map[string]any{"id": "cs_2", "payment_status": "unpaid", "metadata": snapshotMeta(t)}))
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(mat.confs) != 0 {
		t.Fatal("unpaid session must not materialize")
	}
}

func TestHandleChargeRefundedUsesLatestRefund(t *testing.T) {
	adj := &stubAdjuster{}
	svc := newService(t, &stubMaterializer{}, adj, &stubSellers{}, &stubStripe{})

	err := svc.HandleEvent(context.Background(), event(t, stripe.EventTypeChargeRefunded,
		map[string]any{
			"id":              "ch_2",
			"payment_intent":  "pi_4",
			"amount_refunded": 1500,
			"refunds": map[string]any{
				"data": []map[string]any{{"id": "re_2", "amount": 500}, {"id": "re_1", "amount": 1000}},
			},
		}))
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(adj.calls) != 1 {
		t.Fatalf("adjuster calls = %+v, want 1", adj.calls)
	}
	if adj.calls[0].kind != "refund" || adj.calls[0].ref != "pi_4" || adj.calls[0].amount != 500 {
		t.Errorf("call = %+v, want newest 500-cent refund", adj.calls[0])
	}
}

func TestHandleDisputeLifecycle(t *testing.T) {
	adj := &stubAdjuster{}
	svc := newService(t, &stubMaterializer{}, adj, &stubSellers{}, &stubStripe{})
	ctx := context.Background()

	base := map[string]any{
		"id": "dp_1", "payment_intent": "pi_5", "amount": 2700,
		"reason": "fraudulent", "created": time.Now().Unix(),
	}
	if err := svc.HandleEvent(ctx, event(t, stripe.EventTypeChargeDisputeCreated, base)); err != nil {
		t.Fatalf("created: %v", err)
	}
	if err := svc.HandleEvent(ctx, event(t, stripe.EventTypeChargeDisputeUpdated, base)); err != nil {
		t.Fatalf("updated: %v", err)
	}
	base["status"] = "lost"
	if err := svc.HandleEvent(ctx, event(t, stripe.EventTypeChargeDisputeClosed, base)); err != nil {
		t.Fatalf("closed: %v", err)
	}

	if len(adj.calls) != 3 {
		t.Fatalf("adjuster calls = %+v, want 3", adj.calls)
	}
	if adj.calls[0].kind != "opened" || adj.calls[0].amount != 2700 {
		t.Errorf("opened call = %+v", adj.calls[0])
	}
	if adj.calls[2].kind != "closed" || adj.calls[2].won {
		t.Errorf("closed call = %+v, want lost", adj.calls[2])
	}
}

func TestHandleAccountUpdatedSyncsPayoutFlag(t *testing.T) {
	account := "acct_1"
	sellerID := uuid.New()
	sellers := &stubSellers{seller: &models.Seller{ID: sellerID, PayoutAccountID: &account}}
	svc := newService(t, &stubMaterializer{}, &stubAdjuster{}, sellers, &stubStripe{})

	err := svc.HandleEvent(context.Background(), event(t, stripe.EventTypeAccountUpdated,
		map[string]any{"id": "acct_1", "payouts_enabled": true, "charges_enabled": true}))
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if !sellers.updates[sellerID] {
		t.Fatal("seller payout flag not enabled")
	}
}

func TestHandleAccountUpdatedUnknownAccountIgnored(t *testing.T) {
	sellers := &stubSellers{}
	svc := newService(t, &stubMaterializer{}, &stubAdjuster{}, sellers, &stubStripe{})

	err := svc.HandleEvent(context.Background(), event(t, stripe.EventTypeAccountUpdated,
		map[string]any{"id": "acct_unknown", "payouts_enabled": true}))
	if err != nil {
		t.Fatalf("unknown account must be ignored, got %v", err)
	}
}

func TestHandleEventIgnoresUnknownTypes(t *testing.T) {
	mat := &stubMaterializer{}
	svc := newService(t, mat, &stubAdjuster{}, &stubSellers{}, &stubStripe{})

	err := svc.HandleEvent(context.Background(), event(t, "price.created", map[string]any{"id": "price_1"}))
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(mat.confs) != 0 {
		t.Fatal("unknown event types must be no-ops")
	}
}

func TestMetadataRoundTripFromCheckoutPackage(t *testing.T) {
	meta := snapshotMeta(t)
	if !checkout.HasSnapshot(meta) {
		t.Fatal("snapshot metadata must be recognized")
	}
	conf, err := checkout.DecodeConfirmation(orders.RefPaymentIntent, "pi_x", meta)
	if err != nil {
		t.Fatalf("DecodeConfirmation: %v", err)
	}
	if !conf.Validate() {
		t.Fatal("decoded confirmation must validate")
	}
}
