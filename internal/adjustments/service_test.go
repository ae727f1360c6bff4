package adjustments

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/vendomarket-backend/internal/orders"
	"github.com/angelmondragon/vendomarket-backend/internal/products"
	"github.com/angelmondragon/vendomarket-backend/internal/settlements"
	"github.com/angelmondragon/vendomarket-backend/pkg/db/models"
	"github.com/angelmondragon/vendomarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendomarket-backend/pkg/errors"
	"github.com/angelmondragon/vendomarket-backend/pkg/logger"
	"github.com/angelmondragon/vendomarket-backend/pkg/types"
)

type txRunner struct {
	db *gorm.DB
}

func (r txRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type stubNotify struct {
	events []enums.NotificationType
}

func (s *stubNotify) NotifyNewOrder(_ context.Context, _, _ uuid.UUID, _ string) {}

func (s *stubNotify) NotifyOrderEvent(_ context.Context, _ uuid.UUID, _ *uuid.UUID, kind enums.NotificationType, _ string) {
	s.events = append(s.events, kind)
}

type stubRefunds struct {
	calls    []int64
	err      error
	evidence []*stripe.DisputeParams
}

func (s *stubRefunds) CreateRefund(_ context.Context, params *stripe.RefundParams) (*stripe.Refund, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.calls = append(s.calls, stripe.Int64Value(params.Amount))
	return &stripe.Refund{ID: "re_1"}, nil
}

func (s *stubRefunds) UpdateDispute(_ context.Context, disputeID string, params *stripe.DisputeParams) (*stripe.Dispute, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.evidence = append(s.evidence, params)
	return &stripe.Dispute{ID: disputeID}, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_pragma=busy_timeout(5000)"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&models.Product{},
		&models.Order{},
		&models.OrderLineItem{},
		&models.Settlement{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})
	return db
}

type fixture struct {
	svc     *Service
	db      *gorm.DB
	notify  *stubNotify
	refunds *stubRefunds

	sellerID     uuid.UUID
	productID    uuid.UUID
	orderID      uuid.UUID
	settlementID uuid.UUID
}

// newFixture seeds a paid 2700-cent order (2x widget at 1000, shipping 500,
// tax 200, fee 270) with a pending 2430-cent settlement.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := newTestDB(t)
	notify := &stubNotify{}
	refunds := &stubRefunds{}

	svc, err := NewService(ServiceParams{
		Tx:            txRunner{db: gdb},
		Orders:        orders.NewRepository(gdb),
		Products:      products.NewRepository(gdb),
		Settlements:   settlements.NewRepository(gdb),
		Refunds:       refunds,
		Notifications: notify,
		Logger:        logger.New(logger.Options{Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	f := &fixture{
		svc:          svc,
		db:           gdb,
		notify:       notify,
		refunds:      refunds,
		sellerID:     uuid.New(),
		productID:    uuid.New(),
		orderID:      uuid.New(),
		settlementID: uuid.New(),
	}

	if err := gdb.Create(&models.Product{
		ID: f.productID, SellerID: f.sellerID, Title: "widget", PriceCents: 1000, StockQty: 3,
	}).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	intent := "pi_adj"
	order := &models.Order{
		ID:             f.orderID,
		Code:           "ORD-20260302-ABCDEF",
		TrackingNumber: "TRK-1-ABCDEFGH",
		BuyerID:        uuid.New(),

		ShippingAddress: types.Address{Line1: "1 Main St", City: "Austin", PostalCode: "78701", Country: "US"},

		Currency:                enums.CurrencyUSD,
		SubtotalCents:           2000,
		DiscountedSubtotalCents: 2000,
		ShippingCents:           500,
		TaxCents:                200,
		PlatformFeeCents:        270,
		TotalCents:              2700,

		PaymentStatus:   enums.PaymentStatusPaid,
		Status:          enums.OrderStatusNew,
		PaymentIntentID: &intent,

		Items: []models.OrderLineItem{{
			ID:             uuid.New(),
			OrderID:        f.orderID,
			ProductID:      f.productID,
			SellerID:       f.sellerID,
			Name:           "widget",
			Qty:            2,
			UnitPriceCents: 1000,
			TotalCents:     2000,
			Status:         enums.LineItemStatusConfirmed,
		}},
	}
	if err := gdb.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}

	if err := gdb.Create(&models.Settlement{
		ID:               f.settlementID,
		SellerID:         f.sellerID,
		OrderID:          f.orderID,
		OrderTotalCents:  2700,
		CommissionCents:  2430,
		PlatformFeeCents: 270,
		Status:           enums.SettlementStatusPending,
		ScheduledFor:     time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
	}).Error; err != nil {
		t.Fatalf("seed settlement: %v", err)
	}
	return f
}

func (f *fixture) reloadOrder(t *testing.T) *models.Order {
	t.Helper()
	var order models.Order
	if err := f.db.Preload("Items").First(&order, "id = ?", f.orderID).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	return &order
}

func (f *fixture) reloadSettlement(t *testing.T) *models.Settlement {
	t.Helper()
	var row models.Settlement
	if err := f.db.First(&row, "id = ?", f.settlementID).Error; err != nil {
		t.Fatalf("reload settlement: %v", err)
	}
	return &row
}

func TestApplyRefundPartial(t *testing.T) {
	f := newFixture(t)

	// One third of the order.
	if err := f.svc.ApplyRefund(context.Background(), "pi_adj", 900); err != nil {
		t.Fatalf("ApplyRefund: %v", err)
	}

	order := f.reloadOrder(t)
	if order.PaymentStatus != enums.PaymentStatusPartiallyRefunded {
		t.Errorf("payment status = %s, want partially_refunded", order.PaymentStatus)
	}
	if order.RefundedCents != 900 {
		t.Errorf("refunded = %d, want 900", order.RefundedCents)
	}
	if order.FeeReversedCents != 90 {
		t.Errorf("fee reversed = %d, want proportional 90", order.FeeReversedCents)
	}

	settlement := f.reloadSettlement(t)
	if settlement.Status != enums.SettlementStatusPending {
		t.Errorf("settlement status = %s, want still pending", settlement.Status)
	}
	if settlement.RefundDeductionCents != 810 {
		t.Errorf("deduction = %d, want proportional 810", settlement.RefundDeductionCents)
	}
	if settlement.CommissionCents != 2430-810 {
		t.Errorf("commission = %d, want 1620", settlement.CommissionCents)
	}

	var product models.Product
	if err := f.db.First(&product, "id = ?", f.productID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if product.StockQty != 3 {
		t.Errorf("stock = %d, partial refund must not restock", product.StockQty)
	}
}

func TestApplyRefundFullRestocksAndConsumesSettlement(t *testing.T) {
	f := newFixture(t)

	if err := f.svc.ApplyRefund(context.Background(), "pi_adj", 2700); err != nil {
		t.Fatalf("ApplyRefund: %v", err)
	}

	order := f.reloadOrder(t)
	if order.PaymentStatus != enums.PaymentStatusRefunded {
		t.Errorf("payment status = %s, want refunded", order.PaymentStatus)
	}
	if order.Status != enums.OrderStatusRefunded {
		t.Errorf("order status = %s, want refunded", order.Status)
	}
	if order.Items[0].Status != enums.LineItemStatusCancelled {
		t.Errorf("line item status = %s, want cancelled", order.Items[0].Status)
	}
	restored := false
	for _, ev := range order.Items[0].Timeline {
		if ev.Event == "Stock restored" {
			restored = true
		}
	}
	if !restored {
		t.Error("missing per-item stock restored timeline event")
	}

	var product models.Product
	if err := f.db.First(&product, "id = ?", f.productID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if product.StockQty != 5 {
		t.Errorf("stock = %d, want 5 after restock", product.StockQty)
	}

	settlement := f.reloadSettlement(t)
	if settlement.Status != enums.SettlementStatusRefunded {
		t.Errorf("settlement status = %s, want refunded when fully consumed", settlement.Status)
	}
	if settlement.CommissionCents != 0 {
		t.Errorf("commission = %d, want 0", settlement.CommissionCents)
	}

	if len(f.notify.events) != 1 || f.notify.events[0] != enums.NotificationTypeOrderRefunded {
		t.Errorf("notifications = %v, want one refund event", f.notify.events)
	}
}

func TestApplyRefundAfterPayoutCreatesClawbackRow(t *testing.T) {
	f := newFixture(t)
	transferID := "tr_1"
	settledAt := time.Now()
	if err := f.db.Model(&models.Settlement{}).Where("id = ?", f.settlementID).Updates(map[string]any{
		"status": enums.SettlementStatusSettled, "transfer_id": transferID, "settled_at": settledAt,
	}).Error; err != nil {
		t.Fatalf("settle row: %v", err)
	}

	if err := f.svc.ApplyRefund(context.Background(), "pi_adj", 2700); err != nil {
		t.Fatalf("ApplyRefund: %v", err)
	}

	var clawback models.Settlement
	err := f.db.Where("order_id = ? AND status = ?", f.orderID, enums.SettlementStatusPending).
		First(&clawback).Error
	if err != nil {
		t.Fatalf("clawback row missing: %v", err)
	}
	if clawback.CommissionCents != -2430 {
		t.Errorf("clawback commission = %d, want -2430", clawback.CommissionCents)
	}
	if clawback.ScheduledFor.Weekday() != time.Wednesday {
		t.Errorf("clawback scheduled for %s, want a Wednesday", clawback.ScheduledFor.Weekday())
	}
}

func TestDisputeLifecycleWon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	openedAt := time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)

	if err := f.svc.DisputeOpened(ctx, "pi_adj", "dp_1", "fraudulent", 2700, openedAt); err != nil {
		t.Fatalf("DisputeOpened: %v", err)
	}
	order := f.reloadOrder(t)
	if order.PaymentStatus != enums.PaymentStatusDisputed {
		t.Fatalf("payment status = %s, want disputed", order.PaymentStatus)
	}
	if order.DisputeID == nil || *order.DisputeID != "dp_1" {
		t.Fatal("dispute metadata not stored")
	}
	if len(f.notify.events) != 1 || f.notify.events[0] != enums.NotificationTypeOrderDisputed {
		t.Fatalf("notifications = %v, want one dispute event", f.notify.events)
	}

	if err := f.svc.DisputeUpdated(ctx, "pi_adj", "dp_1"); err != nil {
		t.Fatalf("DisputeUpdated: %v", err)
	}
	order = f.reloadOrder(t)
	if order.DisputeStatus == nil || *order.DisputeStatus != enums.DisputeStatusUnderReview {
		t.Fatal("dispute status not moved to under_review")
	}

	if err := f.svc.DisputeClosed(ctx, "pi_adj", true, 2700); err != nil {
		t.Fatalf("DisputeClosed: %v", err)
	}
	order = f.reloadOrder(t)
	if order.PaymentStatus != enums.PaymentStatusPaid {
		t.Errorf("payment status = %s, want paid after winning", order.PaymentStatus)
	}
	if order.DisputeStatus == nil || *order.DisputeStatus != enums.DisputeStatusWon {
		t.Error("dispute status not marked won")
	}
	settlement := f.reloadSettlement(t)
	if settlement.CommissionCents != 2430 || settlement.Status != enums.SettlementStatusPending {
		t.Errorf("settlement = %+v, ledger must be untouched on a win", settlement)
	}
}

func TestDisputeClosedLostBookkeptAsFullRefund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.DisputeOpened(ctx, "pi_adj", "dp_2", "product_not_received", 2700, time.Now()); err != nil {
		t.Fatalf("DisputeOpened: %v", err)
	}
	if err := f.svc.DisputeClosed(ctx, "pi_adj", false, 2700); err != nil {
		t.Fatalf("DisputeClosed: %v", err)
	}

	order := f.reloadOrder(t)
	if order.PaymentStatus != enums.PaymentStatusRefunded {
		t.Errorf("payment status = %s, want refunded after losing", order.PaymentStatus)
	}
	if order.DisputeStatus == nil || *order.DisputeStatus != enums.DisputeStatusLost {
		t.Error("dispute status not marked lost")
	}

	var product models.Product
	if err := f.db.First(&product, "id = ?", f.productID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if product.StockQty != 5 {
		t.Errorf("stock = %d, want restocked 5", product.StockQty)
	}
	settlement := f.reloadSettlement(t)
	if settlement.Status != enums.SettlementStatusRefunded {
		t.Errorf("settlement status = %s, want refunded", settlement.Status)
	}
}

func TestInitiateRefundValidatesBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.InitiateRefund(ctx, "ORD-20260302-ABCDEF", 5000); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for oversized refund, got %v", err)
	}
	if len(f.refunds.calls) != 0 {
		t.Fatal("processor must not be called for an invalid amount")
	}

	if err := f.svc.InitiateRefund(ctx, "ORD-20260302-ABCDEF", 900); err != nil {
		t.Fatalf("InitiateRefund: %v", err)
	}
	if len(f.refunds.calls) != 1 || f.refunds.calls[0] != 900 {
		t.Fatalf("refund calls = %v, want single 900-cent refund", f.refunds.calls)
	}
}

func TestSubmitDisputeEvidence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.SubmitDisputeEvidence(ctx, "ORD-20260302-ABCDEF", DisputeEvidence{Notes: "tracked delivery"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict without an open dispute, got %v", err)
	}

	if err := f.svc.DisputeOpened(ctx, "pi_adj", "dp_3", "fraudulent", 2700, time.Now()); err != nil {
		t.Fatalf("DisputeOpened: %v", err)
	}
	evidence := DisputeEvidence{
		ProductDescription:     "widget, 2 units",
		ShippingTrackingNumber: "TRK-1-ABCDEFGH",
		Notes:                  "signed proof of delivery attached",
	}
	if err := f.svc.SubmitDisputeEvidence(ctx, "ORD-20260302-ABCDEF", evidence); err != nil {
		t.Fatalf("SubmitDisputeEvidence: %v", err)
	}

	if len(f.refunds.evidence) != 1 {
		t.Fatalf("evidence submissions = %d, want 1", len(f.refunds.evidence))
	}
	params := f.refunds.evidence[0]
	if params.Evidence == nil || stripe.StringValue(params.Evidence.ShippingTrackingNumber) != "TRK-1-ABCDEFGH" {
		t.Error("tracking number not forwarded to the processor")
	}
	if !stripe.BoolValue(params.Submit) {
		t.Error("evidence must be submitted, not just saved")
	}

	order := f.reloadOrder(t)
	last := order.Timeline[len(order.Timeline)-1]
	if last.Event != "Dispute evidence submitted" {
		t.Errorf("timeline event = %q", last.Event)
	}
}
