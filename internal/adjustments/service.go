package adjustments

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendomarket-backend/internal/notifications"
	"github.com/angelmondragon/vendomarket-backend/internal/orders"
	"github.com/angelmondragon/vendomarket-backend/internal/products"
	"github.com/angelmondragon/vendomarket-backend/internal/settlements"
	"github.com/angelmondragon/vendomarket-backend/pkg/db"
	"github.com/angelmondragon/vendomarket-backend/pkg/db/models"
	"github.com/angelmondragon/vendomarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendomarket-backend/pkg/errors"
	"github.com/angelmondragon/vendomarket-backend/pkg/logger"
)

// Service adjusts orders and the settlement ledger in response to refunds and
// disputes. The bookkeeping is transactional per event; failures surface to
// the webhook layer, which logs and acknowledges anyway so the processor does
// not retry forever over a local ledger problem.
type Service struct {
	tx          db.TxRunner
	orders      orders.Repository
	products    products.Repository
	settlements settlements.Repository
	refunds     StripeRefundClient
	notify      notifications.Service
	log         *logger.Logger
	now         func() time.Time
}

// ServiceParams collects the adjuster dependencies.
type ServiceParams struct {
	Tx            db.TxRunner
	Orders        orders.Repository
	Products      products.Repository
	Settlements   settlements.Repository
	Refunds       StripeRefundClient
	Notifications notifications.Service
	Logger        *logger.Logger
}

// NewService validates the dependency set and builds the adjuster.
func NewService(params ServiceParams) (*Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("adjustment service requires a transaction runner")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("adjustment service requires an order repository")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("adjustment service requires a product repository")
	}
	if params.Settlements == nil {
		return nil, fmt.Errorf("adjustment service requires a settlement repository")
	}
	if params.Refunds == nil {
		return nil, fmt.Errorf("adjustment service requires a refund client")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("adjustment service requires a notification service")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("adjustment service requires a logger")
	}
	return &Service{
		tx:          params.Tx,
		orders:      params.Orders,
		products:    params.Products,
		settlements: params.Settlements,
		refunds:     params.Refunds,
		notify:      params.Notifications,
		log:         params.Logger,
		now:         time.Now,
	}, nil
}

// InitiateRefund asks the processor to refund part or all of an order's
// payment, reversing the transferred platform share. Ledger bookkeeping
// happens when the processor's refund event arrives, keeping one adjustment
// path for both admin-initiated and processor-initiated refunds.
func (s *Service) InitiateRefund(ctx context.Context, orderCode string, amountCents int) error {
	order, err := s.orders.FindByCode(ctx, orderCode)
	if err != nil {
		return err
	}
	if order.PaymentStatus != enums.PaymentStatusPaid && order.PaymentStatus != enums.PaymentStatusPartiallyRefunded {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not in a refundable state")
	}
	if amountCents <= 0 || amountCents > order.TotalCents-order.RefundedCents {
		return pkgerrors.New(pkgerrors.CodeValidation, "refund amount exceeds the refundable balance")
	}
	if order.PaymentIntentID == nil || *order.PaymentIntentID == "" {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no payment intent to refund against")
	}

	params := &stripe.RefundParams{
		PaymentIntent: order.PaymentIntentID,
		Amount:        stripe.Int64(int64(amountCents)),
	}
	params.AddMetadata("order_code", order.Code)

	if _, err := s.refunds.CreateRefund(ctx, params); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create refund")
	}
	s.log.Info(s.log.WithOrderCode(ctx, order.Code), "refund initiated with processor")
	return nil
}

// ApplyRefund records a processor-confirmed refund against the order keyed by
// paymentRef: payment status, fee reversal bookkeeping, restock on full
// refund, and a proportional commission deduction in the settlement ledger.
func (s *Service) ApplyRefund(ctx context.Context, paymentRef string, refundCents int) error {
	if refundCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}
	ctx = s.log.WithPaymentRef(ctx, paymentRef)

	var adjusted *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.orders.WithTx(tx).FindByPaymentRef(ctx, paymentRef)
		if err != nil {
			return err
		}
		adjusted = order
		return s.applyRefundTx(ctx, tx, order, refundCents)
	})
	if err != nil {
		return err
	}

	if adjusted != nil && len(adjusted.Items) > 0 {
		s.notify.NotifyOrderEvent(ctx, adjusted.Items[0].SellerID, &adjusted.ID,
			enums.NotificationTypeOrderRefunded,
			fmt.Sprintf("Order %s refunded %s", adjusted.Code, dollars(refundCents)))
	}
	return nil
}

func (s *Service) applyRefundTx(ctx context.Context, tx *gorm.DB, order *models.Order, refundCents int) error {
	now := s.now()
	ordersTx := s.orders.WithTx(tx)

	fraction := decimal.NewFromInt(int64(refundCents)).
		Div(decimal.NewFromInt(int64(order.TotalCents)))
	full := order.RefundedCents+refundCents >= order.TotalCents

	order.RefundedCents += refundCents
	order.FeeReversedCents += fractionOf(order.PlatformFeeCents, fraction)
	if full {
		order.PaymentStatus = enums.PaymentStatusRefunded
		order.Status = enums.OrderStatusRefunded
	} else {
		order.PaymentStatus = enums.PaymentStatusPartiallyRefunded
	}
	order.Timeline = order.Timeline.Append(
		fmt.Sprintf("Refund of %s processed", dollars(refundCents)), "", now)

	if full {
		productsTx := s.products.WithTx(tx)
		for i := range order.Items {
			item := &order.Items[i]
			if err := productsTx.RestoreStock(ctx, item.ProductID, item.Qty); err != nil {
				return err
			}
			item.Status = enums.LineItemStatusCancelled
			item.Timeline = item.Timeline.Append("Stock restored", "", now)
			if err := ordersTx.SaveLineItem(ctx, item); err != nil {
				return err
			}
		}
	}

	if err := ordersTx.Save(ctx, order); err != nil {
		return err
	}
	return s.deductFromSettlement(ctx, tx, order, fraction, now)
}

// deductFromSettlement takes the refund's share of commission out of the
// order's pending settlement. When the settlement already paid out, a negative
// pending row is created instead so the deduction nets against the seller's
// future sales.
func (s *Service) deductFromSettlement(ctx context.Context, tx *gorm.DB, order *models.Order, fraction decimal.Decimal, now time.Time) error {
	settlementsTx := s.settlements.WithTx(tx)
	originalCommission := order.TotalCents - order.PlatformFeeCents
	deduction := fractionOf(originalCommission, fraction)
	if deduction == 0 || len(order.Items) == 0 {
		return nil
	}
	sellerID := order.Items[0].SellerID

	row, err := settlementsTx.FindPendingByOrder(ctx, order.ID)
	if err != nil {
		if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return err
		}
		clawback := &models.Settlement{
			SellerID:        sellerID,
			OrderID:         order.ID,
			OrderTotalCents: order.TotalCents,
			CommissionCents: -deduction,
			Status:          enums.SettlementStatusPending,
			ScheduledFor:    settlements.ScheduleFor(now),
		}
		if createErr := settlementsTx.Create(ctx, clawback); createErr != nil {
			return createErr
		}
		s.log.Info(s.log.WithOrderCode(ctx, order.Code),
			"settlement already paid; clawback row created for next batch")
		return nil
	}

	row.CommissionCents -= deduction
	row.RefundDeductionCents += deduction
	if row.CommissionCents <= 0 {
		row.Status = enums.SettlementStatusRefunded
	}
	return settlementsTx.Save(ctx, row)
}

// DisputeOpened marks the order disputed and records the dispute metadata.
func (s *Service) DisputeOpened(ctx context.Context, paymentRef, disputeID, reason string, amountCents int, openedAt time.Time) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersTx := s.orders.WithTx(tx)
		order, err := ordersTx.FindByPaymentRef(ctx, paymentRef)
		if err != nil {
			return err
		}
		status := enums.DisputeStatusOpen
		order.PaymentStatus = enums.PaymentStatusDisputed
		order.DisputeID = &disputeID
		order.DisputeReason = &reason
		order.DisputeStatus = &status
		order.DisputeAmountCents = &amountCents
		order.DisputedAt = &openedAt
		order.Timeline = order.Timeline.Append(
			fmt.Sprintf("Dispute opened: platform fee of %s at risk", dollars(order.PlatformFeeCents)),
			"", s.now())
		if err := ordersTx.Save(ctx, order); err != nil {
			return err
		}

		if len(order.Items) > 0 {
			s.notify.NotifyOrderEvent(ctx, order.Items[0].SellerID, &order.ID,
				enums.NotificationTypeOrderDisputed,
				fmt.Sprintf("Order %s disputed: %s", order.Code, reason))
		}
		return nil
	})
}

// DisputeUpdated refreshes the stored dispute state while it is under review.
func (s *Service) DisputeUpdated(ctx context.Context, paymentRef, disputeID string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersTx := s.orders.WithTx(tx)
		order, err := ordersTx.FindByPaymentRef(ctx, paymentRef)
		if err != nil {
			return err
		}
		status := enums.DisputeStatusUnderReview
		order.DisputeID = &disputeID
		order.DisputeStatus = &status
		order.Timeline = order.Timeline.Append("Dispute under review", "", s.now())
		return ordersTx.Save(ctx, order)
	})
}

// DisputeClosed resolves a dispute. A win restores the paid status and keeps
// the ledger untouched; a loss is bookkept as a full refund of the disputed
// amount.
func (s *Service) DisputeClosed(ctx context.Context, paymentRef string, won bool, amountCents int) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersTx := s.orders.WithTx(tx)
		order, err := ordersTx.FindByPaymentRef(ctx, paymentRef)
		if err != nil {
			return err
		}
		now := s.now()

		if won {
			status := enums.DisputeStatusWon
			order.DisputeStatus = &status
			order.DisputeClosedAt = &now
			order.PaymentStatus = enums.PaymentStatusPaid
			order.Timeline = order.Timeline.Append("Dispute won: fee and commission retained", "", now)
			return ordersTx.Save(ctx, order)
		}

		status := enums.DisputeStatusLost
		order.DisputeStatus = &status
		order.DisputeClosedAt = &now
		order.Timeline = order.Timeline.Append("Dispute lost", "", now)
		if amountCents <= 0 {
			amountCents = order.TotalCents - order.RefundedCents
		}
		if amountCents <= 0 {
			// Already fully refunded; nothing left to claw back.
			return ordersTx.Save(ctx, order)
		}
		return s.applyRefundTx(ctx, tx, order, amountCents)
	})
}

// DisputeEvidence carries the seller's response to an open dispute.
type DisputeEvidence struct {
	ProductDescription     string
	CustomerEmail          string
	ShippingTrackingNumber string
	Notes                  string
}

// SubmitDisputeEvidence forwards seller evidence to the processor for the
// order's open dispute and notes the submission on the timeline.
func (s *Service) SubmitDisputeEvidence(ctx context.Context, orderCode string, evidence DisputeEvidence) error {
	order, err := s.orders.FindByCode(ctx, orderCode)
	if err != nil {
		return err
	}
	if order.DisputeID == nil || *order.DisputeID == "" {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no dispute to respond to")
	}
	if order.DisputeStatus != nil && (*order.DisputeStatus == enums.DisputeStatusWon || *order.DisputeStatus == enums.DisputeStatusLost) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "dispute is already closed")
	}

	params := &stripe.DisputeParams{
		Evidence: &stripe.DisputeEvidenceParams{},
		Submit:   stripe.Bool(true),
	}
	if evidence.ProductDescription != "" {
		params.Evidence.ProductDescription = stripe.String(evidence.ProductDescription)
	}
	if evidence.CustomerEmail != "" {
		params.Evidence.CustomerEmailAddress = stripe.String(evidence.CustomerEmail)
	}
	if evidence.ShippingTrackingNumber != "" {
		params.Evidence.ShippingTrackingNumber = stripe.String(evidence.ShippingTrackingNumber)
	}
	if evidence.Notes != "" {
		params.Evidence.UncategorizedText = stripe.String(evidence.Notes)
	}

	if _, err := s.refunds.UpdateDispute(ctx, *order.DisputeID, params); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "submit dispute evidence")
	}

	order.Timeline = order.Timeline.Append("Dispute evidence submitted", "", s.now())
	if err := s.orders.Save(ctx, order); err != nil {
		return err
	}
	s.log.Info(s.log.WithOrderCode(ctx, order.Code), "dispute evidence submitted to processor")
	return nil
}

func fractionOf(cents int, fraction decimal.Decimal) int {
	return int(decimal.NewFromInt(int64(cents)).Mul(fraction).Round(0).IntPart())
}

func dollars(cents int) string {
	return fmt.Sprintf("$%.2f", float64(cents)/100)
}
