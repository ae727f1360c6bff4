package stripewebhook

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/vendomarket-backend/internal/checkout"
	"github.com/angelmondragon/vendomarket-backend/internal/orders"
	"github.com/angelmondragon/vendomarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/vendomarket-backend/pkg/errors"
	"github.com/angelmondragon/vendomarket-backend/pkg/logger"
)

// Materializer converts confirmed payments into orders.
type Materializer interface {
	Materialize(ctx context.Context, conf orders.PaymentConfirmation) (*models.Order, error)
}

// Adjuster applies refund and dispute bookkeeping.
type Adjuster interface {
	ApplyRefund(ctx context.Context, paymentRef string, refundCents int) error
	DisputeOpened(ctx context.Context, paymentRef, disputeID, reason string, amountCents int, openedAt time.Time) error
	DisputeUpdated(ctx context.Context, paymentRef, disputeID string) error
	DisputeClosed(ctx context.Context, paymentRef string, won bool, amountCents int) error
}

// SellerAccounts keeps payout readiness in sync with the processor.
type SellerAccounts interface {
	FindByPayoutAccountID(ctx context.Context, accountID string) (*models.Seller, error)
	UpdatePayoutsEnabled(ctx context.Context, sellerID uuid.UUID, enabled bool) error
}

// ServiceParams collects the webhook consumer dependencies.
type ServiceParams struct {
	Materializer Materializer
	Adjuster     Adjuster
	Sellers      SellerAccounts
	Stripe       checkout.StripeCheckoutClient
	Logger       *logger.Logger
}

// Service routes verified Stripe events into the order pipeline. Order
// materialization errors propagate so the delivery is retried; adjustment
// errors are logged and swallowed so the processor does not retry forever
// over local bookkeeping.
type Service struct {
	materializer Materializer
	adjuster     Adjuster
	sellers      SellerAccounts
	stripe       checkout.StripeCheckoutClient
	log          *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Materializer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "materializer required")
	}
	if params.Adjuster == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "adjuster required")
	}
	if params.Sellers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "seller repository required")
	}
	if params.Stripe == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		materializer: params.Materializer,
		adjuster:     params.Adjuster,
		sellers:      params.Sellers,
		stripe:       params.Stripe,
		log:          params.Logger,
	}, nil
}

// HandleEvent dispatches one verified event. Unknown event types are ignored.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment intent event")
		}
		return s.materializeIntent(ctx, intent.ID, intent.Metadata)

	case stripe.EventTypeChargeSucceeded:
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode charge event")
		}
		if charge.PaymentIntent == nil || charge.PaymentIntent.ID == "" {
			return nil
		}
		// Charges do not carry the checkout snapshot; fetch it from the
		// intent the way the confirm endpoint does.
		intent, err := s.stripe.GetPaymentIntent(ctx, charge.PaymentIntent.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch payment intent for charge")
		}
		return s.materializeIntent(ctx, intent.ID, intent.Metadata)

	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session event")
		}
		if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
			return nil
		}
		conf, err := checkout.DecodeConfirmation(orders.RefCheckoutSession, session.ID, session.Metadata)
		if err != nil {
			s.log.Error(ctx, "checkout session without a usable snapshot", err)
			return nil
		}
		if session.PaymentIntent != nil {
			conf.LinkedIntentID = session.PaymentIntent.ID
		}
		_, err = s.materializer.Materialize(ctx, conf)
		return err

	case stripe.EventTypeChargeRefunded:
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode refund event")
		}
		if charge.PaymentIntent == nil || charge.PaymentIntent.ID == "" {
			return nil
		}
		amount := latestRefundCents(&charge)
		if amount <= 0 {
			return nil
		}
		if err := s.adjuster.ApplyRefund(ctx, charge.PaymentIntent.ID, amount); err != nil {
			s.log.Error(s.log.WithPaymentRef(ctx, charge.PaymentIntent.ID),
				"refund bookkeeping failed; reconcile manually", err)
		}
		return nil

	case stripe.EventTypeChargeDisputeCreated:
		dispute, err := decodeDispute(event)
		if err != nil {
			return err
		}
		if dispute.PaymentIntent == nil {
			return nil
		}
		err = s.adjuster.DisputeOpened(ctx, dispute.PaymentIntent.ID, dispute.ID,
			string(dispute.Reason), int(dispute.Amount), time.Unix(dispute.Created, 0))
		if err != nil {
			s.log.Error(ctx, "dispute bookkeeping failed; reconcile manually", err)
		}
		return nil

	case stripe.EventTypeChargeDisputeUpdated:
		dispute, err := decodeDispute(event)
		if err != nil {
			return err
		}
		if dispute.PaymentIntent == nil {
			return nil
		}
		if err := s.adjuster.DisputeUpdated(ctx, dispute.PaymentIntent.ID, dispute.ID); err != nil {
			s.log.Error(ctx, "dispute bookkeeping failed; reconcile manually", err)
		}
		return nil

	case stripe.EventTypeChargeDisputeClosed:
		dispute, err := decodeDispute(event)
		if err != nil {
			return err
		}
		if dispute.PaymentIntent == nil {
			return nil
		}
		won := dispute.Status == stripe.DisputeStatusWon
		if err := s.adjuster.DisputeClosed(ctx, dispute.PaymentIntent.ID, won, int(dispute.Amount)); err != nil {
			s.log.Error(ctx, "dispute bookkeeping failed; reconcile manually", err)
		}
		return nil

	case stripe.EventTypeAccountUpdated:
		var account stripe.Account
		if err := json.Unmarshal(event.Data.Raw, &account); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode account event")
		}
		return s.syncPayoutAccount(ctx, &account)

	default:
		return nil
	}
}

func (s *Service) materializeIntent(ctx context.Context, intentID string, meta map[string]string) error {
	if !checkout.HasSnapshot(meta) {
		// Not a checkout-created intent; nothing to materialize.
		return nil
	}
	conf, err := checkout.DecodeConfirmation(orders.RefPaymentIntent, intentID, meta)
	if err != nil {
		s.log.Error(s.log.WithPaymentRef(ctx, intentID), "payment intent snapshot invalid", err)
		return nil
	}
	_, err = s.materializer.Materialize(ctx, conf)
	return err
}

func (s *Service) syncPayoutAccount(ctx context.Context, account *stripe.Account) error {
	seller, err := s.sellers.FindByPayoutAccountID(ctx, account.ID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil
		}
		return err
	}
	enabled := account.PayoutsEnabled && account.ChargesEnabled
	if seller.PayoutsEnabled == enabled {
		return nil
	}
	if err := s.sellers.UpdatePayoutsEnabled(ctx, seller.ID, enabled); err != nil {
		return err
	}
	s.log.Info(s.log.WithSellerID(ctx, seller.ID.String()), "seller payout readiness updated")
	return nil
}

func decodeDispute(event *stripe.Event) (*stripe.Dispute, error) {
	var dispute stripe.Dispute
	if err := json.Unmarshal(event.Data.Raw, &dispute); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode dispute event")
	}
	return &dispute, nil
}

// latestRefundCents extracts the newest refund's amount; the cumulative total
// is the fallback for payloads without the refund list expanded.
func latestRefundCents(charge *stripe.Charge) int {
	if charge.Refunds != nil && len(charge.Refunds.Data) > 0 {
		return int(charge.Refunds.Data[0].Amount)
	}
	return int(charge.AmountRefunded)
}
