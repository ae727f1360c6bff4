package adjustments

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/dispute"
	"github.com/stripe/stripe-go/v84/refund"

	pkgstripe "github.com/angelmondragon/vendomarket-backend/pkg/stripe"
)

// StripeRefundClient exposes the subset of Stripe operations required to
// initiate refunds and submit dispute evidence.
type StripeRefundClient interface {
	CreateRefund(ctx context.Context, params *stripe.RefundParams) (*stripe.Refund, error)
	UpdateDispute(ctx context.Context, disputeID string, params *stripe.DisputeParams) (*stripe.Dispute, error)
}

type stripeClientWrapper struct{}

// NewStripeClient wraps the provided Stripe client so the adjuster can be
// tested.
func NewStripeClient(api *pkgstripe.Client) StripeRefundClient {
	if api == nil {
		return nil
	}
	return &stripeClientWrapper{}
}

func (w *stripeClientWrapper) CreateRefund(ctx context.Context, params *stripe.RefundParams) (*stripe.Refund, error) {
	if params != nil {
		params.Context = ctx
	}
	return refund.New(params)
}

func (w *stripeClientWrapper) UpdateDispute(ctx context.Context, disputeID string, params *stripe.DisputeParams) (*stripe.Dispute, error) {
	if params != nil {
		params.Context = ctx
	}
	return dispute.Update(disputeID, params)
}
