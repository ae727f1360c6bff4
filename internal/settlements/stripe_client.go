package settlements

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/transfer"

	pkgstripe "github.com/angelmondragon/vendomarket-backend/pkg/stripe"
)

// StripeTransferClient exposes the subset of Stripe operations required by the
// settlement batch processor.
type StripeTransferClient interface {
	CreateTransfer(ctx context.Context, params *stripe.TransferParams) (*stripe.Transfer, error)
}

type stripeClientWrapper struct{}

// NewStripeClient wraps the provided Stripe client so the batch processor can
// be tested.
func NewStripeClient(api *pkgstripe.Client) StripeTransferClient {
	if api == nil {
		return nil
	}
	return &stripeClientWrapper{}
}

func (w *stripeClientWrapper) CreateTransfer(ctx context.Context, params *stripe.TransferParams) (*stripe.Transfer, error) {
	if params != nil {
		params.Context = ctx
	}
	return transfer.New(params)
}
