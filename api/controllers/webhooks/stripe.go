package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/vendomarket-backend/api/responses"
	pkgerrors "github.com/angelmondragon/vendomarket-backend/pkg/errors"
	"github.com/angelmondragon/vendomarket-backend/pkg/logger"
)

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type stripeWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type stripeClient interface {
	SigningSecret() string
}

// StripeWebhook verifies, deduplicates, and routes Stripe events. A handler
// failure releases the dedupe key and answers non-2xx so Stripe redelivers.
func StripeWebhook(svc StripeWebhookService, client stripeClient, guard stripeWebhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if err := requireDeps(svc, client, guard); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		event, err := verifiedEvent(r, client.SigningSecret())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{
				"stripe_event_id":   event.ID,
				"stripe_event_type": string(event.Type),
			})
		}

		alreadyProcessed, err := guard.CheckAndMark(ctx, event.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			if logg != nil {
				logg.Info(ctx, "duplicate stripe delivery suppressed")
			}
			responses.WriteSuccess(w, nil)
			return
		}

		if err := svc.HandleEvent(ctx, event); err != nil {
			// Release the mark so the next delivery attempt is handled fresh.
			_ = guard.Delete(ctx, event.ID)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, "stripe event processed")
		}
		responses.WriteSuccess(w, nil)
	}
}

func requireDeps(svc StripeWebhookService, client stripeClient, guard stripeWebhookGuard) error {
	if svc == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable")
	}
	if client == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "stripe client unavailable")
	}
	if guard == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable")
	}
	return nil
}

func verifiedEvent(r *http.Request, signingSecret string) (*stripe.Event, error) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body")
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if sigHeader == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing")
	}

	event, err := webhook.ConstructEvent(payload, sigHeader, signingSecret)
	if err != nil {
		// A signature that does not verify is the caller's problem, not an
		// upstream outage; answer 400 so Stripe surfaces the misconfiguration.
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "verify signature")
	}
	return &event, nil
}
