package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/vendomarket-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/vendomarket-backend/api/controllers/webhooks"
	"github.com/angelmondragon/vendomarket-backend/api/middleware"
	"github.com/angelmondragon/vendomarket-backend/internal/adjustments"
	checkoutsvc "github.com/angelmondragon/vendomarket-backend/internal/checkout"
	"github.com/angelmondragon/vendomarket-backend/internal/orders"
	"github.com/angelmondragon/vendomarket-backend/internal/settlements"
	stripewebhook "github.com/angelmondragon/vendomarket-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/vendomarket-backend/pkg/config"
	"github.com/angelmondragon/vendomarket-backend/pkg/db"
	"github.com/angelmondragon/vendomarket-backend/pkg/logger"
	"github.com/angelmondragon/vendomarket-backend/pkg/redis"
	"github.com/angelmondragon/vendomarket-backend/pkg/stripe"
)

// Deps collects everything the HTTP surface needs. Webhooks sit outside the
// auth stack; everything else under /api/v1 requires a bearer token.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger

	DB    db.Pinger
	Redis *redis.Client

	Checkout        *checkoutsvc.Service
	Orders          orders.Repository
	Adjustments     *adjustments.Service
	Settlements     *settlements.Service
	SettlementsRepo settlements.Repository

	StripeClient *stripe.Client
	WebhookSvc   *stripewebhook.Service
	WebhookGuard *stripewebhook.IdempotencyGuard
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.Stripe.FrontendBaseURL),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, healthDeps(deps)))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(deps.WebhookSvc, deps.StripeClient, deps.WebhookGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/checkout", func(r chi.Router) {
			r.Use(middleware.RequireRole("buyer", logg))
			r.Post("/payment-intent", controllers.CheckoutPaymentIntent(deps.Checkout, logg))
			r.Post("/session", controllers.CheckoutSession(deps.Checkout, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/confirm", controllers.OrdersConfirm(deps.Checkout, logg))
			r.Get("/", controllers.OrdersList(deps.Orders, logg))
			r.Get("/{code}", controllers.OrdersGet(deps.Orders, logg))
			r.Route("/{code}/dispute", func(r chi.Router) {
				r.Use(middleware.RequireRole("seller", logg))
				r.Get("/", controllers.DisputeGet(deps.Orders, logg))
				r.Post("/evidence", controllers.DisputeEvidenceSubmit(deps.Adjustments, logg))
			})
		})

		r.With(middleware.RequireRole("seller", logg)).
			Post("/refunds", controllers.RefundsCreate(deps.Adjustments, logg))

		r.Route("/settlements", func(r chi.Router) {
			r.With(middleware.RequireRole("admin", logg)).
				Post("/process", controllers.SettlementsProcess(deps.Settlements, logg))
			r.With(middleware.RequireRole("seller", logg)).
				Get("/pending", controllers.SettlementsPending(deps.SettlementsRepo, logg))
		})
	})

	return r
}

func healthDeps(deps Deps) map[string]controllers.Pinger {
	checks := map[string]controllers.Pinger{}
	if deps.DB != nil {
		checks["postgres"] = deps.DB
	}
	if deps.Redis != nil {
		checks["redis"] = deps.Redis
	}
	return checks
}
