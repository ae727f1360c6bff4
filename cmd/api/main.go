package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/vendomarket-backend/api/routes"
	"github.com/angelmondragon/vendomarket-backend/internal/adjustments"
	"github.com/angelmondragon/vendomarket-backend/internal/buyers"
	"github.com/angelmondragon/vendomarket-backend/internal/carts"
	"github.com/angelmondragon/vendomarket-backend/internal/checkout"
	"github.com/angelmondragon/vendomarket-backend/internal/notifications"
	"github.com/angelmondragon/vendomarket-backend/internal/orders"
	"github.com/angelmondragon/vendomarket-backend/internal/pricing"
	"github.com/angelmondragon/vendomarket-backend/internal/products"
	"github.com/angelmondragon/vendomarket-backend/internal/promos"
	"github.com/angelmondragon/vendomarket-backend/internal/sellers"
	"github.com/angelmondragon/vendomarket-backend/internal/settlements"
	stripewebhook "github.com/angelmondragon/vendomarket-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/vendomarket-backend/pkg/config"
	"github.com/angelmondragon/vendomarket-backend/pkg/db"
	"github.com/angelmondragon/vendomarket-backend/pkg/logger"
	"github.com/angelmondragon/vendomarket-backend/pkg/migrate"
	"github.com/angelmondragon/vendomarket-backend/pkg/redis"
	"github.com/angelmondragon/vendomarket-backend/pkg/stripe"
)

const webhookDedupeTTL = 24 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	deps, err := buildDeps(cfg, logg, dbClient, redisClient, stripeClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(*deps),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildDeps(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, stripeClient *stripe.Client) (*routes.Deps, error) {
	gdb := dbClient.DB()

	productRepo := products.NewRepository(gdb)
	sellerRepo := sellers.NewRepository(gdb)
	promoRepo := promos.NewRepository(gdb)
	cartRepo := carts.NewRepository(gdb)
	buyerRepo := buyers.NewRepository(gdb)
	orderRepo := orders.NewRepository(gdb)
	settlementRepo := settlements.NewRepository(gdb)
	notificationRepo := notifications.NewRepository(gdb)

	notificationSvc, err := notifications.NewService(notificationRepo, logg)
	if err != nil {
		return nil, err
	}

	pricingSvc, err := pricing.NewService(pricing.ServiceParams{
		Products: productRepo,
		Sellers:  sellerRepo,
		Promos:   promoRepo,
		Config:   pricing.NewConfigRepository(gdb),
		Logger:   logg,
	})
	if err != nil {
		return nil, err
	}

	orderSvc, err := orders.NewService(orders.ServiceParams{
		Tx:            dbClient,
		Orders:        orderRepo,
		Products:      productRepo,
		Settlements:   settlementRepo,
		Promos:        promoRepo,
		Carts:         cartRepo,
		Buyers:        buyerRepo,
		Notifications: notificationSvc,
		Logger:        logg,
	})
	if err != nil {
		return nil, err
	}

	checkoutSvc, err := checkout.NewService(checkout.ServiceParams{
		Pricing:      pricingSvc,
		Stripe:       checkout.NewStripeClient(stripeClient),
		Materializer: orderSvc,
		Config:       cfg.Stripe,
		Logger:       logg,
	})
	if err != nil {
		return nil, err
	}

	settlementSvc, err := settlements.NewService(settlements.ServiceParams{
		Repo:      settlementRepo,
		Sellers:   sellerRepo,
		Transfers: settlements.NewStripeClient(stripeClient),
		Logger:    logg,
	})
	if err != nil {
		return nil, err
	}

	adjustmentSvc, err := adjustments.NewService(adjustments.ServiceParams{
		Tx:            dbClient,
		Orders:        orderRepo,
		Products:      productRepo,
		Settlements:   settlementRepo,
		Refunds:       adjustments.NewStripeClient(stripeClient),
		Notifications: notificationSvc,
		Logger:        logg,
	})
	if err != nil {
		return nil, err
	}

	webhookSvc, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Materializer: orderSvc,
		Adjuster:     adjustmentSvc,
		Sellers:      sellerRepo,
		Stripe:       checkout.NewStripeClient(stripeClient),
		Logger:       logg,
	})
	if err != nil {
		return nil, err
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, webhookDedupeTTL, "stripe-webhook")
	if err != nil {
		return nil, err
	}

	return &routes.Deps{
		Config:          cfg,
		Logger:          logg,
		DB:              dbClient,
		Redis:           redisClient,
		Checkout:        checkoutSvc,
		Orders:          orderRepo,
		Adjustments:     adjustmentSvc,
		Settlements:     settlementSvc,
		SettlementsRepo: settlementRepo,
		StripeClient:    stripeClient,
		WebhookSvc:      webhookSvc,
		WebhookGuard:    webhookGuard,
	}, nil
}
