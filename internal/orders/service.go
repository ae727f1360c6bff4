package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendomarket-backend/internal/buyers"
	"github.com/angelmondragon/vendomarket-backend/internal/carts"
	"github.com/angelmondragon/vendomarket-backend/internal/notifications"
	"github.com/angelmondragon/vendomarket-backend/internal/products"
	"github.com/angelmondragon/vendomarket-backend/internal/promos"
	"github.com/angelmondragon/vendomarket-backend/internal/settlements"
	"github.com/angelmondragon/vendomarket-backend/pkg/db"
	"github.com/angelmondragon/vendomarket-backend/pkg/db/models"
	"github.com/angelmondragon/vendomarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendomarket-backend/pkg/errors"
	"github.com/angelmondragon/vendomarket-backend/pkg/logger"
	"github.com/angelmondragon/vendomarket-backend/pkg/types"
)

const (
	materializeAttempts = 3
	retryBase           = 50 * time.Millisecond

	// One loyalty point per ten currency units spent.
	loyaltyCentsPerPoint = 1000
)

// Service materializes confirmed payments into orders. Every trigger (webhook,
// synchronous confirm call, local-dev shortcut) funnels through Materialize,
// which is idempotent on the external payment reference.
type Service struct {
	tx          db.TxRunner
	orders      Repository
	products    products.Repository
	settlements settlements.Repository
	promos      promos.Repository
	carts       carts.Repository
	buyers      buyers.Repository
	notify      notifications.Service
	log         *logger.Logger
	now         func() time.Time
}

// ServiceParams collects the materializer dependencies.
type ServiceParams struct {
	Tx            db.TxRunner
	Orders        Repository
	Products      products.Repository
	Settlements   settlements.Repository
	Promos        promos.Repository
	Carts         carts.Repository
	Buyers        buyers.Repository
	Notifications notifications.Service
	Logger        *logger.Logger
}

// NewService validates the dependency set and builds the materializer.
func NewService(params ServiceParams) (*Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("order service requires a transaction runner")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order service requires an order repository")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("order service requires a product repository")
	}
	if params.Settlements == nil {
		return nil, fmt.Errorf("order service requires a settlement repository")
	}
	if params.Promos == nil {
		return nil, fmt.Errorf("order service requires a promo repository")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("order service requires a cart repository")
	}
	if params.Buyers == nil {
		return nil, fmt.Errorf("order service requires a buyer repository")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("order service requires a notification service")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("order service requires a logger")
	}
	return &Service{
		tx:          params.Tx,
		orders:      params.Orders,
		products:    params.Products,
		settlements: params.Settlements,
		promos:      params.Promos,
		carts:       params.Carts,
		buyers:      params.Buyers,
		notify:      params.Notifications,
		log:         params.Logger,
		now:         time.Now,
	}, nil
}

// Materialize turns one confirmed payment into exactly one order. Duplicate
// invocations for the same payment reference return the existing order. A
// stock shortfall or write conflict retries the whole transaction with
// backoff; exhausting the attempts surfaces the error so the webhook stays
// unacknowledged and the processor redelivers.
func (s *Service) Materialize(ctx context.Context, conf PaymentConfirmation) (*models.Order, error) {
	if !conf.Validate() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment confirmation is incomplete")
	}
	sellerID, err := singleSeller(conf)
	if err != nil {
		return nil, err
	}
	ctx = s.log.WithPaymentRef(ctx, conf.PaymentRef)

	var (
		order   *models.Order
		created bool
	)
	backoff := retry.WithMaxRetries(materializeAttempts-1, retry.NewExponential(retryBase))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		order, created = nil, false
		attemptErr := s.attempt(ctx, conf, sellerID, &order, &created)
		if attemptErr == nil {
			return nil
		}
		if pkgerrors.IsCode(attemptErr, pkgerrors.CodeValidation) ||
			pkgerrors.IsCode(attemptErr, pkgerrors.CodeNotFound) {
			return attemptErr
		}
		s.log.Warn(s.log.WithField(ctx, "cause", attemptErr.Error()),
			"materialization attempt failed; retrying")
		return retry.RetryableError(attemptErr)
	})
	if err != nil {
		s.log.Error(ctx, "materialization exhausted retries", err)
		return nil, err
	}

	if created {
		s.log.Info(s.log.WithOrderCode(ctx, order.Code), "order materialized")
		s.notify.NotifyNewOrder(ctx, sellerID, order.ID, order.Code)
	}
	return order, nil
}

// attempt runs one full materialization transaction. The pre-check and the
// insert share the transaction so concurrent retries cannot both create; the
// unique index on the payment reference is the final backstop, surfaced as a
// retryable conflict whose retry resolves to the winner's order.
func (s *Service) attempt(ctx context.Context, conf PaymentConfirmation, sellerID uuid.UUID, out **models.Order, created *bool) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersTx := s.orders.WithTx(tx)

		refs := []string{conf.PaymentRef}
		if conf.LinkedIntentID != "" {
			refs = append(refs, conf.LinkedIntentID)
		}
		for _, ref := range refs {
			existing, err := ordersTx.FindByPaymentRef(ctx, ref)
			if err == nil {
				*out = existing
				return nil
			}
			if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				return err
			}
		}

		productsTx := s.products.WithTx(tx)
		for _, item := range conf.Items {
			if err := productsTx.DecrementStock(ctx, item.ProductID, item.Qty); err != nil {
				return err
			}
		}

		now := s.now()
		order := s.buildOrder(conf, now)
		if err := ordersTx.Create(ctx, order); err != nil {
			if db.IsUniqueViolation(err) {
				// Lost the race (or a code collision); the retried attempt
				// either finds the winner's order or regenerates codes.
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order insert conflicted")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		settlement := &models.Settlement{
			SellerID:         sellerID,
			OrderID:          order.ID,
			OrderTotalCents:  order.TotalCents,
			CommissionCents:  order.TotalCents - order.PlatformFeeCents,
			PlatformFeeCents: order.PlatformFeeCents,
			Status:           enums.SettlementStatusPending,
			ScheduledFor:     settlements.ScheduleFor(now),
		}
		if err := s.settlements.WithTx(tx).Create(ctx, settlement); err != nil {
			return err
		}

		points := order.TotalCents / loyaltyCentsPerPoint
		if err := s.buyers.WithTx(tx).AddLoyaltyPoints(ctx, conf.BuyerID, points); err != nil {
			return err
		}

		if conf.PromoCodeID != nil {
			promosTx := s.promos.WithTx(tx)
			usage := &models.PromoCodeUsage{
				PromoCodeID: *conf.PromoCodeID,
				BuyerID:     conf.BuyerID,
				OrderID:     order.ID,
			}
			if err := promosTx.RecordUsage(ctx, usage); err != nil {
				return err
			}
			if err := promosTx.IncrementUsageCount(ctx, *conf.PromoCodeID); err != nil {
				return err
			}
		}

		// A cart that fails to clear is an annoyance, not a reason to void a
		// paid order.
		if err := s.carts.WithTx(tx).Clear(ctx, conf.BuyerID); err != nil {
			s.log.Warn(s.log.WithBuyerID(ctx, conf.BuyerID.String()),
				"cart not cleared after materialization")
		}

		*out = order
		*created = true
		return nil
	})
}

func (s *Service) buildOrder(conf PaymentConfirmation, now time.Time) *models.Order {
	currency := conf.Currency
	if currency == "" {
		currency = enums.CurrencyUSD
	}

	order := &models.Order{
		ID:             uuid.New(),
		Code:           newOrderCode(now),
		TrackingNumber: newTrackingNumber(now),
		BuyerID:        conf.BuyerID,

		ShippingAddress: conf.ShippingAddress,

		Currency:                currency,
		SubtotalCents:           conf.Breakdown.SubtotalCents,
		PromoDiscountCents:      conf.Breakdown.PromoDiscountCents,
		PlatformDiscountCents:   conf.Breakdown.PlatformDiscountCents,
		DiscountedSubtotalCents: conf.Breakdown.DiscountedSubtotalCents,
		ShippingCents:           conf.Breakdown.ShippingCents,
		TaxCents:                conf.Breakdown.TaxCents,
		PlatformFeeCents:        conf.Breakdown.PlatformFeeCents,
		TotalCents:              conf.Breakdown.TotalCents,

		PaymentStatus: enums.PaymentStatusPaid,
		Status:        enums.OrderStatusNew,

		Timeline: types.Timeline{}.Append("Order Confirmed", "", now),
	}
	switch conf.RefKind {
	case RefCheckoutSession:
		ref := conf.PaymentRef
		order.CheckoutSessionID = &ref
		if conf.LinkedIntentID != "" {
			linked := conf.LinkedIntentID
			order.PaymentIntentID = &linked
		}
	default:
		ref := conf.PaymentRef
		order.PaymentIntentID = &ref
	}

	order.Items = make([]models.OrderLineItem, 0, len(conf.Items))
	for _, item := range conf.Items {
		order.Items = append(order.Items, models.OrderLineItem{
			ID:             uuid.New(),
			OrderID:        order.ID,
			ProductID:      item.ProductID,
			SellerID:       item.SellerID,
			Name:           item.Name,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
			DiscountCents:  item.DiscountCents,
			TotalCents:     item.TotalCents,
			Status:         enums.LineItemStatusConfirmed,
			Timeline:       types.Timeline{}.Append("Order Confirmed", "", now),
		})
	}
	return order
}

// singleSeller asserts the one-seller-per-checkout invariant and resolves the
// settlement recipient.
func singleSeller(conf PaymentConfirmation) (uuid.UUID, error) {
	sellerID := conf.SellerID
	for _, item := range conf.Items {
		if sellerID == uuid.Nil {
			sellerID = item.SellerID
		}
		if item.SellerID != uuid.Nil && item.SellerID != sellerID {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "all line items must belong to one seller")
		}
	}
	if sellerID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	return sellerID, nil
}
