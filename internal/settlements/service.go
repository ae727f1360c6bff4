package settlements

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"go.uber.org/multierr"

	"github.com/angelmondragon/vendomarket-backend/pkg/db/models"
	"github.com/angelmondragon/vendomarket-backend/pkg/logger"
)

// SellerLoader resolves payout destinations for the batch processor.
type SellerLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Seller, error)
}

// Service is the settlement batch processor. It aggregates due ledger rows per
// seller, pays each seller with one transfer, and marks the rows settled only
// after the transfer succeeds.
type Service struct {
	repo      Repository
	sellers   SellerLoader
	transfers StripeTransferClient
	log       *logger.Logger
	now       func() time.Time
}

// ServiceParams collects the batch processor dependencies.
type ServiceParams struct {
	Repo      Repository
	Sellers   SellerLoader
	Transfers StripeTransferClient
	Logger    *logger.Logger
}

// NewService validates the dependency set and builds the processor.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("settlement service requires a repository")
	}
	if params.Sellers == nil {
		return nil, fmt.Errorf("settlement service requires a seller loader")
	}
	if params.Transfers == nil {
		return nil, fmt.Errorf("settlement service requires a transfer client")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("settlement service requires a logger")
	}
	return &Service{
		repo:      params.Repo,
		sellers:   params.Sellers,
		transfers: params.Transfers,
		log:       params.Logger,
		now:       time.Now,
	}, nil
}

// BatchResult summarizes one processor run.
type BatchResult struct {
	RowsDue          int `json:"rows_due"`
	SellersPaid      int `json:"sellers_paid"`
	SellersCarried   int `json:"sellers_carried"`
	SellersFailed    int `json:"sellers_failed"`
	TransferredCents int `json:"transferred_cents"`
}

type sellerBatch struct {
	sellerID uuid.UUID
	ids      []uuid.UUID
	net      int
}

// ProcessDue settles every pending row whose scheduled date has arrived. A
// seller whose net is non-positive carries over untouched; a seller whose
// transfer fails stays pending for the next run and never blocks the others.
// The returned error aggregates per-seller failures.
func (s *Service) ProcessDue(ctx context.Context) (*BatchResult, error) {
	now := s.now()
	rows, err := s.repo.FindPendingDue(ctx, now)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{RowsDue: len(rows)}
	var failures error
	for _, batch := range groupBySeller(rows) {
		sctx := s.log.WithSellerID(ctx, batch.sellerID.String())
		if batch.net <= 0 {
			result.SellersCarried++
			s.log.Info(s.log.WithField(sctx, "net_cents", batch.net),
				"settlement carried over: non-positive balance nets against future sales")
			continue
		}
		if err := s.paySeller(sctx, batch, now); err != nil {
			result.SellersFailed++
			failures = multierr.Append(failures, fmt.Errorf("seller %s: %w", batch.sellerID, err))
			continue
		}
		result.SellersPaid++
		result.TransferredCents += batch.net
	}
	return result, failures
}

func (s *Service) paySeller(ctx context.Context, batch sellerBatch, now time.Time) error {
	seller, err := s.sellers.FindByID(ctx, batch.sellerID)
	if err != nil {
		s.log.Error(ctx, "settlement skipped: seller lookup failed", err)
		return err
	}
	if seller.PayoutAccountID == nil || *seller.PayoutAccountID == "" || !seller.PayoutsEnabled {
		err := fmt.Errorf("seller has no active payout destination")
		s.log.Error(ctx, "settlement skipped: no connected payout account", err)
		return err
	}

	params := &stripe.TransferParams{
		Amount:      stripe.Int64(int64(batch.net)),
		Currency:    stripe.String(string(stripe.CurrencyUSD)),
		Destination: stripe.String(*seller.PayoutAccountID),
	}
	params.AddMetadata("seller_id", batch.sellerID.String())
	params.AddMetadata("settlement_count", fmt.Sprintf("%d", len(batch.ids)))

	tr, err := s.transfers.CreateTransfer(ctx, params)
	if err != nil {
		// A declined transfer (e.g. insufficient platform balance) is an
		// operational condition, not a bug: the rows stay pending and the
		// next run retries.
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			s.log.Warn(s.log.WithField(ctx, "stripe_code", string(stripeErr.Code)),
				"transfer declined by processor; settlements stay pending")
		} else {
			s.log.Error(ctx, "transfer call failed", err)
		}
		return err
	}

	if err := s.repo.MarkSettled(ctx, batch.ids, tr.ID, now); err != nil {
		// The money moved but the ledger update failed. Log loudly for
		// manual reconciliation; a rerun would double-pay without it.
		s.log.Error(s.log.WithField(ctx, "transfer_id", tr.ID),
			"transfer succeeded but settlement rows not marked; reconcile manually", err)
		return err
	}

	s.log.Info(s.log.WithFields(ctx, map[string]any{
		"transfer_id": tr.ID,
		"net_cents":   batch.net,
		"rows":        len(batch.ids),
	}), "seller settled")
	return nil
}

// groupBySeller nets each seller's due rows, preserving first-seen order.
func groupBySeller(rows []models.Settlement) []sellerBatch {
	index := make(map[uuid.UUID]int)
	batches := make([]sellerBatch, 0)
	for _, row := range rows {
		i, ok := index[row.SellerID]
		if !ok {
			i = len(batches)
			index[row.SellerID] = i
			batches = append(batches, sellerBatch{sellerID: row.SellerID})
		}
		batches[i].ids = append(batches[i].ids, row.ID)
		batches[i].net += row.CommissionCents
	}
	return batches
}
