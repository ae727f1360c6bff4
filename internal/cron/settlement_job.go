package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/vendomarket-backend/internal/settlements"
	"github.com/angelmondragon/vendomarket-backend/pkg/logger"
)

// settlementProcessor runs one settlement batch over the due ledger rows.
type settlementProcessor interface {
	ProcessDue(ctx context.Context) (*settlements.BatchResult, error)
}

// SettlementJobParams configure the weekly payout job.
type SettlementJobParams struct {
	Logger    *logger.Logger
	Processor settlementProcessor
}

// NewSettlementJob builds the cron job that pays out due settlements.
func NewSettlementJob(params SettlementJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Processor == nil {
		return nil, fmt.Errorf("settlement processor required")
	}
	return &settlementJob{
		logg:      params.Logger,
		processor: params.Processor,
	}, nil
}

type settlementJob struct {
	logg      *logger.Logger
	processor settlementProcessor
}

func (j *settlementJob) Name() string { return "settlement-batch" }

// Run processes every due ledger row. Per-seller transfer failures come back
// aggregated in err while the result still reports what did go through, so
// both are logged before the error propagates to the job runner.
func (j *settlementJob) Run(ctx context.Context) error {
	result, err := j.processor.ProcessDue(ctx)
	if result != nil {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"rows_due":          result.RowsDue,
			"sellers_paid":      result.SellersPaid,
			"sellers_carried":   result.SellersCarried,
			"sellers_failed":    result.SellersFailed,
			"transferred_cents": result.TransferredCents,
		})
		j.logg.Info(logCtx, "settlement batch finished")
	}
	if err != nil {
		return fmt.Errorf("settlement batch: %w", err)
	}
	return nil
}
