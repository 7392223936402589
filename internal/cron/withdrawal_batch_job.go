package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/kbrayane/immoflow-backend/pkg/db/models"
	"github.com/kbrayane/immoflow-backend/pkg/logger"
	"github.com/kbrayane/immoflow-backend/pkg/metrics"
)

const defaultWithdrawalBatchSize = 50

type withdrawalProcessor interface {
	ListPending(ctx context.Context, limit int) ([]models.WithdrawalRequest, error)
	Process(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error)
}

// WithdrawalBatchJobParams configure the payout batch job.
type WithdrawalBatchJobParams struct {
	Logger      *logger.Logger
	Withdrawals withdrawalProcessor
	Metrics     *metrics.BillingMetrics
	BatchSize   int
}

// NewWithdrawalBatchJob builds the cron job that dispatches pending
// withdrawal payouts in batches, oldest first.
func NewWithdrawalBatchJob(params WithdrawalBatchJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Withdrawals == nil {
		return nil, fmt.Errorf("withdrawal service required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultWithdrawalBatchSize
	}
	return &withdrawalBatchJob{
		logg:        params.Logger,
		withdrawals: params.Withdrawals,
		metrics:     params.Metrics,
		batchSize:   batchSize,
	}, nil
}

type withdrawalBatchJob struct {
	logg        *logger.Logger
	withdrawals withdrawalProcessor
	metrics     *metrics.BillingMetrics
	batchSize   int
}

func (j *withdrawalBatchJob) Name() string { return "withdrawal_batch" }

// Run processes one batch. A payout failure marks that request failed and
// moves on; the combined error surfaces every failed dispatch at once.
func (j *withdrawalBatchJob) Run(ctx context.Context) error {
	pending, err := j.withdrawals.ListPending(ctx, j.batchSize)
	if err != nil {
		return fmt.Errorf("list pending withdrawals: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	var errs error
	for _, req := range pending {
		reqCtx := j.logg.WithField(ctx, "withdrawal_id", req.ID.String())
		if _, err := j.withdrawals.Process(reqCtx, req.ID); err != nil {
			j.logg.Error(reqCtx, "withdrawal payout failed", err)
			j.recordPayout("failed")
			errs = multierr.Append(errs, fmt.Errorf("withdrawal %s: %w", req.ID, err))
			continue
		}
		j.recordPayout("completed")
	}
	return errs
}

func (j *withdrawalBatchJob) recordPayout(result string) {
	if j.metrics != nil {
		j.metrics.IncPayout(result)
	}
}
