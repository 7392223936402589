package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/kbrayane/immoflow-backend/pkg/db/models"
	"github.com/kbrayane/immoflow-backend/pkg/logger"
	"github.com/kbrayane/immoflow-backend/pkg/metrics"
)

const (
	defaultStalePendingCutoff = 24 * time.Hour
	stalePendingScanLimit     = 250
)

type stalePendingReader interface {
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Transaction, error)
}

// StalePendingJobParams configure the stale transaction surfacing job.
type StalePendingJobParams struct {
	Logger  *logger.Logger
	Ledger  stalePendingReader
	Metrics *metrics.BillingMetrics
	Cutoff  time.Duration
}

// NewStalePendingJob builds the cron job that surfaces transactions stuck
// in pending. Pending is never resolved by guesswork; the job only makes
// the backlog visible for manual reconciliation.
func NewStalePendingJob(params StalePendingJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger required")
	}
	cutoff := params.Cutoff
	if cutoff <= 0 {
		cutoff = defaultStalePendingCutoff
	}
	return &stalePendingJob{
		logg:    params.Logger,
		ledger:  params.Ledger,
		metrics: params.Metrics,
		cutoff:  cutoff,
	}, nil
}

type stalePendingJob struct {
	logg    *logger.Logger
	ledger  stalePendingReader
	metrics *metrics.BillingMetrics
	cutoff  time.Duration
}

func (j *stalePendingJob) Name() string { return "stale_pending_transactions" }

func (j *stalePendingJob) Run(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-j.cutoff)
	stale, err := j.ledger.ListStalePending(ctx, cutoff, stalePendingScanLimit)
	if err != nil {
		return fmt.Errorf("list stale pending transactions: %w", err)
	}

	if j.metrics != nil {
		j.metrics.SetStalePending(float64(len(stale)))
	}
	for _, txn := range stale {
		txnCtx := j.logg.WithFields(ctx, map[string]any{
			"transaction_id": txn.ID.String(),
			"agency_id":      txn.AgencyID.String(),
			"provider":       txn.ProviderName.String(),
			"age_hours":      time.Since(txn.CreatedAt).Hours(),
		})
		j.logg.Warn(txnCtx, "transaction pending past cutoff, needs reconciliation")
	}
	return nil
}
