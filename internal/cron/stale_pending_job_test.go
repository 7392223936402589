package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kbrayane/immoflow-backend/pkg/db/models"
	"github.com/kbrayane/immoflow-backend/pkg/enums"
	"github.com/kbrayane/immoflow-backend/pkg/logger"
	"github.com/kbrayane/immoflow-backend/pkg/metrics"
)

type fakeStalePendingReader struct {
	stale      []models.Transaction
	err        error
	lastCutoff time.Time
}

func (f *fakeStalePendingReader) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Transaction, error) {
	f.lastCutoff = cutoff
	if f.err != nil {
		return nil, f.err
	}
	return f.stale, nil
}

func staleTransaction(age time.Duration) models.Transaction {
	return models.Transaction{
		ID:           uuid.New(),
		AgencyID:     uuid.New(),
		PlanID:       uuid.New(),
		Amount:       5000,
		ProviderName: enums.PaymentProviderFedapay,
		Status:       enums.TransactionStatusPending,
		CreatedAt:    time.Now().UTC().Add(-age),
	}
}

func TestStalePendingJobSetsGauge(t *testing.T) {
	reader := &fakeStalePendingReader{
		stale: []models.Transaction{staleTransaction(48 * time.Hour), staleTransaction(30 * time.Hour)},
	}
	billing := metrics.NewBillingMetrics(prometheus.NewRegistry())
	job, err := NewStalePendingJob(StalePendingJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "cron-test"}),
		Ledger:  reader,
		Metrics: billing,
		Cutoff:  24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	wantCutoff := time.Now().UTC().Add(-24 * time.Hour)
	if diff := reader.lastCutoff.Sub(wantCutoff); diff < -time.Minute || diff > time.Minute {
		t.Errorf("cutoff = %v, want ~%v", reader.lastCutoff, wantCutoff)
	}
}

func TestStalePendingJobPropagatesReadError(t *testing.T) {
	reader := &fakeStalePendingReader{err: errors.New("db down")}
	job, err := NewStalePendingJob(StalePendingJobParams{
		Logger: logger.New(logger.Options{ServiceName: "cron-test"}),
		Ledger: reader,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error from reader")
	}
}

func TestStalePendingJobEmptyBacklog(t *testing.T) {
	job, err := NewStalePendingJob(StalePendingJobParams{
		Logger: logger.New(logger.Options{ServiceName: "cron-test"}),
		Ledger: &fakeStalePendingReader{},
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
}
