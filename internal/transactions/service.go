package transactions

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kbrayane/immoflow-backend/pkg/db/models"
	"github.com/kbrayane/immoflow-backend/pkg/enums"
	pkgerrors "github.com/kbrayane/immoflow-backend/pkg/errors"
	"github.com/kbrayane/immoflow-backend/pkg/pagination"
)

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the transaction service.
type ServiceParams struct {
	Repo Repository
	Tx   TxRunner
}

// Service owns the transaction state machine. Every transition runs under a
// row lock so concurrent webhook deliveries serialize instead of racing.
type Service struct {
	repo Repository
	tx   TxRunner
}

// NewService builds a transaction service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Tx == nil {
		return nil, errors.New("tx runner is required")
	}
	return &Service{repo: params.Repo, tx: params.Tx}, nil
}

// Create records a pending checkout attempt.
func (s *Service) Create(ctx context.Context, txn *models.Transaction) error {
	if txn == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction is required")
	}
	if txn.AgencyID == uuid.Nil || txn.PlanID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "agency and plan are required")
	}
	if txn.Amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction amount must be positive")
	}
	if !txn.ProviderName.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment provider")
	}
	txn.Status = enums.TransactionStatusPending
	return s.repo.Create(ctx, txn)
}

// Find returns the transaction or NOT_FOUND.
func (s *Service) Find(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	txn, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}
	return txn, nil
}

// MarkCompleted settles a pending transaction against the provider's
// reference. Replayed confirmations with the same reference no-op; a
// different reference on an already-completed row is reported as a
// CONSISTENCY_ERROR and the stored settlement is left untouched.
func (s *Service) MarkCompleted(ctx context.Context, id uuid.UUID, externalRef string, completedAt time.Time) error {
	externalRef = strings.TrimSpace(externalRef)
	if externalRef == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "external reference is required")
	}
	if completedAt.IsZero() {
		completedAt = time.Now().UTC()
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		txn, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if txn == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}

		if txn.Status == enums.TransactionStatusCompleted {
			if txn.ExternalReference != nil && *txn.ExternalReference == externalRef {
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeConsistency, "transaction already completed with a different reference").
				WithDetails(map[string]any{
					"transaction_id":     id.String(),
					"stored_reference":   refOrEmpty(txn.ExternalReference),
					"incoming_reference": externalRef,
				})
		}
		if !txn.Status.CanTransitionTo(enums.TransactionStatusCompleted) {
			return transitionConflict(txn.Status, enums.TransactionStatusCompleted)
		}

		txn.Status = enums.TransactionStatusCompleted
		txn.ExternalReference = &externalRef
		txn.CompletedAt = &completedAt
		txn.FailureReason = nil
		return repo.Update(ctx, txn)
	})
}

// MarkFailed moves a pending transaction to failed. Repeated failure
// notifications no-op.
func (s *Service) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		txn, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if txn == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		if txn.Status == enums.TransactionStatusFailed {
			return nil
		}
		if !txn.Status.CanTransitionTo(enums.TransactionStatusFailed) {
			return transitionConflict(txn.Status, enums.TransactionStatusFailed)
		}

		txn.Status = enums.TransactionStatusFailed
		if reason = strings.TrimSpace(reason); reason != "" {
			txn.FailureReason = &reason
		}
		return repo.Update(ctx, txn)
	})
}

// Refund flags a completed transaction as refunded. The ledger keeps the
// row; downstream balance math excludes refunded amounts.
func (s *Service) Refund(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		txn, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if txn == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		if !txn.Status.CanTransitionTo(enums.TransactionStatusRefunded) {
			return transitionConflict(txn.Status, enums.TransactionStatusRefunded)
		}

		txn.Status = enums.TransactionStatusRefunded
		return repo.Update(ctx, txn)
	})
}

// ListByAgency pages through an agency's ledger, newest first.
func (s *Service) ListByAgency(ctx context.Context, params ListQuery) ([]models.Transaction, *pagination.Cursor, error) {
	if params.AgencyID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "agency id is required")
	}
	return s.repo.ListByAgency(ctx, params)
}

// ListStalePending returns transactions stuck in pending since before the
// cutoff, oldest first.
func (s *Service) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Transaction, error) {
	return s.repo.ListStalePending(ctx, cutoff, limit)
}

// RevenueSummary aggregates completed revenue by plan and payment method.
func (s *Service) RevenueSummary(ctx context.Context, query ReportQuery) ([]RevenueRow, error) {
	if !query.From.IsZero() && !query.To.IsZero() && !query.To.After(query.From) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "report window end must be after start")
	}
	return s.repo.RevenueSummary(ctx, query)
}

// SuccessRate returns completed/total over the window, with totals. A window
// with no transactions reports a zero rate rather than dividing by zero.
func (s *Service) SuccessRate(ctx context.Context, since time.Time) (SuccessRateReport, error) {
	counts, err := s.repo.StatusCounts(ctx, since)
	if err != nil {
		return SuccessRateReport{}, err
	}

	report := SuccessRateReport{Since: since}
	for status, count := range counts {
		report.Total += count
		if status == enums.TransactionStatusCompleted {
			report.Completed = count
		}
	}
	if report.Total > 0 {
		report.Rate = float64(report.Completed) / float64(report.Total)
	}
	return report, nil
}

// SuccessRateReport is the payment funnel health number for dashboards.
type SuccessRateReport struct {
	Since     time.Time `json:"since"`
	Completed int64     `json:"completed"`
	Total     int64     `json:"total"`
	Rate      float64   `json:"rate"`
}

func transitionConflict(from, to enums.TransactionStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "illegal transaction transition").
		WithDetails(map[string]any{
			"from": from.String(),
			"to":   to.String(),
		})
}

func refOrEmpty(ref *string) string {
	if ref == nil {
		return ""
	}
	return *ref
}
