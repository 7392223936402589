package withdrawals

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

// PayoutClient dispatches the external mobile-money payout. The payout rails
// are slow and flaky; the client must honor ctx deadlines and return an
// error on anything but a confirmed acceptance.
type PayoutClient interface {
	Payout(ctx context.Context, req *models.WithdrawalRequest) (reference string, err error)
}

// ServiceParams groups dependencies for the withdrawal service.
type ServiceParams struct {
	Repo   Repository
	Tx     TxRunner
	Payout PayoutClient
}

// Service owns the withdrawal state machine and the available-balance
// computation backing it.
type Service struct {
	repo   Repository
	tx     TxRunner
	payout PayoutClient
}

// NewService builds a withdrawal service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Tx == nil {
		return nil, errors.New("tx runner is required")
	}
	if params.Payout == nil {
		return nil, errors.New("payout client is required")
	}
	return &Service{repo: params.Repo, tx: params.Tx, payout: params.Payout}, nil
}

// AvailableBalance is completed received payments minus every withdrawal
// that still reserves funds (pending, processing and completed). Failed and
// cancelled requests release their reservation.
func (s *Service) AvailableBalance(ctx context.Context, agencyID uuid.UUID) (int64, error) {
	if agencyID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "agency id is required")
	}
	received, err := s.repo.SumCompletedTransactions(ctx, agencyID)
	if err != nil {
		return 0, err
	}
	reserved, err := s.repo.SumReserved(ctx, agencyID)
	if err != nil {
		return 0, err
	}
	return received - reserved, nil
}

// CreateInput describes a new withdrawal request.
type CreateInput struct {
	AgencyID       uuid.UUID
	Amount         int64
	RecipientPhone string
	RecipientName  string
	PaymentMethod  enums.PaymentMethod
	Notes          string
}

// Create inserts a pending request if the amount is covered. The balance
// check and the insert run inside one transaction holding a per-agency
// advisory lock, so two concurrent requests against the same balance
// serialize: one wins, the other sees the reduced balance.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.WithdrawalRequest, error) {
	if in.AgencyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agency id is required")
	}
	if in.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal amount must be positive")
	}
	if strings.TrimSpace(in.RecipientPhone) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient phone is required")
	}
	if !in.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	req := &models.WithdrawalRequest{
		AgencyID:       in.AgencyID,
		Amount:         in.Amount,
		RecipientPhone: strings.TrimSpace(in.RecipientPhone),
		PaymentMethod:  in.PaymentMethod,
		Status:         enums.WithdrawalStatusPending,
	}
	if name := strings.TrimSpace(in.RecipientName); name != "" {
		req.RecipientName = &name
	}
	if notes := strings.TrimSpace(in.Notes); notes != "" {
		req.Notes = &notes
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.AcquireAgencyLock(ctx, in.AgencyID); err != nil {
			return err
		}
		received, err := repo.SumCompletedTransactions(ctx, in.AgencyID)
		if err != nil {
			return err
		}
		reserved, err := repo.SumReserved(ctx, in.AgencyID)
		if err != nil {
			return err
		}
		if in.Amount > received-reserved {
			return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "withdrawal amount exceeds available balance").
				WithDetails(map[string]any{
					"requested": in.Amount,
					"available": received - reserved,
				})
		}
		return repo.Create(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Cancel releases a pending request. Anything past pending is already on
// the payout rails and can only fail, never be cancelled.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	var cancelled *models.WithdrawalRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		req, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if req == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal request not found")
		}
		if req.Status != enums.WithdrawalStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending withdrawals can be cancelled").
				WithDetails(map[string]any{"status": req.Status.String()})
		}
		req.Status = enums.WithdrawalStatusCancelled
		if err := repo.Update(ctx, req); err != nil {
			return err
		}
		cancelled = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// Process claims the request, dispatches the payout, and records the result.
// A request stuck in processing after a failed dispatch can be re-processed;
// the claim accepts both pending and processing for that reason.
func (s *Service) Process(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	claimed, err := s.claim(ctx, id)
	if err != nil {
		return nil, err
	}

	reference, payoutErr := s.payout.Payout(ctx, claimed)
	now := time.Now().UTC()

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		req, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if req == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal request not found")
		}
		if payoutErr != nil {
			req.Status = enums.WithdrawalStatusFailed
			reason := payoutErr.Error()
			req.FailureReason = &reason
		} else {
			req.Status = enums.WithdrawalStatusCompleted
			if ref := strings.TrimSpace(reference); ref != "" {
				req.PayoutReference = &ref
			}
		}
		req.ProcessedAt = &now
		if err := repo.Update(ctx, req); err != nil {
			return err
		}
		claimed = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	if payoutErr != nil {
		return claimed, pkgerrors.Wrap(pkgerrors.CodeProvider, payoutErr, "payout dispatch failed")
	}
	return claimed, nil
}

// claim moves the request into processing under a row lock.
func (s *Service) claim(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	var claimed *models.WithdrawalRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		req, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if req == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal request not found")
		}
		switch req.Status {
		case enums.WithdrawalStatusPending:
			req.Status = enums.WithdrawalStatusProcessing
			if err := repo.Update(ctx, req); err != nil {
				return err
			}
		case enums.WithdrawalStatusProcessing:
			// Retry after a failed dispatch.
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "withdrawal is not processable").
				WithDetails(map[string]any{"status": req.Status.String()})
		}
		claimed = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// ListByAgency pages through an agency's withdrawal history, newest first.
func (s *Service) ListByAgency(ctx context.Context, params ListQuery) ([]models.WithdrawalRequest, *pagination.Cursor, error) {
	if params.AgencyID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "agency id is required")
	}
	return s.repo.ListByAgency(ctx, params)
}

// ListPending returns the oldest pending requests for operator batch runs.
func (s *Service) ListPending(ctx context.Context, limit int) ([]models.WithdrawalRequest, error) {
	return s.repo.ListPending(ctx, limit)
}

// StatusSummary aggregates requests by status for the operator report.
func (s *Service) StatusSummary(ctx context.Context) ([]StatusRow, error) {
	return s.repo.StatusSummary(ctx)
}

// Find returns the request or NOT_FOUND.
func (s *Service) Find(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal request not found")
	}
	return req, nil
}
