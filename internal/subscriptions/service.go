package subscriptions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kbrayane/immoflow-backend/pkg/db/models"
	"github.com/kbrayane/immoflow-backend/pkg/enums"
	pkgerrors "github.com/kbrayane/immoflow-backend/pkg/errors"
)

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the subscription service.
type ServiceParams struct {
	Repo Repository
	Tx   TxRunner
}

// Service owns the single-active-subscription invariant per agency.
type Service struct {
	repo Repository
	tx   TxRunner
}

// NewService builds a subscription service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Tx == nil {
		return nil, errors.New("tx runner is required")
	}
	return &Service{repo: params.Repo, tx: params.Tx}, nil
}

// Current returns the agency's subscription with its plan preloaded, or nil
// when the agency has never subscribed.
func (s *Service) Current(ctx context.Context, agencyID uuid.UUID) (*models.AgencySubscription, error) {
	return s.repo.FindByAgency(ctx, agencyID)
}

// ActivationInput describes a plan change taking effect immediately.
type ActivationInput struct {
	AgencyID uuid.UUID
	Plan     *models.SubscriptionPlan
	Cycle    enums.BillingCycle
	Now      time.Time
}

// Activate switches the agency onto the plan. First-time agencies get a row
// inserted; existing subscriptions go through a version-guarded update, so
// two concurrent plan changes cannot both win — the loser gets
// STATE_CONFLICT and must re-read.
func (s *Service) Activate(ctx context.Context, in ActivationInput) (*models.AgencySubscription, error) {
	if in.Plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan is required")
	}
	if !in.Cycle.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid billing cycle")
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var endsAt *time.Time
	if !in.Plan.IsFree(in.Cycle) {
		end := CycleEndFor(now, in.Cycle)
		endsAt = &end
	}

	var activated *models.AgencySubscription
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindByAgency(ctx, in.AgencyID)
		if err != nil {
			return err
		}
		if existing == nil {
			sub := &models.AgencySubscription{
				AgencyID:     in.AgencyID,
				PlanID:       in.Plan.ID,
				BillingCycle: in.Cycle,
				StartsAt:     now,
				EndsAt:       endsAt,
				Version:      1,
			}
			if err := repo.Create(ctx, sub); err != nil {
				return err
			}
			activated = sub
			return nil
		}

		existing.PlanID = in.Plan.ID
		existing.BillingCycle = in.Cycle
		existing.StartsAt = now
		existing.EndsAt = endsAt
		updated, err := repo.UpdateVersioned(ctx, existing)
		if err != nil {
			return err
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "subscription changed concurrently, retry the plan change")
		}
		activated = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	activated.Plan = in.Plan
	return activated, nil
}
