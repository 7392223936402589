package plans

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kbrayane/immoflow-backend/pkg/db/models"
	pkgerrors "github.com/kbrayane/immoflow-backend/pkg/errors"
)

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the plan service.
type ServiceParams struct {
	Repo Repository
	Tx   TxRunner
}

// Service exposes subscription plan management. Mutations are superadmin
// territory; the router enforces that, the service enforces shape.
type Service struct {
	repo Repository
	tx   TxRunner
}

// NewService builds a plan service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Tx == nil {
		return nil, errors.New("tx runner is required")
	}
	return &Service{repo: params.Repo, tx: params.Tx}, nil
}

func (s *Service) List(ctx context.Context) ([]models.SubscriptionPlan, error) {
	return s.repo.List(ctx)
}

func (s *Service) Find(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error) {
	plan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription plan not found")
	}
	return plan, nil
}

func (s *Service) FindDefault(ctx context.Context) (*models.SubscriptionPlan, error) {
	return s.repo.FindDefault(ctx)
}

// Create inserts a plan. Marking it default demotes the previous default in
// the same transaction so there is never more than one.
func (s *Service) Create(ctx context.Context, plan *models.SubscriptionPlan) error {
	if err := validatePlan(plan); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if plan.IsDefault {
			if err := repo.ClearDefault(ctx); err != nil {
				return err
			}
		}
		return repo.Create(ctx, plan)
	})
}

// Update saves price and metadata edits. Existing subscriptions keep the
// prices they were sold at; only future prorations see the new numbers.
func (s *Service) Update(ctx context.Context, plan *models.SubscriptionPlan) error {
	if plan == nil || plan.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "plan id is required")
	}
	if err := validatePlan(plan); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindByID(ctx, plan.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "subscription plan not found")
		}
		if plan.IsDefault && !existing.IsDefault {
			if err := repo.ClearDefault(ctx); err != nil {
				return err
			}
		}
		return repo.Update(ctx, plan)
	})
}

func validatePlan(plan *models.SubscriptionPlan) error {
	if plan == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "plan is required")
	}
	if strings.TrimSpace(plan.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "plan name is required")
	}
	if plan.PriceMonthly < 0 || plan.PriceYearly < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "plan prices must not be negative")
	}
	if !plan.BillingCurrency.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid billing currency")
	}
	return nil
}
