package subscriptions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kbrayane/immoflow-backend/pkg/db/models"
	"github.com/kbrayane/immoflow-backend/pkg/enums"
	pkgerrors "github.com/kbrayane/immoflow-backend/pkg/errors"
)

type stubSubsRepo struct {
	byAgency      map[uuid.UUID]*models.AgencySubscription
	created       []*models.AgencySubscription
	versionClash  bool
	updatedCalls  int
	versionedSubs []*models.AgencySubscription
}

func newStubSubsRepo() *stubSubsRepo {
	return &stubSubsRepo{byAgency: map[uuid.UUID]*models.AgencySubscription{}}
}

func (s *stubSubsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubSubsRepo) Create(ctx context.Context, sub *models.AgencySubscription) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	s.byAgency[sub.AgencyID] = sub
	s.created = append(s.created, sub)
	return nil
}

func (s *stubSubsRepo) FindByAgency(ctx context.Context, agencyID uuid.UUID) (*models.AgencySubscription, error) {
	sub, ok := s.byAgency[agencyID]
	if !ok {
		return nil, nil
	}
	copied := *sub
	return &copied, nil
}

func (s *stubSubsRepo) UpdateVersioned(ctx context.Context, sub *models.AgencySubscription) (bool, error) {
	s.updatedCalls++
	if s.versionClash {
		return false, nil
	}
	stored, ok := s.byAgency[sub.AgencyID]
	if !ok || stored.Version != sub.Version {
		return false, nil
	}
	sub.Version++
	copied := *sub
	s.byAgency[sub.AgencyID] = &copied
	s.versionedSubs = append(s.versionedSubs, &copied)
	return true, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func paidPlan() *models.SubscriptionPlan {
	return &models.SubscriptionPlan{
		ID:              uuid.New(),
		Name:            "Premium",
		PriceMonthly:    20000,
		PriceYearly:     200000,
		BillingCurrency: enums.CurrencyXOF,
	}
}

func TestActivateFirstSubscription(t *testing.T) {
	repo := newStubSubsRepo()
	svc, err := NewService(ServiceParams{Repo: repo, Tx: stubTxRunner{}})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	agencyID := uuid.New()
	plan := paidPlan()

	sub, err := svc.Activate(context.Background(), ActivationInput{
		AgencyID: agencyID,
		Plan:     plan,
		Cycle:    enums.BillingCycleMonthly,
		Now:      now,
	})
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("created %d subscriptions, want 1", len(repo.created))
	}
	if sub.Version != 1 {
		t.Errorf("version = %d, want 1", sub.Version)
	}
	if sub.EndsAt == nil || !sub.EndsAt.Equal(now.AddDate(0, 1, 0)) {
		t.Errorf("ends_at = %v, want %v", sub.EndsAt, now.AddDate(0, 1, 0))
	}
}

func TestActivateFreePlanHasNoEnd(t *testing.T) {
	repo := newStubSubsRepo()
	svc, _ := NewService(ServiceParams{Repo: repo, Tx: stubTxRunner{}})

	free := paidPlan()
	free.PriceMonthly = 0
	free.PriceYearly = 0

	sub, err := svc.Activate(context.Background(), ActivationInput{
		AgencyID: uuid.New(),
		Plan:     free,
		Cycle:    enums.BillingCycleMonthly,
		Now:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if sub.EndsAt != nil {
		t.Errorf("ends_at = %v, want nil for a free plan", sub.EndsAt)
	}
}

func TestActivateExistingSubscriptionBumpsVersion(t *testing.T) {
	repo := newStubSubsRepo()
	agencyID := uuid.New()
	repo.byAgency[agencyID] = &models.AgencySubscription{
		ID:           uuid.New(),
		AgencyID:     agencyID,
		PlanID:       uuid.New(),
		BillingCycle: enums.BillingCycleMonthly,
		StartsAt:     time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Version:      3,
	}

	svc, _ := NewService(ServiceParams{Repo: repo, Tx: stubTxRunner{}})

	plan := paidPlan()
	sub, err := svc.Activate(context.Background(), ActivationInput{
		AgencyID: agencyID,
		Plan:     plan,
		Cycle:    enums.BillingCycleYearly,
		Now:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if sub.Version != 4 {
		t.Errorf("version = %d, want 4", sub.Version)
	}
	if sub.PlanID != plan.ID {
		t.Errorf("plan id = %s, want %s", sub.PlanID, plan.ID)
	}
	if sub.EndsAt == nil || sub.EndsAt.Year() != 2027 {
		t.Errorf("yearly cycle end = %v, want 2027", sub.EndsAt)
	}
}

func TestActivateVersionClash(t *testing.T) {
	repo := newStubSubsRepo()
	agencyID := uuid.New()
	repo.byAgency[agencyID] = &models.AgencySubscription{
		ID:       uuid.New(),
		AgencyID: agencyID,
		PlanID:   uuid.New(),
		StartsAt: time.Now().UTC(),
		Version:  1,
	}
	repo.versionClash = true

	svc, _ := NewService(ServiceParams{Repo: repo, Tx: stubTxRunner{}})

	_, err := svc.Activate(context.Background(), ActivationInput{
		AgencyID: agencyID,
		Plan:     paidPlan(),
		Cycle:    enums.BillingCycleMonthly,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestActivateValidation(t *testing.T) {
	svc, _ := NewService(ServiceParams{Repo: newStubSubsRepo(), Tx: stubTxRunner{}})

	if _, err := svc.Activate(context.Background(), ActivationInput{AgencyID: uuid.New(), Cycle: enums.BillingCycleMonthly}); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for nil plan, got %v", err)
	}
	if _, err := svc.Activate(context.Background(), ActivationInput{AgencyID: uuid.New(), Plan: paidPlan(), Cycle: enums.BillingCycle("weekly")}); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for bad cycle, got %v", err)
	}
}
