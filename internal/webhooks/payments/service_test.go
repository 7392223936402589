package paymentswebhook

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kbrayane/immoflow-backend/internal/subscriptions"
	"github.com/kbrayane/immoflow-backend/pkg/db/models"
	"github.com/kbrayane/immoflow-backend/pkg/enums"
	pkgerrors "github.com/kbrayane/immoflow-backend/pkg/errors"
)

type stubLedger struct {
	txns      map[uuid.UUID]*models.Transaction
	completed []string
	failed    []string
}

func newStubLedger() *stubLedger {
	return &stubLedger{txns: map[uuid.UUID]*models.Transaction{}}
}

func (s *stubLedger) Find(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	txn, ok := s.txns[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}
	return txn, nil
}

func (s *stubLedger) MarkCompleted(ctx context.Context, id uuid.UUID, externalRef string, completedAt time.Time) error {
	txn, ok := s.txns[id]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}
	txn.Status = enums.TransactionStatusCompleted
	txn.ExternalReference = &externalRef
	s.completed = append(s.completed, externalRef)
	return nil
}

func (s *stubLedger) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	txn, ok := s.txns[id]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}
	txn.Status = enums.TransactionStatusFailed
	s.failed = append(s.failed, reason)
	return nil
}

type stubPlanStore struct {
	plans map[uuid.UUID]*models.SubscriptionPlan
}

func (s *stubPlanStore) Find(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error) {
	plan, ok := s.plans[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription plan not found")
	}
	return plan, nil
}

type stubSubscriptionStore struct {
	activated    []subscriptions.ActivationInput
	activateErrs []error
}

func (s *stubSubscriptionStore) Activate(ctx context.Context, in subscriptions.ActivationInput) (*models.AgencySubscription, error) {
	if len(s.activateErrs) > 0 {
		err := s.activateErrs[0]
		s.activateErrs = s.activateErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	s.activated = append(s.activated, in)
	return &models.AgencySubscription{AgencyID: in.AgencyID, PlanID: in.Plan.ID}, nil
}

type stubGuard struct {
	seen map[string]bool
}

func newStubGuard() *stubGuard {
	return &stubGuard{seen: map[string]bool{}}
}

func (s *stubGuard) Get(ctx context.Context, key string) (string, error) { return "", nil }

func (s *stubGuard) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	return true, nil
}

func (s *stubGuard) IdempotencyKey(scope, id string) string { return scope + ":" + id }

func (s *stubGuard) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.seen, key)
	}
	return nil
}

type webhookFixture struct {
	svc    *Service
	ledger *stubLedger
	plans  *stubPlanStore
	subs   *stubSubscriptionStore
	guard  *stubGuard
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()

	fx := &webhookFixture{
		ledger: newStubLedger(),
		plans:  &stubPlanStore{plans: map[uuid.UUID]*models.SubscriptionPlan{}},
		subs:   &stubSubscriptionStore{},
		guard:  newStubGuard(),
	}
	svc, err := NewService(ServiceParams{
		Ledger:        fx.ledger,
		Plans:         fx.plans,
		Subscriptions: fx.subs,
		Guard:         fx.guard,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	fx.svc = svc
	return fx
}

func (fx *webhookFixture) seedTransaction() *models.Transaction {
	plan := &models.SubscriptionPlan{ID: uuid.New(), Name: "Premium", PriceMonthly: 20000, BillingCurrency: enums.CurrencyXOF}
	fx.plans.plans[plan.ID] = plan

	txn := &models.Transaction{
		ID:           uuid.New(),
		AgencyID:     uuid.New(),
		PlanID:       plan.ID,
		BillingCycle: enums.BillingCycleMonthly,
		Amount:       20000,
		Status:       enums.TransactionStatusPending,
	}
	fx.ledger.txns[txn.ID] = txn
	return txn
}

func approvedEvent(txn *models.Transaction) *ProviderEvent {
	return &ProviderEvent{
		Provider:          enums.PaymentProviderFedapay,
		TransactionID:     txn.ID,
		ExternalReference: "fed-1",
		Status:            "approved",
		OccurredAt:        time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestHandleEventCompletesAndActivates(t *testing.T) {
	fx := newWebhookFixture(t)
	txn := fx.seedTransaction()

	if err := fx.svc.HandleEvent(context.Background(), approvedEvent(txn)); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if fx.ledger.txns[txn.ID].Status != enums.TransactionStatusCompleted {
		t.Errorf("status = %s, want completed", fx.ledger.txns[txn.ID].Status)
	}
	if len(fx.subs.activated) != 1 {
		t.Fatalf("activations = %d, want 1", len(fx.subs.activated))
	}
	if fx.subs.activated[0].AgencyID != txn.AgencyID {
		t.Errorf("activated agency = %s, want %s", fx.subs.activated[0].AgencyID, txn.AgencyID)
	}
}

func TestHandleEventFailure(t *testing.T) {
	fx := newWebhookFixture(t)
	txn := fx.seedTransaction()

	event := approvedEvent(txn)
	event.Status = "declined"
	event.FailureReason = "insufficient funds"

	if err := fx.svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if fx.ledger.txns[txn.ID].Status != enums.TransactionStatusFailed {
		t.Errorf("status = %s, want failed", fx.ledger.txns[txn.ID].Status)
	}
	if len(fx.ledger.failed) != 1 || fx.ledger.failed[0] != "insufficient funds" {
		t.Errorf("failure reasons = %v", fx.ledger.failed)
	}
	if len(fx.subs.activated) != 0 {
		t.Error("failed payment must not activate a plan")
	}
}

func TestHandleEventDuplicateDeliveryDropped(t *testing.T) {
	fx := newWebhookFixture(t)
	txn := fx.seedTransaction()

	if err := fx.svc.HandleEvent(context.Background(), approvedEvent(txn)); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := fx.svc.HandleEvent(context.Background(), approvedEvent(txn)); err != nil {
		t.Fatalf("duplicate delivery: %v", err)
	}
	if len(fx.ledger.completed) != 1 {
		t.Errorf("ledger completions = %d, want 1", len(fx.ledger.completed))
	}
	if len(fx.subs.activated) != 1 {
		t.Errorf("activations = %d, want 1", len(fx.subs.activated))
	}
}

func TestHandleEventRetryAfterActivationFailure(t *testing.T) {
	fx := newWebhookFixture(t)
	txn := fx.seedTransaction()
	fx.subs.activateErrs = []error{pkgerrors.New(pkgerrors.CodeDependency, "database unavailable")}

	if err := fx.svc.HandleEvent(context.Background(), approvedEvent(txn)); err == nil {
		t.Fatal("expected the first delivery to fail")
	}
	// The claim must be released or the provider's retry is dropped as a
	// duplicate and the paid subscription is never activated.
	if len(fx.guard.seen) != 0 {
		t.Fatal("delivery claim was not released after the processing failure")
	}

	if err := fx.svc.HandleEvent(context.Background(), approvedEvent(txn)); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(fx.subs.activated) != 1 {
		t.Fatalf("activations = %d, want 1", len(fx.subs.activated))
	}
	if fx.ledger.txns[txn.ID].Status != enums.TransactionStatusCompleted {
		t.Errorf("status = %s, want completed", fx.ledger.txns[txn.ID].Status)
	}
}

func TestHandleEventDifferentReferenceIsNotADuplicate(t *testing.T) {
	fx := newWebhookFixture(t)
	txn := fx.seedTransaction()

	if err := fx.svc.HandleEvent(context.Background(), approvedEvent(txn)); err != nil {
		t.Fatalf("first delivery: %v", err)
	}

	conflicting := approvedEvent(txn)
	conflicting.ExternalReference = "fed-999"
	// The guard lets it through; the ledger rejects the conflicting reference.
	err := fx.svc.HandleEvent(context.Background(), conflicting)
	if err == nil {
		t.Fatal("expected the ledger to reject the conflicting reference")
	}
}

func TestHandleEventWithoutGuard(t *testing.T) {
	fx := newWebhookFixture(t)
	svc, err := NewService(ServiceParams{
		Ledger:        fx.ledger,
		Plans:         fx.plans,
		Subscriptions: fx.subs,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	txn := fx.seedTransaction()

	if err := svc.HandleEvent(context.Background(), approvedEvent(txn)); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
}

func TestHandleEventValidation(t *testing.T) {
	fx := newWebhookFixture(t)
	txn := fx.seedTransaction()

	cases := []struct {
		name   string
		mutate func(*ProviderEvent)
	}{
		{"nil provider", func(e *ProviderEvent) { e.Provider = "" }},
		{"missing transaction", func(e *ProviderEvent) { e.TransactionID = uuid.Nil }},
		{"missing reference", func(e *ProviderEvent) { e.ExternalReference = " " }},
		{"unknown status", func(e *ProviderEvent) { e.Status = "maybe" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			event := approvedEvent(txn)
			tc.mutate(event)
			if err := fx.svc.HandleEvent(context.Background(), event); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	if err := fx.svc.HandleEvent(context.Background(), nil); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatal("expected validation error for nil event")
	}
}

func TestClassifyStatusVocabulary(t *testing.T) {
	completed := []string{"approved", "Successful", "SUCCESS", "completed", "paid", "transferred"}
	for _, status := range completed {
		got, err := classifyStatus(status)
		if err != nil || got != enums.TransactionStatusCompleted {
			t.Errorf("classifyStatus(%q) = %v, %v", status, got, err)
		}
	}
	failed := []string{"declined", "FAILED", "rejected", "canceled", "cancelled", "expired"}
	for _, status := range failed {
		got, err := classifyStatus(status)
		if err != nil || got != enums.TransactionStatusFailed {
			t.Errorf("classifyStatus(%q) = %v, %v", status, got, err)
		}
	}
}
