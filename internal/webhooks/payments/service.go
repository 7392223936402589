package paymentswebhook

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kbrayane/immoflow-backend/internal/subscriptions"
	"github.com/kbrayane/immoflow-backend/pkg/db/models"
	"github.com/kbrayane/immoflow-backend/pkg/enums"
	pkgerrors "github.com/kbrayane/immoflow-backend/pkg/errors"
	"github.com/kbrayane/immoflow-backend/pkg/metrics"
	"github.com/kbrayane/immoflow-backend/pkg/redis"
)

// guardTTL bounds how long a delivery stays deduplicated. Providers stop
// retrying well before a week.
const guardTTL = 7 * 24 * time.Hour

// Ledger is the transaction state machine the webhook drives.
type Ledger interface {
	Find(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, externalRef string, completedAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// PlanStore loads the plan a completed payment activates.
type PlanStore interface {
	Find(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error)
}

// SubscriptionStore applies the plan change a completed payment paid for.
type SubscriptionStore interface {
	Activate(ctx context.Context, in subscriptions.ActivationInput) (*models.AgencySubscription, error)
}

// ServiceParams groups dependencies for the payments webhook service.
type ServiceParams struct {
	Ledger        Ledger
	Plans         PlanStore
	Subscriptions SubscriptionStore
	Guard         redis.IdempotencyStore
	Metrics       *metrics.BillingMetrics
}

// Service turns provider callback deliveries into ledger transitions. The
// Redis guard drops replays cheaply; the ledger's own idempotence is the
// backstop when Redis forgets.
type Service struct {
	ledger        Ledger
	plans         PlanStore
	subscriptions SubscriptionStore
	guard         redis.IdempotencyStore
	metrics       *metrics.BillingMetrics
}

// NewService builds a payments webhook service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger required")
	}
	if params.Plans == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "plan store required")
	}
	if params.Subscriptions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription store required")
	}
	return &Service{
		ledger:        params.Ledger,
		plans:         params.Plans,
		subscriptions: params.Subscriptions,
		guard:         params.Guard,
		metrics:       params.Metrics,
	}, nil
}

// ProviderEvent is the normalized form of one provider callback delivery.
// Controllers parse each provider's body into this before handing it over.
type ProviderEvent struct {
	Provider          enums.PaymentProvider `json:"provider"`
	TransactionID     uuid.UUID             `json:"transaction_id"`
	ExternalReference string                `json:"external_reference"`
	Status            string                `json:"status"`
	FailureReason     string                `json:"failure_reason"`
	OccurredAt        time.Time             `json:"occurred_at"`
	Raw               json.RawMessage       `json:"-"`
}

// HandleEvent validates the delivery, drops replays, and applies the status
// to the transaction. A completed payment also activates the plan the
// transaction was created for.
func (s *Service) HandleEvent(ctx context.Context, event *ProviderEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "provider event required")
	}
	if !event.Provider.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment provider")
	}
	if event.TransactionID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}
	if strings.TrimSpace(event.ExternalReference) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "external reference required")
	}

	claimKey, duplicate, err := s.claimDelivery(ctx, event)
	if err != nil {
		return err
	}
	if duplicate {
		s.record(event.Provider, "duplicate")
		return nil
	}

	outcome, err := classifyStatus(event.Status)
	if err != nil {
		s.releaseClaim(ctx, claimKey)
		s.record(event.Provider, "unrecognized")
		return err
	}

	switch outcome {
	case enums.TransactionStatusCompleted:
		if err := s.complete(ctx, event); err != nil {
			s.releaseClaim(ctx, claimKey)
			s.record(event.Provider, "error")
			return err
		}
		s.record(event.Provider, "completed")
		return nil
	default:
		reason := strings.TrimSpace(event.FailureReason)
		if reason == "" {
			reason = "provider reported " + strings.ToLower(event.Status)
		}
		if err := s.ledger.MarkFailed(ctx, event.TransactionID, reason); err != nil {
			s.releaseClaim(ctx, claimKey)
			s.record(event.Provider, "error")
			return err
		}
		s.record(event.Provider, "failed")
		return nil
	}
}

func (s *Service) complete(ctx context.Context, event *ProviderEvent) error {
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	if err := s.ledger.MarkCompleted(ctx, event.TransactionID, event.ExternalReference, occurredAt); err != nil {
		return err
	}

	txn, err := s.ledger.Find(ctx, event.TransactionID)
	if err != nil {
		return err
	}
	plan, err := s.plans.Find(ctx, txn.PlanID)
	if err != nil {
		return err
	}
	_, err = s.subscriptions.Activate(ctx, subscriptions.ActivationInput{
		AgencyID: txn.AgencyID,
		Plan:     plan,
		Cycle:    txn.BillingCycle,
		Now:      occurredAt,
	})
	return err
}

// claimDelivery claims the delivery key. Without a guard every delivery is
// treated as first; the ledger stays correct either way.
func (s *Service) claimDelivery(ctx context.Context, event *ProviderEvent) (key string, duplicate bool, err error) {
	if s.guard == nil {
		return "", false, nil
	}
	key = s.guard.IdempotencyKey("payments", event.TransactionID.String()+":"+event.ExternalReference)
	claimed, err := s.guard.SetNX(ctx, key, event.Status, guardTTL)
	if err != nil {
		return "", false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "webhook delivery guard")
	}
	return key, !claimed, nil
}

// releaseClaim frees the delivery key so the provider's retry is processed as
// a first delivery instead of being dropped as a duplicate.
func (s *Service) releaseClaim(ctx context.Context, key string) {
	if s.guard == nil || key == "" {
		return
	}
	_ = s.guard.Del(ctx, key)
}

func (s *Service) record(provider enums.PaymentProvider, result string) {
	if s.metrics != nil {
		s.metrics.IncWebhookEvent(provider.String(), result)
	}
}

// classifyStatus collapses the providers' status vocabularies onto the two
// ledger transitions a callback may trigger.
func classifyStatus(status string) (enums.TransactionStatus, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "approved", "successful", "success", "completed", "paid", "transferred":
		return enums.TransactionStatusCompleted, nil
	case "declined", "failed", "rejected", "canceled", "cancelled", "expired":
		return enums.TransactionStatusFailed, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unrecognized provider status").
			WithDetails(map[string]any{"status": status})
	}
}
