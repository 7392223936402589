package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kbrayane/immoflow-backend/internal/proration"
	"github.com/kbrayane/immoflow-backend/internal/providers"
	"github.com/kbrayane/immoflow-backend/internal/subscriptions"
	"github.com/kbrayane/immoflow-backend/pkg/db/models"
	"github.com/kbrayane/immoflow-backend/pkg/enums"
	pkgerrors "github.com/kbrayane/immoflow-backend/pkg/errors"
	"github.com/kbrayane/immoflow-backend/pkg/metrics"
)

// PlanStore loads sellable plans.
type PlanStore interface {
	Find(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error)
}

// SubscriptionStore reads and switches agency subscriptions.
type SubscriptionStore interface {
	Current(ctx context.Context, agencyID uuid.UUID) (*models.AgencySubscription, error)
	Activate(ctx context.Context, in subscriptions.ActivationInput) (*models.AgencySubscription, error)
}

// Ledger records checkout attempts and their failures.
type Ledger interface {
	Create(ctx context.Context, txn *models.Transaction) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// AdapterRegistry resolves the provider adapter serving a payment method.
type AdapterRegistry interface {
	Resolve(method enums.PaymentMethod) (providers.Adapter, error)
}

// ServiceParams groups dependencies for the checkout service.
type ServiceParams struct {
	Plans         PlanStore
	Subscriptions SubscriptionStore
	Ledger        Ledger
	Registry      AdapterRegistry
	Dispatcher    providers.Dispatcher
	Metrics       *metrics.BillingMetrics
	Currency      enums.Currency
	ReturnURL     string
	Now           func() time.Time
}

// Service orchestrates a plan-change checkout end to end: proration, ledger
// entry, provider dispatch and outcome interpretation.
type Service struct {
	plans         PlanStore
	subscriptions SubscriptionStore
	ledger        Ledger
	registry      AdapterRegistry
	dispatcher    providers.Dispatcher
	metrics       *metrics.BillingMetrics
	currency      enums.Currency
	returnURL     string
	now           func() time.Time
}

// NewService builds a checkout service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Plans == nil {
		return nil, errors.New("plan store is required")
	}
	if params.Subscriptions == nil {
		return nil, errors.New("subscription store is required")
	}
	if params.Ledger == nil {
		return nil, errors.New("ledger is required")
	}
	if params.Registry == nil {
		return nil, errors.New("adapter registry is required")
	}
	if params.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	currency := params.Currency
	if currency == "" {
		currency = enums.CurrencyXOF
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		plans:         params.Plans,
		subscriptions: params.Subscriptions,
		ledger:        params.Ledger,
		registry:      params.Registry,
		dispatcher:    params.Dispatcher,
		metrics:       params.Metrics,
		currency:      currency,
		returnURL:     params.ReturnURL,
		now:           now,
	}, nil
}

// Input is what the dashboard sends to start a plan-change checkout.
type Input struct {
	PlanID        uuid.UUID
	Cycle         enums.BillingCycle
	Method        enums.PaymentMethod
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
}

// Result tells the dashboard how to continue.
type Result struct {
	Outcome       enums.CheckoutOutcome `json:"outcome"`
	RedirectURL   string                `json:"redirect_url,omitempty"`
	Reference     string                `json:"reference,omitempty"`
	TransactionID *uuid.UUID            `json:"transaction_id,omitempty"`
	AmountDue     int64                 `json:"amount_due"`
	Proration     *proration.Result     `json:"proration,omitempty"`
}

// Checkout runs the full plan-change flow. Free or fully-credited changes
// activate synchronously; everything else becomes a pending Transaction
// dispatched to the provider mapped to the chosen payment method.
func (s *Service) Checkout(ctx context.Context, agencyID uuid.UUID, in Input) (*Result, error) {
	if agencyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agency id is required")
	}
	if in.PlanID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan id is required")
	}
	if !in.Cycle.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid billing cycle")
	}
	if !in.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	plan, err := s.plans.Find(ctx, in.PlanID)
	if err != nil {
		return nil, err
	}
	now := s.now()

	if plan.IsFree(in.Cycle) {
		if _, err := s.subscriptions.Activate(ctx, subscriptions.ActivationInput{
			AgencyID: agencyID,
			Plan:     plan,
			Cycle:    in.Cycle,
			Now:      now,
		}); err != nil {
			return nil, err
		}
		s.recordCheckout("none", enums.CheckoutOutcomeImmediateSuccess)
		return &Result{Outcome: enums.CheckoutOutcomeImmediateSuccess}, nil
	}

	prorated, err := s.prorationFor(ctx, agencyID, plan, in.Cycle, now)
	if err != nil {
		return nil, err
	}
	amountDue := plan.PriceFor(in.Cycle)
	if prorated != nil {
		amountDue = prorated.AmountDue
	}

	// A fully-credited change costs nothing; the residual credit is
	// forfeited rather than refunded.
	if amountDue <= 0 {
		if _, err := s.subscriptions.Activate(ctx, subscriptions.ActivationInput{
			AgencyID: agencyID,
			Plan:     plan,
			Cycle:    in.Cycle,
			Now:      now,
		}); err != nil {
			return nil, err
		}
		s.recordCheckout("none", enums.CheckoutOutcomeImmediateSuccess)
		return &Result{
			Outcome:   enums.CheckoutOutcomeImmediateSuccess,
			AmountDue: amountDue,
			Proration: prorated,
		}, nil
	}

	adapter, err := s.registry.Resolve(in.Method)
	if err != nil {
		return nil, err
	}
	provider := adapter.Provider()

	txn := &models.Transaction{
		AgencyID:      agencyID,
		PlanID:        plan.ID,
		BillingCycle:  in.Cycle,
		Amount:        amountDue,
		Currency:      s.currency,
		PaymentMethod: in.Method,
		ProviderName:  provider,
	}
	if err := s.ledger.Create(ctx, txn); err != nil {
		return nil, err
	}

	req := providers.CheckoutRequest{
		TransactionID: txn.ID,
		AgencyID:      agencyID,
		PlanID:        plan.ID,
		PlanName:      plan.Name,
		BillingCycle:  in.Cycle,
		Method:        in.Method,
		Amount:        amountDue,
		Currency:      s.currency,
		CustomerName:  in.CustomerName,
		CustomerEmail: in.CustomerEmail,
		CustomerPhone: in.CustomerPhone,
		ReturnURL:     s.returnURL,
		Proration:     prorated,
	}

	outcome, err := s.dispatch(ctx, adapter, req)
	if err != nil {
		// A timeout or cancellation says nothing about what the provider
		// did with the charge. The transaction stays pending until the
		// webhook or a reconciliation run settles it; only a definitive
		// rejection may mark it failed.
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			s.recordCheckout(provider.String(), enums.CheckoutOutcome("timeout"))
			return nil, err
		}
		if failErr := s.ledger.MarkFailed(ctx, txn.ID, err.Error()); failErr != nil {
			return nil, failErr
		}
		s.recordCheckout(provider.String(), enums.CheckoutOutcome("failed"))
		return nil, err
	}

	s.recordCheckout(provider.String(), outcome.Kind)
	return &Result{
		Outcome:       outcome.Kind,
		RedirectURL:   outcome.RedirectURL,
		Reference:     outcome.Reference,
		TransactionID: &txn.ID,
		AmountDue:     amountDue,
		Proration:     prorated,
	}, nil
}

func (s *Service) dispatch(ctx context.Context, adapter providers.Adapter, req providers.CheckoutRequest) (providers.Outcome, error) {
	payload, err := adapter.BuildPayload(req)
	if err != nil {
		return providers.Outcome{}, err
	}
	resp, err := s.dispatcher.Dispatch(ctx, adapter.Provider(), payload)
	if err != nil {
		return providers.Outcome{}, pkgerrors.Wrap(pkgerrors.CodeProvider, err, "provider dispatch failed")
	}
	return adapter.Interpret(resp)
}

// PreviewProration computes what an immediate change to the plan would cost
// without touching any state. A nil result means the full plan price applies.
func (s *Service) PreviewProration(ctx context.Context, agencyID, planID uuid.UUID, cycle enums.BillingCycle) (*proration.Result, int64, error) {
	if !cycle.IsValid() {
		return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid billing cycle")
	}
	plan, err := s.plans.Find(ctx, planID)
	if err != nil {
		return nil, 0, err
	}
	prorated, err := s.prorationFor(ctx, agencyID, plan, cycle, s.now())
	if err != nil {
		return nil, 0, err
	}
	amountDue := plan.PriceFor(cycle)
	if prorated != nil {
		amountDue = prorated.AmountDue
	}
	return prorated, amountDue, nil
}

// prorationFor computes the credit window from the current subscription. No
// subscription, a free current plan, or an uncomputable window all mean the
// full new-plan price applies.
func (s *Service) prorationFor(ctx context.Context, agencyID uuid.UUID, plan *models.SubscriptionPlan, cycle enums.BillingCycle, now time.Time) (*proration.Result, error) {
	sub, err := s.subscriptions.Current(ctx, agencyID)
	if err != nil {
		return nil, err
	}
	if sub == nil || sub.Plan == nil {
		return nil, nil
	}
	currentPrice := sub.Plan.PriceFor(sub.BillingCycle)
	if currentPrice == 0 {
		return nil, nil
	}
	return proration.Calculate(proration.Input{
		CurrentPlanPrice: currentPrice,
		NewPlanPrice:     plan.PriceFor(cycle),
		CycleStart:       sub.StartsAt,
		CycleEnd:         sub.EndsAt,
		Cycle:            sub.BillingCycle,
		Now:              now,
	})
}

func (s *Service) recordCheckout(provider string, outcome enums.CheckoutOutcome) {
	if s.metrics != nil {
		s.metrics.IncCheckout(provider, outcome.String())
	}
}
