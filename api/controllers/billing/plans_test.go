package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/kbrayane/immoflow-backend/pkg/db/models"
	"github.com/kbrayane/immoflow-backend/pkg/enums"
	pkgerrors "github.com/kbrayane/immoflow-backend/pkg/errors"
)

type stubPlanService struct {
	plans   []models.SubscriptionPlan
	found   *models.SubscriptionPlan
	err     error
	created *models.SubscriptionPlan
	updated *models.SubscriptionPlan
}

func (s *stubPlanService) List(ctx context.Context) ([]models.SubscriptionPlan, error) {
	return s.plans, s.err
}

func (s *stubPlanService) Find(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.found, nil
}

func (s *stubPlanService) Create(ctx context.Context, plan *models.SubscriptionPlan) error {
	s.created = plan
	return s.err
}

func (s *stubPlanService) Update(ctx context.Context, plan *models.SubscriptionPlan) error {
	s.updated = plan
	return s.err
}

func TestPlansList(t *testing.T) {
	now := time.Now().UTC()
	svc := &stubPlanService{plans: []models.SubscriptionPlan{
		{
			ID:              uuid.New(),
			Name:            "Starter",
			PriceMonthly:    0,
			PriceYearly:     0,
			BillingCurrency: enums.CurrencyXOF,
			IsDefault:       true,
			Features:        pq.StringArray{"listings:10"},
			CreatedAt:       now,
			UpdatedAt:       now,
		},
		{
			ID:              uuid.New(),
			Name:            "Pro",
			PriceMonthly:    15000,
			PriceYearly:     150000,
			BillingCurrency: enums.CurrencyXOF,
			Features:        pq.StringArray{"listings:unlimited", "analytics"},
			CreatedAt:       now,
			UpdatedAt:       now,
		},
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/plans", nil)
	resp := httptest.NewRecorder()
	PlansList(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data planListResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Plans) != 2 {
		t.Fatalf("expected 2 plans, got %d", len(envelope.Data.Plans))
	}
	if envelope.Data.Plans[0].Name != "Starter" || !envelope.Data.Plans[0].IsDefault {
		t.Fatalf("unexpected first plan: %+v", envelope.Data.Plans[0])
	}
	if envelope.Data.Plans[1].PriceMonthly != 15000 {
		t.Fatalf("unexpected pro price: %d", envelope.Data.Plans[1].PriceMonthly)
	}
}

func TestAdminPlanCreate(t *testing.T) {
	svc := &stubPlanService{}
	body := `{"name":"  Pro  ","price_monthly":15000,"price_yearly":150000,"features":["analytics"]}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/plans", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	AdminPlanCreate(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.created == nil {
		t.Fatal("expected create to be called")
	}
	if svc.created.Name != "Pro" {
		t.Fatalf("expected trimmed name, got %q", svc.created.Name)
	}
	if svc.created.BillingCurrency != enums.CurrencyXOF {
		t.Fatalf("expected XOF default, got %s", svc.created.BillingCurrency)
	}
}

func TestAdminPlanCreateRejectsNegativePrice(t *testing.T) {
	svc := &stubPlanService{}
	body := `{"name":"Pro","price_monthly":-1,"price_yearly":150000}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/plans", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	AdminPlanCreate(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.created != nil {
		t.Fatal("create should not be called on invalid payload")
	}
}

func TestAdminPlanCreateRejectsUnknownCurrency(t *testing.T) {
	svc := &stubPlanService{}
	body := `{"name":"Pro","price_monthly":15000,"price_yearly":150000,"billing_currency":"BTC"}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/plans", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	AdminPlanCreate(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminPlanUpdatePreservesIdentity(t *testing.T) {
	planID := uuid.New()
	created := time.Now().UTC().Add(-24 * time.Hour)
	svc := &stubPlanService{found: &models.SubscriptionPlan{
		ID:              planID,
		Name:            "Pro",
		PriceMonthly:    15000,
		PriceYearly:     150000,
		BillingCurrency: enums.CurrencyXOF,
		CreatedAt:       created,
	}}

	body := `{"name":"Pro Plus","price_monthly":20000,"price_yearly":200000}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/billing/plans/"+planID.String(), strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = withURLParam(req, "planId", planID.String())

	resp := httptest.NewRecorder()
	AdminPlanUpdate(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.updated == nil {
		t.Fatal("expected update to be called")
	}
	if svc.updated.ID != planID {
		t.Fatalf("expected plan id preserved, got %s", svc.updated.ID)
	}
	if !svc.updated.CreatedAt.Equal(created) {
		t.Fatalf("expected created_at preserved, got %s", svc.updated.CreatedAt)
	}
	if svc.updated.Name != "Pro Plus" {
		t.Fatalf("unexpected name: %q", svc.updated.Name)
	}
}

func TestAdminPlanUpdateInvalidID(t *testing.T) {
	svc := &stubPlanService{}
	req := httptest.NewRequest(http.MethodPut, "/api/v1/billing/plans/not-a-uuid", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req = withURLParam(req, "planId", "not-a-uuid")

	resp := httptest.NewRecorder()
	AdminPlanUpdate(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminPlanUpdateNotFound(t *testing.T) {
	planID := uuid.New()
	svc := &stubPlanService{err: pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")}

	req := httptest.NewRequest(http.MethodPut, "/api/v1/billing/plans/"+planID.String(), strings.NewReader(`{"name":"Pro","price_monthly":1,"price_yearly":1}`))
	req.Header.Set("Content-Type", "application/json")
	req = withURLParam(req, "planId", planID.String())

	resp := httptest.NewRecorder()
	AdminPlanUpdate(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
