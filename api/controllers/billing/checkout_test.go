package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/kbrayane/immoflow-backend/api/middleware"
	checkoutsvc "github.com/kbrayane/immoflow-backend/internal/checkout"
	"github.com/kbrayane/immoflow-backend/internal/proration"
	"github.com/kbrayane/immoflow-backend/pkg/enums"
	pkgerrors "github.com/kbrayane/immoflow-backend/pkg/errors"
)

type stubCheckoutService struct {
	result    *checkoutsvc.Result
	prorated  *proration.Result
	amountDue int64
	err       error

	gotAgency uuid.UUID
	gotInput  checkoutsvc.Input
}

func (s *stubCheckoutService) Checkout(ctx context.Context, agencyID uuid.UUID, in checkoutsvc.Input) (*checkoutsvc.Result, error) {
	s.gotAgency = agencyID
	s.gotInput = in
	return s.result, s.err
}

func (s *stubCheckoutService) PreviewProration(ctx context.Context, agencyID, planID uuid.UUID, cycle enums.BillingCycle) (*proration.Result, int64, error) {
	s.gotAgency = agencyID
	return s.prorated, s.amountDue, s.err
}

func withAgency(r *http.Request, agencyID uuid.UUID) *http.Request {
	return r.WithContext(middleware.WithAgencyID(r.Context(), agencyID.String()))
}

func TestCheckoutRedirect(t *testing.T) {
	agencyID := uuid.New()
	planID := uuid.New()
	txID := uuid.New()
	svc := &stubCheckoutService{result: &checkoutsvc.Result{
		Outcome:       enums.CheckoutOutcomeRedirect,
		RedirectURL:   "https://pay.example/redir",
		Reference:     "ref-123",
		TransactionID: &txID,
		AmountDue:     15000,
	}}

	body := `{"plan_id":"` + planID.String() + `","billing_cycle":"monthly","payment_method":"wave","customer_phone":" +2250700000000 "}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/checkout", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = withAgency(req, agencyID)

	resp := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.gotAgency != agencyID {
		t.Fatalf("expected agency %s, got %s", agencyID, svc.gotAgency)
	}
	if svc.gotInput.PlanID != planID || svc.gotInput.Cycle != enums.BillingCycleMonthly || svc.gotInput.Method != enums.PaymentMethodWave {
		t.Fatalf("unexpected input: %+v", svc.gotInput)
	}
	if svc.gotInput.CustomerPhone != "+2250700000000" {
		t.Fatalf("expected trimmed phone, got %q", svc.gotInput.CustomerPhone)
	}

	var envelope struct {
		Data checkoutsvc.Result `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Outcome != enums.CheckoutOutcomeRedirect {
		t.Fatalf("unexpected outcome: %s", envelope.Data.Outcome)
	}
	if envelope.Data.RedirectURL != "https://pay.example/redir" {
		t.Fatalf("unexpected redirect url: %s", envelope.Data.RedirectURL)
	}
}

func TestCheckoutRequiresAgencyContext(t *testing.T) {
	svc := &stubCheckoutService{}
	body := `{"plan_id":"` + uuid.NewString() + `","billing_cycle":"monthly","payment_method":"wave"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/checkout", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestCheckoutRejectsUnknownCycle(t *testing.T) {
	svc := &stubCheckoutService{}
	body := `{"plan_id":"` + uuid.NewString() + `","billing_cycle":"weekly","payment_method":"wave"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/checkout", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = withAgency(req, uuid.New())

	resp := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCheckoutPropagatesServiceError(t *testing.T) {
	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "a checkout is already in flight")}
	body := `{"plan_id":"` + uuid.NewString() + `","billing_cycle":"monthly","payment_method":"orange_money"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/checkout", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = withAgency(req, uuid.New())

	resp := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestProrationPreview(t *testing.T) {
	agencyID := uuid.New()
	svc := &stubCheckoutService{
		prorated: &proration.Result{
			RemainingDays:       10,
			TotalDays:           30,
			RemainingPercentage: 33.34,
			CurrentPlanCredit:   5000,
			NewPlanProrataCost:  6667,
			AmountDue:           1667,
		},
		amountDue: 1667,
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/proration?plan_id="+uuid.NewString(), nil)
	req = withAgency(req, agencyID)

	resp := httptest.NewRecorder()
	ProrationPreview(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data prorationPreviewResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.AmountDue != 1667 {
		t.Fatalf("unexpected amount due: %d", envelope.Data.AmountDue)
	}
	if envelope.Data.Proration == nil || envelope.Data.Proration.RemainingDays != 10 {
		t.Fatalf("unexpected proration: %+v", envelope.Data.Proration)
	}
}

func TestProrationPreviewFullPrice(t *testing.T) {
	// A nil proration result means no credit applies and the full price is due.
	svc := &stubCheckoutService{amountDue: 15000}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/proration?plan_id="+uuid.NewString()+"&billing_cycle=yearly", nil)
	req = withAgency(req, uuid.New())

	resp := httptest.NewRecorder()
	ProrationPreview(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data prorationPreviewResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.AmountDue != 15000 {
		t.Fatalf("unexpected amount due: %d", envelope.Data.AmountDue)
	}
	if envelope.Data.Proration != nil {
		t.Fatalf("expected no proration breakdown, got %+v", envelope.Data.Proration)
	}
}

func TestProrationPreviewMissingPlanID(t *testing.T) {
	svc := &stubCheckoutService{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/proration", nil)
	req = withAgency(req, uuid.New())

	resp := httptest.NewRecorder()
	ProrationPreview(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
