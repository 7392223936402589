package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kbrayane/immoflow-backend/internal/transactions"
	"github.com/kbrayane/immoflow-backend/internal/withdrawals"
	"github.com/kbrayane/immoflow-backend/pkg/enums"
	pkgerrors "github.com/kbrayane/immoflow-backend/pkg/errors"
)

type stubRevenueReporter struct {
	rows []transactions.RevenueRow
	rate transactions.SuccessRateReport
	err  error

	gotQuery transactions.ReportQuery
	gotSince time.Time
}

func (s *stubRevenueReporter) RevenueSummary(ctx context.Context, query transactions.ReportQuery) ([]transactions.RevenueRow, error) {
	s.gotQuery = query
	return s.rows, s.err
}

func (s *stubRevenueReporter) SuccessRate(ctx context.Context, since time.Time) (transactions.SuccessRateReport, error) {
	s.gotSince = since
	return s.rate, s.err
}

type stubWithdrawalReporter struct {
	rows []withdrawals.StatusRow
	err  error
}

func (s stubWithdrawalReporter) StatusSummary(ctx context.Context) ([]withdrawals.StatusRow, error) {
	return s.rows, s.err
}

func TestRevenueReportWithWindow(t *testing.T) {
	planID := uuid.New()
	from := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	svc := &stubRevenueReporter{
		rows: []transactions.RevenueRow{{
			PlanID:        planID,
			PaymentMethod: enums.PaymentMethodWave,
			Currency:      enums.CurrencyXOF,
			TotalAmount:   45000,
			Count:         3,
		}},
		rate: transactions.SuccessRateReport{Since: from, Completed: 3, Total: 4, Rate: 0.75},
	}

	target := "/api/v1/admin/reports/revenue?from=" + from.Format(time.RFC3339) + "&to=" + to.Format(time.RFC3339)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	resp := httptest.NewRecorder()
	RevenueReport(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if !svc.gotQuery.From.Equal(from) || !svc.gotQuery.To.Equal(to) {
		t.Fatalf("unexpected window: %+v", svc.gotQuery)
	}
	if !svc.gotSince.Equal(from) {
		t.Fatalf("success rate window should start at from, got %s", svc.gotSince)
	}

	var envelope struct {
		Data revenueReportResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(envelope.Data.Rows))
	}
	if envelope.Data.Rows[0].PlanID != planID.String() || envelope.Data.Rows[0].TotalAmount != 45000 {
		t.Fatalf("unexpected row: %+v", envelope.Data.Rows[0])
	}
	if envelope.Data.SuccessRate == nil || envelope.Data.SuccessRate.Rate != 0.75 {
		t.Fatalf("unexpected success rate: %+v", envelope.Data.SuccessRate)
	}
}

func TestRevenueReportWithoutWindow(t *testing.T) {
	svc := &stubRevenueReporter{}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/reports/revenue", nil)
	resp := httptest.NewRecorder()
	RevenueReport(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data revenueReportResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.SuccessRate != nil {
		t.Fatal("success rate needs an explicit from bound")
	}
	if envelope.Data.Rows == nil || len(envelope.Data.Rows) != 0 {
		t.Fatalf("expected empty rows, got %v", envelope.Data.Rows)
	}
}

func TestRevenueReportRejectsInvertedWindow(t *testing.T) {
	svc := &stubRevenueReporter{}

	target := "/api/v1/admin/reports/revenue?from=2026-02-01T00:00:00Z&to=2026-01-01T00:00:00Z"
	req := httptest.NewRequest(http.MethodGet, target, nil)
	resp := httptest.NewRecorder()
	RevenueReport(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRevenueReportRejectsBadTimestamp(t *testing.T) {
	svc := &stubRevenueReporter{}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/reports/revenue?from=yesterday", nil)
	resp := httptest.NewRecorder()
	RevenueReport(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestWithdrawalReport(t *testing.T) {
	svc := stubWithdrawalReporter{rows: []withdrawals.StatusRow{
		{Status: enums.WithdrawalStatusPending, Count: 2, TotalAmount: 50000},
		{Status: enums.WithdrawalStatusCompleted, Count: 5, TotalAmount: 120000},
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/reports/withdrawals", nil)
	resp := httptest.NewRecorder()
	WithdrawalReport(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data withdrawalReportResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(envelope.Data.Rows))
	}
	if envelope.Data.Rows[0].Status != "pending" || envelope.Data.Rows[1].TotalAmount != 120000 {
		t.Fatalf("unexpected rows: %+v", envelope.Data.Rows)
	}
}

func TestWithdrawalReportServiceError(t *testing.T) {
	svc := stubWithdrawalReporter{err: pkgerrors.New(pkgerrors.CodeInternal, "db down")}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/reports/withdrawals", nil)
	resp := httptest.NewRecorder()
	WithdrawalReport(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}
