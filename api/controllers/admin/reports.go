package admin

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/kbrayane/immoflow-backend/api/responses"
	"github.com/kbrayane/immoflow-backend/internal/transactions"
	"github.com/kbrayane/immoflow-backend/internal/withdrawals"
	pkgerrors "github.com/kbrayane/immoflow-backend/pkg/errors"
	"github.com/kbrayane/immoflow-backend/pkg/logger"
)

// RevenueReporter aggregates completed transaction revenue.
type RevenueReporter interface {
	RevenueSummary(ctx context.Context, query transactions.ReportQuery) ([]transactions.RevenueRow, error)
	SuccessRate(ctx context.Context, since time.Time) (transactions.SuccessRateReport, error)
}

// WithdrawalReporter aggregates withdrawal requests by status.
type WithdrawalReporter interface {
	StatusSummary(ctx context.Context) ([]withdrawals.StatusRow, error)
}

type revenueRowResponse struct {
	PlanID        string `json:"plan_id"`
	PaymentMethod string `json:"payment_method"`
	Currency      string `json:"currency"`
	TotalAmount   int64  `json:"total_amount"`
	Count         int64  `json:"count"`
}

type revenueReportResponse struct {
	From        string               `json:"from,omitempty"`
	To          string               `json:"to,omitempty"`
	Rows        []revenueRowResponse `json:"rows"`
	SuccessRate *successRateResponse `json:"success_rate,omitempty"`
}

type successRateResponse struct {
	Since     string  `json:"since"`
	Completed int64   `json:"completed"`
	Total     int64   `json:"total"`
	Rate      float64 `json:"rate"`
}

type withdrawalStatusRowResponse struct {
	Status      string `json:"status"`
	Count       int64  `json:"count"`
	TotalAmount int64  `json:"total_amount"`
}

type withdrawalReportResponse struct {
	Rows []withdrawalStatusRowResponse `json:"rows"`
}

func RevenueReport(svc RevenueReporter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transaction service unavailable"))
			return
		}

		query, err := parseReportWindow(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		rows, err := svc.RevenueSummary(ctx, query)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp := revenueReportResponse{Rows: make([]revenueRowResponse, 0, len(rows))}
		if !query.From.IsZero() {
			resp.From = query.From.UTC().Format(time.RFC3339)
		}
		if !query.To.IsZero() {
			resp.To = query.To.UTC().Format(time.RFC3339)
		}
		for _, row := range rows {
			resp.Rows = append(resp.Rows, revenueRowResponse{
				PlanID:        row.PlanID.String(),
				PaymentMethod: string(row.PaymentMethod),
				Currency:      string(row.Currency),
				TotalAmount:   row.TotalAmount,
				Count:         row.Count,
			})
		}

		if !query.From.IsZero() {
			rate, rateErr := svc.SuccessRate(ctx, query.From)
			if rateErr != nil {
				responses.WriteError(ctx, logg, w, rateErr)
				return
			}
			resp.SuccessRate = &successRateResponse{
				Since:     rate.Since.UTC().Format(time.RFC3339),
				Completed: rate.Completed,
				Total:     rate.Total,
				Rate:      rate.Rate,
			}
		}

		responses.WriteSuccess(w, resp)
	}
}

func WithdrawalReport(svc WithdrawalReporter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawal service unavailable"))
			return
		}

		rows, err := svc.StatusSummary(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp := withdrawalReportResponse{Rows: make([]withdrawalStatusRowResponse, 0, len(rows))}
		for _, row := range rows {
			resp.Rows = append(resp.Rows, withdrawalStatusRowResponse{
				Status:      string(row.Status),
				Count:       row.Count,
				TotalAmount: row.TotalAmount,
			})
		}

		responses.WriteSuccess(w, resp)
	}
}

func parseReportWindow(r *http.Request) (transactions.ReportQuery, error) {
	var query transactions.ReportQuery

	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return query, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid from timestamp")
		}
		query.From = from
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return query, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid to timestamp")
		}
		query.To = to
	}
	if !query.From.IsZero() && !query.To.IsZero() && query.To.Before(query.From) {
		return query, pkgerrors.New(pkgerrors.CodeValidation, "report window ends before it starts")
	}
	return query, nil
}
