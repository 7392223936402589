package billing

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kbrayane/immoflow-backend/api/responses"
	"github.com/kbrayane/immoflow-backend/api/validators"
	"github.com/kbrayane/immoflow-backend/internal/withdrawals"
	"github.com/kbrayane/immoflow-backend/pkg/db/models"
	"github.com/kbrayane/immoflow-backend/pkg/enums"
	pkgerrors "github.com/kbrayane/immoflow-backend/pkg/errors"
	"github.com/kbrayane/immoflow-backend/pkg/logger"
	"github.com/kbrayane/immoflow-backend/pkg/pagination"
)

// WithdrawalService is the withdrawal surface used by the HTTP controllers.
type WithdrawalService interface {
	AvailableBalance(ctx context.Context, agencyID uuid.UUID) (int64, error)
	Create(ctx context.Context, in withdrawals.CreateInput) (*models.WithdrawalRequest, error)
	Cancel(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error)
	Process(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error)
	ListByAgency(ctx context.Context, params withdrawals.ListQuery) ([]models.WithdrawalRequest, *pagination.Cursor, error)
	Find(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error)
}

type withdrawalCreateRequest struct {
	Amount         int64  `json:"amount" validate:"required,min=1"`
	RecipientPhone string `json:"recipient_phone" validate:"required"`
	RecipientName  string `json:"recipient_name"`
	PaymentMethod  string `json:"payment_method" validate:"required"`
	Notes          string `json:"notes"`
}

type withdrawalResponse struct {
	ID              string `json:"id"`
	AgencyID        string `json:"agency_id"`
	Amount          int64  `json:"amount"`
	RecipientPhone  string `json:"recipient_phone"`
	RecipientName   string `json:"recipient_name,omitempty"`
	PaymentMethod   string `json:"payment_method"`
	Status          string `json:"status"`
	Notes           string `json:"notes,omitempty"`
	FailureReason   string `json:"failure_reason,omitempty"`
	PayoutReference string `json:"payout_reference,omitempty"`
	CreatedAt       string `json:"created_at"`
	ProcessedAt     string `json:"processed_at,omitempty"`
}

type withdrawalListResponse struct {
	Withdrawals []withdrawalResponse `json:"withdrawals"`
	NextCursor  string               `json:"next_cursor,omitempty"`
}

type balanceResponse struct {
	AgencyID  string `json:"agency_id"`
	Available int64  `json:"available"`
	Currency  string `json:"currency"`
}

func Balance(svc WithdrawalService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawal service unavailable"))
			return
		}

		agencyID, err := agencyFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		available, err := svc.AvailableBalance(ctx, agencyID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, balanceResponse{
			AgencyID:  agencyID.String(),
			Available: available,
			Currency:  string(enums.CurrencyXOF),
		})
	}
}

func WithdrawalCreate(svc WithdrawalService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawal service unavailable"))
			return
		}

		agencyID, err := agencyFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload withdrawalCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(strings.TrimSpace(payload.PaymentMethod))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		created, err := svc.Create(ctx, withdrawals.CreateInput{
			AgencyID:       agencyID,
			Amount:         payload.Amount,
			RecipientPhone: validators.SanitizeString(payload.RecipientPhone, 32),
			RecipientName:  validators.SanitizeString(payload.RecipientName, 120),
			PaymentMethod:  method,
			Notes:          validators.SanitizeString(payload.Notes, 500),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, withdrawalToResponse(created))
	}
}

func WithdrawalList(svc WithdrawalService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawal service unavailable"))
			return
		}

		agencyID, err := agencyFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		cursor, err := pagination.ParseCursor(r.URL.Query().Get("cursor"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor"))
			return
		}

		var status *enums.WithdrawalStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, parseErr := enums.ParseWithdrawalStatus(raw)
			if parseErr != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status"))
				return
			}
			status = &parsed
		}

		rows, next, err := svc.ListByAgency(ctx, withdrawals.ListQuery{
			AgencyID: agencyID,
			Status:   status,
			Limit:    limit,
			Cursor:   cursor,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp := withdrawalListResponse{Withdrawals: withdrawalsToResponse(rows)}
		if next != nil {
			resp.NextCursor = pagination.EncodeCursor(*next)
		}
		responses.WriteSuccess(w, resp)
	}
}

func WithdrawalCancel(svc WithdrawalService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawal service unavailable"))
			return
		}

		agencyID, err := agencyFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "withdrawalId")))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid withdrawal id"))
			return
		}

		existing, err := svc.Find(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if existing.AgencyID != agencyID {
			// Do not leak other agencies' withdrawal ids.
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal request not found"))
			return
		}

		canceled, err := svc.Cancel(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, withdrawalToResponse(canceled))
	}
}

// WithdrawalProcess dispatches one pending request to the payout rails. The
// route sits behind the superadmin role: operators trigger processing, the
// requesting agency never does.
func WithdrawalProcess(svc WithdrawalService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawal service unavailable"))
			return
		}

		id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "withdrawalId")))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid withdrawal id"))
			return
		}

		processed, err := svc.Process(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, withdrawalToResponse(processed))
	}
}

func withdrawalsToResponse(rows []models.WithdrawalRequest) []withdrawalResponse {
	result := make([]withdrawalResponse, 0, len(rows))
	for _, row := range rows {
		result = append(result, withdrawalToResponse(&row))
	}
	return result
}

func withdrawalToResponse(row *models.WithdrawalRequest) withdrawalResponse {
	resp := withdrawalResponse{
		ID:             row.ID.String(),
		AgencyID:       row.AgencyID.String(),
		Amount:         row.Amount,
		RecipientPhone: row.RecipientPhone,
		PaymentMethod:  string(row.PaymentMethod),
		Status:         string(row.Status),
		CreatedAt:      row.CreatedAt.UTC().Format(time.RFC3339),
	}
	if row.RecipientName != nil {
		resp.RecipientName = *row.RecipientName
	}
	if row.Notes != nil {
		resp.Notes = *row.Notes
	}
	if row.FailureReason != nil {
		resp.FailureReason = *row.FailureReason
	}
	if row.PayoutReference != nil {
		resp.PayoutReference = *row.PayoutReference
	}
	if row.ProcessedAt != nil {
		resp.ProcessedAt = row.ProcessedAt.UTC().Format(time.RFC3339)
	}
	return resp
}
