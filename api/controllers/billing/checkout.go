package billing

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/kbrayane/immoflow-backend/api/middleware"
	"github.com/kbrayane/immoflow-backend/api/responses"
	"github.com/kbrayane/immoflow-backend/api/validators"
	checkoutsvc "github.com/kbrayane/immoflow-backend/internal/checkout"
	"github.com/kbrayane/immoflow-backend/internal/proration"
	"github.com/kbrayane/immoflow-backend/pkg/enums"
	pkgerrors "github.com/kbrayane/immoflow-backend/pkg/errors"
	"github.com/kbrayane/immoflow-backend/pkg/logger"
)

// CheckoutService starts plan-change checkouts and previews prorations.
type CheckoutService interface {
	Checkout(ctx context.Context, agencyID uuid.UUID, in checkoutsvc.Input) (*checkoutsvc.Result, error)
	PreviewProration(ctx context.Context, agencyID, planID uuid.UUID, cycle enums.BillingCycle) (*proration.Result, int64, error)
}

type checkoutRequest struct {
	PlanID        string `json:"plan_id" validate:"required"`
	BillingCycle  string `json:"billing_cycle" validate:"required"`
	PaymentMethod string `json:"payment_method" validate:"required"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email" validate:"omitempty,email"`
	CustomerPhone string `json:"customer_phone"`
}

type prorationPreviewResponse struct {
	AmountDue int64             `json:"amount_due"`
	Proration *proration.Result `json:"proration,omitempty"`
}

func Checkout(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		agencyID, err := agencyFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		planID, err := uuid.Parse(strings.TrimSpace(payload.PlanID))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid plan id"))
			return
		}
		cycle, err := enums.ParseBillingCycle(strings.TrimSpace(payload.BillingCycle))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid billing cycle"))
			return
		}
		method, err := enums.ParsePaymentMethod(strings.TrimSpace(payload.PaymentMethod))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		result, err := svc.Checkout(ctx, agencyID, checkoutsvc.Input{
			PlanID:        planID,
			Cycle:         cycle,
			Method:        method,
			CustomerName:  validators.SanitizeString(payload.CustomerName, 120),
			CustomerEmail: validators.SanitizeString(payload.CustomerEmail, 254),
			CustomerPhone: validators.SanitizeString(payload.CustomerPhone, 32),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func ProrationPreview(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		agencyID, err := agencyFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		planID, err := uuid.Parse(strings.TrimSpace(r.URL.Query().Get("plan_id")))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid plan_id"))
			return
		}

		cycle := enums.BillingCycleMonthly
		if raw := strings.TrimSpace(r.URL.Query().Get("billing_cycle")); raw != "" {
			cycle, err = enums.ParseBillingCycle(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid billing_cycle"))
				return
			}
		}

		prorated, amountDue, err := svc.PreviewProration(ctx, agencyID, planID, cycle)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, prorationPreviewResponse{
			AmountDue: amountDue,
			Proration: prorated,
		})
	}
}

func agencyFromContext(ctx context.Context) (uuid.UUID, error) {
	raw := middleware.AgencyIDFromContext(ctx)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "agency context missing")
	}
	agencyID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid agency claim")
	}
	return agencyID, nil
}
