package billing

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/kbrayane/immoflow-backend/api/responses"
	"github.com/kbrayane/immoflow-backend/api/validators"
	"github.com/kbrayane/immoflow-backend/pkg/db/models"
	"github.com/kbrayane/immoflow-backend/pkg/enums"
	pkgerrors "github.com/kbrayane/immoflow-backend/pkg/errors"
	"github.com/kbrayane/immoflow-backend/pkg/logger"
)

// PlanService describes the subscription plan methods used by the HTTP controllers.
type PlanService interface {
	List(ctx context.Context) ([]models.SubscriptionPlan, error)
	Find(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error)
	Create(ctx context.Context, plan *models.SubscriptionPlan) error
	Update(ctx context.Context, plan *models.SubscriptionPlan) error
}

type planResponse struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	PriceMonthly    int64    `json:"price_monthly"`
	PriceYearly     int64    `json:"price_yearly"`
	BillingCurrency string   `json:"billing_currency"`
	IsDefault       bool     `json:"is_default"`
	Features        []string `json:"features"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
}

type planListResponse struct {
	Plans []planResponse `json:"plans"`
}

type planUpsertRequest struct {
	Name            string   `json:"name" validate:"required"`
	PriceMonthly    *int64   `json:"price_monthly" validate:"required"`
	PriceYearly     *int64   `json:"price_yearly" validate:"required"`
	BillingCurrency string   `json:"billing_currency"`
	IsDefault       *bool    `json:"is_default"`
	Features        []string `json:"features"`
}

func PlansList(svc PlanService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan service unavailable"))
			return
		}

		plans, err := svc.List(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, planListResponse{Plans: plansToResponse(plans)})
	}
}

func AdminPlanCreate(svc PlanService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan service unavailable"))
			return
		}

		var payload planUpsertRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		plan, err := buildPlanFromRequest(payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Create(ctx, plan); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, planToResponse(plan))
	}
}

func AdminPlanUpdate(svc PlanService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan service unavailable"))
			return
		}

		planID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "planId")))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid plan id"))
			return
		}

		existing, err := svc.Find(ctx, planID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload planUpsertRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		plan, err := buildPlanFromRequest(payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		plan.ID = existing.ID
		plan.CreatedAt = existing.CreatedAt

		if err := svc.Update(ctx, plan); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		updated, err := svc.Find(ctx, planID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, planToResponse(updated))
	}
}

func plansToResponse(plans []models.SubscriptionPlan) []planResponse {
	result := make([]planResponse, 0, len(plans))
	for _, plan := range plans {
		result = append(result, planToResponse(&plan))
	}
	return result
}

func planToResponse(plan *models.SubscriptionPlan) planResponse {
	features := make([]string, len(plan.Features))
	copy(features, plan.Features)

	return planResponse{
		ID:              plan.ID.String(),
		Name:            plan.Name,
		PriceMonthly:    plan.PriceMonthly,
		PriceYearly:     plan.PriceYearly,
		BillingCurrency: string(plan.BillingCurrency),
		IsDefault:       plan.IsDefault,
		Features:        features,
		CreatedAt:       plan.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       plan.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func buildPlanFromRequest(payload planUpsertRequest) (*models.SubscriptionPlan, error) {
	name := validators.SanitizeString(payload.Name, 120)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if *payload.PriceMonthly < 0 || *payload.PriceYearly < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan prices must be non-negative")
	}

	currency := enums.CurrencyXOF
	if trimmed := strings.TrimSpace(payload.BillingCurrency); trimmed != "" {
		parsed, err := enums.ParseCurrency(trimmed)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid billing currency")
		}
		currency = parsed
	}

	isDefault := false
	if payload.IsDefault != nil {
		isDefault = *payload.IsDefault
	}

	return &models.SubscriptionPlan{
		Name:            name,
		PriceMonthly:    *payload.PriceMonthly,
		PriceYearly:     *payload.PriceYearly,
		BillingCurrency: currency,
		IsDefault:       isDefault,
		Features:        pq.StringArray(payload.Features),
	}, nil
}
