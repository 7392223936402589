package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kbrayane/immoflow-backend/api/controllers"
	admincontrollers "github.com/kbrayane/immoflow-backend/api/controllers/admin"
	billingcontrollers "github.com/kbrayane/immoflow-backend/api/controllers/billing"
	webhookcontrollers "github.com/kbrayane/immoflow-backend/api/controllers/webhooks"
	"github.com/kbrayane/immoflow-backend/api/middleware"
	"github.com/kbrayane/immoflow-backend/pkg/config"
	"github.com/kbrayane/immoflow-backend/pkg/enums"
	"github.com/kbrayane/immoflow-backend/pkg/logger"
	pkgredis "github.com/kbrayane/immoflow-backend/pkg/redis"
)

// Services groups everything the router hands to its controllers.
type Services struct {
	Plans             billingcontrollers.PlanService
	Checkout          billingcontrollers.CheckoutService
	Withdrawals       billingcontrollers.WithdrawalService
	RevenueReports    admincontrollers.RevenueReporter
	WithdrawalReports admincontrollers.WithdrawalReporter
	PaymentsWebhook   webhookcontrollers.PaymentsWebhookService
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *pkgredis.Client,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": dbP,
			"redis":    redisClient,
		}))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payments/{provider}", webhookcontrollers.PaymentsWebhook(svcs.PaymentsWebhook, cfg.Providers, logg))
	})

	r.Route("/api/v1/billing", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/plans", billingcontrollers.PlansList(svcs.Plans, logg))

		// Idempotency sits behind the authorization middlewares so replay
		// windows only ever hold responses issued to permitted callers.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.UserRoleSuperadmin), logg))
			r.Use(middleware.Idempotency(redisClient, logg))
			r.Post("/plans", billingcontrollers.AdminPlanCreate(svcs.Plans, logg))
			r.Put("/plans/{planId}", billingcontrollers.AdminPlanUpdate(svcs.Plans, logg))
			r.Post("/withdrawals/{withdrawalId}/process", billingcontrollers.WithdrawalProcess(svcs.Withdrawals, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.AgencyContext(logg))
			r.Use(middleware.Idempotency(redisClient, logg))
			r.Get("/proration", billingcontrollers.ProrationPreview(svcs.Checkout, logg))
			r.Post("/checkout", billingcontrollers.Checkout(svcs.Checkout, logg))
			r.Get("/balance", billingcontrollers.Balance(svcs.Withdrawals, logg))
			r.Post("/withdrawals", billingcontrollers.WithdrawalCreate(svcs.Withdrawals, logg))
			r.Get("/withdrawals", billingcontrollers.WithdrawalList(svcs.Withdrawals, logg))
			r.Post("/withdrawals/{withdrawalId}/cancel", billingcontrollers.WithdrawalCancel(svcs.Withdrawals, logg))
		})
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(string(enums.UserRoleSuperadmin), logg))
		r.Route("/reports", func(r chi.Router) {
			r.Get("/revenue", admincontrollers.RevenueReport(svcs.RevenueReports, logg))
			r.Get("/withdrawals", admincontrollers.WithdrawalReport(svcs.WithdrawalReports, logg))
		})
	})

	return r
}
