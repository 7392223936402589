package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kbrayane/immoflow-backend/api/routes"
	"github.com/kbrayane/immoflow-backend/internal/checkout"
	"github.com/kbrayane/immoflow-backend/internal/plans"
	"github.com/kbrayane/immoflow-backend/internal/providers"
	"github.com/kbrayane/immoflow-backend/internal/subscriptions"
	"github.com/kbrayane/immoflow-backend/internal/transactions"
	paymentswebhook "github.com/kbrayane/immoflow-backend/internal/webhooks/payments"
	"github.com/kbrayane/immoflow-backend/internal/withdrawals"
	"github.com/kbrayane/immoflow-backend/pkg/config"
	"github.com/kbrayane/immoflow-backend/pkg/db"
	"github.com/kbrayane/immoflow-backend/pkg/enums"
	"github.com/kbrayane/immoflow-backend/pkg/logger"
	"github.com/kbrayane/immoflow-backend/pkg/metrics"
	"github.com/kbrayane/immoflow-backend/pkg/migrate"
	"github.com/kbrayane/immoflow-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	billingMetrics := metrics.NewBillingMetrics(prometheus.DefaultRegisterer)

	planService, err := plans.NewService(plans.ServiceParams{
		Repo: plans.NewRepository(dbClient.DB()),
		Tx:   dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create plan service", err)
		os.Exit(1)
	}

	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Repo: subscriptions.NewRepository(dbClient.DB()),
		Tx:   dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription service", err)
		os.Exit(1)
	}

	transactionService, err := transactions.NewService(transactions.ServiceParams{
		Repo: transactions.NewRepository(dbClient.DB()),
		Tx:   dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create transaction service", err)
		os.Exit(1)
	}

	withdrawalService, err := withdrawals.NewService(withdrawals.ServiceParams{
		Repo:   withdrawals.NewRepository(dbClient.DB()),
		Tx:     dbClient,
		Payout: withdrawals.UnimplementedPayoutClient{},
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create withdrawal service", err)
		os.Exit(1)
	}

	registry, err := providers.NewRegistry(cfg.Providers)
	if err != nil {
		logg.Error(context.Background(), "failed to create provider registry", err)
		os.Exit(1)
	}

	currency, err := enums.ParseCurrency(cfg.Billing.Currency)
	if err != nil {
		logg.Error(context.Background(), "invalid billing currency", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Plans:         planService,
		Subscriptions: subscriptionService,
		Ledger:        transactionService,
		Registry:      registry,
		Dispatcher:    providers.UnimplementedDispatcher{},
		Metrics:       billingMetrics,
		Currency:      currency,
		ReturnURL:     cfg.Billing.ReturnURL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	webhookService, err := paymentswebhook.NewService(paymentswebhook.ServiceParams{
		Ledger:        transactionService,
		Plans:         planService,
		Subscriptions: subscriptionService,
		Guard:         redisClient,
		Metrics:       billingMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, routes.Services{
			Plans:             planService,
			Checkout:          checkoutService,
			Withdrawals:       withdrawalService,
			RevenueReports:    transactionService,
			WithdrawalReports: withdrawalService,
			PaymentsWebhook:   webhookService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
