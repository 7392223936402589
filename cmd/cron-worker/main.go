package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kbrayane/immoflow-backend/internal/cron"
	"github.com/kbrayane/immoflow-backend/internal/transactions"
	"github.com/kbrayane/immoflow-backend/internal/withdrawals"
	"github.com/kbrayane/immoflow-backend/pkg/config"
	"github.com/kbrayane/immoflow-backend/pkg/db"
	"github.com/kbrayane/immoflow-backend/pkg/logger"
	"github.com/kbrayane/immoflow-backend/pkg/metrics"
	"github.com/kbrayane/immoflow-backend/pkg/migrate"
	"github.com/kbrayane/immoflow-backend/pkg/redis"
)

const lockKeyFormat = "immoflow:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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
	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

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

	batchJob, err := cron.NewWithdrawalBatchJob(cron.WithdrawalBatchJobParams{
		Logger:      logg,
		Withdrawals: withdrawalService,
		Metrics:     billingMetrics,
		BatchSize:   cfg.Withdrawals.BatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create withdrawal batch job", err)
		os.Exit(1)
	}

	staleJob, err := cron.NewStalePendingJob(cron.StalePendingJobParams{
		Logger:  logg,
		Ledger:  transactionService,
		Metrics: billingMetrics,
		Cutoff:  cfg.Billing.StalePendingCutoff,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stale pending job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(batchJob, staleJob),
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: cfg.Withdrawals.BatchInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
