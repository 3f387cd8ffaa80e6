package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/pos-backend/internal/cron"
	"github.com/angelmondragon/pos-backend/internal/engine"
	"github.com/angelmondragon/pos-backend/pkg/config"
	"github.com/angelmondragon/pos-backend/pkg/db"
	"github.com/angelmondragon/pos-backend/pkg/logger"
	"github.com/angelmondragon/pos-backend/pkg/metrics"
	"github.com/angelmondragon/pos-backend/pkg/migrate"
	"github.com/angelmondragon/pos-backend/pkg/redis"
)

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

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
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

	eng, err := engine.New(engine.Params{
		Config: cfg,
		Logger: logg,
		DB:     dbClient,
		Redis:  redisClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to wire engine", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient.Raw(), redisClient.LockKey("cron"), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry, err := buildRegistry(cfg, logg, dbClient, eng)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"interval":    cfg.Cron.Interval.String(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, eng *engine.Engine) (*cron.Registry, error) {
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:        logg,
		DB:            dbClient,
		Repository:    eng.OutboxRepo,
		RetentionDays: cfg.Cron.OutboxRetentionDays,
		MinAttempts:   cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return nil, err
	}
	audit, err := cron.NewLedgerAuditJob(cron.LedgerAuditJobParams{Logger: logg, Ledger: eng.Inventory})
	if err != nil {
		return nil, err
	}
	lowStock, err := cron.NewLowStockScanJob(cron.LowStockScanJobParams{Logger: logg, Inventory: eng.Inventory})
	if err != nil {
		return nil, err
	}

	registry := cron.NewRegistry()
	for _, job := range []cron.Job{retention, audit, lowStock} {
		if err := registry.Register(job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
