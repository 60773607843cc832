package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/movemarket-backend/internal/bids"
	"github.com/angelmondragon/movemarket-backend/internal/cron"
	"github.com/angelmondragon/movemarket-backend/internal/notifications"
	"github.com/angelmondragon/movemarket-backend/internal/quotations"
	"github.com/angelmondragon/movemarket-backend/internal/suppliers"
	"github.com/angelmondragon/movemarket-backend/pkg/config"
	"github.com/angelmondragon/movemarket-backend/pkg/db"
	"github.com/angelmondragon/movemarket-backend/pkg/instance"
	"github.com/angelmondragon/movemarket-backend/pkg/logger"
	"github.com/angelmondragon/movemarket-backend/pkg/metrics"
	"github.com/angelmondragon/movemarket-backend/pkg/migrate"
	"github.com/angelmondragon/movemarket-backend/pkg/outbox"
	"github.com/angelmondragon/movemarket-backend/pkg/redis"
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

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), cfg.Cron.Interval)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry, err := buildRegistry(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to build cron jobs", err)
		os.Exit(1)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metricsCollector,
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
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
		"instance":    instance.GetID(),
	})
	metrics.Serve(ctx, cfg.App.MetricsAddr, prometheus.DefaultGatherer, logg)
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	conn := dbClient.DB()
	ledgers := bids.NewRepository(conn)
	outboxRepo := outbox.NewRepository(conn)
	emitter := outbox.NewService(outboxRepo, logg)

	release, err := cron.NewPaymentReleaseJob(cron.PaymentReleaseJobParams{
		Logger:     logg,
		DB:         dbClient,
		Ledgers:    ledgers,
		Suppliers:  suppliers.NewRepository(conn),
		Outbox:     emitter,
		AdminEmail: cfg.Admin.Primary(),
		Hold:       cfg.Cron.EscrowHold,
		Currency:   cfg.Stripe.Currency,
		PublicURL:  cfg.App.PublicURL,
	})
	if err != nil {
		return nil, err
	}
	review, err := cron.NewReviewRequestJob(cron.ReviewRequestJobParams{
		Logger:      logg,
		DB:          dbClient,
		Ledgers:     ledgers,
		Quotations:  quotations.NewRepository(conn),
		Outbox:      emitter,
		WindowStart: cfg.Cron.ReviewWindowStart,
		WindowEnd:   cfg.Cron.ReviewWindowEnd,
		PublicURL:   cfg.App.PublicURL,
	})
	if err != nil {
		return nil, err
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:      logg,
		DB:          dbClient,
		Repository:  outboxRepo,
		MinAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return nil, err
	}
	cleanup, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: notifications.NewRepository(conn),
	})
	if err != nil {
		return nil, err
	}
	return cron.NewRegistry(release, review, retention, cleanup)
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return "cron-worker:" + env
}
