package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/movemarket-backend/internal/fanout"
	"github.com/angelmondragon/movemarket-backend/internal/notifications"
	"github.com/angelmondragon/movemarket-backend/pkg/config"
	"github.com/angelmondragon/movemarket-backend/pkg/db"
	"github.com/angelmondragon/movemarket-backend/pkg/instance"
	"github.com/angelmondragon/movemarket-backend/pkg/enums"
	"github.com/angelmondragon/movemarket-backend/pkg/logger"
	"github.com/angelmondragon/movemarket-backend/pkg/mailer"
	"github.com/angelmondragon/movemarket-backend/pkg/metrics"
	"github.com/angelmondragon/movemarket-backend/pkg/migrate"
	"github.com/angelmondragon/movemarket-backend/pkg/outbox"
	"github.com/angelmondragon/movemarket-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/movemarket-backend/pkg/outbox/registry"
	"github.com/angelmondragon/movemarket-backend/pkg/realtime"
	"github.com/angelmondragon/movemarket-backend/pkg/redis"
)

const (
	serviceKind    = "outbox-dispatcher"
	emailMarkerTTL = 7 * 24 * time.Hour
)

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceKind})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = serviceKind

	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
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

	router, err := buildRouter(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to build fanout handlers", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Redis:         redisClient,
		Repository:    outbox.NewRepository(dbClient.DB()),
		Registry:      registry.NewEventRegistry(),
		Handler:       router,
		DLQRepository: outbox.NewDLQRepository(dbClient.DB()),
		Metrics:       metrics.NewDispatchMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox dispatcher", err)
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
	logg.Info(ctx, "starting outbox dispatcher")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox dispatcher stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "outbox dispatcher shutting down gracefully")
}

func buildRouter(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*fanout.Router, error) {
	manager, err := idempotency.NewManager(redisClient, emailMarkerTTL)
	if err != nil {
		return nil, err
	}
	email, err := fanout.NewEmailHandler(mailer.NewSender(cfg.SMTP, logg), manager, logg)
	if err != nil {
		return nil, err
	}
	notification, err := notifications.NewConsumer(notifications.NewRepository(dbClient.DB()), logg)
	if err != nil {
		return nil, err
	}
	publisher, err := realtime.NewRedisBroadcaster(redisClient, cfg.Realtime.Channel)
	if err != nil {
		return nil, err
	}
	broadcast, err := fanout.NewBroadcastHandler(publisher)
	if err != nil {
		return nil, err
	}
	return fanout.NewRouter().
		Register(enums.EventEmailRequested, email).
		Register(enums.EventNotificationRequested, notification).
		Register(enums.EventBroadcastRequested, broadcast), nil
}
