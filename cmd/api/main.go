package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/movemarket-backend/api/routes"
	"github.com/angelmondragon/movemarket-backend/internal/bids"
	"github.com/angelmondragon/movemarket-backend/internal/ledger"
	"github.com/angelmondragon/movemarket-backend/internal/notifications"
	"github.com/angelmondragon/movemarket-backend/internal/payments"
	"github.com/angelmondragon/movemarket-backend/internal/quotations"
	"github.com/angelmondragon/movemarket-backend/internal/reviews"
	"github.com/angelmondragon/movemarket-backend/internal/rooms"
	"github.com/angelmondragon/movemarket-backend/internal/suppliers"
	"github.com/angelmondragon/movemarket-backend/internal/verification"
	stripewebhook "github.com/angelmondragon/movemarket-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/movemarket-backend/pkg/config"
	"github.com/angelmondragon/movemarket-backend/pkg/db"
	"github.com/angelmondragon/movemarket-backend/pkg/instance"
	"github.com/angelmondragon/movemarket-backend/pkg/logger"
	"github.com/angelmondragon/movemarket-backend/pkg/metrics"
	"github.com/angelmondragon/movemarket-backend/pkg/migrate"
	"github.com/angelmondragon/movemarket-backend/pkg/outbox"
	"github.com/angelmondragon/movemarket-backend/pkg/realtime"
	"github.com/angelmondragon/movemarket-backend/pkg/redis"
	"github.com/angelmondragon/movemarket-backend/pkg/stripe"
)

const (
	serviceKind       = "api"
	webhookMarkerTTL  = 72 * time.Hour
	shutdownGraceTime = 15 * time.Second
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

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, cfg.App, logg)
	if err != nil {
		return err
	}
	gateway, err := stripe.NewGateway(stripeClient)
	if err != nil {
		return err
	}

	gormDB := dbClient.DB()
	bidRepo := bids.NewRepository(gormDB)
	quotationRepo := quotations.NewRepository(gormDB)
	supplierRepo := suppliers.NewRepository(gormDB)
	emitter := outbox.NewService(outbox.NewRepository(gormDB), logg)

	ledgerService, err := ledger.NewService(ledger.NewRepository(gormDB))
	if err != nil {
		return err
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Bids:              bidRepo,
		Quotations:        quotationRepo,
		Suppliers:         supplierRepo,
		Ledger:            ledgerService,
		Outbox:            emitter,
		Gateway:           gateway,
		TransactionRunner: dbClient,
		Metrics:           metrics.NewWebhookMetrics(prometheus.DefaultRegisterer),
		Currency:          stripeClient.Currency(),
		PublicURL:         cfg.App.PublicURL,
		Logger:            logg,
	})
	if err != nil {
		return err
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, webhookMarkerTTL, "stripe-webhook")
	if err != nil {
		return err
	}

	paymentService, err := payments.NewService(payments.ServiceParams{
		Bids:           bidRepo,
		Quotations:     quotationRepo,
		Gateway:        gateway,
		PublishableKey: stripeClient.PublishableKey(),
		Currency:       stripeClient.Currency(),
		Logger:         logg,
	})
	if err != nil {
		return err
	}

	verificationService, err := verification.NewService(verification.ServiceParams{
		Config:    cfg.Verification,
		Password:  cfg.Password,
		JWT:       cfg.JWT,
		Admin:     cfg.Admin,
		DB:        dbClient,
		Outbox:    emitter,
		Suppliers: supplierRepo,
		Logger:    logg,
	})
	if err != nil {
		return err
	}

	reviewService, err := reviews.NewService(reviews.ServiceParams{
		DB:         dbClient,
		Repository: reviews.NewRepository(gormDB),
		Ledgers:    bidRepo,
		Quotations: quotationRepo,
		Outbox:     emitter,
		Logger:     logg,
		PublicURL:  cfg.App.PublicURL,
	})
	if err != nil {
		return err
	}

	notificationService, err := notifications.NewService(notifications.NewRepository(gormDB))
	if err != nil {
		return err
	}

	roomAccess, err := rooms.NewAccess(bidRepo, quotationRepo)
	if err != nil {
		return err
	}

	broadcaster, err := realtime.NewRedisBroadcaster(redisClient, cfg.Realtime.Channel)
	if err != nil {
		return err
	}
	hub := realtime.NewHub(broadcaster, logg)
	go hub.Run(ctx)

	sub, err := redisClient.Subscribe(ctx, cfg.Realtime.Channel)
	if err != nil {
		return err
	}
	defer func() {
		if err := sub.Close(); err != nil {
			logg.Error(context.Background(), "error closing realtime subscription", err)
		}
	}()
	go hub.Consume(ctx, sub.Channel())

	handler := routes.NewRouter(cfg, logg, routes.Dependencies{
		DB:            dbClient,
		Redis:         redisClient,
		Store:         redisClient,
		Gatherer:      prometheus.DefaultGatherer,
		Verification:  verificationService,
		Payments:      paymentService,
		Reviews:       reviewService,
		Notifications: notificationService,
		StripeClient:  stripeClient,
		StripeWebhook: webhookService,
		WebhookGuard:  webhookGuard,
		Hub:           hub,
		Upgrader:      realtime.NewUpgrader(cfg.Realtime.AllowedOrigins),
		Rooms:         roomAccess,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"addr":        addr,
		"instance":    instance.GetID(),
		"serviceKind": cfg.Service.Kind,
		"stripe_env":  stripeClient.Environment(),
	})

	// no WriteTimeout: it would cut long-lived websocket connections
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logg.Info(ctx, "api server shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGraceTime)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
