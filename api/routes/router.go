package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/movemarket-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/movemarket-backend/api/controllers/webhooks"
	"github.com/angelmondragon/movemarket-backend/api/middleware"
	"github.com/angelmondragon/movemarket-backend/internal/notifications"
	"github.com/angelmondragon/movemarket-backend/internal/payments"
	"github.com/angelmondragon/movemarket-backend/internal/reviews"
	"github.com/angelmondragon/movemarket-backend/internal/verification"
	"github.com/angelmondragon/movemarket-backend/pkg/config"
	"github.com/angelmondragon/movemarket-backend/pkg/enums"
	"github.com/angelmondragon/movemarket-backend/pkg/logger"
	"github.com/angelmondragon/movemarket-backend/pkg/metrics"
	"github.com/angelmondragon/movemarket-backend/pkg/realtime"
	"github.com/angelmondragon/movemarket-backend/pkg/redis"
)

// rateStore backs both the auth rate limiter and the idempotency middleware.
type rateStore interface {
	redis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

type webhookGuard interface {
	CheckAndMark(ctx context.Context, flow enums.PaymentFlow, eventID string) (bool, error)
	Delete(ctx context.Context, flow enums.PaymentFlow, eventID string) error
}

type signingClient interface {
	SigningSecret() string
}

// Dependencies is everything NewRouter mounts. Nil services answer 500 from
// their handlers rather than panicking.
type Dependencies struct {
	DB    controllers.Pinger
	Redis controllers.Pinger
	Store rateStore

	Gatherer prometheus.Gatherer

	Verification  verification.Service
	Payments      payments.Service
	Reviews       reviews.Service
	Notifications notifications.Service

	StripeClient  signingClient
	StripeWebhook webhookcontrollers.PaymentWebhookService
	WebhookGuard  webhookGuard

	Hub      *realtime.Hub
	Upgrader *websocket.Upgrader
	Rooms    controllers.RoomAuthorizer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	codePolicy := middleware.NewAuthRateLimitPolicy(
		"verification_code",
		cfg.AuthRateLimit.CodeWindow,
		cfg.AuthRateLimit.CodeIPLimit,
		cfg.AuthRateLimit.CodeEmailLimit,
	)
	verifyPolicy := middleware.NewAuthRateLimitPolicy(
		"verify",
		cfg.AuthRateLimit.CodeWindow,
		cfg.AuthRateLimit.CodeIPLimit,
		0,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg,
			controllers.ReadinessCheck{Name: "db", Pinger: deps.DB},
			controllers.ReadinessCheck{Name: "redis", Pinger: deps.Redis},
		))
	})
	r.Handle("/metrics", metrics.Handler(deps.Gatherer))

	r.Route("/api/webhook", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripePaymentWebhook(enums.PaymentFlowCheckout, deps.StripeWebhook, deps.StripeClient, deps.WebhookGuard, logg))
		r.Post("/stripe-partial-payment", webhookcontrollers.StripePaymentWebhook(enums.PaymentFlowPartial, deps.StripeWebhook, deps.StripeClient, deps.WebhookGuard, logg))
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(codePolicy, deps.Store, logg)).Post("/verification-code", controllers.RequestVerificationCode(deps.Verification, logg))
		r.With(middleware.AuthRateLimit(verifyPolicy, deps.Store, logg)).Post("/verify", controllers.VerifyCode(deps.Verification, logg))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Idempotency(deps.Store, logg))
		r.Post("/api/payment/payment-sheet", controllers.CreatePaymentSheet(deps.Payments, logg))
		r.Post("/api/checkout/payment-sheet", controllers.CreateOrderPaymentSheet(deps.Payments, logg))
	})

	r.With(middleware.SocketAuth(cfg.JWT, logg)).Get("/api/realtime/ws", controllers.RealtimeSocket(deps.Hub, deps.Upgrader, deps.Rooms, logg))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Store, logg))

		// flat paths keep the full route pattern visible to Idempotency
		r.Get("/api/notifications", controllers.ListNotifications(deps.Notifications, logg))
		r.Post("/api/notifications/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
		r.Post("/api/notifications/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))

		r.With(middleware.RequireRole(logg, enums.RoleCustomer)).Post("/api/reviews", controllers.SubmitReview(deps.Reviews, logg))
	})

	return r
}
