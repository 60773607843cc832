package config

// EnvPrefix is the envconfig prefix shared by every binary.
const EnvPrefix = "MOVEMARKET"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv       = "MOVEMARKET_APP_ENV"
	EnvPort         = "MOVEMARKET_APP_PORT"
	EnvLogLevel     = "MOVEMARKET_LOG_LEVEL"
	EnvLogWarnStack = "MOVEMARKET_LOG_WARN_STACK"
	EnvPublicURL    = "MOVEMARKET_PUBLIC_URL"
	EnvMetricsAddr  = "MOVEMARKET_METRICS_ADDR"

	EnvDBDSN      = "MOVEMARKET_DB_DSN"
	EnvDBDriver   = "MOVEMARKET_DB_DRIVER"
	EnvDBHost     = "MOVEMARKET_DB_HOST"
	EnvDBPort     = "MOVEMARKET_DB_PORT"
	EnvDBUser     = "MOVEMARKET_DB_USER"
	EnvDBPassword = "MOVEMARKET_DB_PASSWORD"
	EnvDBName     = "MOVEMARKET_DB_NAME"
	EnvDBSSLMode  = "MOVEMARKET_DB_SSLMODE"

	EnvRedisURL = "MOVEMARKET_REDIS_URL"

	EnvJWTSecret  = "MOVEMARKET_JWT_SECRET"
	EnvJWTIssuer  = "MOVEMARKET_JWT_ISSUER"
	EnvJWTExpMins = "MOVEMARKET_JWT_EXPIRATION_MINUTES"

	EnvStripeSecretKey         = "MOVEMARKET_STRIPE_SECRET_KEY"
	EnvStripePublishableKey    = "MOVEMARKET_STRIPE_PUBLISHABLE_KEY"
	EnvStripeEnv               = "MOVEMARKET_STRIPE_ENV"
	EnvStripeWebhookSecret     = "MOVEMARKET_STRIPE_WEBHOOK_SECRET"
	EnvStripeWebhookSecretTest = "MOVEMARKET_STRIPE_WEBHOOK_SECRET_TEST"
	EnvStripeCurrency          = "MOVEMARKET_STRIPE_CURRENCY"

	EnvSMTPHost     = "MOVEMARKET_SMTP_HOST"
	EnvSMTPPort     = "MOVEMARKET_SMTP_PORT"
	EnvSMTPUser     = "MOVEMARKET_SMTP_USER"
	EnvSMTPPassword = "MOVEMARKET_SMTP_PASSWORD"
	EnvSMTPFrom     = "MOVEMARKET_SMTP_FROM"

	EnvAdminEmails = "MOVEMARKET_ADMIN_EMAILS"

	EnvCronInterval      = "MOVEMARKET_CRON_INTERVAL"
	EnvCronEscrowHold    = "MOVEMARKET_CRON_ESCROW_HOLD"
	EnvOutboxMaxAttempts = "MOVEMARKET_OUTBOX_MAX_ATTEMPTS"

	EnvVerificationTTL = "MOVEMARKET_VERIFICATION_CODE_TTL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
