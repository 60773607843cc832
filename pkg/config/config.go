package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Stripe        StripeConfig
	SMTP          SMTPConfig
	Admin         AdminConfig
	Outbox        OutboxConfig
	Cron          CronConfig
	Realtime      RealtimeConfig
	Verification  VerificationConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MOVEMARKET_APP_ENV" required:"true"`
	Port         string `envconfig:"MOVEMARKET_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MOVEMARKET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MOVEMARKET_LOG_WARN_STACK" default:"false"`
	PublicURL    string `envconfig:"MOVEMARKET_PUBLIC_URL" default:"http://localhost:3000"`
	// MetricsAddr exposes /metrics from the background workers when set.
	MetricsAddr  string   `envconfig:"MOVEMARKET_METRICS_ADDR"`
	CORSOrigins  []string `envconfig:"MOVEMARKET_CORS_ALLOWED_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MOVEMARKET_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MOVEMARKET_DB_DSN"`
	Driver string `envconfig:"MOVEMARKET_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MOVEMARKET_DB_HOST"`
	LegacyPort     int    `envconfig:"MOVEMARKET_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MOVEMARKET_DB_USER"`
	LegacyPassword string `envconfig:"MOVEMARKET_DB_PASSWORD"`
	LegacyName     string `envconfig:"MOVEMARKET_DB_NAME"`
	LegacySSLMode  string `envconfig:"MOVEMARKET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MOVEMARKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MOVEMARKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MOVEMARKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MOVEMARKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MOVEMARKET_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MOVEMARKET_REDIS_ADDR"`
	Password     string        `envconfig:"MOVEMARKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"MOVEMARKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MOVEMARKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MOVEMARKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MOVEMARKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MOVEMARKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MOVEMARKET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MOVEMARKET_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MOVEMARKET_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MOVEMARKET_JWT_EXPIRATION_MINUTES" default:"720"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"MOVEMARKET_ARGON_MEMORY_KB" default:"19456"`
	ArgonTime        int `envconfig:"MOVEMARKET_ARGON_TIME" default:"2"`
	ArgonParallelism int `envconfig:"MOVEMARKET_ARGON_PARALLELISM" default:"1"`
	ArgonSaltLen     int `envconfig:"MOVEMARKET_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MOVEMARKET_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	CodeWindow     time.Duration `envconfig:"MOVEMARKET_AUTH_RATE_LIMIT_CODE_WINDOW" default:"10m"`
	CodeEmailLimit int           `envconfig:"MOVEMARKET_AUTH_RATE_LIMIT_CODE_EMAIL_LIMIT" default:"3"`
	CodeIPLimit    int           `envconfig:"MOVEMARKET_AUTH_RATE_LIMIT_CODE_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MOVEMARKET_AUTO_MIGRATE" default:"false"`
}

type StripeConfig struct {
	SecretKey         string `envconfig:"MOVEMARKET_STRIPE_SECRET_KEY"`
	PublishableKey    string `envconfig:"MOVEMARKET_STRIPE_PUBLISHABLE_KEY"`
	Env               string `envconfig:"MOVEMARKET_STRIPE_ENV" default:"test"`
	WebhookSecret     string `envconfig:"MOVEMARKET_STRIPE_WEBHOOK_SECRET"`
	WebhookSecretTest string `envconfig:"MOVEMARKET_STRIPE_WEBHOOK_SECRET_TEST"`
	Currency          string `envconfig:"MOVEMARKET_STRIPE_CURRENCY" default:"sek"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// WebhookSecretFor picks the signing secret for the running app environment.
func (s StripeConfig) WebhookSecretFor(app AppConfig) string {
	if app.IsProd() {
		return s.WebhookSecret
	}
	return s.WebhookSecretTest
}

type SMTPConfig struct {
	Host     string `envconfig:"MOVEMARKET_SMTP_HOST"`
	Port     int    `envconfig:"MOVEMARKET_SMTP_PORT" default:"587"`
	User     string `envconfig:"MOVEMARKET_SMTP_USER"`
	Password string `envconfig:"MOVEMARKET_SMTP_PASSWORD"`
	From     string `envconfig:"MOVEMARKET_SMTP_FROM" default:"no-reply@movemarket.se"`
}

// Enabled reports whether enough settings exist to dial an SMTP server.
func (s SMTPConfig) Enabled() bool {
	return strings.TrimSpace(s.Host) != ""
}

type AdminConfig struct {
	Emails []string `envconfig:"MOVEMARKET_ADMIN_EMAILS"`
}

// IsAdmin reports whether the email belongs to a configured admin.
func (a AdminConfig) IsAdmin(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	for _, candidate := range a.Emails {
		if strings.ToLower(strings.TrimSpace(candidate)) == email {
			return true
		}
	}
	return false
}

// Primary returns the address that receives operational emails.
func (a AdminConfig) Primary() string {
	for _, candidate := range a.Emails {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"MOVEMARKET_OUTBOX_DISPATCH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"MOVEMARKET_OUTBOX_DISPATCH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"MOVEMARKET_OUTBOX_MAX_ATTEMPTS" default:"10"`
	// RetryBase doubles per failed attempt up to RetryMax.
	RetryBase time.Duration `envconfig:"MOVEMARKET_OUTBOX_RETRY_BASE" default:"5s"`
	RetryMax  time.Duration `envconfig:"MOVEMARKET_OUTBOX_RETRY_MAX" default:"30m"`
}

type CronConfig struct {
	Interval          time.Duration `envconfig:"MOVEMARKET_CRON_INTERVAL" default:"1h"`
	EscrowHold        time.Duration `envconfig:"MOVEMARKET_CRON_ESCROW_HOLD" default:"120h"`
	ReviewWindowStart time.Duration `envconfig:"MOVEMARKET_CRON_REVIEW_WINDOW_START" default:"24h"`
	ReviewWindowEnd   time.Duration `envconfig:"MOVEMARKET_CRON_REVIEW_WINDOW_END" default:"48h"`
	// JobTimeout bounds one job so a stuck query cannot hold the worker lock
	// into the next cycle.
	JobTimeout time.Duration `envconfig:"MOVEMARKET_CRON_JOB_TIMEOUT" default:"10m"`
}

type RealtimeConfig struct {
	Channel        string   `envconfig:"MOVEMARKET_REALTIME_CHANNEL" default:"realtime_events"`
	AllowedOrigins []string `envconfig:"MOVEMARKET_REALTIME_ALLOWED_ORIGINS"`
}

type VerificationConfig struct {
	CodeTTL     time.Duration `envconfig:"MOVEMARKET_VERIFICATION_CODE_TTL" default:"10m"`
	MaxAttempts int           `envconfig:"MOVEMARKET_VERIFICATION_MAX_ATTEMPTS" default:"5"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
