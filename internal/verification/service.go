package verification

import (
	"context"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	pkgauth "github.com/angelmondragon/movemarket-backend/pkg/auth"
	"github.com/angelmondragon/movemarket-backend/pkg/config"
	"github.com/angelmondragon/movemarket-backend/pkg/db/models"
	"github.com/angelmondragon/movemarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/movemarket-backend/pkg/errors"
	"github.com/angelmondragon/movemarket-backend/pkg/logger"
	"github.com/angelmondragon/movemarket-backend/pkg/mailer"
	"github.com/angelmondragon/movemarket-backend/pkg/outbox"
	"github.com/angelmondragon/movemarket-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/movemarket-backend/pkg/security"
)

const codeDigits = 6

// Service issues one-time email codes and exchanges them for access tokens.
type Service interface {
	RequestCode(ctx context.Context, email string) (*RequestCodeResult, error)
	Verify(ctx context.Context, email, code string) (*VerifyResult, error)
}

type RequestCodeResult struct {
	ExpiresInSeconds int `json:"expires_in_seconds"`
}

type VerifyResult struct {
	AccessToken string     `json:"access_token"`
	Role        enums.Role `json:"role"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type supplierFinder interface {
	FindByEmail(ctx context.Context, email string) (*models.Supplier, error)
}

type ServiceParams struct {
	Config    config.VerificationConfig
	Password  config.PasswordConfig
	JWT       config.JWTConfig
	Admin     config.AdminConfig
	DB        txRunner
	Outbox    outboxEmitter
	Suppliers supplierFinder
	Logger    *logger.Logger
	Now       func() time.Time
}

type service struct {
	cfg       config.VerificationConfig
	password  config.PasswordConfig
	jwt       config.JWTConfig
	admin     config.AdminConfig
	db        txRunner
	outbox    outboxEmitter
	suppliers supplierFinder
	logg      *logger.Logger
	now       func() time.Time
	codes     *codeStore
	generate  func() (string, error)
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter is required")
	}
	if params.Suppliers == nil {
		return nil, fmt.Errorf("supplier repository is required")
	}
	cfg := params.Config
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 10 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		cfg:       cfg,
		password:  params.Password,
		jwt:       params.JWT,
		admin:     params.Admin,
		db:        params.DB,
		outbox:    params.Outbox,
		suppliers: params.Suppliers,
		logg:      params.Logger,
		now:       now,
		codes:     newCodeStore(cfg.CodeTTL),
		generate:  func() (string, error) { return security.GenerateNumericCode(codeDigits) },
	}, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", pkgerrors.NewBilingual(pkgerrors.CodeValidation, "email is required", "e-postadress krävs")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", pkgerrors.NewBilingual(pkgerrors.CodeValidation, "invalid email", "ogiltig e-postadress")
	}
	return email, nil
}

// RequestCode replaces any pending code for the email and queues the email
// carrying the new one.
func (s *service) RequestCode(ctx context.Context, email string) (*RequestCodeResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	code, err := s.generate()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate verification code")
	}
	hash, err := security.HashSecret(code, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash verification code")
	}

	now := s.now().UTC()
	ttlMinutes := int(s.cfg.CodeTTL / time.Minute)
	event := outbox.DomainEvent{
		EventType:     enums.EventEmailRequested,
		AggregateType: enums.AggregateVerification,
		AggregateID:   email,
		Version:       1,
		OccurredAt:    now,
		Data: payloads.EmailRequestedEvent{
			To:       email,
			Template: mailer.TemplateVerificationCode,
			Data: map[string]any{
				"code":        code,
				"ttl_minutes": ttlMinutes,
			},
		},
	}

	s.codes.put(email, hash, s.cfg.CodeTTL, now)
	if err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, event)
	}); err != nil {
		s.codes.remove(email)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue verification email")
	}

	s.logg.Info(s.logg.WithField(ctx, "email_domain", domainOf(email)), "verification.code_issued")
	return &RequestCodeResult{ExpiresInSeconds: int(s.cfg.CodeTTL.Seconds())}, nil
}

// Verify checks the code and mints a token whose role depends on who owns the
// email: configured admins first, then suppliers, else customers.
func (s *service) Verify(ctx context.Context, email, code string) (*VerifyResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if len(code) != codeDigits {
		return nil, pkgerrors.NewBilingual(pkgerrors.CodeValidation, "code must be 6 digits", "koden måste vara 6 siffror")
	}

	now := s.now().UTC()
	result, err := s.codes.attempt(email, s.cfg.MaxAttempts, now, func(hash string) (bool, error) {
		return security.VerifySecret(code, hash)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify code")
	}
	switch result {
	case attemptMissing:
		return nil, pkgerrors.NewBilingual(pkgerrors.CodeUnauthorized, "invalid or expired code", "ogiltig eller utgången kod")
	case attemptMismatch:
		return nil, pkgerrors.NewBilingual(pkgerrors.CodeUnauthorized, "invalid or expired code", "ogiltig eller utgången kod")
	case attemptExhausted:
		s.logg.Warn(s.logg.WithField(ctx, "email_domain", domainOf(email)), "verification.attempts_exhausted")
		return nil, pkgerrors.NewBilingual(pkgerrors.CodeRateLimit, "too many attempts, request a new code", "för många försök, begär en ny kod")
	}

	payload := pkgauth.AccessTokenPayload{Email: email, Role: enums.RoleCustomer}
	if s.admin.IsAdmin(email) {
		payload.Role = enums.RoleAdmin
	} else {
		supplier, err := s.suppliers.FindByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if supplier != nil {
			payload.Role = enums.RoleSupplier
			payload.Subject = strconv.FormatInt(supplier.ID, 10)
		}
	}

	token, err := pkgauth.MintAccessToken(s.jwt, now, payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	return &VerifyResult{
		AccessToken: token,
		Role:        payload.Role,
		ExpiresAt:   now.Add(time.Duration(s.jwt.ExpirationMinutes) * time.Minute),
	}, nil
}

func domainOf(email string) string {
	if at := strings.LastIndex(email, "@"); at >= 0 {
		return email[at+1:]
	}
	return ""
}
