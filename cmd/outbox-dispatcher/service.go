package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/angelmondragon/movemarket-backend/pkg/config"
	"github.com/angelmondragon/movemarket-backend/pkg/db/models"
	"github.com/angelmondragon/movemarket-backend/pkg/enums"
	"github.com/angelmondragon/movemarket-backend/pkg/logger"
	"github.com/angelmondragon/movemarket-backend/pkg/outbox"
	"github.com/angelmondragon/movemarket-backend/pkg/outbox/registry"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultBatchSize       = 50
	defaultPollMs          = 500
	defaultDispatchTimeout = 15 * time.Second
	defaultMaxAttempts     = 10
	maxBackoff             = 10 * time.Second
	jitterWindow           = 250 * time.Millisecond
	defaultRetryBase       = 5 * time.Second
	defaultRetryMax        = 30 * time.Minute
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pinger interface {
	Ping(context.Context) error
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int, now time.Time) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error, retryAt time.Time) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
	CountPending(tx *gorm.DB, maxAttempts int) (int64, error)
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type eventHandler interface {
	Handle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, resolved *registry.ResolvedEvent) error
}

type dispatchRecorder interface {
	IncProcessed(eventType, result string)
	SetPending(count int64)
}

type ServiceParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            dbClient
	Redis         pinger
	Repository    outboxRepository
	Registry      registryResolver
	Handler       eventHandler
	DLQRepository dlqRepository
	Metrics       dispatchRecorder
}

// Service drains outbox_events into the fanout handlers. Each batch runs in
// one transaction that holds the row locks; rows are marked published,
// failed or terminal before it commits.
type Service struct {
	cfg          *config.Config
	logg         *logger.Logger
	db           dbClient
	redis        pinger
	repo         outboxRepository
	registry     registryResolver
	handler      eventHandler
	dlq          dlqRepository
	metrics      dispatchRecorder
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
	retryBase    time.Duration
	retryMax     time.Duration
	now          func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.Registry == nil {
		return nil, errors.New("event registry is required")
	}
	if params.Handler == nil {
		return nil, errors.New("event handler is required")
	}
	if params.DLQRepository == nil {
		return nil, errors.New("dlq repository is required")
	}

	batch := params.Config.Outbox.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollMs := params.Config.Outbox.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}
	maxAttempts := params.Config.Outbox.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	retryBase := params.Config.Outbox.RetryBase
	if retryBase <= 0 {
		retryBase = defaultRetryBase
	}
	retryMax := params.Config.Outbox.RetryMax
	if retryMax <= 0 {
		retryMax = defaultRetryMax
	}
	if retryMax < retryBase {
		retryMax = retryBase
	}

	return &Service{
		cfg:          params.Config,
		logg:         params.Logger,
		db:           params.DB,
		redis:        params.Redis,
		repo:         params.Repository,
		registry:     params.Registry,
		handler:      params.Handler,
		dlq:          params.DLQRepository,
		metrics:      params.Metrics,
		batchSize:    batch,
		maxAttempts:  maxAttempts,
		pollInterval: time.Duration(pollMs) * time.Millisecond,
		retryBase:    retryBase,
		retryMax:     retryMax,
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "database", s.db.Ping); err != nil {
		return err
	}
	if s.redis != nil {
		if err := pingDependency(ctx, s.logg, "redis", s.redis.Ping); err != nil {
			return err
		}
	}
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	interval := s.pollInterval
	if interval <= 0 {
		interval = time.Duration(defaultPollMs) * time.Millisecond
	}
	backoff := interval

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "outbox dispatcher context canceled")
			return ctx.Err()
		default:
		}

		processed, err := s.processBatch(ctx)
		if err != nil {
			s.logg.Error(ctx, "outbox dispatcher batch error", err)
			backoff = nextBackoff(backoff, interval, maxBackoff)
			if err := s.sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = interval
		s.reportPending(ctx)

		if processed {
			continue
		}

		if err := s.sleep(ctx, withJitter(interval)); err != nil {
			return err
		}
	}
}

func (s *Service) processBatch(ctx context.Context) (bool, error) {
	processed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts, s.now())
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		processed = true
		for _, event := range events {
			resolved, err := s.registry.Resolve(event)
			if err != nil {
				if markErr := s.handleTerminal(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, nil); markErr != nil {
					return markErr
				}
				continue
			}

			fields := s.eventFields(event, resolved.Envelope)
			if err := s.dispatch(ctx, tx, event, resolved); err != nil {
				var nonRetry registry.NonRetryableError
				if errors.As(err, &nonRetry) {
					if markErr := s.handleTerminal(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, fields); markErr != nil {
						return markErr
					}
					continue
				}

				nextAttempt := event.AttemptCount + 1
				fields["attempt_count"] = nextAttempt

				if nextAttempt >= s.maxAttempts {
					fields["terminal_reason"] = "max_attempts"
					terminalErr := fmt.Errorf("max dispatch attempts reached: %w", err)
					if markErr := s.handleTerminal(ctx, tx, event, enums.OutboxDLQReasonMaxAttempts, terminalErr, fields); markErr != nil {
						return markErr
					}
					continue
				}

				retryAt := s.now().Add(retryDelay(nextAttempt, s.retryBase, s.retryMax))
				fields["next_attempt_at"] = retryAt.Format(time.RFC3339)
				ctxWithFields := s.logg.WithFields(ctx, fields)
				ctxWithFields = s.logg.WithField(ctxWithFields, "error", err.Error())
				s.logg.Warn(ctxWithFields, "outbox dispatch failed")
				if markErr := s.repo.MarkFailedTx(tx, event.ID, err, retryAt); markErr != nil {
					return fmt.Errorf("mark failure %s: %w", event.ID, markErr)
				}
				s.observe(event, "retry")
				continue
			}

			if markErr := s.repo.MarkPublishedTx(tx, event.ID); markErr != nil {
				return fmt.Errorf("mark published %s: %w", event.ID, markErr)
			}
			s.observe(event, "delivered")
			s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event dispatched")
		}
		return nil
	})
	return processed, err
}

// dispatch runs the handler under a savepoint so a failed database write
// inside one handler does not poison the batch transaction.
func (s *Service) dispatch(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	dispatchCtx, cancel := context.WithTimeout(ctx, defaultDispatchTimeout)
	defer cancel()
	if tx == nil {
		return s.handler.Handle(dispatchCtx, nil, event, resolved)
	}
	return tx.Transaction(func(inner *gorm.DB) error {
		return s.handler.Handle(dispatchCtx, inner, event, resolved)
	})
}

func (s *Service) handleTerminal(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, err error, fields map[string]any) error {
	if fields == nil {
		fields = s.eventFields(event, outbox.PayloadEnvelope{})
	}
	fields["error_reason"] = reason
	ctxWithFields := s.logg.WithFields(ctx, fields)
	ctxWithFields = s.logg.WithField(ctxWithFields, "error", err.Error())
	s.logg.Warn(ctxWithFields, "outbox event will not be retried")

	dlqEntry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  dlqErrorMessage(err),
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if dlqErr := s.dlq.InsertTx(tx, dlqEntry); dlqErr != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, dlqErr)
	}
	if markErr := s.repo.MarkTerminalTx(tx, event.ID, err, s.maxAttempts); markErr != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, markErr)
	}
	s.observe(event, "dead_lettered")
	return nil
}

func (s *Service) observe(event models.OutboxEvent, result string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncProcessed(string(event.EventType), result)
}

func (s *Service) reportPending(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	count, err := s.repo.CountPending(nil, s.maxAttempts)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "count pending outbox rows failed")
		return
	}
	s.metrics.SetPending(count)
}

func dlqErrorMessage(err error) *string {
	if err == nil {
		return nil
	}
	msg := err.Error()
	return &msg
}

func (s *Service) eventFields(event models.OutboxEvent, envelope outbox.PayloadEnvelope) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID,
		"batch_size":     s.batchSize,
		"attempt_count":  event.AttemptCount,
	}
	if envelope.EventID != "" {
		fields["event_id"] = envelope.EventID
		fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

// retryDelay is how long a row waits after its attempt-th failure: base
// doubled per earlier failure, capped at max, plus up to a fifth of jitter so
// rows that failed together spread out.
func retryDelay(attempt int, base, max time.Duration) time.Duration {
	d := base
	for i := 1; i < attempt && d < max; i++ {
		d *= 2
	}
	if d > max {
		d = max
	}
	return d + time.Duration(jitterSource.Int63n(int64(d/5)+1))
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	jitter := time.Duration(jitterSource.Int63n(int64(jitterWindow)))
	return d + jitter
}
