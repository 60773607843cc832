package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/movemarket-backend/pkg/logger"
	"github.com/angelmondragon/movemarket-backend/pkg/metrics"
)

const (
	defaultInterval   = time.Hour
	defaultJobTimeout = 10 * time.Minute
)

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
	// JobTimeout bounds each job; it should stay well under the lock TTL.
	JobTimeout time.Duration
}

// Service runs the registered jobs once per interval while holding the
// worker lock.
type Service struct {
	logg       *logger.Logger
	registry   *Registry
	lock       Lock
	metrics    *metrics.CronJobMetrics
	interval   time.Duration
	jobTimeout time.Duration
	now        func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = &Registry{}
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	jobTimeout := params.JobTimeout
	if jobTimeout <= 0 {
		jobTimeout = defaultJobTimeout
	}
	return &Service{
		logg:       params.Logger,
		registry:   registry,
		lock:       params.Lock,
		metrics:    params.Metrics,
		interval:   interval,
		jobTimeout: jobTimeout,
		now:        time.Now,
	}, nil
}

// Run executes one cycle immediately, then one per interval until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.runCycle(ctx); err != nil {
		s.logg.Error(ctx, "scheduled run failed", err)
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service context canceled")
			return ctx.Err()
		case <-ticker.C:
			if err := s.runCycle(ctx); err != nil {
				s.logg.Error(ctx, "scheduled run failed", err)
			}
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.metrics.IncSkipped()
		s.logg.Info(s.withHolder(ctx), "another cron instance is running; skipping this cycle")
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "failed to release cron lock", relErr)
		}
	}()

	s.logg.Info(ctx, "scheduled run starting")
	failed := 0
	for _, job := range s.registry.Jobs() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.runJob(ctx, job); err != nil {
			failed++
		}
	}
	s.logg.Info(s.logg.WithField(ctx, "jobs_failed", failed), "scheduled run complete")
	return nil
}

func (s *Service) withHolder(ctx context.Context) context.Context {
	holder, ok := s.lock.(lockHolder)
	if !ok {
		return ctx
	}
	owner, err := holder.Holder(ctx)
	if err != nil || owner == "" {
		return ctx
	}
	return s.logg.WithField(ctx, "lock_holder", owner)
}

// runJob isolates one job: a panic or timeout is recorded and the cycle moves
// on to the next job.
func (s *Service) runJob(ctx context.Context, job Job) (err error) {
	name := job.Name()
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": name, "event": "cron.job"})
	jobCtx, cancel := context.WithTimeout(jobCtx, s.jobTimeout)
	defer cancel()

	s.logg.Info(jobCtx, "job start")
	start := s.now()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job panicked: %v", rec)
			s.metrics.IncPanic(name)
			s.logg.Error(jobCtx, "job panicked", err)
		}
	}()

	err = job.Run(jobCtx)
	duration := s.now().Sub(start)
	s.metrics.ObserveDuration(name, duration)
	logCtx := s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	switch {
	case err != nil && errors.Is(jobCtx.Err(), context.DeadlineExceeded):
		s.metrics.IncTimeout(name)
		s.logg.Error(logCtx, "job timed out", err)
	case err != nil:
		s.metrics.IncFailure(name)
		s.logg.Error(logCtx, "job failed", err)
	default:
		s.metrics.IncSuccess(name, s.now())
		s.logg.Info(logCtx, "job completed")
	}
	return err
}
