package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/movemarket-backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	notificationRetentionDays = 30
	outboxRetentionDays       = 30
	outboxMinAttempts         = 10
)

type notificationsCleanupRepo interface {
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, terminalAttempts int) (int64, error)
}

// NotificationCleanupJobParams configure pruning of read in-app notifications.
type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository notificationsCleanupRepo
	Retention  int
}

// OutboxRetentionJobParams configure pruning of dispatched outbox rows.
// MinAttempts should match the dispatcher's max attempts so dead-lettered
// rows are pruned too; their payload survives in outbox_dlq.
type OutboxRetentionJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Repository  outboxRetentionRepo
	Retention   int
	MinAttempts int
}

// pruneJob deletes rows older than a retention window in one transaction.
type pruneJob struct {
	name      string
	logg      *logger.Logger
	db        txRunner
	retention int
	fields    map[string]any
	prune     func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
	now       func() time.Time
}

func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return newPruneJob("notification-cleanup", params.Logger, params.DB, params.Retention, notificationRetentionDays, nil,
		params.Repository.DeleteOlderThan)
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	minAttempts := params.MinAttempts
	if minAttempts <= 0 {
		minAttempts = outboxMinAttempts
	}
	repo := params.Repository
	return newPruneJob("outbox-retention", params.Logger, params.DB, params.Retention, outboxRetentionDays,
		map[string]any{"min_attempts": minAttempts},
		func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
			return repo.DeletePublishedBefore(ctx, tx, cutoff, minAttempts)
		})
}

func newPruneJob(name string, logg *logger.Logger, db txRunner, retention, fallback int, fields map[string]any,
	prune func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if db == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if retention <= 0 {
		retention = fallback
	}
	return &pruneJob{
		name:      name,
		logg:      logg,
		db:        db,
		retention: retention,
		fields:    fields,
		prune:     prune,
		now:       time.Now,
	}, nil
}

func (j *pruneJob) Name() string { return j.name }

func (j *pruneJob) cutoff() time.Time {
	return j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
}

func (j *pruneJob) Run(ctx context.Context) error {
	cutoff := j.cutoff()
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.prune(ctx, tx, cutoff)
		deleted = rows
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	fields := map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	}
	for k, v := range j.fields {
		fields[k] = v
	}
	j.logg.Info(j.logg.WithFields(ctx, fields), "retention prune complete")
	return nil
}
