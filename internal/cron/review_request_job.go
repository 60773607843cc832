package cron

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/movemarket-backend/internal/bids"
	"github.com/angelmondragon/movemarket-backend/pkg/enums"
	"github.com/angelmondragon/movemarket-backend/pkg/logger"
	"github.com/angelmondragon/movemarket-backend/pkg/mailer"
	"github.com/angelmondragon/movemarket-backend/pkg/outbox"
	"github.com/angelmondragon/movemarket-backend/pkg/outbox/payloads"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const (
	defaultReviewWindowStart = 24 * time.Hour
	defaultReviewWindowEnd   = 48 * time.Hour
)

// ReviewRequestJobParams configure the review request scheduler.
type ReviewRequestJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Ledgers     completedLedgerReader
	Quotations  quotationReader
	Outbox      outboxEmitter
	WindowStart time.Duration
	WindowEnd   time.Duration
	PublicURL   string
}

// NewReviewRequestJob builds the job asking customers to review orders that
// completed one to two days ago.
func NewReviewRequestJob(params ReviewRequestJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Ledgers == nil {
		return nil, fmt.Errorf("ledger reader required")
	}
	if params.Quotations == nil {
		return nil, fmt.Errorf("quotation reader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	start, end := params.WindowStart, params.WindowEnd
	if start <= 0 {
		start = defaultReviewWindowStart
	}
	if end <= start {
		end = defaultReviewWindowEnd
	}
	return &reviewRequestJob{
		logg:       params.Logger,
		db:         params.DB,
		ledgers:    params.Ledgers,
		quotations: params.Quotations,
		outbox:     params.Outbox,
		start:      start,
		end:        end,
		publicURL:  strings.TrimRight(params.PublicURL, "/"),
		batchSize:  rowLimit,
		now:        time.Now,
	}, nil
}

type reviewRequestJob struct {
	logg       *logger.Logger
	db         txRunner
	ledgers    completedLedgerReader
	quotations quotationReader
	outbox     outboxEmitter
	start      time.Duration
	end        time.Duration
	publicURL  string
	batchSize  int
	now        func() time.Time
}

func (j *reviewRequestJob) Name() string { return "review-request" }

func (j *reviewRequestJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	from, to := now.Add(-j.end), now.Add(-j.start)

	var errs error
	for _, flow := range flows {
		rows, err := j.ledgers.ListAwaitingReview(ctx, flow, from, to, j.batchSize)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("list %s orders awaiting review: %w", flow, err))
			continue
		}
		queued := 0
		for i := range rows {
			row := &rows[i]
			created, err := j.request(ctx, row, now)
			if err != nil {
				rowCtx := j.logg.WithPayment(ctx, string(row.Flow), row.Key, "")
				j.logg.Error(rowCtx, "review request failed", err)
				errs = multierr.Append(errs, fmt.Errorf("%s %s: %w", row.Flow, row.Key, err))
				continue
			}
			if created {
				queued++
			}
		}
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"payment_flow": flow,
			"scanned":      len(rows),
			"queued":       queued,
		})
		j.logg.Info(logCtx, "review request scan complete")
	}
	return errs
}

func (j *reviewRequestJob) request(ctx context.Context, row *bids.Ledger, now time.Time) (bool, error) {
	quotation, err := j.quotations.FindByID(ctx, row.QuotationType, row.QuotationID)
	if err != nil {
		return false, fmt.Errorf("load quotation: %w", err)
	}
	if strings.TrimSpace(quotation.CustomerEmail) == "" {
		return false, fmt.Errorf("quotation %d has no customer email", quotation.ID)
	}

	bidKey := bids.BidKey(row.BidID)
	ev := outbox.DomainEvent{
		EventType:     enums.EventEmailRequested,
		AggregateType: enums.AggregateReview,
		AggregateID:   bidKey,
		DedupeKey:     "review_request:" + bidKey,
		Version:       1,
		OccurredAt:    now,
		Data: payloads.EmailRequestedEvent{
			To:       quotation.CustomerEmail,
			Template: mailer.TemplateReviewRequest,
			Data: map[string]any{
				"customer_name": quotation.CustomerName,
				"reference":     row.Reference(),
				"review_link":   fmt.Sprintf("%s/reviews/new?bid_id=%s", j.publicURL, bidKey),
			},
		},
	}

	created := false
	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		inserted, err := j.outbox.EmitIfNotExists(ctx, tx, ev)
		if err != nil {
			return err
		}
		created = inserted
		return j.ledgers.WithTx(tx).MarkReviewRequested(ctx, row.Flow, row.Key, now)
	})
	return created, err
}
