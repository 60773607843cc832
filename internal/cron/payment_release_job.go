package cron

import (
	"context"
	"fmt"
	"strconv"
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

const defaultEscrowHold = 5 * 24 * time.Hour

// PaymentReleaseJobParams configure the escrow release scheduler.
type PaymentReleaseJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Ledgers   completedLedgerReader
	Suppliers supplierReader
	Outbox    outboxEmitter
	// AdminEmail receives the payout reminder. Empty skips the admin side.
	AdminEmail string
	Hold       time.Duration
	Currency   string
	PublicURL  string
}

// NewPaymentReleaseJob builds the job that flags completed orders whose hold
// period has elapsed. It only enqueues notifications; payment state is never
// written here.
func NewPaymentReleaseJob(params PaymentReleaseJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Ledgers == nil {
		return nil, fmt.Errorf("ledger reader required")
	}
	if params.Suppliers == nil {
		return nil, fmt.Errorf("supplier reader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	hold := params.Hold
	if hold <= 0 {
		hold = defaultEscrowHold
	}
	currency := strings.ToUpper(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = "SEK"
	}
	return &paymentReleaseJob{
		logg:       params.Logger,
		db:         params.DB,
		ledgers:    params.Ledgers,
		suppliers:  params.Suppliers,
		outbox:     params.Outbox,
		adminEmail: strings.TrimSpace(params.AdminEmail),
		hold:       hold,
		currency:   currency,
		publicURL:  strings.TrimRight(params.PublicURL, "/"),
		batchSize:  rowLimit,
		now:        time.Now,
	}, nil
}

type paymentReleaseJob struct {
	logg       *logger.Logger
	db         txRunner
	ledgers    completedLedgerReader
	suppliers  supplierReader
	outbox     outboxEmitter
	adminEmail string
	hold       time.Duration
	currency   string
	publicURL  string
	batchSize  int
	now        func() time.Time
}

func (j *paymentReleaseJob) Name() string { return "payment-release" }

func (j *paymentReleaseJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-j.hold)
	if j.adminEmail == "" {
		j.logg.Warn(ctx, "no admin email configured; payout reminders go to suppliers only")
	}

	var errs error
	for _, flow := range flows {
		rows, err := j.ledgers.ListCompletedBefore(ctx, flow, cutoff, j.batchSize)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("list completed %s orders: %w", flow, err))
			continue
		}
		queued := 0
		for i := range rows {
			row := &rows[i]
			created, err := j.flag(ctx, row, now)
			if err != nil {
				rowCtx := j.logg.WithPayment(ctx, string(row.Flow), row.Key, "")
				j.logg.Error(rowCtx, "payment release reminder failed", err)
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
			"cutoff":       cutoff,
		})
		j.logg.Info(logCtx, "payment release scan complete")
	}
	return errs
}

// flag enqueues the reminder set for one order and stamps the status row in
// the same transaction, so later ticks move on to orders not yet flagged.
func (j *paymentReleaseJob) flag(ctx context.Context, row *bids.Ledger, now time.Time) (bool, error) {
	supplier, err := j.suppliers.FindByID(ctx, row.SupplierID)
	if err != nil {
		return false, fmt.Errorf("load supplier %d: %w", row.SupplierID, err)
	}

	ref := row.Reference()
	price := row.FinalPrice.StringFixed(2)
	completedAt := row.MoneyUpdatedAt.UTC()
	if row.CompletionDate != nil {
		completedAt = row.CompletionDate.UTC()
	}
	dedupe := func(kind string) string {
		return fmt.Sprintf("payment_release:%s:%s:%s", row.Flow, row.Key, kind)
	}
	event := func(kind string, eventType enums.OutboxEventType, data any) outbox.DomainEvent {
		return outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateForFlow(row.Flow),
			AggregateID:   row.Key,
			DedupeKey:     dedupe(kind),
			Data:          data,
			Version:       1,
			OccurredAt:    now,
		}
	}

	events := []outbox.DomainEvent{
		event("supplier_email", enums.EventEmailRequested, payloads.EmailRequestedEvent{
			To:       supplier.Email,
			Template: mailer.TemplateSupplierPaymentRelease,
			Data: map[string]any{
				"reference":   ref,
				"final_price": price,
				"currency":    j.currency,
			},
		}),
		event("supplier_notification", enums.EventNotificationRequested, payloads.NotificationRequestedEvent{
			RecipientType: enums.RoleSupplier,
			RecipientID:   strconv.FormatInt(supplier.ID, 10),
			Type:          enums.NotificationPaymentReleaseDue,
			Title:         fmt.Sprintf("Payout on its way for %s", ref),
			Message:       fmt.Sprintf("The hold period for %s is over and %s %s is being released.", ref, price, j.currency),
			Link:          j.link(row),
		}),
	}
	if j.adminEmail != "" {
		events = append(events,
			event("admin_email", enums.EventEmailRequested, payloads.EmailRequestedEvent{
				To:       j.adminEmail,
				Template: mailer.TemplateAdminPaymentRelease,
				Data: map[string]any{
					"reference":     ref,
					"completed_at":  completedAt.Format("2006-01-02"),
					"final_price":   price,
					"currency":      j.currency,
					"supplier_name": supplier.CompanyName,
				},
			}),
			event("admin_notification", enums.EventNotificationRequested, payloads.NotificationRequestedEvent{
				RecipientType: enums.RoleAdmin,
				RecipientID:   j.adminEmail,
				Type:          enums.NotificationPaymentReleaseDue,
				Title:         fmt.Sprintf("Release payout for %s", ref),
				Message:       fmt.Sprintf("Release %s %s to %s.", price, j.currency, supplier.CompanyName),
				Link:          j.link(row),
			}),
		)
	}

	created := false
	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		for _, ev := range events {
			inserted, err := j.outbox.EmitIfNotExists(ctx, tx, ev)
			if err != nil {
				return err
			}
			created = created || inserted
		}
		return j.ledgers.WithTx(tx).MarkReleaseFlagged(ctx, row.Flow, row.Key, now)
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

func (j *paymentReleaseJob) link(row *bids.Ledger) string {
	if row.Flow == enums.PaymentFlowCheckout {
		return j.publicURL + "/orders/" + row.OrderID
	}
	return j.publicURL + "/bids/" + row.Key
}
