package stripewebhook

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/movemarket-backend/internal/bids"
	"github.com/angelmondragon/movemarket-backend/internal/ledger"
	"github.com/angelmondragon/movemarket-backend/internal/quotations"
	"github.com/angelmondragon/movemarket-backend/internal/suppliers"
	"github.com/angelmondragon/movemarket-backend/pkg/db/models"
	"github.com/angelmondragon/movemarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/movemarket-backend/pkg/errors"
	"github.com/angelmondragon/movemarket-backend/pkg/logger"
	"github.com/angelmondragon/movemarket-backend/pkg/money"
	"github.com/angelmondragon/movemarket-backend/pkg/outbox"
	"github.com/angelmondragon/movemarket-backend/pkg/stripe"
)

const (
	metadataPaymentType = "payment_type"
	metadataPaymentFlow = "payment_flow"
)

// Result describes what reconciliation did with an event.
type Result string

const (
	ResultApplied Result = "applied"
	ResultReplay  Result = "replay"
	ResultStale   Result = "stale"
	ResultIgnored Result = "ignored"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type webhookRecorder interface {
	ObserveWebhook(flow, eventType, result string)
}

// ServiceParams groups dependencies for the reconciler.
type ServiceParams struct {
	Bids              bids.Repository
	Quotations        quotations.Repository
	Suppliers         suppliers.Repository
	Ledger            ledger.Service
	Outbox            outbox.Emitter
	Gateway           stripe.Gateway
	TransactionRunner txRunner
	Metrics           webhookRecorder
	Currency          string
	PublicURL         string
	Logger            *logger.Logger
	Clock             func() time.Time
}

// Service reconciles payment intent events into the bid/order ledgers.
type Service struct {
	bids       bids.Repository
	quotations quotations.Repository
	suppliers  suppliers.Repository
	ledger     ledger.Service
	outbox     outbox.Emitter
	gateway    stripe.Gateway
	txRunner   txRunner
	metrics    webhookRecorder
	currency   string
	publicURL  string
	logg       *logger.Logger
	now        func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Bids == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "bids repository required")
	}
	if params.Quotations == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "quotations repository required")
	}
	if params.Suppliers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "suppliers repository required")
	}
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger service required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox emitter required")
	}
	if params.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment gateway required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	clock := params.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	currency := strings.ToLower(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = "sek"
	}
	return &Service{
		bids:       params.Bids,
		quotations: params.Quotations,
		suppliers:  params.Suppliers,
		ledger:     params.Ledger,
		outbox:     params.Outbox,
		gateway:    params.Gateway,
		txRunner:   params.TransactionRunner,
		metrics:    params.Metrics,
		currency:   currency,
		publicURL:  strings.TrimRight(params.PublicURL, "/"),
		logg:       params.Logger,
		now:        clock,
	}, nil
}

// reconcileInput is everything loaded before the transaction opens.
type reconcileInput struct {
	flow      enums.PaymentFlow
	event     *stripe.Event
	intent    *stripe.PaymentIntent
	leg       enums.PaymentLeg
	succeeded bool
	quotation *models.Quotation
	supplier  *models.Supplier
	rut       bool
	adjusted  *amountAdjustment
}

type amountAdjustment struct {
	from int64
	to   int64
}

// HandleEvent reconciles one verified event for the given flow. Events that
// do not concern the ledger are acknowledged with ResultIgnored.
func (s *Service) HandleEvent(ctx context.Context, flow enums.PaymentFlow, event *stripe.Event) (Result, error) {
	if event == nil {
		return ResultIgnored, pkgerrors.New(pkgerrors.CodeValidation, "stripe event required")
	}
	if !flow.IsValid() {
		return ResultIgnored, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment flow")
	}
	result, err := s.handle(ctx, flow, event)
	if err != nil {
		observe(s.metrics, flow, event.Type, "error")
	} else {
		observe(s.metrics, flow, event.Type, result)
	}
	return result, err
}

func (s *Service) handle(ctx context.Context, flow enums.PaymentFlow, event *stripe.Event) (Result, error) {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"stripe_event_id":   event.ID,
		"stripe_event_type": event.Type,
		"payment_flow":      flow.String(),
	})

	var succeeded bool
	switch event.Type {
	case stripe.EventPaymentIntentSucceeded:
		succeeded = true
	case stripe.EventPaymentIntentFailed:
		succeeded = false
	default:
		s.logg.Debug(ctx, "stripe event type ignored")
		return ResultIgnored, nil
	}

	intent := event.Intent
	if intent == nil {
		s.logg.Warn(ctx, "payment intent event without intent payload")
		return ResultIgnored, nil
	}
	if !intentBelongsTo(flow, intent.Metadata) {
		s.logg.Debug(ctx, "payment intent belongs to the other flow")
		return ResultIgnored, nil
	}
	key := strings.TrimSpace(intent.Metadata[flow.MetadataKey()])
	if key == "" {
		s.logg.Warn(ctx, "payment intent missing ledger metadata")
		return ResultIgnored, nil
	}
	leg, err := enums.ParsePaymentLeg(strings.TrimSpace(intent.Metadata[metadataPaymentType]))
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "ledger_key", key), "payment intent has no valid payment_type")
		return ResultIgnored, nil
	}
	ctx = s.logg.WithPayment(ctx, flow.String(), key, leg.String())
	ctx = s.logg.WithField(ctx, "payment_intent_id", intent.ID)

	snapshot, err := s.bids.Load(ctx, flow, key)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load ledger")
	}
	quotation, err := s.quotations.FindByID(ctx, snapshot.QuotationType, snapshot.QuotationID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load quotation")
	}
	supplier, err := s.suppliers.FindByID(ctx, snapshot.SupplierID)
	if err != nil {
		if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load supplier")
		}
		s.logg.Warn(ctx, "supplier missing; supplier email skipped")
		supplier = nil
	}

	in := reconcileInput{
		flow:      flow,
		event:     event,
		intent:    intent,
		leg:       leg,
		succeeded: succeeded,
		quotation: quotation,
		supplier:  supplier,
		rut:       quotations.RUTApplies(snapshot.QuotationType, quotation),
	}
	if in.rut {
		in.adjusted = s.reconcileRUTAmount(ctx, snapshot, &in)
	}

	var result Result
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		result, txErr = s.applyTx(ctx, tx, key, &in)
		return txErr
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

// reconcileRUTAmount checks the charged amount against the discounted stored
// leg, the same figure the payment sheet charges, and corrects the remote
// intent while Stripe still allows it. Settled intents are never mutated.
func (s *Service) reconcileRUTAmount(ctx context.Context, l *bids.Ledger, in *reconcileInput) *amountAdjustment {
	expected := money.ChargeMinorUnits(l.LegAmount(in.leg), true)
	if expected == in.intent.Amount {
		return nil
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"expected_amount": expected, "intent_amount": in.intent.Amount})
	if in.succeeded || !in.intent.Mutable() {
		s.logg.Warn(ctx, "rut amount mismatch on immutable intent")
		return nil
	}
	updated, err := s.gateway.UpdatePaymentIntentAmount(ctx, in.intent.ID, expected)
	if err != nil {
		s.logg.Error(ctx, "update payment intent amount", err)
		return nil
	}
	adj := &amountAdjustment{from: in.intent.Amount, to: expected}
	if updated != nil {
		adj.to = updated.Amount
	}
	s.logg.Info(ctx, "payment intent amount corrected for rut")
	return adj
}

func (s *Service) applyTx(ctx context.Context, tx *gorm.DB, key string, in *reconcileInput) (Result, error) {
	repo := s.bids.WithTx(tx)
	current, err := repo.LoadForUpdate(ctx, in.flow, key)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock ledger")
	}
	now := s.now()

	if in.adjusted != nil {
		if _, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordLedgerEventInput{
			Flow:            in.flow,
			LedgerKey:       current.Key,
			Leg:             in.leg,
			Type:            enums.LedgerEventAmountAdjusted,
			AmountMinor:     in.adjusted.to,
			Currency:        s.currencyOf(in.intent),
			PaymentIntentID: in.intent.ID,
			StripeEventID:   in.event.ID,
			FromStatus:      current.PaymentStatus,
			ToStatus:        current.PaymentStatus,
			Metadata:        map[string]any{"previous_amount": in.adjusted.from, "rut": true},
		}); err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record amount adjustment")
		}
	}

	var plan bids.Plan
	if in.succeeded {
		plan, err = bids.PlanSucceeded(current, in.leg, in.intent.ID, now)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "illegal payment transition")
		}
	} else {
		plan = bids.PlanFailed(current, in.leg, now)
	}

	switch plan.Outcome {
	case bids.OutcomeReplay:
		s.logg.Info(ctx, "payment event already reflected in ledger")
		return ResultReplay, nil
	case bids.OutcomeStale:
		s.logg.Warn(s.logg.WithField(ctx, "payment_status", current.PaymentStatus), "stale payment event ignored")
		return ResultStale, nil
	}

	if err := repo.Apply(ctx, current, plan.Change); err != nil {
		return "", err
	}

	ledgerType := enums.LedgerEventLegFailed
	if in.succeeded {
		ledgerType = enums.LedgerEventLegPaid
	}
	if _, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordLedgerEventInput{
		Flow:            in.flow,
		LedgerKey:       current.Key,
		Leg:             in.leg,
		Type:            ledgerType,
		AmountMinor:     in.intent.Amount,
		Currency:        s.currencyOf(in.intent),
		PaymentIntentID: in.intent.ID,
		StripeEventID:   in.event.ID,
		FromStatus:      plan.From,
		ToStatus:        plan.Change.PaymentStatus,
		Metadata:        map[string]any{"rut": in.rut},
	}); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record ledger event")
	}

	for _, ev := range s.sideEffects(current, plan.Change, in) {
		if err := s.outbox.Emit(ctx, tx, ev); err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "enqueue side effect")
		}
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"from_status": plan.From,
		"to_status":   plan.Change.PaymentStatus,
	}), "payment event applied")
	return ResultApplied, nil
}

// intentBelongsTo matches an intent to the endpoint of the flow that created
// it. Checkout intents also carry bid_id, so an order_id rules out the partial
// flow for intents created before payment_flow was stamped.
func intentBelongsTo(flow enums.PaymentFlow, meta map[string]string) bool {
	if stamped := strings.TrimSpace(meta[metadataPaymentFlow]); stamped != "" {
		return stamped == flow.String()
	}
	if flow == enums.PaymentFlowPartial {
		return strings.TrimSpace(meta[enums.PaymentFlowCheckout.MetadataKey()]) == ""
	}
	return true
}

func (s *Service) currencyOf(intent *stripe.PaymentIntent) string {
	if intent != nil && intent.Currency != "" {
		return strings.ToLower(intent.Currency)
	}
	return s.currency
}

func observe(rec webhookRecorder, flow enums.PaymentFlow, eventType string, result Result) {
	if rec == nil {
		return
	}
	rec.ObserveWebhook(flow.String(), eventType, string(result))
}
