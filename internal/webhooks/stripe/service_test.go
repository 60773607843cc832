package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/movemarket-backend/internal/bids"
	"github.com/angelmondragon/movemarket-backend/internal/bids/bidstest"
	"github.com/angelmondragon/movemarket-backend/internal/ledger"
	"github.com/angelmondragon/movemarket-backend/internal/quotations"
	"github.com/angelmondragon/movemarket-backend/internal/suppliers"
	"github.com/angelmondragon/movemarket-backend/pkg/db"
	"github.com/angelmondragon/movemarket-backend/pkg/db/dbtest"
	"github.com/angelmondragon/movemarket-backend/pkg/db/models"
	"github.com/angelmondragon/movemarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/movemarket-backend/pkg/errors"
	"github.com/angelmondragon/movemarket-backend/pkg/outbox"
	"github.com/angelmondragon/movemarket-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/movemarket-backend/pkg/stripe"
)

var fixedNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type stubGateway struct {
	updates []int64
}

func (s *stubGateway) CreateCustomer(ctx context.Context, email string) (string, error) {
	return "", errors.New("not expected")
}

func (s *stubGateway) CreateEphemeralKey(ctx context.Context, customerID string) (string, error) {
	return "", errors.New("not expected")
}

func (s *stubGateway) CreatePaymentIntent(ctx context.Context, input stripe.PaymentIntentInput) (*stripe.PaymentIntent, error) {
	return nil, errors.New("not expected")
}

func (s *stubGateway) UpdatePaymentIntentAmount(ctx context.Context, intentID string, amount int64) (*stripe.PaymentIntent, error) {
	s.updates = append(s.updates, amount)
	return &stripe.PaymentIntent{ID: intentID, Amount: amount, Status: stripe.IntentStatusRequiresPaymentMethod}, nil
}

func (s *stubGateway) GetPaymentIntent(ctx context.Context, intentID string) (*stripe.PaymentIntent, error) {
	return nil, errors.New("not expected")
}

type recordingMetrics struct {
	results []string
}

func (r *recordingMetrics) ObserveWebhook(flow, eventType, result string) {
	r.results = append(r.results, result)
}

type harness struct {
	db      *gorm.DB
	gateway *stubGateway
	metrics *recordingMetrics
	svc     *Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	conn := dbtest.Open(t)
	dbtest.MigrateQuotationTables(t, conn, quotations.TableNames()...)

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	require.NoError(t, err)
	gw := &stubGateway{}
	rec := &recordingMetrics{}
	svc, err := NewService(ServiceParams{
		Bids:              bids.NewRepository(conn),
		Quotations:        quotations.NewRepository(conn),
		Suppliers:         suppliers.NewRepository(conn),
		Ledger:            ledgerSvc,
		Outbox:            outbox.NewService(outbox.NewRepository(conn), nil),
		Gateway:           gw,
		TransactionRunner: db.Wrap(conn),
		Metrics:           rec,
		Currency:          "sek",
		PublicURL:         "https://movemarket.se/",
		Clock:             func() time.Time { return fixedNow },
	})
	require.NoError(t, err)

	require.NoError(t, conn.Create(&models.Supplier{ID: 1, CompanyName: "Flytt AB", Email: "flytt@example.se"}).Error)
	return &harness{db: conn, gateway: gw, metrics: rec, svc: svc}
}

func (h *harness) seedQuotation(t *testing.T, qt enums.QuotationType, id int64, rut bool) {
	t.Helper()
	table, err := quotations.TableFor(qt)
	require.NoError(t, err)
	require.NoError(t, h.db.Table(table).Create(&models.Quotation{
		ID:            id,
		CustomerName:  "Sara",
		CustomerEmail: "sara@example.se",
		FromCity:      "Göteborg",
		RUTEligible:   rut,
	}).Error)
}

func intentEvent(id, eventType string, intent *stripe.PaymentIntent) *stripe.Event {
	return &stripe.Event{ID: id, Type: eventType, Intent: intent}
}

func bidIntent(bidID, leg string, amount int64) *stripe.PaymentIntent {
	return &stripe.PaymentIntent{
		ID:       "pi_" + bidID + "_" + leg,
		Amount:   amount,
		Currency: "sek",
		Status:   stripe.IntentStatusSucceeded,
		Metadata: map[string]string{"bid_id": bidID, "payment_type": leg, "quotation_type": "private_move"},
	}
}

func (h *harness) outboxRows(t *testing.T) []models.OutboxEvent {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, h.db.Order("created_at ASC").Find(&rows).Error)
	return rows
}

func (h *harness) ledgerEvents(t *testing.T) []models.LedgerEvent {
	t.Helper()
	var rows []models.LedgerEvent
	require.NoError(t, h.db.Order("created_at ASC").Find(&rows).Error)
	return rows
}

func decodePayload[T any](t *testing.T, row models.OutboxEvent) T {
	t.Helper()
	var env outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(row.Payload, &env))
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func countByType(rows []models.OutboxEvent) map[enums.OutboxEventType]int {
	out := map[enums.OutboxEventType]int{}
	for _, row := range rows {
		out[row.EventType]++
	}
	return out
}

func TestInitialPaymentSucceeded(t *testing.T) {
	h := newHarness(t)
	h.seedQuotation(t, enums.QuotationPrivateMove, 1, false)
	bidstest.SeedPartial(t, h.db, bidstest.Fixture{BidID: 7, FinalPrice: decimal.NewFromInt(10000)})

	res, err := h.svc.HandleEvent(context.Background(), enums.PaymentFlowPartial,
		intentEvent("evt_a", stripe.EventPaymentIntentSucceeded, bidIntent("7", "initial", 200000)))
	require.NoError(t, err)
	require.Equal(t, ResultApplied, res)

	var bid models.Bid
	require.NoError(t, h.db.First(&bid, 7).Error)
	require.Equal(t, enums.PaymentStatusInitialPaymentCompleted, bid.PaymentStatus)
	require.Equal(t, enums.OrderStatusActive, bid.OrderStatus)
	require.False(t, bid.RequiresPaymentMethod)

	var payment models.BidPayment
	require.NoError(t, h.db.Where("bid_id = ?", 7).Take(&payment).Error)
	require.Equal(t, enums.LegStatusPaid, payment.InitialPaymentStatus)
	require.Equal(t, enums.LegStatusPending, payment.RemainingPaymentStatus)
	require.NotNil(t, payment.InitialPaymentIntentID)
	require.Equal(t, "pi_7_initial", *payment.InitialPaymentIntentID)
	require.NotNil(t, payment.InitialPaymentDate)

	events := h.ledgerEvents(t)
	require.Len(t, events, 1)
	require.Equal(t, enums.LedgerEventLegPaid, events[0].Type)
	require.Equal(t, int64(200000), events[0].AmountMinor)
	require.Equal(t, "evt_a", events[0].StripeEventID)

	rows := h.outboxRows(t)
	counts := countByType(rows)
	require.Equal(t, 1, counts[enums.EventEmailRequested])
	require.Equal(t, 1, counts[enums.EventNotificationRequested])
	require.Equal(t, 1, counts[enums.EventBroadcastRequested])

	for _, row := range rows {
		require.Equal(t, enums.AggregateBid, row.AggregateType)
		require.Equal(t, "7", row.AggregateID)
		switch row.EventType {
		case enums.EventEmailRequested:
			email := decodePayload[payloads.EmailRequestedEvent](t, row)
			require.Equal(t, "flytt@example.se", email.To)
			require.Equal(t, "2000.00", email.Data["amount"])
		case enums.EventBroadcastRequested:
			b := decodePayload[payloads.BroadcastRequestedEvent](t, row)
			require.Equal(t, "bid:7", b.Room)
			require.True(t, b.AllListeners)
			require.Equal(t, RealtimeEventPaymentUpdate, b.Event)
			require.Equal(t, "initial", b.Payload["payment_type"])
			require.Equal(t, "initial_payment_completed", b.Payload["status"])
			require.EqualValues(t, 7, b.Payload["bid_id"])
		}
	}
	require.Equal(t, []string{"applied"}, h.metrics.results)
}

func TestRemainingPaymentCompletesOrder(t *testing.T) {
	h := newHarness(t)
	h.seedQuotation(t, enums.QuotationPrivateMove, 1, false)
	bidstest.SeedPartial(t, h.db, bidstest.Fixture{
		BidID:         7,
		FinalPrice:    decimal.NewFromInt(10000),
		PaymentStatus: enums.PaymentStatusInitialPaymentCompleted,
		InitialPaid:   true,
	})

	res, err := h.svc.HandleEvent(context.Background(), enums.PaymentFlowPartial,
		intentEvent("evt_b", stripe.EventPaymentIntentSucceeded, bidIntent("7", "remaining", 800000)))
	require.NoError(t, err)
	require.Equal(t, ResultApplied, res)

	var bid models.Bid
	require.NoError(t, h.db.First(&bid, 7).Error)
	require.Equal(t, enums.PaymentStatusPaid, bid.PaymentStatus)
	require.Equal(t, enums.OrderStatusCompleted, bid.OrderStatus)
	require.NotNil(t, bid.CompletionDate)
	require.True(t, bid.CompletionDate.Equal(fixedNow))

	counts := countByType(h.outboxRows(t))
	require.Equal(t, 2, counts[enums.EventEmailRequested])
	require.Equal(t, 1, counts[enums.EventNotificationRequested])
	require.Equal(t, 1, counts[enums.EventBroadcastRequested])
}

func TestRUTInitialPaymentMatchesDiscountedAmount(t *testing.T) {
	h := newHarness(t)
	h.seedQuotation(t, enums.QuotationMoveOutCleaning, 4, true)
	bidstest.SeedPartial(t, h.db, bidstest.Fixture{
		BidID:         9,
		QuotationType: enums.QuotationMoveOutCleaning,
		QuotationID:   4,
		FinalPrice:    decimal.NewFromInt(20000),
	})

	res, err := h.svc.HandleEvent(context.Background(), enums.PaymentFlowPartial,
		intentEvent("evt_c", stripe.EventPaymentIntentSucceeded, bidIntent("9", "initial", 200000)))
	require.NoError(t, err)
	require.Equal(t, ResultApplied, res)
	require.Empty(t, h.gateway.updates)

	events := h.ledgerEvents(t)
	require.Len(t, events, 1)
	require.JSONEq(t, `{"rut":true}`, string(events[0].Metadata))
}

func TestReplayedSuccessWritesNothing(t *testing.T) {
	h := newHarness(t)
	h.seedQuotation(t, enums.QuotationPrivateMove, 1, false)
	bidstest.SeedPartial(t, h.db, bidstest.Fixture{BidID: 7, FinalPrice: decimal.NewFromInt(10000)})
	ctx := context.Background()

	_, err := h.svc.HandleEvent(ctx, enums.PaymentFlowPartial,
		intentEvent("evt_1", stripe.EventPaymentIntentSucceeded, bidIntent("7", "initial", 200000)))
	require.NoError(t, err)
	before := len(h.outboxRows(t))

	res, err := h.svc.HandleEvent(ctx, enums.PaymentFlowPartial,
		intentEvent("evt_2", stripe.EventPaymentIntentSucceeded, bidIntent("7", "initial", 200000)))
	require.NoError(t, err)
	require.Equal(t, ResultReplay, res)
	require.Len(t, h.outboxRows(t), before)
	require.Len(t, h.ledgerEvents(t), 1)
}

func TestFailedPaymentRequiresNewMethod(t *testing.T) {
	h := newHarness(t)
	h.seedQuotation(t, enums.QuotationPrivateMove, 1, false)
	bidstest.SeedPartial(t, h.db, bidstest.Fixture{BidID: 7, FinalPrice: decimal.NewFromInt(10000), PaymentStatus: enums.PaymentStatusPending})
	ctx := context.Background()

	intent := bidIntent("7", "initial", 200000)
	intent.Status = stripe.IntentStatusRequiresPaymentMethod
	res, err := h.svc.HandleEvent(ctx, enums.PaymentFlowPartial, intentEvent("evt_f1", stripe.EventPaymentIntentFailed, intent))
	require.NoError(t, err)
	require.Equal(t, ResultApplied, res)

	var bid models.Bid
	require.NoError(t, h.db.First(&bid, 7).Error)
	require.Equal(t, enums.PaymentStatusAwaitingInitialPayment, bid.PaymentStatus)
	require.True(t, bid.RequiresPaymentMethod)

	var payment models.BidPayment
	require.NoError(t, h.db.Where("bid_id = ?", 7).Take(&payment).Error)
	require.Equal(t, enums.LegStatusPending, payment.InitialPaymentStatus)

	counts := countByType(h.outboxRows(t))
	require.Equal(t, 0, counts[enums.EventEmailRequested])
	require.Equal(t, 1, counts[enums.EventNotificationRequested])
	require.Equal(t, 1, counts[enums.EventBroadcastRequested])

	res, err = h.svc.HandleEvent(ctx, enums.PaymentFlowPartial, intentEvent("evt_f2", stripe.EventPaymentIntentFailed, intent))
	require.NoError(t, err)
	require.Equal(t, ResultReplay, res)
	require.Len(t, h.outboxRows(t), 2)
}

func TestFailedRUTIntentAmountIsCorrected(t *testing.T) {
	h := newHarness(t)
	h.seedQuotation(t, enums.QuotationMoveOutCleaning, 4, true)
	bidstest.SeedPartial(t, h.db, bidstest.Fixture{
		BidID:         9,
		QuotationType: enums.QuotationMoveOutCleaning,
		QuotationID:   4,
		FinalPrice:    decimal.NewFromInt(20000),
	})

	intent := bidIntent("9", "initial", 400000)
	intent.Status = stripe.IntentStatusRequiresPaymentMethod
	_, err := h.svc.HandleEvent(context.Background(), enums.PaymentFlowPartial,
		intentEvent("evt_rut", stripe.EventPaymentIntentFailed, intent))
	require.NoError(t, err)
	require.Equal(t, []int64{200000}, h.gateway.updates)

	types := map[enums.LedgerEventType]int{}
	for _, ev := range h.ledgerEvents(t) {
		types[ev.Type]++
	}
	require.Equal(t, 1, types[enums.LedgerEventAmountAdjusted])
	require.Equal(t, 1, types[enums.LedgerEventLegFailed])
}

func TestSucceededRUTMismatchNeverMutatesIntent(t *testing.T) {
	h := newHarness(t)
	h.seedQuotation(t, enums.QuotationMoveOutCleaning, 4, true)
	bidstest.SeedPartial(t, h.db, bidstest.Fixture{
		BidID:         9,
		QuotationType: enums.QuotationMoveOutCleaning,
		QuotationID:   4,
		FinalPrice:    decimal.NewFromInt(20000),
	})

	res, err := h.svc.HandleEvent(context.Background(), enums.PaymentFlowPartial,
		intentEvent("evt_s", stripe.EventPaymentIntentSucceeded, bidIntent("9", "initial", 400000)))
	require.NoError(t, err)
	require.Equal(t, ResultApplied, res)
	require.Empty(t, h.gateway.updates)
}

func TestRUTAmountFollowsStoredLegOnUnevenPrice(t *testing.T) {
	h := newHarness(t)
	h.seedQuotation(t, enums.QuotationMoveOutCleaning, 4, true)
	// 100.03 splits into 20.01 + 80.02; the sheet charges round(20.01 * 0.5 * 100)
	bidstest.SeedPartial(t, h.db, bidstest.Fixture{
		BidID:         9,
		QuotationType: enums.QuotationMoveOutCleaning,
		QuotationID:   4,
		FinalPrice:    decimal.RequireFromString("100.03"),
	})

	failed := bidIntent("9", "initial", 1001)
	failed.Status = stripe.IntentStatusRequiresPaymentMethod
	_, err := h.svc.HandleEvent(context.Background(), enums.PaymentFlowPartial,
		intentEvent("evt_uneven_fail", stripe.EventPaymentIntentFailed, failed))
	require.NoError(t, err)
	require.Empty(t, h.gateway.updates)

	for _, ev := range h.ledgerEvents(t) {
		require.NotEqual(t, enums.LedgerEventAmountAdjusted, ev.Type)
	}
}

func TestRemainingBeforeInitialIsIllegal(t *testing.T) {
	h := newHarness(t)
	h.seedQuotation(t, enums.QuotationPrivateMove, 1, false)
	bidstest.SeedPartial(t, h.db, bidstest.Fixture{BidID: 7, FinalPrice: decimal.NewFromInt(10000)})

	_, err := h.svc.HandleEvent(context.Background(), enums.PaymentFlowPartial,
		intentEvent("evt_x", stripe.EventPaymentIntentSucceeded, bidIntent("7", "remaining", 800000)))
	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	var bid models.Bid
	require.NoError(t, h.db.First(&bid, 7).Error)
	require.Equal(t, enums.PaymentStatusAwaitingInitialPayment, bid.PaymentStatus)
	require.Empty(t, h.outboxRows(t))
	require.Equal(t, []string{"error"}, h.metrics.results)
}

func TestRemainingFailureBeforeInitialIsStale(t *testing.T) {
	h := newHarness(t)
	h.seedQuotation(t, enums.QuotationPrivateMove, 1, false)
	bidstest.SeedPartial(t, h.db, bidstest.Fixture{BidID: 7, FinalPrice: decimal.NewFromInt(10000)})

	intent := bidIntent("7", "remaining", 800000)
	intent.Status = stripe.IntentStatusRequiresPaymentMethod
	res, err := h.svc.HandleEvent(context.Background(), enums.PaymentFlowPartial,
		intentEvent("evt_y", stripe.EventPaymentIntentFailed, intent))
	require.NoError(t, err)
	require.Equal(t, ResultStale, res)
	require.Empty(t, h.outboxRows(t))
}

func TestOutboxFailureRollsBackLedger(t *testing.T) {
	h := newHarness(t)
	h.seedQuotation(t, enums.QuotationPrivateMove, 1, false)
	bidstest.SeedPartial(t, h.db, bidstest.Fixture{BidID: 7, FinalPrice: decimal.NewFromInt(10000)})

	require.NoError(t, h.db.Callback().Create().Before("gorm:create").Register("test:fail_outbox", func(tx *gorm.DB) {
		if tx.Statement.Table == "outbox_events" {
			_ = tx.AddError(errors.New("outbox unavailable"))
		}
	}))

	_, err := h.svc.HandleEvent(context.Background(), enums.PaymentFlowPartial,
		intentEvent("evt_rb", stripe.EventPaymentIntentSucceeded, bidIntent("7", "initial", 200000)))
	require.Error(t, err)

	var bid models.Bid
	require.NoError(t, h.db.First(&bid, 7).Error)
	require.Equal(t, enums.PaymentStatusAwaitingInitialPayment, bid.PaymentStatus)
	var payment models.BidPayment
	require.NoError(t, h.db.Where("bid_id = ?", 7).Take(&payment).Error)
	require.Equal(t, enums.LegStatusPending, payment.InitialPaymentStatus)
	require.Nil(t, payment.InitialPaymentIntentID)
	require.Empty(t, h.ledgerEvents(t))
}

func TestCheckoutFlowKeyedByOrder(t *testing.T) {
	h := newHarness(t)
	h.seedQuotation(t, enums.QuotationPrivateMove, 1, false)
	bidstest.SeedCheckout(t, h.db, bidstest.Fixture{BidID: 3, OrderID: "ord_1", FinalPrice: decimal.NewFromInt(5000)})

	intent := &stripe.PaymentIntent{
		ID:       "pi_ord",
		Amount:   100000,
		Currency: "sek",
		Status:   stripe.IntentStatusSucceeded,
		Metadata: map[string]string{"order_id": "ord_1", "bid_id": "3", "payment_type": "initial"},
	}
	res, err := h.svc.HandleEvent(context.Background(), enums.PaymentFlowCheckout,
		intentEvent("evt_o", stripe.EventPaymentIntentSucceeded, intent))
	require.NoError(t, err)
	require.Equal(t, ResultApplied, res)

	var accepted models.AcceptedBid
	require.NoError(t, h.db.Where("order_id = ?", "ord_1").Take(&accepted).Error)
	require.Equal(t, enums.PaymentStatusInitialPaid, accepted.PaymentStatus)

	for _, row := range h.outboxRows(t) {
		require.Equal(t, enums.AggregateOrder, row.AggregateType)
		if row.EventType == enums.EventBroadcastRequested {
			b := decodePayload[payloads.BroadcastRequestedEvent](t, row)
			require.Equal(t, "order:ord_1", b.Room)
			require.True(t, b.AllListeners)
			require.Equal(t, "ord_1", b.Payload["order_id"])
		}
	}
}

func TestPartialFlowIgnoresCheckoutIntents(t *testing.T) {
	h := newHarness(t)
	h.seedQuotation(t, enums.QuotationPrivateMove, 1, false)
	bidstest.SeedCheckout(t, h.db, bidstest.Fixture{BidID: 3, OrderID: "ord_1", FinalPrice: decimal.NewFromInt(5000)})
	ctx := context.Background()

	legacy := &stripe.PaymentIntent{
		ID:       "pi_ord",
		Amount:   100000,
		Currency: "sek",
		Status:   stripe.IntentStatusSucceeded,
		Metadata: map[string]string{"order_id": "ord_1", "bid_id": "3", "payment_type": "initial"},
	}
	res, err := h.svc.HandleEvent(ctx, enums.PaymentFlowPartial, intentEvent("evt_ord", stripe.EventPaymentIntentSucceeded, legacy))
	require.NoError(t, err)
	require.Equal(t, ResultIgnored, res)

	stamped := bidIntent("3", "initial", 100000)
	stamped.Metadata["payment_flow"] = "checkout"
	stamped.Metadata["order_id"] = "ord_1"
	res, err = h.svc.HandleEvent(ctx, enums.PaymentFlowPartial, intentEvent("evt_ord2", stripe.EventPaymentIntentSucceeded, stamped))
	require.NoError(t, err)
	require.Equal(t, ResultIgnored, res)

	var accepted models.AcceptedBid
	require.NoError(t, h.db.Where("order_id = ?", "ord_1").Take(&accepted).Error)
	require.NotEqual(t, enums.PaymentStatusInitialPaid, accepted.PaymentStatus)
	require.Empty(t, h.outboxRows(t))
	require.Empty(t, h.ledgerEvents(t))

	res, err = h.svc.HandleEvent(ctx, enums.PaymentFlowCheckout, intentEvent("evt_ord", stripe.EventPaymentIntentSucceeded, legacy))
	require.NoError(t, err)
	require.Equal(t, ResultApplied, res)
}

func TestIgnoredEvents(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.svc.HandleEvent(ctx, enums.PaymentFlowPartial, &stripe.Event{ID: "evt_other", Type: "charge.refunded"})
	require.NoError(t, err)
	require.Equal(t, ResultIgnored, res)

	noMeta := &stripe.PaymentIntent{ID: "pi_x", Amount: 100, Metadata: map[string]string{}}
	res, err = h.svc.HandleEvent(ctx, enums.PaymentFlowPartial, intentEvent("evt_nm", stripe.EventPaymentIntentSucceeded, noMeta))
	require.NoError(t, err)
	require.Equal(t, ResultIgnored, res)

	// bid_id present but the checkout endpoint looks for order_id
	res, err = h.svc.HandleEvent(ctx, enums.PaymentFlowCheckout,
		intentEvent("evt_wrong", stripe.EventPaymentIntentSucceeded, bidIntent("7", "initial", 100)))
	require.NoError(t, err)
	require.Equal(t, ResultIgnored, res)
}

func TestMissingLedgerIsAnError(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.HandleEvent(context.Background(), enums.PaymentFlowPartial,
		intentEvent("evt_missing", stripe.EventPaymentIntentSucceeded, bidIntent("404", "initial", 100)))
	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))
}
