package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/movemarket-backend/pkg/db/models"
	"github.com/angelmondragon/movemarket-backend/pkg/enums"
	"github.com/angelmondragon/movemarket-backend/pkg/outbox"
	"github.com/angelmondragon/movemarket-backend/pkg/outbox/payloads"
)

func TestEventRegistryResolveSuccess(t *testing.T) {
	reg := NewEventRegistry()

	payloadBytes := mustMarshal(t, payloads.EmailRequestedEvent{
		To:       "mover@example.com",
		Template: "supplier_payment_received",
		Data:     map[string]any{"bid_id": "7"},
	})

	event := models.OutboxEvent{
		EventType:     enums.EventEmailRequested,
		AggregateType: enums.AggregateBid,
		AggregateID:   "7",
		Payload:       mustEnvelope(t, payloadBytes),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	payload, ok := resolved.Payload.(*payloads.EmailRequestedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if payload.To != "mover@example.com" || payload.Data["bid_id"] != "7" {
		t.Fatalf("payload mismatch %+v", payload)
	}
	if resolved.Envelope.EventID == "" {
		t.Fatalf("envelope missing event id")
	}
	if resolved.Envelope.OccurredAt.IsZero() {
		t.Fatalf("envelope missing occurred_at")
	}
}

func TestEventRegistryResolveUnknownEvent(t *testing.T) {
	reg := NewEventRegistry()

	event := models.OutboxEvent{
		EventType:     enums.OutboxEventType("sms_requested"),
		AggregateType: enums.AggregateBid,
		AggregateID:   "7",
		Payload:       mustEnvelope(t, []byte(`{"to":"+46"}`)),
	}

	assertNonRetryable(t, reg, event)
}

func TestEventRegistryResolveAggregateMismatch(t *testing.T) {
	reg := NewEventRegistry()

	event := models.OutboxEvent{
		EventType:     enums.EventBroadcastRequested,
		AggregateType: enums.AggregateVerification,
		AggregateID:   "someone@example.com",
		Payload:       mustEnvelope(t, []byte(`{"event":"payment_update","payload":{}}`)),
	}

	assertNonRetryable(t, reg, event)
}

func TestEventRegistryResolveMissingPayload(t *testing.T) {
	reg := NewEventRegistry()

	event := models.OutboxEvent{
		EventType:     enums.EventNotificationRequested,
		AggregateType: enums.AggregateOrder,
		AggregateID:   "42",
		Payload:       mustEnvelope(t, []byte(`null`)),
	}

	assertNonRetryable(t, reg, event)
}

func TestEventRegistryResolveMissingAggregateID(t *testing.T) {
	reg := NewEventRegistry()

	event := models.OutboxEvent{
		EventType:     enums.EventNotificationRequested,
		AggregateType: enums.AggregateOrder,
		Payload:       mustEnvelope(t, []byte(`{"title":"x"}`)),
	}

	assertNonRetryable(t, reg, event)
}

func assertNonRetryable(t *testing.T, reg *EventRegistry, event models.OutboxEvent) {
	t.Helper()
	_, err := reg.Resolve(event)
	if err == nil {
		t.Fatalf("expected error")
	}
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error, got %T", err)
	}
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func mustEnvelope(t *testing.T, data []byte) []byte {
	t.Helper()
	return mustMarshal(t, outbox.PayloadEnvelope{
		Version:    1,
		EventID:    "evt-1",
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
}
