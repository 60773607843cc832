package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/angelmondragon/movemarket-backend/pkg/db/models"
	"github.com/angelmondragon/movemarket-backend/pkg/enums"
	"github.com/angelmondragon/movemarket-backend/pkg/outbox"
	"github.com/angelmondragon/movemarket-backend/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its payload schema and the
// aggregates allowed to raise it.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	Aggregates     []enums.OutboxAggregateType
	PayloadFactory func() interface{}
}

func (d EventDescriptor) allows(aggregate enums.OutboxAggregateType) bool {
	for _, candidate := range d.Aggregates {
		if candidate == aggregate {
			return true
		}
	}
	return false
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    interface{}
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

// Error implements error.
func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

// Unwrap exposes the wrapped error.
func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewEventRegistry builds the registry for every side effect the platform emits.
func NewEventRegistry() *EventRegistry {
	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}

	reg.register(EventDescriptor{
		EventType: enums.EventEmailRequested,
		Aggregates: []enums.OutboxAggregateType{
			enums.AggregateBid,
			enums.AggregateOrder,
			enums.AggregateReview,
			enums.AggregateVerification,
		},
		PayloadFactory: func() interface{} { return &payloads.EmailRequestedEvent{} },
	})
	reg.register(EventDescriptor{
		EventType:      enums.EventNotificationRequested,
		Aggregates:     []enums.OutboxAggregateType{enums.AggregateBid, enums.AggregateOrder},
		PayloadFactory: func() interface{} { return &payloads.NotificationRequestedEvent{} },
	})
	reg.register(EventDescriptor{
		EventType:      enums.EventBroadcastRequested,
		Aggregates:     []enums.OutboxAggregateType{enums.AggregateBid, enums.AggregateOrder},
		PayloadFactory: func() interface{} { return &payloads.BroadcastRequestedEvent{} },
	})

	return reg
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if !desc.allows(event.AggregateType) {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate %s cannot raise %s", event.AggregateType, event.EventType))
	}
	if strings.TrimSpace(event.AggregateID) == "" {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}

	trimmed := bytes.TrimSpace(envelope.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventType))
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}
