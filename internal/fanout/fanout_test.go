package fanout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/movemarket-backend/pkg/db/models"
	"github.com/angelmondragon/movemarket-backend/pkg/enums"
	"github.com/angelmondragon/movemarket-backend/pkg/mailer"
	"github.com/angelmondragon/movemarket-backend/pkg/outbox"
	"github.com/angelmondragon/movemarket-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/movemarket-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/movemarket-backend/pkg/outbox/registry"
	"github.com/google/uuid"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg mailer.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type memoryStore struct {
	mu   sync.Mutex
	keys map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{keys: map[string]string{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key], nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = "1"
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "mm:idempotency:" + scope + ":" + id
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.keys, k)
	}
	return nil
}

type roomEmit struct {
	room    string
	event   string
	payload map[string]any
}

type recordingBroadcaster struct {
	emits []roomEmit
	err   error
}

func (b *recordingBroadcaster) EmitToAll(_ context.Context, event string, payload map[string]any) error {
	return b.EmitToRoom(context.Background(), "", event, payload)
}

func (b *recordingBroadcaster) EmitToRoom(_ context.Context, room, event string, payload map[string]any) error {
	if b.err != nil {
		return b.err
	}
	b.emits = append(b.emits, roomEmit{room: room, event: event, payload: payload})
	return nil
}

func resolved(eventType enums.OutboxEventType, payload any) (models.OutboxEvent, *registry.ResolvedEvent) {
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateBid,
		AggregateID:   "7",
	}
	return event, &registry.ResolvedEvent{
		Envelope: outbox.PayloadEnvelope{Version: 1, EventID: uuid.NewString()},
		Payload:  payload,
	}
}

func isNonRetryable(err error) bool {
	var nonRetry registry.NonRetryableError
	return errors.As(err, &nonRetry)
}

func TestRouterDispatchesByEventType(t *testing.T) {
	var seen []enums.OutboxEventType
	record := HandlerFunc(func(_ context.Context, _ *gorm.DB, event models.OutboxEvent, _ *registry.ResolvedEvent) error {
		seen = append(seen, event.EventType)
		return nil
	})
	router := NewRouter().
		Register(enums.EventEmailRequested, record).
		Register(enums.EventBroadcastRequested, record)

	event, res := resolved(enums.EventBroadcastRequested, nil)
	require.NoError(t, router.Handle(context.Background(), nil, event, res))
	require.Equal(t, []enums.OutboxEventType{enums.EventBroadcastRequested}, seen)

	event, res = resolved(enums.EventNotificationRequested, nil)
	err := router.Handle(context.Background(), nil, event, res)
	require.Error(t, err)
	require.True(t, isNonRetryable(err))
}

func TestEmailHandlerSendsOnce(t *testing.T) {
	sender := &recordingSender{}
	manager, err := idempotency.NewManager(newMemoryStore(), time.Hour)
	require.NoError(t, err)
	h, err := NewEmailHandler(sender, manager, nil)
	require.NoError(t, err)

	event, res := resolved(enums.EventEmailRequested, &payloads.EmailRequestedEvent{
		To:       "flytt@example.se",
		Template: mailer.TemplateVerificationCode,
		Data:     map[string]any{"code": "482913", "ttl_minutes": 10},
	})
	require.NoError(t, h.Handle(context.Background(), nil, event, res))
	require.NoError(t, h.Handle(context.Background(), nil, event, res))

	require.Len(t, sender.sent, 1)
	require.Equal(t, "flytt@example.se", sender.sent[0].To)
	require.Contains(t, sender.sent[0].HTML, "482913")
}

func TestEmailHandlerSendFailureIsRetryable(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down")}
	manager, err := idempotency.NewManager(newMemoryStore(), time.Hour)
	require.NoError(t, err)
	h, err := NewEmailHandler(sender, manager, nil)
	require.NoError(t, err)

	event, res := resolved(enums.EventEmailRequested, &payloads.EmailRequestedEvent{
		To:       "flytt@example.se",
		Template: mailer.TemplateVerificationCode,
		Data:     map[string]any{"code": "1"},
	})
	err = h.Handle(context.Background(), nil, event, res)
	require.Error(t, err)
	require.False(t, isNonRetryable(err))

	sender.err = nil
	require.NoError(t, h.Handle(context.Background(), nil, event, res))
	require.Len(t, sender.sent, 1)
}

func TestEmailHandlerRejectsUnrenderable(t *testing.T) {
	h, err := NewEmailHandler(&recordingSender{}, nil, nil)
	require.NoError(t, err)

	cases := map[string]any{
		"unknown template": &payloads.EmailRequestedEvent{To: "a@b.se", Template: "newsletter"},
		"no recipient":     &payloads.EmailRequestedEvent{Template: mailer.TemplateVerificationCode},
		"wrong payload":    &payloads.BroadcastRequestedEvent{Event: "x"},
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			event, res := resolved(enums.EventEmailRequested, payload)
			err := h.Handle(context.Background(), nil, event, res)
			require.True(t, isNonRetryable(err), "got %v", err)
		})
	}
}

func TestBroadcastHandlerPaymentUpdateReachesAllListeners(t *testing.T) {
	b := &recordingBroadcaster{}
	h, err := NewBroadcastHandler(b)
	require.NoError(t, err)

	original := map[string]any{"bid_id": 7, "status": "initial_payment_completed"}
	event, res := resolved(enums.EventBroadcastRequested, &payloads.BroadcastRequestedEvent{
		Room:         "bid:7",
		AllListeners: true,
		Event:        "payment_update",
		Payload:      original,
	})
	require.NoError(t, h.Handle(context.Background(), nil, event, res))

	require.Len(t, b.emits, 1)
	require.Equal(t, "", b.emits[0].room, "emitted to every client, not only the room")
	require.Equal(t, "payment_update", b.emits[0].event)
	require.Equal(t, "bid:7", b.emits[0].payload["room"])
	require.Equal(t, 7, b.emits[0].payload["bid_id"])
	require.NotContains(t, original, "room")
}

func TestBroadcastHandlerRoutesRoomAndGlobal(t *testing.T) {
	b := &recordingBroadcaster{}
	h, err := NewBroadcastHandler(b)
	require.NoError(t, err)

	event, res := resolved(enums.EventBroadcastRequested, &payloads.BroadcastRequestedEvent{
		Room:    "bid:7",
		Event:   "payment_update",
		Payload: map[string]any{"bid_id": 7, "status": "initial_payment_completed"},
	})
	require.NoError(t, h.Handle(context.Background(), nil, event, res))

	event, res = resolved(enums.EventBroadcastRequested, &payloads.BroadcastRequestedEvent{
		Event:   "payment_update",
		Payload: map[string]any{"order_id": "ord_1"},
	})
	require.NoError(t, h.Handle(context.Background(), nil, event, res))

	require.Len(t, b.emits, 2)
	require.Equal(t, "bid:7", b.emits[0].room)
	require.Equal(t, "", b.emits[1].room)

	b.err = errors.New("redis down")
	err = h.Handle(context.Background(), nil, event, res)
	require.Error(t, err)
	require.False(t, isNonRetryable(err))

	event, res = resolved(enums.EventBroadcastRequested, &payloads.BroadcastRequestedEvent{Room: "bid:7"})
	require.True(t, isNonRetryable(h.Handle(context.Background(), nil, event, res)))
}
