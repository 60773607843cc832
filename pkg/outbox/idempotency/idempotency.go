package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/movemarket-backend/pkg/redis"
)

// Manager tracks handled outbox envelopes per consumer using Redis SETNX with
// a TTL. Keys follow the `mm:idempotency:evt:processed:<consumer>:<event_id>`
// pattern.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

// NewManager builds an idempotency guard that marks events as processed for the given TTL.
func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{
		store: store,
		ttl:   ttl,
	}, nil
}

// CheckAndMarkProcessed returns true if the event has already been processed and
// otherwise marks it as processed with the configured TTL.
func (m *Manager) CheckAndMarkProcessed(ctx context.Context, consumer, eventID string) (bool, error) {
	key, err := m.processedKey(consumer, eventID)
	if err != nil {
		return false, err
	}
	set, err := m.store.SetNX(ctx, key, "1", m.ttl)
	if err != nil {
		return false, err
	}
	return !set, nil
}

func (m *Manager) Delete(ctx context.Context, consumer, eventID string) error {
	key, err := m.processedKey(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

// Once runs fn unless the consumer already handled eventID. A failing fn
// clears the marker so the next delivery retries.
func (m *Manager) Once(ctx context.Context, consumer, eventID string, fn func(context.Context) error) (bool, error) {
	already, err := m.CheckAndMarkProcessed(ctx, consumer, eventID)
	if err != nil {
		return false, err
	}
	if already {
		return false, nil
	}
	if err := fn(ctx); err != nil {
		if delErr := m.Delete(ctx, consumer, eventID); delErr != nil {
			return false, errors.Join(err, delErr)
		}
		return false, err
	}
	return true, nil
}

func (m *Manager) processedKey(consumer, eventID string) (string, error) {
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if strings.TrimSpace(eventID) == "" {
		return "", errors.New("event id is required")
	}
	scope := fmt.Sprintf("evt:processed:%s", consumer)
	return m.store.IdempotencyKey(scope, eventID), nil
}
