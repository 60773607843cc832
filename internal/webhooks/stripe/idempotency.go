package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/movemarket-backend/pkg/enums"
	"github.com/angelmondragon/movemarket-backend/pkg/redis"
)

// IdempotencyGuard remembers processed Stripe event ids so redeliveries
// short-circuit before touching the ledger. Markers are kept per payment flow:
// Stripe delivers the same event id to every subscribed endpoint.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &IdempotencyGuard{
		store: store,
		ttl:   ttl,
		scope: scope,
	}, nil
}

// CheckAndMark reports whether the event id was already seen by the flow and
// marks it otherwise.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, flow enums.PaymentFlow, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	key := g.store.IdempotencyKey(g.flowScope(flow), eventID)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Delete forgets an event id so Stripe's retry can process it again.
func (g *IdempotencyGuard) Delete(ctx context.Context, flow enums.PaymentFlow, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	key := g.store.IdempotencyKey(g.flowScope(flow), eventID)
	return g.store.Del(ctx, key)
}

func (g *IdempotencyGuard) flowScope(flow enums.PaymentFlow) string {
	return g.scope + ":" + flow.String()
}
