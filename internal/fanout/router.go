// Package fanout delivers resolved outbox rows to the collaborator that owns
// each side effect: SMTP email, the in-app notification store and the
// realtime hub.
package fanout

import (
	"context"
	"fmt"

	"github.com/angelmondragon/movemarket-backend/pkg/db/models"
	"github.com/angelmondragon/movemarket-backend/pkg/enums"
	"github.com/angelmondragon/movemarket-backend/pkg/outbox/registry"
	"gorm.io/gorm"
)

// Handler performs one side effect. tx is the dispatcher transaction holding
// the row lock; handlers that write to the database must use it.
type Handler interface {
	Handle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, resolved *registry.ResolvedEvent) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, resolved *registry.ResolvedEvent) error

func (f HandlerFunc) Handle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	return f(ctx, tx, event, resolved)
}

// Router picks the handler registered for an event type.
type Router struct {
	handlers map[enums.OutboxEventType]Handler
}

func NewRouter() *Router {
	return &Router{handlers: make(map[enums.OutboxEventType]Handler)}
}

// Register binds h to eventType, replacing any previous binding.
func (r *Router) Register(eventType enums.OutboxEventType, h Handler) *Router {
	if h != nil {
		r.handlers[eventType] = h
	}
	return r
}

func (r *Router) Handle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	h, ok := r.handlers[event.EventType]
	if !ok {
		return registry.NewNonRetryableError(fmt.Errorf("no handler registered for %s", event.EventType))
	}
	return h.Handle(ctx, tx, event, resolved)
}
