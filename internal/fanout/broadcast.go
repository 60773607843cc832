package fanout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/movemarket-backend/pkg/db/models"
	"github.com/angelmondragon/movemarket-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/movemarket-backend/pkg/outbox/registry"
	"github.com/angelmondragon/movemarket-backend/pkg/realtime"
	"gorm.io/gorm"
)

// BroadcastHandler pushes broadcast_requested rows to realtime clients.
type BroadcastHandler struct {
	broadcaster realtime.Broadcaster
}

func NewBroadcastHandler(b realtime.Broadcaster) (*BroadcastHandler, error) {
	if b == nil {
		return nil, errors.New("realtime broadcaster required")
	}
	return &BroadcastHandler{broadcaster: b}, nil
}

func (h *BroadcastHandler) Handle(ctx context.Context, _ *gorm.DB, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	payload, ok := resolved.Payload.(*payloads.BroadcastRequestedEvent)
	if !ok || payload == nil {
		return registry.NewNonRetryableError(fmt.Errorf("unexpected payload %T for %s", resolved.Payload, event.EventType))
	}
	if strings.TrimSpace(payload.Event) == "" {
		return registry.NewNonRetryableError(errors.New("broadcast event name required"))
	}
	if payload.Room == "" {
		return h.broadcaster.EmitToAll(ctx, payload.Event, payload.Payload)
	}
	if payload.AllListeners {
		// room members are connected clients too, so one global emit reaches them
		data := make(map[string]any, len(payload.Payload)+1)
		for k, v := range payload.Payload {
			data[k] = v
		}
		data["room"] = payload.Room
		return h.broadcaster.EmitToAll(ctx, payload.Event, data)
	}
	return h.broadcaster.EmitToRoom(ctx, payload.Room, payload.Event, payload.Payload)
}
