// Package realtime fans payment updates out to websocket clients. Broadcasts
// travel through Redis pub/sub so every API instance delivers to its own
// connections.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/angelmondragon/movemarket-backend/pkg/redis"
)

// Message is the unit published on the Redis channel. An empty Room targets
// every connected client.
type Message struct {
	Room    string         `json:"room,omitempty"`
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload,omitempty"`
}

// frame is what websocket clients receive.
type frame struct {
	Event string         `json:"event"`
	Room  string         `json:"room,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

func (m Message) encodeFrame() ([]byte, error) {
	return json.Marshal(frame{Event: m.Event, Room: m.Room, Data: m.Payload})
}

// Broadcaster emits realtime events.
type Broadcaster interface {
	EmitToAll(ctx context.Context, event string, payload map[string]any) error
	EmitToRoom(ctx context.Context, room, event string, payload map[string]any) error
}

// RedisBroadcaster publishes messages for the hubs subscribed to the channel.
// Processes without websocket clients, like the outbox dispatcher, use it.
type RedisBroadcaster struct {
	publisher redis.Publisher
	channel   string
}

func NewRedisBroadcaster(publisher redis.Publisher, channel string) (*RedisBroadcaster, error) {
	if publisher == nil {
		return nil, errors.New("redis publisher required")
	}
	if strings.TrimSpace(channel) == "" {
		return nil, errors.New("realtime channel required")
	}
	return &RedisBroadcaster{publisher: publisher, channel: channel}, nil
}

func (b *RedisBroadcaster) EmitToAll(ctx context.Context, event string, payload map[string]any) error {
	return b.publish(ctx, Message{Event: event, Payload: payload})
}

func (b *RedisBroadcaster) EmitToRoom(ctx context.Context, room, event string, payload map[string]any) error {
	if strings.TrimSpace(room) == "" {
		return errors.New("room required")
	}
	return b.publish(ctx, Message{Room: room, Event: event, Payload: payload})
}

func (b *RedisBroadcaster) publish(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.Event) == "" {
		return errors.New("event name required")
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.publisher.Publish(ctx, b.channel, raw)
}
