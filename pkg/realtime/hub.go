package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/movemarket-backend/pkg/logger"
)

// Hub tracks the websocket clients connected to this instance and the rooms
// they joined.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// publish is nil when the hub runs without Redis; broadcasts then stay local.
	publish *RedisBroadcaster
	logg    *logger.Logger
}

func NewHub(publish *RedisBroadcaster, logg *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		publish:    publish,
		logg:       logg,
	}
}

// Run owns client registration until ctx ends, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for c := range h.clients {
				h.removeLocked(c)
			}
			h.mu.Unlock()
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(c)
			h.mu.Unlock()
		}
	}
}

func (h *Hub) removeLocked(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for room, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	close(c.send)
}

// Join adds the client to a room.
func (h *Hub) Join(c *Client, room string) {
	room = strings.TrimSpace(room)
	if room == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
}

// Leave removes the client from a room.
func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// RoomSize reports how many local clients joined the room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// ClientCount reports how many clients are connected to this instance.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// EmitToAll sends the event to every client on every instance.
func (h *Hub) EmitToAll(ctx context.Context, event string, payload map[string]any) error {
	if h.publish != nil {
		return h.publish.EmitToAll(ctx, event, payload)
	}
	h.Deliver(Message{Event: event, Payload: payload})
	return nil
}

// EmitToRoom sends the event to the room's members on every instance.
func (h *Hub) EmitToRoom(ctx context.Context, room, event string, payload map[string]any) error {
	if h.publish != nil {
		return h.publish.EmitToRoom(ctx, room, event, payload)
	}
	h.Deliver(Message{Room: room, Event: event, Payload: payload})
	return nil
}

// Deliver writes the message to the matching local clients. Clients whose
// buffer is full are dropped.
func (h *Hub) Deliver(msg Message) {
	data, err := msg.encodeFrame()
	if err != nil {
		h.logg.Error(context.Background(), "encode realtime frame", err)
		return
	}

	var slow []*Client
	h.mu.RLock()
	targets := h.clients
	if msg.Room != "" {
		targets = h.rooms[msg.Room]
	}
	for c := range targets {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	if len(slow) > 0 {
		h.mu.Lock()
		for _, c := range slow {
			h.removeLocked(c)
		}
		h.mu.Unlock()
		h.logg.Warn(h.logg.WithField(context.Background(), "dropped_clients", len(slow)), "realtime clients dropped; send buffer full")
	}
}

// Consume delivers messages received from the Redis channel until ctx ends
// or the channel closes.
func (h *Hub) Consume(ctx context.Context, msgs <-chan *goredis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-msgs:
			if !ok {
				return
			}
			var msg Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				h.logg.Warn(h.logg.WithField(ctx, "error", err.Error()), "realtime message parse error")
				continue
			}
			h.Deliver(msg)
		}
	}
}
