package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/fasthttp/websocket"

	"github.com/angelmondragon/movemarket-backend/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 32
)

// eventJoinDenied tells a client its join request was refused.
const eventJoinDenied = "join_denied"

// RoomGuard reports whether the connection may join room.
type RoomGuard func(ctx context.Context, room string) bool

// Client is one websocket connection.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	ctx     context.Context
	canJoin RoomGuard
}

// command is what clients send to manage room membership.
type command struct {
	Action string `json:"action"`
	Room   string `json:"room"`
}

// NewUpgrader builds an upgrader that accepts the configured origins. An
// empty list accepts any origin.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			allowed[trimmed] = struct{}{}
		}
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}
			_, ok := allowed[r.Header.Get("Origin")]
			return ok
		},
	}
}

// ServeWS upgrades the request and attaches the connection to the hub. A nil
// guard refuses every join, so the client only hears global events.
func (h *Hub) ServeWS(upgrader *websocket.Upgrader, w http.ResponseWriter, r *http.Request, guard RoomGuard) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &Client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		ctx:     context.WithoutCancel(r.Context()),
		canJoin: guard,
	}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return nil
	}

	go c.writePump()
	go c.readPump(h.logg)
	return nil
}

func (c *Client) readPump(logg *logger.Logger) {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logg.Warn(logg.WithField(context.Background(), "error", err.Error()), "realtime connection closed unexpectedly")
			}
			return
		}
		var cmd command
		if err := json.Unmarshal(raw, &cmd); err != nil {
			continue
		}
		c.handle(cmd)
	}
}

func (c *Client) handle(cmd command) {
	switch cmd.Action {
	case "join":
		if c.canJoin == nil || !c.canJoin(c.ctx, cmd.Room) {
			c.deny(cmd.Room)
			return
		}
		c.hub.Join(c, cmd.Room)
	case "leave":
		c.hub.Leave(c, cmd.Room)
	}
}

func (c *Client) deny(room string) {
	data, err := Message{Room: room, Event: eventJoinDenied}.encodeFrame()
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
