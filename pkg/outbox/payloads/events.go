package payloads

import "github.com/angelmondragon/movemarket-backend/pkg/enums"

// EmailRequestedEvent asks the dispatcher to render and send one email.
type EmailRequestedEvent struct {
	To       string         `json:"to"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data,omitempty"`
}

// NotificationRequestedEvent asks the dispatcher to create an in-app notification.
type NotificationRequestedEvent struct {
	RecipientType enums.Role             `json:"recipient_type"`
	RecipientID   string                 `json:"recipient_id"`
	Type          enums.NotificationType `json:"type"`
	Title         string                 `json:"title"`
	Message       string                 `json:"message"`
	Link          string                 `json:"link,omitempty"`
}

// BroadcastRequestedEvent asks the dispatcher to push a realtime event. An
// empty Room means every connected client. AllListeners sends a room event to
// every client as well; the room travels in the payload so clients can filter.
type BroadcastRequestedEvent struct {
	Room         string         `json:"room,omitempty"`
	AllListeners bool           `json:"all_listeners,omitempty"`
	Event        string         `json:"event"`
	Payload      map[string]any `json:"payload"`
}
