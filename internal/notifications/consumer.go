package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/movemarket-backend/pkg/db/models"
	"github.com/angelmondragon/movemarket-backend/pkg/logger"
	"github.com/angelmondragon/movemarket-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/movemarket-backend/pkg/outbox/registry"
	"gorm.io/gorm"
)

// Consumer turns notification_requested outbox rows into inbox rows. The
// insert joins the dispatcher transaction so the notification and the
// published marker commit together.
type Consumer struct {
	repo Repository
	logg *logger.Logger
}

// NewConsumer builds the notification_requested handler.
func NewConsumer(repo Repository, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return &Consumer{repo: repo, logg: logg}, nil
}

// Handle persists the notification carried by the resolved event.
func (c *Consumer) Handle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	payload, ok := resolved.Payload.(*payloads.NotificationRequestedEvent)
	if !ok || payload == nil {
		return registry.NewNonRetryableError(fmt.Errorf("unexpected payload %T for %s", resolved.Payload, event.EventType))
	}
	recipient := Recipient{Type: payload.RecipientType, ID: payload.RecipientID}
	if err := recipient.validate(); err != nil {
		return registry.NewNonRetryableError(err)
	}
	if !payload.Type.IsValid() {
		return registry.NewNonRetryableError(fmt.Errorf("invalid notification type %q", payload.Type))
	}
	if strings.TrimSpace(payload.Title) == "" {
		return registry.NewNonRetryableError(fmt.Errorf("notification title required"))
	}

	notification := &models.Notification{
		RecipientType: recipient.Type,
		RecipientID:   recipient.ID,
		Type:          payload.Type,
		Title:         payload.Title,
		Message:       payload.Message,
	}
	if link := strings.TrimSpace(payload.Link); link != "" {
		notification.Link = &link
	}
	if err := c.repo.WithTx(tx).Create(ctx, notification); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	c.logg.Debug(c.logg.WithFields(ctx, map[string]any{
		"notification_id": notification.ID.String(),
		"recipient_type":  recipient.Type,
		"recipient_id":    recipient.ID,
		"outbox_id":       event.ID.String(),
	}), "notification stored")
	return nil
}
