package fanout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/movemarket-backend/pkg/db/models"
	"github.com/angelmondragon/movemarket-backend/pkg/logger"
	"github.com/angelmondragon/movemarket-backend/pkg/mailer"
	"github.com/angelmondragon/movemarket-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/movemarket-backend/pkg/outbox/registry"
	"gorm.io/gorm"
)

const emailConsumer = "email-dispatch"

type onceRunner interface {
	Once(ctx context.Context, consumer, eventID string, fn func(context.Context) error) (bool, error)
}

// EmailHandler renders email_requested rows and hands them to the sender.
// SMTP is outside the dispatcher transaction, so a commit failure after a
// successful send would redeliver; the idempotency guard keyed by the
// envelope event id absorbs that.
type EmailHandler struct {
	sender mailer.Sender
	once   onceRunner
	logg   *logger.Logger
}

func NewEmailHandler(sender mailer.Sender, once onceRunner, logg *logger.Logger) (*EmailHandler, error) {
	if sender == nil {
		return nil, errors.New("mail sender required")
	}
	return &EmailHandler{sender: sender, once: once, logg: logg}, nil
}

func (h *EmailHandler) Handle(ctx context.Context, _ *gorm.DB, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	payload, ok := resolved.Payload.(*payloads.EmailRequestedEvent)
	if !ok || payload == nil {
		return registry.NewNonRetryableError(fmt.Errorf("unexpected payload %T for %s", resolved.Payload, event.EventType))
	}
	if strings.TrimSpace(payload.To) == "" {
		return registry.NewNonRetryableError(errors.New("email recipient required"))
	}
	msg, err := mailer.Render(payload.Template, payload.To, payload.Data)
	if err != nil {
		return registry.NewNonRetryableError(err)
	}

	ctx = h.logg.WithFields(ctx, map[string]any{
		"outbox_id": event.ID.String(),
		"template":  payload.Template,
	})
	send := func(ctx context.Context) error {
		return h.sender.Send(ctx, msg)
	}

	eventID := resolved.Envelope.EventID
	if h.once == nil || eventID == "" {
		return send(ctx)
	}
	sent, err := h.once.Once(ctx, emailConsumer, eventID, send)
	if err != nil {
		return err
	}
	if !sent {
		h.logg.Info(ctx, "email already sent for event")
	}
	return nil
}
