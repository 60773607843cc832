// Package mailer renders transactional email templates and delivers them over SMTP.
package mailer

import (
	"context"
	"errors"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/angelmondragon/movemarket-backend/pkg/config"
	"github.com/angelmondragon/movemarket-backend/pkg/logger"
)

// Message is one rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers rendered messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender sends through a gomail dialer.
type SMTPSender struct {
	dialer dialer
	from   string
	logg   *logger.Logger
}

// NewSender returns an SMTP sender when SMTP is configured and a logging
// no-op sender otherwise.
func NewSender(cfg config.SMTPConfig, logg *logger.Logger) Sender {
	if !cfg.Enabled() {
		return &NoopSender{logg: logg}
	}
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
		logg:   logg,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return errors.New("recipient required")
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	if err := s.dialer.DialAndSend(m); err != nil {
		return err
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"to": to, "subject": msg.Subject})
	s.logg.Info(ctx, "email sent")
	return nil
}

// NoopSender logs instead of sending. Used when SMTP is not configured.
type NoopSender struct {
	logg *logger.Logger
}

func (s *NoopSender) Send(ctx context.Context, msg Message) error {
	ctx = s.logg.WithFields(ctx, map[string]any{"to": msg.To, "subject": msg.Subject})
	s.logg.Warn(ctx, "smtp not configured; email dropped")
	return nil
}
