package stripe

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"
)

// Event types handled by the payment reconciler.
const (
	EventPaymentIntentSucceeded = string(stripe.EventTypePaymentIntentSucceeded)
	EventPaymentIntentFailed    = string(stripe.EventTypePaymentIntentPaymentFailed)
)

// ErrSignature marks a webhook whose signature could not be verified.
var ErrSignature = errors.New("stripe signature verification failed")

// Event is the verified webhook envelope.
type Event struct {
	ID     string
	Type   string
	Intent *PaymentIntent
}

// ConstructEvent verifies the Stripe-Signature header and decodes the event.
// Payment intent payloads are decoded eagerly; other types carry a nil Intent.
func ConstructEvent(payload []byte, header, secret string) (*Event, error) {
	if header == "" {
		return nil, fmt.Errorf("%w: missing header", ErrSignature)
	}
	if secret == "" {
		return nil, fmt.Errorf("%w: signing secret not configured", ErrSignature)
	}
	raw, err := webhook.ConstructEventWithOptions(payload, header, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignature, err)
	}

	event := &Event{ID: raw.ID, Type: string(raw.Type)}
	switch event.Type {
	case EventPaymentIntentSucceeded, EventPaymentIntentFailed:
		if raw.Data == nil {
			return nil, errors.New("stripe event data missing")
		}
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(raw.Data.Raw, &intent); err != nil {
			return nil, fmt.Errorf("decode payment intent: %w", err)
		}
		event.Intent = FromStripeIntent(&intent)
	}
	return event, nil
}
