package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/angelmondragon/movemarket-backend/api/responses"
	stripewebhook "github.com/angelmondragon/movemarket-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/movemarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/movemarket-backend/pkg/errors"
	"github.com/angelmondragon/movemarket-backend/pkg/logger"
	"github.com/angelmondragon/movemarket-backend/pkg/stripe"
)

const maxWebhookBodyBytes = 1 << 16

type PaymentWebhookService interface {
	HandleEvent(ctx context.Context, flow enums.PaymentFlow, event *stripe.Event) (stripewebhook.Result, error)
}

type stripeWebhookGuard interface {
	CheckAndMark(ctx context.Context, flow enums.PaymentFlow, eventID string) (bool, error)
	Delete(ctx context.Context, flow enums.PaymentFlow, eventID string) error
}

type stripeClient interface {
	SigningSecret() string
}

type receivedResponse struct {
	Received bool `json:"received"`
}

type failureResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// StripePaymentWebhook handles payment intent events for one ledger flow.
// Signature failures answer 400 in plain text because Stripe only reads the
// status code; processing failures answer 500 so Stripe retries.
func StripePaymentWebhook(flow enums.PaymentFlow, svc PaymentWebhookService, client stripeClient, guard stripeWebhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil || client == nil || guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook dependencies unavailable"))
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				logg.Warn(logg.WithField(ctx, "limit_bytes", tooLarge.Limit), "stripe webhook body too large")
				responses.WriteText(w, http.StatusRequestEntityTooLarge, "Webhook Error: payload too large")
				return
			}
			responses.WriteText(w, http.StatusBadRequest, "Webhook Error: unreadable body")
			return
		}

		event, err := stripe.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), client.SigningSecret())
		if err != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "stripe webhook rejected")
			if errors.Is(err, stripe.ErrSignature) {
				responses.WriteText(w, http.StatusBadRequest, "Webhook Error: "+err.Error())
				return
			}
			responses.WriteText(w, http.StatusBadRequest, "Webhook Error: invalid payload")
			return
		}
		ctx = logg.WithFields(ctx, map[string]any{"stripe_event_id": event.ID, "payment_flow": flow.String()})

		alreadyProcessed, err := guard.CheckAndMark(ctx, flow, event.ID)
		if err != nil {
			logg.Error(ctx, "stripe webhook idempotency check", err)
			responses.WriteRaw(w, http.StatusInternalServerError, failureResponse{
				Error:   "Webhook processing failed",
				Details: err.Error(),
			})
			return
		}
		if alreadyProcessed {
			logg.Info(ctx, "stripe event already processed")
			responses.WriteRaw(w, http.StatusOK, receivedResponse{Received: true})
			return
		}

		result, err := svc.HandleEvent(ctx, flow, event)
		if err != nil {
			if delErr := guard.Delete(ctx, flow, event.ID); delErr != nil {
				logg.Error(ctx, "clear stripe idempotency key", delErr)
			}
			logg.Error(ctx, "stripe webhook processing failed", err)
			responses.WriteRaw(w, http.StatusInternalServerError, failureResponse{
				Error:   "Webhook processing failed",
				Details: err.Error(),
			})
			return
		}

		if result == stripewebhook.ResultIgnored {
			// nothing was reconciled, so a later delivery must still be processed
			if delErr := guard.Delete(ctx, flow, event.ID); delErr != nil {
				logg.Error(ctx, "clear stripe idempotency key", delErr)
			}
		}

		logg.Info(logg.WithField(ctx, "result", string(result)), "stripe event processed")
		responses.WriteRaw(w, http.StatusOK, receivedResponse{Received: true})
	}
}
