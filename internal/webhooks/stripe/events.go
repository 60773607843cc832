package stripewebhook

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/angelmondragon/movemarket-backend/internal/bids"
	"github.com/angelmondragon/movemarket-backend/pkg/enums"
	"github.com/angelmondragon/movemarket-backend/pkg/mailer"
	"github.com/angelmondragon/movemarket-backend/pkg/money"
	"github.com/angelmondragon/movemarket-backend/pkg/outbox"
	"github.com/angelmondragon/movemarket-backend/pkg/outbox/payloads"
)

// RealtimeEventPaymentUpdate is the broadcast event name clients listen for.
const RealtimeEventPaymentUpdate = "payment_update"

// sideEffects lists the outbox rows an applied change enqueues.
func (s *Service) sideEffects(l *bids.Ledger, change bids.Change, in *reconcileInput) []outbox.DomainEvent {
	aggregate := enums.AggregateForFlow(l.Flow)
	at := change.At
	ref := l.Reference()
	amount := money.FromMinor(in.intent.Amount).StringFixed(2)
	currency := s.currencyOf(in.intent)
	supplierID := strconv.FormatInt(l.SupplierID, 10)

	event := func(t enums.OutboxEventType, data any) outbox.DomainEvent {
		return outbox.DomainEvent{
			EventType:     t,
			AggregateType: aggregate,
			AggregateID:   l.Key,
			Data:          data,
			OccurredAt:    at,
		}
	}

	var out []outbox.DomainEvent
	if change.Succeeded {
		if in.supplier != nil && in.supplier.Email != "" {
			out = append(out, event(enums.EventEmailRequested, payloads.EmailRequestedEvent{
				To:       in.supplier.Email,
				Template: mailer.TemplateSupplierPaymentReceived,
				Data: map[string]any{
					"reference":        ref,
					"amount":           amount,
					"currency":         currencyLabel(currency),
					"payment_type":     change.Leg.String(),
					"payment_label_sv": legLabelSv(change.Leg),
				},
			}))
		}
		if change.CompleteOrder && in.quotation != nil && in.quotation.CustomerEmail != "" {
			out = append(out, event(enums.EventEmailRequested, payloads.EmailRequestedEvent{
				To:       in.quotation.CustomerEmail,
				Template: mailer.TemplateCustomerPaymentComplete,
				Data: map[string]any{
					"reference":     ref,
					"customer_name": in.quotation.CustomerName,
					"final_price":   l.FinalPrice.StringFixed(2),
					"currency":      currencyLabel(currency),
				},
			}))
		}

		notifType := enums.NotificationPaymentReceived
		title := fmt.Sprintf("Payment received for %s", ref)
		message := fmt.Sprintf("The %s payment of %s %s was received.", change.Leg, amount, currencyLabel(currency))
		if change.CompleteOrder {
			notifType = enums.NotificationOrderCompleted
			title = fmt.Sprintf("%s is fully paid", ref)
			message = fmt.Sprintf("The final payment of %s %s was received and the order is completed.", amount, currencyLabel(currency))
		}
		out = append(out, event(enums.EventNotificationRequested, payloads.NotificationRequestedEvent{
			RecipientType: enums.RoleSupplier,
			RecipientID:   supplierID,
			Type:          notifType,
			Title:         title,
			Message:       message,
			Link:          s.link(l),
		}))
	} else {
		out = append(out, event(enums.EventNotificationRequested, payloads.NotificationRequestedEvent{
			RecipientType: enums.RoleSupplier,
			RecipientID:   supplierID,
			Type:          enums.NotificationPaymentFailed,
			Title:         fmt.Sprintf("Payment failed for %s", ref),
			Message:       fmt.Sprintf("The customer's %s payment did not go through. They have been asked for a new payment method.", change.Leg),
			Link:          s.link(l),
		}))
	}

	out = append(out, event(enums.EventBroadcastRequested, payloads.BroadcastRequestedEvent{
		Room:         l.Room(),
		AllListeners: true,
		Event:        RealtimeEventPaymentUpdate,
		Payload:      broadcastPayload(l, change),
	}))
	return out
}

func broadcastPayload(l *bids.Ledger, change bids.Change) map[string]any {
	payload := map[string]any{
		"payment_type": change.Leg.String(),
		"status":       change.PaymentStatus.String(),
	}
	if l.Flow == enums.PaymentFlowCheckout {
		payload["order_id"] = l.OrderID
	} else {
		payload["bid_id"] = l.BidID
	}
	switch {
	case !change.Succeeded:
		payload["message"] = fmt.Sprintf("%s payment failed", change.Leg)
	case change.CompleteOrder:
		payload["message"] = "payment completed"
	default:
		payload["message"] = fmt.Sprintf("%s payment received", change.Leg)
	}
	return payload
}

func (s *Service) link(l *bids.Ledger) string {
	if l.Flow == enums.PaymentFlowCheckout {
		return s.publicURL + "/orders/" + l.OrderID
	}
	return fmt.Sprintf("%s/bids/%d", s.publicURL, l.BidID)
}

func legLabelSv(leg enums.PaymentLeg) string {
	if leg == enums.PaymentLegRemaining {
		return "slutbetalningen"
	}
	return "handpenningen"
}

func currencyLabel(currency string) string {
	if currency == "" {
		return "SEK"
	}
	return strings.ToUpper(currency)
}
