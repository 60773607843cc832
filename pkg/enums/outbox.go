package enums

import "fmt"

// OutboxAggregateType names the entity an outbox row was raised for.
type OutboxAggregateType string

const (
	AggregateBid          OutboxAggregateType = "bid"
	AggregateOrder        OutboxAggregateType = "order"
	AggregateReview       OutboxAggregateType = "review"
	AggregateVerification OutboxAggregateType = "verification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateBid,
	AggregateOrder,
	AggregateReview,
	AggregateVerification,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// AggregateForFlow maps a payment flow onto the aggregate its events hang off.
func AggregateForFlow(flow PaymentFlow) OutboxAggregateType {
	if flow == PaymentFlowCheckout {
		return AggregateOrder
	}
	return AggregateBid
}

// OutboxEventType names the side effect an outbox row asks the dispatcher to perform.
type OutboxEventType string

const (
	EventEmailRequested        OutboxEventType = "email_requested"
	EventNotificationRequested OutboxEventType = "notification_requested"
	EventBroadcastRequested    OutboxEventType = "broadcast_requested"
)

var validOutboxEventTypes = []OutboxEventType{
	EventEmailRequested,
	EventNotificationRequested,
	EventBroadcastRequested,
}

func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

// OutboxDLQErrorReason records why a row stopped being retried.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}
