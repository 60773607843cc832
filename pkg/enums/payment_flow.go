package enums

import "fmt"

// PaymentFlow separates the full-order checkout ledger from the per-bid ledger.
type PaymentFlow string

const (
	PaymentFlowCheckout PaymentFlow = "checkout"
	PaymentFlowPartial  PaymentFlow = "partial"
)

func (f PaymentFlow) String() string {
	return string(f)
}

func (f PaymentFlow) IsValid() bool {
	return f == PaymentFlowCheckout || f == PaymentFlowPartial
}

// MetadataKey is the payment intent metadata entry that identifies the ledger row.
func (f PaymentFlow) MetadataKey() string {
	if f == PaymentFlowCheckout {
		return "order_id"
	}
	return "bid_id"
}

func ParsePaymentFlow(value string) (PaymentFlow, error) {
	flow := PaymentFlow(value)
	if !flow.IsValid() {
		return "", fmt.Errorf("invalid payment flow %q", value)
	}
	return flow, nil
}
