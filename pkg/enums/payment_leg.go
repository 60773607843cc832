package enums

import "fmt"

// PaymentLeg identifies which installment a payment intent settles.
type PaymentLeg string

const (
	PaymentLegInitial   PaymentLeg = "initial"
	PaymentLegRemaining PaymentLeg = "remaining"
)

func (l PaymentLeg) String() string {
	return string(l)
}

func (l PaymentLeg) IsValid() bool {
	return l == PaymentLegInitial || l == PaymentLegRemaining
}

// IsFinal reports whether settling this leg completes the order.
func (l PaymentLeg) IsFinal() bool {
	return l == PaymentLegRemaining
}

// AwaitingStatus is where a failed attempt on this leg parks the ledger.
func (l PaymentLeg) AwaitingStatus() PaymentStatus {
	if l == PaymentLegRemaining {
		return PaymentStatusAwaitingRemaining
	}
	return PaymentStatusAwaitingInitialPayment
}

// PaidStatus is the status written once this leg succeeds. The per-bid flow
// has always spelled the initial step initial_payment_completed.
func (l PaymentLeg) PaidStatus(flow PaymentFlow) PaymentStatus {
	if l == PaymentLegRemaining {
		return PaymentStatusPaid
	}
	if flow == PaymentFlowPartial {
		return PaymentStatusInitialPaymentCompleted
	}
	return PaymentStatusInitialPaid
}

// LegForStatus picks the leg a new payment intent should charge.
func LegForStatus(status PaymentStatus) PaymentLeg {
	if status.InitialSettled() {
		return PaymentLegRemaining
	}
	return PaymentLegInitial
}

// ParsePaymentLeg converts raw metadata into a PaymentLeg.
func ParsePaymentLeg(value string) (PaymentLeg, error) {
	leg := PaymentLeg(value)
	if !leg.IsValid() {
		return "", fmt.Errorf("invalid payment type %q", value)
	}
	return leg, nil
}
