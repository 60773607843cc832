package enums

import "fmt"

// PaymentStatus is the ledger payment_status column shared by bids and accepted_bids.
type PaymentStatus string

const (
	PaymentStatusPending                 PaymentStatus = "pending"
	PaymentStatusAwaitingInitialPayment  PaymentStatus = "awaiting_initial_payment"
	PaymentStatusInitialPaid             PaymentStatus = "initial_paid"
	PaymentStatusInitialPaymentCompleted PaymentStatus = "initial_payment_completed"
	PaymentStatusAwaitingRemaining       PaymentStatus = "awaiting_remaining_payment"
	PaymentStatusPaid                    PaymentStatus = "paid"
)

// paymentStatusRank orders the lifecycle. initial_paid and
// initial_payment_completed are two spellings of the same step.
var paymentStatusRank = map[PaymentStatus]int{
	PaymentStatusPending:                 0,
	PaymentStatusAwaitingInitialPayment:  1,
	PaymentStatusInitialPaid:             2,
	PaymentStatusInitialPaymentCompleted: 2,
	PaymentStatusAwaitingRemaining:       3,
	PaymentStatusPaid:                    4,
}

const rankInitialSettled = 2

// ErrIllegalTransition is returned when a status change would skip or rewind the lifecycle.
type ErrIllegalTransition struct {
	From PaymentStatus
	To   PaymentStatus
}

func (e ErrIllegalTransition) Error() string {
	return fmt.Sprintf("illegal payment status transition %s -> %s", e.From, e.To)
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	_, ok := paymentStatusRank[p]
	return ok
}

// Rank returns the lifecycle position, or -1 for unknown values.
func (p PaymentStatus) Rank() int {
	if rank, ok := paymentStatusRank[p]; ok {
		return rank
	}
	return -1
}

// InitialSettled reports whether the initial leg has been paid.
func (p PaymentStatus) InitialSettled() bool {
	return p.Rank() >= rankInitialSettled
}

// SameStep reports whether both values sit on the same lifecycle step.
func (p PaymentStatus) SameStep(other PaymentStatus) bool {
	return p.IsValid() && p.Rank() == other.Rank()
}

// CanTransitionTo reports whether moving from p to next keeps the lifecycle
// monotonic. Staying put is allowed; nothing past the initial leg is reachable
// until the initial leg is settled.
func (p PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	from, to := p.Rank(), next.Rank()
	if from < 0 || to < 0 {
		return false
	}
	if to < from {
		return false
	}
	if to > rankInitialSettled && from < rankInitialSettled {
		return false
	}
	return true
}

// ValidateTransition wraps CanTransitionTo with a typed error.
func ValidateTransition(from, to PaymentStatus) error {
	if !from.CanTransitionTo(to) {
		return ErrIllegalTransition{From: from, To: to}
	}
	return nil
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	status := PaymentStatus(value)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid payment status %q", value)
	}
	return status, nil
}
