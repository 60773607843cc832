package bids

import (
	"time"

	"github.com/angelmondragon/movemarket-backend/pkg/enums"
)

// Outcome says what a processor event means for the ledger.
type Outcome int

const (
	// OutcomeApply means the change must be written.
	OutcomeApply Outcome = iota
	// OutcomeReplay means the ledger already reflects the event.
	OutcomeReplay
	// OutcomeStale means the event arrived after the ledger moved past it.
	OutcomeStale
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApply:
		return "apply"
	case OutcomeReplay:
		return "replay"
	case OutcomeStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Change is the write set derived from one processor event.
type Change struct {
	Leg                   enums.PaymentLeg
	Succeeded             bool
	PaymentStatus         enums.PaymentStatus
	CompleteOrder         bool
	RequiresPaymentMethod bool
	IntentID              string
	At                    time.Time
}

// Plan pairs the outcome with the change to write when the outcome is Apply.
type Plan struct {
	Outcome Outcome
	From    enums.PaymentStatus
	Change  Change
}

// PlanSucceeded derives the ledger change for a settled leg. A leg already
// marked paid is a replay. Settling the remaining leg before the initial one
// is an ErrIllegalTransition.
func PlanSucceeded(l *Ledger, leg enums.PaymentLeg, intentID string, at time.Time) (Plan, error) {
	plan := Plan{From: l.PaymentStatus}
	if l.LegPaid(leg) {
		plan.Outcome = OutcomeReplay
		return plan, nil
	}

	target := leg.PaidStatus(l.Flow)
	if leg == enums.PaymentLegRemaining && !l.LegPaid(enums.PaymentLegInitial) && !l.PaymentStatus.InitialSettled() {
		return plan, enums.ErrIllegalTransition{From: l.PaymentStatus, To: target}
	}
	if err := enums.ValidateTransition(l.PaymentStatus, target); err != nil {
		return plan, err
	}

	plan.Outcome = OutcomeApply
	plan.Change = Change{
		Leg:                   leg,
		Succeeded:             true,
		PaymentStatus:         target,
		CompleteOrder:         leg.IsFinal(),
		RequiresPaymentMethod: false,
		IntentID:              intentID,
		At:                    at,
	}
	return plan, nil
}

// PlanFailed derives the ledger change for a failed attempt. Failures never
// rewind a leg that is already paid or a status that moved further.
func PlanFailed(l *Ledger, leg enums.PaymentLeg, at time.Time) Plan {
	plan := Plan{From: l.PaymentStatus}
	target := leg.AwaitingStatus()

	if l.LegPaid(leg) || !l.PaymentStatus.CanTransitionTo(target) {
		plan.Outcome = OutcomeStale
		return plan
	}
	if l.PaymentStatus == target && l.RequiresPaymentMethod {
		plan.Outcome = OutcomeReplay
		return plan
	}

	plan.Outcome = OutcomeApply
	plan.Change = Change{
		Leg:                   leg,
		Succeeded:             false,
		PaymentStatus:         target,
		RequiresPaymentMethod: true,
		At:                    at,
	}
	return plan
}
