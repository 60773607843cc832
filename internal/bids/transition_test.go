package bids

import (
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/movemarket-backend/pkg/enums"
)

func ledgerAt(flow enums.PaymentFlow, status enums.PaymentStatus, initial, remaining enums.LegStatus) *Ledger {
	return &Ledger{
		Flow:               flow,
		Key:                "7",
		PaymentStatus:      status,
		InitialLegStatus:   initial,
		RemainingLegStatus: remaining,
	}
}

func TestPlanSucceeded(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pending, paid := enums.LegStatusPending, enums.LegStatusPaid

	tests := []struct {
		name       string
		ledger     *Ledger
		leg        enums.PaymentLeg
		outcome    Outcome
		wantStatus enums.PaymentStatus
		complete   bool
		illegal    bool
	}{
		{
			name:       "partial initial from awaiting",
			ledger:     ledgerAt(enums.PaymentFlowPartial, enums.PaymentStatusAwaitingInitialPayment, pending, pending),
			leg:        enums.PaymentLegInitial,
			outcome:    OutcomeApply,
			wantStatus: enums.PaymentStatusInitialPaymentCompleted,
		},
		{
			name:       "checkout initial from pending",
			ledger:     ledgerAt(enums.PaymentFlowCheckout, enums.PaymentStatusPending, pending, pending),
			leg:        enums.PaymentLegInitial,
			outcome:    OutcomeApply,
			wantStatus: enums.PaymentStatusInitialPaid,
		},
		{
			name:       "remaining completes order",
			ledger:     ledgerAt(enums.PaymentFlowPartial, enums.PaymentStatusInitialPaymentCompleted, paid, pending),
			leg:        enums.PaymentLegRemaining,
			outcome:    OutcomeApply,
			wantStatus: enums.PaymentStatusPaid,
			complete:   true,
		},
		{
			name:       "remaining after failed retry",
			ledger:     ledgerAt(enums.PaymentFlowCheckout, enums.PaymentStatusAwaitingRemaining, paid, pending),
			leg:        enums.PaymentLegRemaining,
			outcome:    OutcomeApply,
			wantStatus: enums.PaymentStatusPaid,
			complete:   true,
		},
		{
			name:    "initial replay",
			ledger:  ledgerAt(enums.PaymentFlowPartial, enums.PaymentStatusInitialPaymentCompleted, paid, pending),
			leg:     enums.PaymentLegInitial,
			outcome: OutcomeReplay,
		},
		{
			name:    "initial replay after order paid",
			ledger:  ledgerAt(enums.PaymentFlowPartial, enums.PaymentStatusPaid, paid, paid),
			leg:     enums.PaymentLegInitial,
			outcome: OutcomeReplay,
		},
		{
			name:    "remaining replay",
			ledger:  ledgerAt(enums.PaymentFlowCheckout, enums.PaymentStatusPaid, paid, paid),
			leg:     enums.PaymentLegRemaining,
			outcome: OutcomeReplay,
		},
		{
			name:    "remaining before initial",
			ledger:  ledgerAt(enums.PaymentFlowPartial, enums.PaymentStatusAwaitingInitialPayment, pending, pending),
			leg:     enums.PaymentLegRemaining,
			illegal: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			plan, err := PlanSucceeded(tc.ledger, tc.leg, "pi_1", now)
			if tc.illegal {
				var illegal enums.ErrIllegalTransition
				if !errors.As(err, &illegal) {
					t.Fatalf("expected illegal transition, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if plan.Outcome != tc.outcome {
				t.Fatalf("expected outcome %s, got %s", tc.outcome, plan.Outcome)
			}
			if plan.Outcome != OutcomeApply {
				return
			}
			if plan.Change.PaymentStatus != tc.wantStatus {
				t.Fatalf("expected status %s, got %s", tc.wantStatus, plan.Change.PaymentStatus)
			}
			if plan.Change.CompleteOrder != tc.complete {
				t.Fatalf("expected complete=%v", tc.complete)
			}
			if plan.Change.RequiresPaymentMethod {
				t.Fatal("success must clear requires_payment_method")
			}
			if plan.Change.IntentID != "pi_1" || !plan.Change.At.Equal(now) {
				t.Fatalf("unexpected change %+v", plan.Change)
			}
		})
	}
}

func TestPlanFailed(t *testing.T) {
	now := time.Now().UTC()
	pending, paid := enums.LegStatusPending, enums.LegStatusPaid

	tests := []struct {
		name       string
		ledger     *Ledger
		leg        enums.PaymentLeg
		outcome    Outcome
		wantStatus enums.PaymentStatus
	}{
		{
			name:       "initial failure parks awaiting initial",
			ledger:     ledgerAt(enums.PaymentFlowPartial, enums.PaymentStatusPending, pending, pending),
			leg:        enums.PaymentLegInitial,
			outcome:    OutcomeApply,
			wantStatus: enums.PaymentStatusAwaitingInitialPayment,
		},
		{
			name:       "remaining failure parks awaiting remaining",
			ledger:     ledgerAt(enums.PaymentFlowCheckout, enums.PaymentStatusInitialPaid, paid, pending),
			leg:        enums.PaymentLegRemaining,
			outcome:    OutcomeApply,
			wantStatus: enums.PaymentStatusAwaitingRemaining,
		},
		{
			name:    "late initial failure after success",
			ledger:  ledgerAt(enums.PaymentFlowPartial, enums.PaymentStatusInitialPaymentCompleted, paid, pending),
			leg:     enums.PaymentLegInitial,
			outcome: OutcomeStale,
		},
		{
			name:    "late remaining failure after paid",
			ledger:  ledgerAt(enums.PaymentFlowPartial, enums.PaymentStatusPaid, paid, paid),
			leg:     enums.PaymentLegRemaining,
			outcome: OutcomeStale,
		},
		{
			name:    "remaining failure before initial paid",
			ledger:  ledgerAt(enums.PaymentFlowPartial, enums.PaymentStatusAwaitingInitialPayment, pending, pending),
			leg:     enums.PaymentLegRemaining,
			outcome: OutcomeStale,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			plan := PlanFailed(tc.ledger, tc.leg, now)
			if plan.Outcome != tc.outcome {
				t.Fatalf("expected outcome %s, got %s", tc.outcome, plan.Outcome)
			}
			if plan.Outcome == OutcomeApply {
				if plan.Change.PaymentStatus != tc.wantStatus {
					t.Fatalf("expected status %s, got %s", tc.wantStatus, plan.Change.PaymentStatus)
				}
				if !plan.Change.RequiresPaymentMethod || plan.Change.Succeeded {
					t.Fatalf("unexpected change %+v", plan.Change)
				}
			}
		})
	}

	repeated := ledgerAt(enums.PaymentFlowPartial, enums.PaymentStatusAwaitingInitialPayment, pending, pending)
	repeated.RequiresPaymentMethod = true
	if plan := PlanFailed(repeated, enums.PaymentLegInitial, now); plan.Outcome != OutcomeReplay {
		t.Fatalf("repeated failure should be a replay, got %s", plan.Outcome)
	}
}
