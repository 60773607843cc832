package enums

import (
	"errors"
	"testing"
)

var lifecycle = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusAwaitingInitialPayment,
	PaymentStatusInitialPaid,
	PaymentStatusAwaitingRemaining,
	PaymentStatusPaid,
}

func TestCanTransitionToForwardOnly(t *testing.T) {
	for i, from := range lifecycle {
		for j, to := range lifecycle {
			got := from.CanTransitionTo(to)
			if j < i && got {
				t.Fatalf("%s -> %s must be rejected as a regression", from, to)
			}
		}
	}
}

func TestCanTransitionToRequiresInitialLeg(t *testing.T) {
	cases := []struct {
		from, to PaymentStatus
		want     bool
	}{
		{PaymentStatusPending, PaymentStatusPaid, false},
		{PaymentStatusAwaitingInitialPayment, PaymentStatusPaid, false},
		{PaymentStatusPending, PaymentStatusAwaitingRemaining, false},
		{PaymentStatusPending, PaymentStatusAwaitingInitialPayment, true},
		{PaymentStatusPending, PaymentStatusInitialPaymentCompleted, true},
		{PaymentStatusAwaitingInitialPayment, PaymentStatusInitialPaid, true},
		{PaymentStatusInitialPaid, PaymentStatusPaid, true},
		{PaymentStatusInitialPaymentCompleted, PaymentStatusAwaitingRemaining, true},
		{PaymentStatusAwaitingRemaining, PaymentStatusPaid, true},
		{PaymentStatusAwaitingRemaining, PaymentStatusAwaitingRemaining, true},
		{PaymentStatusPaid, PaymentStatusAwaitingInitialPayment, false},
		{PaymentStatusInitialPaid, PaymentStatusInitialPaymentCompleted, true},
		{PaymentStatus("bogus"), PaymentStatusPaid, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Fatalf("%s -> %s: expected %v got %v", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestValidateTransitionReturnsTypedError(t *testing.T) {
	err := ValidateTransition(PaymentStatusPending, PaymentStatusPaid)
	var illegal ErrIllegalTransition
	if !errors.As(err, &illegal) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
	if illegal.From != PaymentStatusPending || illegal.To != PaymentStatusPaid {
		t.Fatalf("unexpected error payload %+v", illegal)
	}
	if err := ValidateTransition(PaymentStatusInitialPaid, PaymentStatusPaid); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestLegForStatus(t *testing.T) {
	cases := map[PaymentStatus]PaymentLeg{
		PaymentStatusPending:                 PaymentLegInitial,
		PaymentStatusAwaitingInitialPayment:  PaymentLegInitial,
		PaymentStatusInitialPaid:             PaymentLegRemaining,
		PaymentStatusInitialPaymentCompleted: PaymentLegRemaining,
		PaymentStatusAwaitingRemaining:       PaymentLegRemaining,
	}
	for status, want := range cases {
		if got := LegForStatus(status); got != want {
			t.Fatalf("status %s: expected leg %s got %s", status, want, got)
		}
	}
}

func TestPaidStatusPerFlow(t *testing.T) {
	if got := PaymentLegInitial.PaidStatus(PaymentFlowPartial); got != PaymentStatusInitialPaymentCompleted {
		t.Fatalf("partial initial leg should write initial_payment_completed, got %s", got)
	}
	if got := PaymentLegInitial.PaidStatus(PaymentFlowCheckout); got != PaymentStatusInitialPaid {
		t.Fatalf("checkout initial leg should write initial_paid, got %s", got)
	}
	if got := PaymentLegRemaining.PaidStatus(PaymentFlowPartial); got != PaymentStatusPaid {
		t.Fatalf("remaining leg should write paid, got %s", got)
	}
	if PaymentLegRemaining.AwaitingStatus() != PaymentStatusAwaitingRemaining {
		t.Fatal("remaining leg awaiting status mismatch")
	}
}

func TestParsers(t *testing.T) {
	if _, err := ParsePaymentLeg("deposit"); err == nil {
		t.Fatal("expected invalid leg error")
	}
	if leg, err := ParsePaymentLeg("remaining"); err != nil || leg != PaymentLegRemaining {
		t.Fatalf("unexpected parse result %v %v", leg, err)
	}
	if _, err := ParseQuotationType("company_relocation; DROP TABLE bids"); err == nil {
		t.Fatal("expected unknown quotation type to be rejected")
	}
	if flow, err := ParsePaymentFlow("checkout"); err != nil || flow.MetadataKey() != "order_id" {
		t.Fatalf("unexpected flow parse %v %v", flow, err)
	}
}
