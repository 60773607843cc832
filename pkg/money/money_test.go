package money

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/movemarket-backend/pkg/enums"
)

func TestLegMinorUnitsWithoutRUT(t *testing.T) {
	base := decimal.NewFromInt(10000)

	if got := LegMinorUnits(base, enums.PaymentLegInitial, false); got != 200000 {
		t.Fatalf("expected 200000 minor units for the initial leg, got %d", got)
	}
	if got := LegMinorUnits(base, enums.PaymentLegRemaining, false); got != 800000 {
		t.Fatalf("expected 800000 minor units for the remaining leg, got %d", got)
	}
}

func TestLegMinorUnitsWithRUT(t *testing.T) {
	base := decimal.NewFromInt(20000)

	if got := LegMinorUnits(base, enums.PaymentLegInitial, true); got != 200000 {
		t.Fatalf("expected RUT initial leg of 200000, got %d", got)
	}
	if got := LegMinorUnits(base, enums.PaymentLegRemaining, true); got != 800000 {
		t.Fatalf("expected RUT remaining leg of 800000, got %d", got)
	}
}

func TestLegMinorUnitsIsDeterministic(t *testing.T) {
	bases := []string{"0.01", "1", "99.99", "1234.565", "15999.5", "20000"}
	for _, raw := range bases {
		base := decimal.RequireFromString(raw)
		for _, leg := range []enums.PaymentLeg{enums.PaymentLegInitial, enums.PaymentLegRemaining} {
			for _, rut := range []bool{true, false} {
				first := LegMinorUnits(base, leg, rut)
				second := LegMinorUnits(base, leg, rut)
				if first != second {
					t.Fatalf("base %s leg %s rut %v: %d != %d", raw, leg, rut, first, second)
				}
			}
		}
	}
}

func TestToMinorRoundsHalfAwayFromZero(t *testing.T) {
	cases := map[string]int64{
		"10.005": 1001,
		"10.004": 1000,
		"0.5":    50,
		"0.499":  50,
	}
	for raw, want := range cases {
		if got := ToMinor(decimal.RequireFromString(raw)); got != want {
			t.Fatalf("ToMinor(%s) = %d, want %d", raw, got, want)
		}
	}
}

func TestSplitSumsToFinal(t *testing.T) {
	for _, raw := range []string{"10000", "333.33", "0.07", "12345.67"} {
		final := decimal.RequireFromString(raw)
		initial, remaining := Split(final)
		if !initial.Add(remaining).Equal(final) {
			t.Fatalf("split of %s does not add up: %s + %s", raw, initial, remaining)
		}
	}
	initial, remaining := Split(decimal.NewFromInt(10000))
	if !initial.Equal(decimal.NewFromInt(2000)) || !remaining.Equal(decimal.NewFromInt(8000)) {
		t.Fatalf("unexpected split %s / %s", initial, remaining)
	}
}

func TestChargeMinorUnitsAndMinimum(t *testing.T) {
	if got := ChargeMinorUnits(decimal.NewFromInt(4000), true); got != 200000 {
		t.Fatalf("expected halved charge, got %d", got)
	}
	if !BelowMinimum(ChargeMinorUnits(decimal.RequireFromString("0.49"), false)) {
		t.Fatal("0.49 should be below the minimum charge")
	}
	if BelowMinimum(ChargeMinorUnits(decimal.RequireFromString("0.50"), false)) {
		t.Fatal("0.50 should be accepted")
	}
	if !FromMinor(200000).Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("FromMinor mismatch: %s", FromMinor(200000))
	}
}

func TestChargeMinorUnitsUsesStoredLegOnUnevenPrice(t *testing.T) {
	initial, _ := Split(decimal.RequireFromString("100.03"))
	if !initial.Equal(decimal.RequireFromString("20.01")) {
		t.Fatalf("unexpected initial leg %s", initial)
	}
	// the stored leg is already rounded, so discounting it differs from
	// discounting the final price directly
	if got := ChargeMinorUnits(initial, true); got != 1001 {
		t.Fatalf("expected 1001 from the stored leg, got %d", got)
	}
	if got := LegMinorUnits(decimal.RequireFromString("100.03"), enums.PaymentLegInitial, true); got != 1000 {
		t.Fatalf("expected 1000 from the final price, got %d", got)
	}
}
