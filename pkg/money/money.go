// Package money holds the installment and RUT arithmetic shared by the payment
// sheet and webhook reconciliation. All results are in minor currency units.
package money

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/movemarket-backend/pkg/enums"
)

var (
	initialShare   = decimal.RequireFromString("0.2")
	remainingShare = decimal.RequireFromString("0.8")
	rutFactor      = decimal.RequireFromString("0.5")
	hundred        = decimal.NewFromInt(100)
)

// MinimumChargeMinor is the smallest amount the processor accepts (0.50).
const MinimumChargeMinor int64 = 50

// Share returns the fraction of the total a leg covers.
func Share(leg enums.PaymentLeg) decimal.Decimal {
	if leg == enums.PaymentLegRemaining {
		return remainingShare
	}
	return initialShare
}

// DiscountedTotal applies the RUT deduction when it applies.
func DiscountedTotal(base decimal.Decimal, rut bool) decimal.Decimal {
	if rut {
		return base.Mul(rutFactor)
	}
	return base
}

// LegMinorUnits computes round(base * [0.5] * share * 100).
func LegMinorUnits(base decimal.Decimal, leg enums.PaymentLeg, rut bool) int64 {
	return ToMinor(DiscountedTotal(base, rut).Mul(Share(leg)))
}

// ChargeMinorUnits converts a stored leg amount into the amount to charge.
func ChargeMinorUnits(legAmount decimal.Decimal, rut bool) int64 {
	return ToMinor(DiscountedTotal(legAmount, rut))
}

// ToMinor converts major units to minor units, rounding half away from zero.
func ToMinor(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FromMinor converts minor units back into major units.
func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// Split divides a final price into the initial and remaining installments.
// The remaining leg absorbs rounding so the two always add up to the total.
func Split(final decimal.Decimal) (initial, remaining decimal.Decimal) {
	initial = final.Mul(initialShare).Round(2)
	remaining = final.Sub(initial)
	return initial, remaining
}

// BelowMinimum reports whether the processor would reject the charge.
func BelowMinimum(minor int64) bool {
	return minor < MinimumChargeMinor
}
