package domain

import "github.com/shopspring/decimal"

// Round2 rounds a monetary amount to two decimal places, half away from zero.
// All persisted amounts and fee totals go through this exactly once.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FromMinorUnits converts an amount reported in minor currency units
// (e.g. kobo or cents) into a decimal major-unit amount.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// ClampNonNegative returns d, or zero when d is negative. Deduction stages
// must never drive a remainder below zero.
func ClampNonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// PercentOf returns amount * percent / 100 without rounding. Callers round
// only at the final summation step.
func PercentOf(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Div(decimal.NewFromInt(100))
}
