package money

import "github.com/shopspring/decimal"

// Guest-facing amounts travel as float64 in feeds and responses; every
// rounding-sensitive step goes through decimal so two-decimal results are
// exact regardless of the float noise upstream.

// Round2 rounds an amount to two decimals.
func Round2(amount float64) float64 {
	v, _ := decimal.NewFromFloat(amount).Round(2).Float64()
	return v
}

// Percent computes amount*pct/100 rounded to two decimals.
func Percent(amount, pct float64) float64 {
	v, _ := decimal.NewFromFloat(amount).
		Mul(decimal.NewFromFloat(pct)).
		Div(decimal.NewFromInt(100)).
		Round(2).
		Float64()
	return v
}

// Share computes total*part/whole rounded to two decimals. Returns 0 when
// whole is 0.
func Share(total, part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	v, _ := decimal.NewFromFloat(total).
		Mul(decimal.NewFromFloat(part)).
		Div(decimal.NewFromFloat(whole)).
		Round(2).
		Float64()
	return v
}

// ClampFloor returns max(floor, amount).
func ClampFloor(amount, floor float64) float64 {
	if amount < floor {
		return floor
	}
	return amount
}

// Min returns the smaller of a and b.
func Min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
