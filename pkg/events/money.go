package events

import "math"

// Money is handled as integer cents internally. The wire format and the
// payment gateway speak dollars, so conversion lives at those boundaries.

// DollarsToCents converts a dollar amount to integer cents, rounding to
// the nearest cent.
func DollarsToCents(dollars float64) int64 {
	return int64(math.Round(dollars * 100))
}

// CentsToDollars converts integer cents to a dollar amount.
func CentsToDollars(cents int64) float64 {
	return float64(cents) / 100
}
