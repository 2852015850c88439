// Package money holds the decimal helpers shared by the settlement and
// inventory workflows. Amounts are never rounded mid-computation; Round is
// for presentation and for values leaving the process.
package money

import (
	"github.com/shopspring/decimal"
)

// Tolerance is the largest difference accepted between a typed amount and a
// computed one.
var Tolerance = decimal.New(1, -2)

var one = decimal.NewFromInt(1)

// WithinTolerance reports whether |a - b| <= Tolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}

// Sum adds the given amounts exactly.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}

	return total
}

// Round rounds half away from zero to cents.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ValidRate reports whether r is a fraction in [0, 1).
func ValidRate(r decimal.Decimal) bool {
	return !r.IsNegative() && r.LessThan(one)
}

// Parse reads a plain decimal string such as "1234.56".
func Parse(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
