package money

import (
	"github.com/shopspring/decimal"
)

// Places is the number of decimal places every monetary output is rounded to.
const Places = 2

// Round rounds d to two decimal places, ties away from zero (2.345 -> 2.35, -2.345 -> -2.35).
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Sum adds values exactly. It does not round.
func Sum(ds ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, d := range ds {
		total = total.Add(d)
	}
	return total
}

// Parse reads a decimal string such as "12.50". Used at the HTTP boundary.
func Parse(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

// String renders d with exactly two decimals.
func String(d decimal.Decimal) string {
	return d.StringFixed(Places)
}
