// Package core holds the ledger data model shared by every other package.
//
// Amounts are decimal fixed-point values rounded to two places; binary
// floats are never used for arithmetic.
package core

import "github.com/shopspring/decimal"

// FormatAmount renders an amount as a dollar string, e.g. "$12.34".
func FormatAmount(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}
