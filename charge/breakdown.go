package charge

import "github.com/shopspring/decimal"

// =============================================================================
// BREAKDOWN - Itemized justification of the final amount
// =============================================================================

// BreakdownLine is one labeled intermediate value in a calculation. Lines are
// ordered; the last line is always the final amount.
type BreakdownLine struct {
	Label       string
	Value       decimal.Decimal
	Description string
}

// =============================================================================
// DISPLAY FORMATTING
// =============================================================================

var displayThreshold = decimal.NewFromInt(10)

// FormatAmount renders an amount for the headline display: two decimal
// places, or three when the raw value is below 10 so small unit rates
// (e.g. a 0.650 per-km cost) keep a meaningful digit.
func FormatAmount(d decimal.Decimal) string {
	if d.Abs().LessThan(displayThreshold) {
		return d.StringFixed(3)
	}
	return d.StringFixed(2)
}
