/*
engine.go - Proration and charge calculation

PURPOSE:
  Computes the amount a staff member owes for a charge over a date range.
  Periodic charges (rent, utilities, other) scale by the fraction of a
  30-day reference month the period covers; transport charges are rate
  based, so the period shapes the ledger entry but never the amount.

THE PRORATION RULE:
  totalDays       = inclusive day count of the period
  prorationFactor = totalDays / 30

  RENT, OTHER:  amount = base * factor
  UTILITIES:    amount = (base / occupants) * factor
  TRANSPORT:    amount = base * distance * passengers

  Factors above 1 are legitimate: a full 31-day January bills 31/30 of
  the base amount.

VALIDATION:
  Calculate rejects rather than repairs. A period whose start falls after
  its end, a negative base amount, an empty description, and zero occupant,
  distance, or passenger values are all hard errors; nothing defaults to 1.
  A single-day period (start == end) is valid and counts as one day.

EXAMPLE:
  result, err := charge.Calculate(charge.CalculationInput{
      StaffID:     "staff-042",
      Period:      charge.Period{Start: charge.NewDate(2024, 1, 1), End: charge.NewDate(2024, 1, 31)},
      BaseAmount:  decimal.NewFromInt(850),
      Description: "January rent",
      Params:      charge.RentParams{},
  })
  // result.TotalDays == 31, headline amount 878.33

SEE ALSO:
  - params.go: Per-type parameter variants and their breakdowns
  - statement.go: Aggregates persisted charges into monthly statements
*/
package charge

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CALCULATION INPUT / RESULT
// =============================================================================

// CalculationInput carries everything one calculation needs. It is consumed
// by value; Calculate never mutates or retains it.
type CalculationInput struct {
	StaffID     StaffID
	Period      Period
	BaseAmount  decimal.Decimal
	Description string
	Params      ChargeParams
}

// CalculationResult is the outcome of one calculation. It is built fresh on
// every call and carries no references back into the input.
type CalculationResult struct {
	ChargeType      ChargeType
	StaffID         StaffID
	BaseAmount      decimal.Decimal
	ProrationFactor decimal.Decimal
	ProratedAmount  decimal.Decimal
	TotalDays       int
	Description     string
	Breakdown       []BreakdownLine
}

// referenceMonthDays is the fixed reference month the proration factor is
// measured against. Periods longer than 30 days produce factors above 1.
var referenceMonthDays = decimal.NewFromInt(30)

// =============================================================================
// CALCULATE - The proration engine
// =============================================================================

// Calculate runs one charge calculation. It is pure: no I/O, no shared
// state, and identical input always yields identical output. Invalid input
// returns a *ValidationError and never a partial result.
func Calculate(input CalculationInput) (CalculationResult, error) {
	if err := input.validate(); err != nil {
		return CalculationResult{}, err
	}

	totalDays := input.Period.TotalDays()
	factor := decimal.NewFromInt(int64(totalDays)).Div(referenceMonthDays)

	amount, breakdown := input.Params.compute(input.BaseAmount, factor, totalDays)

	return CalculationResult{
		ChargeType:      input.Params.Type(),
		StaffID:         input.StaffID,
		BaseAmount:      input.BaseAmount,
		ProrationFactor: factor,
		ProratedAmount:  amount,
		TotalDays:       totalDays,
		Description:     input.Description,
		Breakdown:       breakdown,
	}, nil
}

func (in CalculationInput) validate() error {
	if in.StaffID == "" {
		return &ValidationError{Field: "staffId", Reason: "must not be empty"}
	}
	if strings.TrimSpace(in.Description) == "" {
		return &ValidationError{Field: "description", Reason: "must not be empty"}
	}
	if in.BaseAmount.IsNegative() {
		return &ValidationError{Field: "baseAmount", Reason: "must not be negative"}
	}
	if in.Period.Start.IsZero() || in.Period.End.IsZero() {
		return &ValidationError{Field: "period", Reason: "start and end dates are required"}
	}
	if in.Period.Start.After(in.Period.End) {
		return &ValidationError{Field: "period", Reason: "start date must not be after end date"}
	}
	if in.Params == nil {
		return &ValidationError{Field: "chargeType", Reason: "charge parameters are required"}
	}
	if verr := in.Params.validate(); verr != nil {
		return verr
	}
	return nil
}
