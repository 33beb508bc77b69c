/*
Package charge provides the staff billing calculation engine.

PURPOSE:
  This package contains the types and algorithms for computing prorated
  staff charges. Rent, utilities, transport, and ad hoc charges all flow
  through the same engine: a pure calculation that turns a charge period
  and a base amount into a final amount plus an itemized breakdown.

KEY CONCEPTS IN THIS FILE (types.go):
  - ChargeType: Classification of a billing line item (rent, utilities, ...)
  - Staff/Charge/Schedule IDs: Type-safe identifiers
  - Staff: A roster entry that charges are billed against

DESIGN PRINCIPLES:
  1. Purity: Calculate has no side effects; callers own persistence
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Type Safety: Charge parameters are a closed set of typed variants
  4. Explicit Errors: Bad input is rejected, never silently defaulted

USAGE:
  result, err := charge.Calculate(charge.CalculationInput{
      StaffID:     "staff-042",
      Period:      charge.Period{Start: jan1, End: jan31},
      BaseAmount:  decimal.NewFromInt(850),
      Description: "January rent",
      Params:      charge.RentParams{},
  })

SEE ALSO:
  - engine.go: Calculate and the proration algorithm
  - params.go: Per-type charge parameters
  - record.go: Persisted charge, schedule, and statement records
*/
package charge

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CHARGE TYPE - Which calculation rule applies
// =============================================================================

type ChargeType string

const (
	ChargeRent      ChargeType = "rent"
	ChargeUtilities ChargeType = "utilities"
	ChargeTransport ChargeType = "transport"
	ChargeOther     ChargeType = "other"
)

// ParseChargeType maps a wire string to a ChargeType.
func ParseChargeType(s string) (ChargeType, error) {
	switch ChargeType(s) {
	case ChargeRent, ChargeUtilities, ChargeTransport, ChargeOther:
		return ChargeType(s), nil
	default:
		return "", fmt.Errorf("unknown charge type %q", s)
	}
}

func (t ChargeType) Valid() bool {
	switch t {
	case ChargeRent, ChargeUtilities, ChargeTransport, ChargeOther:
		return true
	}
	return false
}

func (t ChargeType) String() string { return string(t) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type StaffID string
type ChargeID string
type ScheduleID string

// =============================================================================
// STAFF - Roster entry charges are billed against
// =============================================================================

type Staff struct {
	ID        StaffID
	Name      string
	Unit      string // housing unit or cost center, free-form
	Active    bool
	CreatedAt time.Time
}

// =============================================================================
// DECIMAL HELPERS
// =============================================================================

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
