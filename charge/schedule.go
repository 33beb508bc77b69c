package charge

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SCHEDULE - A recurring monthly charge definition
// =============================================================================

// Schedule defines a charge billed every calendar month for as long as it
// is active: monthly rent, a standing utility split, a fixed commute route.
// The recurring package turns schedules into per-month calculation inputs;
// this type only carries the definition.
type Schedule struct {
	ID          ScheduleID
	StaffID     StaffID
	BaseAmount  decimal.Decimal
	Currency    string
	Description string
	Params      ChargeParams

	// Start is the first billable day. End, when set, is the last; a nil
	// End keeps the schedule open-ended.
	Start DatePoint
	End   *DatePoint

	Active    bool
	CreatedAt time.Time
}

// ChargeType reports the schedule's charge type via its params.
func (s Schedule) ChargeType() ChargeType {
	if s.Params == nil {
		return ""
	}
	return s.Params.Type()
}

// Validate applies the same rejection rules the engine applies to one-off
// calculations, so a stored schedule can never generate invalid input.
func (s Schedule) Validate() error {
	probe := CalculationInput{
		StaffID:     s.StaffID,
		Period:      Period{Start: s.Start, End: s.Start},
		BaseAmount:  s.BaseAmount,
		Description: s.Description,
		Params:      s.Params,
	}
	if err := probe.validate(); err != nil {
		return err
	}
	if s.End != nil && s.End.Before(s.Start) {
		return &ValidationError{Field: "period", Reason: "end date must not be before start date"}
	}
	return nil
}

// ActiveRange returns the schedule's billable range, with open ends closed
// far in the future so callers can intersect it with concrete months.
func (s Schedule) ActiveRange() Period {
	end := s.Start.AddMonths(12 * 100)
	if s.End != nil {
		end = *s.End
	}
	return Period{Start: s.Start, End: end}
}
