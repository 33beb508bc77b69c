package charge

import "time"

// =============================================================================
// PERIOD - The date range a charge covers
// =============================================================================

// Period is an inclusive date range [Start, End]. A single-day charge has
// Start == End and covers exactly one day.
type Period struct {
	Start DatePoint
	End   DatePoint
}

func NewPeriod(start, end DatePoint) Period {
	return Period{Start: start, End: end}
}

// Validate rejects periods whose start falls after their end.
func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() {
		return ErrInvalidPeriod
	}
	if p.Start.After(p.End) {
		return ErrInvalidPeriod
	}
	return nil
}

// TotalDays returns the inclusive day count:
// (End - Start in whole days) + 1, so Start == End yields 1.
func (p Period) TotalDays() int {
	return DaysBetween(p.Start, p.End) + 1
}

// Contains returns true if the date is within [Start, End].
func (p Period) Contains(d DatePoint) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Overlaps returns true if the two periods share at least one day.
func (p Period) Overlaps(q Period) bool {
	return !p.Start.After(q.End) && !q.Start.After(p.End)
}

// Intersect clips p to q. The second return is false when they do not overlap.
func (p Period) Intersect(q Period) (Period, bool) {
	if !p.Overlaps(q) {
		return Period{}, false
	}
	out := p
	if q.Start.After(out.Start) {
		out.Start = q.Start
	}
	if q.End.Before(out.End) {
		out.End = q.End
	}
	return out, true
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// MONTH PERIODS - Calendar months for statements and recurring charges
// =============================================================================

// MonthPeriod returns the calendar month as an inclusive period.
func MonthPeriod(year int, month time.Month) Period {
	return Period{Start: StartOfMonth(year, month), End: EndOfMonth(year, month)}
}

// MonthContaining returns the calendar month the date falls in.
func MonthContaining(d DatePoint) Period {
	return MonthPeriod(d.Year(), d.Month())
}

// ParseMonth parses the wire format "2006-01" into its calendar-month period.
func ParseMonth(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, err
	}
	return MonthPeriod(t.Year(), t.Month()), nil
}

// MonthKey formats the period's start month as "2006-01". Statements and
// scheduler dedup keys use it.
func (p Period) MonthKey() string {
	return p.Start.normalize().Format("2006-01")
}
