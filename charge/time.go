package charge

import (
	"time"
)

// =============================================================================
// DATE POINT - Calendar date at day granularity
// =============================================================================

// DatePoint is a calendar date. The wall-clock portion is always normalized
// away; two DatePoints on the same UTC day compare equal.
type DatePoint struct {
	Time time.Time
}

// Constructors
func NewDate(year int, month time.Month, day int) DatePoint {
	return DatePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses the wire format "2006-01-02".
func ParseDate(s string) (DatePoint, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return DatePoint{}, err
	}
	return DatePoint{Time: t}, nil
}

func DateOf(t time.Time) DatePoint {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func Today() DatePoint {
	return DateOf(time.Now().UTC())
}

// Comparison
func (d DatePoint) Before(other DatePoint) bool        { return d.normalize().Before(other.normalize()) }
func (d DatePoint) Equal(other DatePoint) bool         { return d.normalize().Equal(other.normalize()) }
func (d DatePoint) After(other DatePoint) bool         { return d.normalize().After(other.normalize()) }
func (d DatePoint) BeforeOrEqual(other DatePoint) bool { return d.Before(other) || d.Equal(other) }
func (d DatePoint) AfterOrEqual(other DatePoint) bool  { return d.After(other) || d.Equal(other) }

func (d DatePoint) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (d DatePoint) AddDays(n int) DatePoint   { return DatePoint{Time: d.normalize().AddDate(0, 0, n)} }
func (d DatePoint) AddMonths(n int) DatePoint { return DatePoint{Time: d.normalize().AddDate(0, n, 0)} }

// Properties
func (d DatePoint) Year() int         { return d.Time.Year() }
func (d DatePoint) Month() time.Month { return d.Time.Month() }
func (d DatePoint) Day() int          { return d.Time.Day() }
func (d DatePoint) IsZero() bool      { return d.Time.IsZero() }

func (d DatePoint) String() string { return d.normalize().Format("2006-01-02") }

// =============================================================================
// DATE UTILITIES
// =============================================================================

// DaysBetween returns the whole-day difference to - from. It is NOT inclusive;
// Period.TotalDays adds the +1 for inclusive day counts.
func DaysBetween(from, to DatePoint) int {
	return int(to.normalize().Sub(from.normalize()).Hours() / 24)
}

func StartOfMonth(year int, month time.Month) DatePoint { return NewDate(year, month, 1) }

func EndOfMonth(year int, month time.Month) DatePoint {
	t := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	return DatePoint{Time: t}
}
