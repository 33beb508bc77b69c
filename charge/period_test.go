/*
period_test.go - Inclusive date ranges and calendar months

PURPOSE:
  Validates the day-count arithmetic everything else builds on. The
  inclusive convention (Start == End is one day) shows up in every
  proration, so it gets pinned down here.
*/
package charge_test

import (
	"testing"
	"time"

	"github.com/warp/charge-engine/charge"
)

// =============================================================================
// DAY COUNTING
// =============================================================================

func TestPeriod_TotalDays_InclusiveOnBothEnds(t *testing.T) {
	// GIVEN: Periods of known length
	// WHEN: Counting their days
	// THEN: Both endpoints count, so Start == End yields 1

	cases := []struct {
		name  string
		start charge.DatePoint
		end   charge.DatePoint
		want  int
	}{
		{"single day", charge.NewDate(2026, time.March, 10), charge.NewDate(2026, time.March, 10), 1},
		{"full january", charge.NewDate(2026, time.January, 1), charge.NewDate(2026, time.January, 31), 31},
		{"two weeks", charge.NewDate(2026, time.April, 1), charge.NewDate(2026, time.April, 14), 14},
		{"across month boundary", charge.NewDate(2026, time.January, 30), charge.NewDate(2026, time.February, 2), 4},
	}
	for _, c := range cases {
		p := charge.NewPeriod(c.start, c.end)
		if got := p.TotalDays(); got != c.want {
			t.Errorf("%s: expected %d days, got %d", c.name, c.want, got)
		}
	}
}

func TestPeriod_TotalDays_LeapFebruary(t *testing.T) {
	// GIVEN: February in a leap year and a common year
	// WHEN: Counting days via MonthPeriod
	// THEN: 29 and 28 respectively

	if got := charge.MonthPeriod(2024, time.February).TotalDays(); got != 29 {
		t.Errorf("expected 29 days in Feb 2024, got %d", got)
	}
	if got := charge.MonthPeriod(2026, time.February).TotalDays(); got != 28 {
		t.Errorf("expected 28 days in Feb 2026, got %d", got)
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestPeriod_Validate(t *testing.T) {
	valid := charge.NewPeriod(charge.NewDate(2026, time.January, 1), charge.NewDate(2026, time.January, 31))
	if err := valid.Validate(); err != nil {
		t.Errorf("expected valid period, got %v", err)
	}

	reversed := charge.NewPeriod(charge.NewDate(2026, time.January, 31), charge.NewDate(2026, time.January, 1))
	if err := reversed.Validate(); err != charge.ErrInvalidPeriod {
		t.Errorf("expected ErrInvalidPeriod for reversed dates, got %v", err)
	}

	if err := (charge.Period{}).Validate(); err != charge.ErrInvalidPeriod {
		t.Errorf("expected ErrInvalidPeriod for zero period, got %v", err)
	}
}

// =============================================================================
// OVERLAP AND CLIPPING
// =============================================================================

func TestPeriod_Overlaps(t *testing.T) {
	jan := charge.MonthPeriod(2026, time.January)
	feb := charge.MonthPeriod(2026, time.February)

	if jan.Overlaps(feb) {
		t.Error("january and february must not overlap")
	}

	// Sharing a single boundary day counts as overlap.
	straddle := charge.NewPeriod(charge.NewDate(2026, time.January, 31), charge.NewDate(2026, time.February, 3))
	if !jan.Overlaps(straddle) || !straddle.Overlaps(jan) {
		t.Error("expected overlap on the shared boundary day, both directions")
	}

	inner := charge.NewPeriod(charge.NewDate(2026, time.January, 10), charge.NewDate(2026, time.January, 12))
	if !jan.Overlaps(inner) {
		t.Error("expected a contained period to overlap")
	}
}

func TestPeriod_Intersect_ClipsToTheWindow(t *testing.T) {
	// GIVEN: A tenancy running Jan 15 through Feb 15
	// WHEN: Intersecting with the January billing month
	// THEN: The result is Jan 15-31, the billable slice of January

	tenancy := charge.NewPeriod(charge.NewDate(2026, time.January, 15), charge.NewDate(2026, time.February, 15))
	clipped, ok := tenancy.Intersect(charge.MonthPeriod(2026, time.January))
	if !ok {
		t.Fatal("expected an intersection")
	}
	if !clipped.Start.Equal(charge.NewDate(2026, time.January, 15)) || !clipped.End.Equal(charge.NewDate(2026, time.January, 31)) {
		t.Errorf("expected Jan 15-31, got %s", clipped)
	}
	if clipped.TotalDays() != 17 {
		t.Errorf("expected 17 billable days, got %d", clipped.TotalDays())
	}

	_, ok = tenancy.Intersect(charge.MonthPeriod(2026, time.June))
	if ok {
		t.Error("expected no intersection with a disjoint month")
	}
}

func TestPeriod_Contains_InclusiveBoundaries(t *testing.T) {
	jan := charge.MonthPeriod(2026, time.January)
	if !jan.Contains(charge.NewDate(2026, time.January, 1)) || !jan.Contains(charge.NewDate(2026, time.January, 31)) {
		t.Error("expected both endpoints to be contained")
	}
	if jan.Contains(charge.NewDate(2026, time.February, 1)) {
		t.Error("expected the day after the period to fall outside")
	}
}

// =============================================================================
// CALENDAR MONTHS
// =============================================================================

func TestMonthContaining_ReturnsTheFullMonth(t *testing.T) {
	got := charge.MonthContaining(charge.NewDate(2026, time.April, 17))
	want := charge.MonthPeriod(2026, time.April)
	if !got.Start.Equal(want.Start) || !got.End.Equal(want.End) {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestParseMonth_RoundTripsWithMonthKey(t *testing.T) {
	p, err := charge.ParseMonth("2026-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Start.Equal(charge.NewDate(2026, time.February, 1)) || !p.End.Equal(charge.NewDate(2026, time.February, 28)) {
		t.Errorf("expected Feb 2026, got %s", p)
	}
	if key := p.MonthKey(); key != "2026-02" {
		t.Errorf("expected month key 2026-02, got %s", key)
	}

	if _, err := charge.ParseMonth("February 2026"); err == nil {
		t.Error("expected an error for a malformed month")
	}
}
