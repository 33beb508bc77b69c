/*
projection.go - Upcoming charge preview

PURPOSE:
  Answers "what will this staff member be billed over the next N months?"
  without writing anything. Same walk as the generator, no side effects.

KEY INSIGHT:
  The preview must agree with the generator or it is worse than useless.
  Both call ChargeMonth for the clipped period and charge.Calculate for
  the amount. The only divergence allowed: months a schedule has already
  billed are excluded here, exactly as the generator would skip them.

EXAMPLE:
  proj := &recurring.Projector{Store: store}
  upcoming, _ := proj.Upcoming(ctx, staffID, charge.NewDate(2025, time.March, 1), 3)
  for _, u := range upcoming {
      fmt.Printf("%s: %s %s\n", u.Month, u.Result.ProratedAmount, u.Currency)
  }

SEE ALSO:
  - generate.go: the writing twin
*/
package recurring

import (
	"context"
	"fmt"
	"sort"

	"github.com/warp/charge-engine/charge"
)

// =============================================================================
// PROJECTOR - Read-only view of future billing runs
// =============================================================================

// Projector previews future scheduled charges without persisting them.
type Projector struct {
	Store charge.Store
}

// UpcomingCharge is one projected billing of one schedule.
type UpcomingCharge struct {
	ScheduleID charge.ScheduleID
	Month      string // "2006-01"
	Period     charge.Period
	Currency   string
	Result     charge.CalculationResult
}

// Upcoming projects the next `months` billing runs for a staff member,
// starting from the month containing `from`. Months a schedule already
// billed are excluded.
func (p *Projector) Upcoming(ctx context.Context, staffID charge.StaffID, from charge.DatePoint, months int) ([]UpcomingCharge, error) {
	if months < 1 {
		return nil, nil
	}

	if _, err := p.Store.GetStaff(ctx, staffID); err != nil {
		return nil, err
	}

	schedules, err := p.Store.ListSchedules(ctx, charge.ScheduleFilter{
		StaffID:    &staffID,
		ActiveOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("listing schedules: %w", err)
	}

	billed, err := p.billedMonths(ctx, schedules)
	if err != nil {
		return nil, err
	}

	var upcoming []UpcomingCharge
	cursor := charge.MonthContaining(from)

	for i := 0; i < months; i++ {
		year, month := cursor.Start.Year(), cursor.Start.Month()

		for _, s := range schedules {
			input, ok := ChargeMonth(s, year, month)
			if !ok {
				continue
			}
			if billed[dedupKey(s.ID, cursor.MonthKey())] {
				continue
			}

			result, err := charge.Calculate(input)
			if err != nil {
				return nil, fmt.Errorf("schedule %s: %w", s.ID, err)
			}

			upcoming = append(upcoming, UpcomingCharge{
				ScheduleID: s.ID,
				Month:      cursor.MonthKey(),
				Period:     input.Period,
				Currency:   s.Currency,
				Result:     result,
			})
		}

		next := cursor.Start.AddMonths(1)
		cursor = charge.MonthPeriod(next.Year(), next.Month())
	}

	sort.SliceStable(upcoming, func(i, j int) bool {
		if upcoming[i].Month != upcoming[j].Month {
			return upcoming[i].Month < upcoming[j].Month
		}
		return upcoming[i].ScheduleID < upcoming[j].ScheduleID
	})

	return upcoming, nil
}

// billedMonths collects (schedule, month) pairs that already have a charge.
func (p *Projector) billedMonths(ctx context.Context, schedules []charge.Schedule) (map[string]bool, error) {
	billed := make(map[string]bool)
	for _, s := range schedules {
		id := s.ID
		charges, err := p.Store.ListCharges(ctx, charge.ChargeFilter{ScheduleID: &id})
		if err != nil {
			return nil, fmt.Errorf("listing charges for schedule %s: %w", s.ID, err)
		}
		for _, c := range charges {
			billed[dedupKey(s.ID, c.BilledMonth())] = true
		}
	}
	return billed, nil
}

func dedupKey(id charge.ScheduleID, month string) string {
	return string(id) + "|" + month
}
