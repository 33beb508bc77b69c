/*
generate.go - Monthly charge generation from schedules

PURPOSE:
  Turns recurring charge schedules into posted ledger charges, one per
  schedule per calendar month. This is the billing run: the thing a
  housing office would otherwise do by hand on the 1st of every month.

KEY INSIGHT:
  A schedule does not bill a fixed amount. It bills whatever the engine
  computes for the CLIPPED period:
  - Schedule active all of January -> period Jan 1..Jan 31 -> 31/30 proration
  - Schedule starting Jan 20      -> period Jan 20..Jan 31 -> 12/30 proration
  - Schedule ending Jan 10        -> period Jan 1..Jan 10  -> 10/30 proration
  Partial months prorate for free because the engine already prorates
  every period. The generator only decides WHICH period to bill.

IDEMPOTENCY:
  The store enforces one scheduled charge per (schedule, billed month).
  Re-running a month is safe: duplicates come back as ErrDuplicateCharge
  and are counted as skipped, not failures. This is what makes the
  background scheduler safe to fire repeatedly.

ERROR HANDLING:
  One bad schedule must not sink the run. Per-schedule failures are
  collected in the report; only store-level listing errors abort.

EXAMPLE:
  gen := recurring.NewGenerator(store)
  report, err := gen.GenerateMonth(ctx, 2025, time.January)
  // report.Posted charges written, report.Skipped already billed

SEE ALSO:
  - charge/engine.go: the proration math
  - charge/schedule.go: Schedule definition and validation
  - projection.go: the same walk, without writes
*/
package recurring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/warp/charge-engine/charge"
)

// =============================================================================
// MONTH CLIPPING
// =============================================================================

// ChargeMonth builds the calculation input for one schedule in one month.
// Returns false when the schedule is inactive or does not overlap the month.
func ChargeMonth(s charge.Schedule, year int, month time.Month) (charge.CalculationInput, bool) {
	if !s.Active {
		return charge.CalculationInput{}, false
	}

	period, ok := charge.MonthPeriod(year, month).Intersect(s.ActiveRange())
	if !ok {
		return charge.CalculationInput{}, false
	}

	return charge.CalculationInput{
		StaffID:     s.StaffID,
		Period:      period,
		BaseAmount:  s.BaseAmount,
		Description: s.Description,
		Params:      s.Params,
	}, true
}

// =============================================================================
// GENERATOR - The monthly billing run
// =============================================================================

// Generator posts one charge per active schedule for a given month.
type Generator struct {
	Store charge.Store

	// NewID mints charge IDs. Defaults to random UUIDs.
	NewID func() charge.ChargeID

	// Now stamps CreatedAt. Defaults to time.Now.
	Now func() time.Time
}

func NewGenerator(store charge.Store) *Generator {
	return &Generator{
		Store: store,
		NewID: func() charge.ChargeID { return charge.ChargeID(uuid.NewString()) },
		Now:   time.Now,
	}
}

// GenerationFailure records one schedule the run could not bill.
type GenerationFailure struct {
	ScheduleID charge.ScheduleID
	Err        error
}

func (f GenerationFailure) Error() string {
	return fmt.Sprintf("schedule %s: %v", f.ScheduleID, f.Err)
}

func (f GenerationFailure) Unwrap() error {
	return f.Err
}

// GenerationReport summarizes one billing run.
type GenerationReport struct {
	Month   string // "2006-01"
	Posted  []charge.Charge
	Skipped int // already billed for this month
	Failed  []GenerationFailure
}

// GenerateMonth bills every active schedule for the given month.
// Safe to re-run: already-billed (schedule, month) pairs are skipped.
func (g *Generator) GenerateMonth(ctx context.Context, year int, month time.Month) (*GenerationReport, error) {
	schedules, err := g.Store.ListSchedules(ctx, charge.ScheduleFilter{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("listing schedules: %w", err)
	}

	report := &GenerationReport{
		Month: charge.MonthPeriod(year, month).MonthKey(),
	}

	for _, s := range schedules {
		input, ok := ChargeMonth(s, year, month)
		if !ok {
			continue
		}

		result, err := charge.Calculate(input)
		if err != nil {
			report.Failed = append(report.Failed, GenerationFailure{ScheduleID: s.ID, Err: err})
			continue
		}

		c := charge.NewCharge(g.NewID(), result, input.Period, s.Currency, charge.SourceScheduled, s.ID, g.Now())

		switch err := g.Store.AppendCharge(ctx, c); {
		case err == nil:
			report.Posted = append(report.Posted, c)
		case errors.Is(err, charge.ErrDuplicateCharge):
			report.Skipped++
		default:
			report.Failed = append(report.Failed, GenerationFailure{ScheduleID: s.ID, Err: err})
		}
	}

	return report, nil
}

// GenerateCurrentMonth bills the month containing the generator's clock.
func (g *Generator) GenerateCurrentMonth(ctx context.Context) (*GenerationReport, error) {
	now := g.Now()
	return g.GenerateMonth(ctx, now.Year(), now.Month())
}
