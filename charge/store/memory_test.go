/*
memory_test.go - In-memory store behavior

PURPOSE:
  The memory store is the reference implementation of the Store
  contract: referential integrity against the roster, the scheduled
  billing dedup key, filter semantics and period ordering. The SQL
  stores mirror whatever is pinned here.
*/
package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/charge-engine/charge"
)

// =============================================================================
// FIXTURES
// =============================================================================

func seedStaff(t *testing.T, m *Memory, id, name string) {
	t.Helper()
	err := m.PutStaff(context.Background(), charge.Staff{
		ID:        charge.StaffID(id),
		Name:      name,
		Unit:      "Unit 1",
		Active:    true,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
}

func testCharge(id, staffID string, period charge.Period) charge.Charge {
	return charge.Charge{
		ID:          charge.ChargeID(id),
		StaffID:     charge.StaffID(staffID),
		Type:        charge.ChargeRent,
		Amount:      charge.MustParseDecimal("850"),
		Currency:    "USD",
		Description: "Monthly rent",
		Period:      period,
		Status:      charge.ChargePosted,
		Source:      charge.SourceManual,
		CreatedAt:   time.Now().UTC(),
	}
}

func scheduledCharge(id, staffID, scheduleID string, period charge.Period) charge.Charge {
	c := testCharge(id, staffID, period)
	c.Source = charge.SourceScheduled
	c.ScheduleID = charge.ScheduleID(scheduleID)
	return c
}

func testSchedule(id, staffID string, start charge.DatePoint) charge.Schedule {
	return charge.Schedule{
		ID:          charge.ScheduleID(id),
		StaffID:     charge.StaffID(staffID),
		BaseAmount:  charge.MustParseDecimal("850"),
		Currency:    "USD",
		Description: "Monthly rent",
		Params:      charge.RentParams{},
		Start:       start,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}
}

// =============================================================================
// REFERENTIAL INTEGRITY
// =============================================================================

func TestMemory_AppendCharge_RequiresKnownStaff(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	err := m.AppendCharge(ctx, testCharge("chg-1", "ghost", charge.MonthPeriod(2026, time.January)))
	assert.ErrorIs(t, err, charge.ErrStaffNotFound)
}

func TestMemory_AppendCharge_RejectsDuplicateID(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedStaff(t, m, "staff-1", "Maya Okafor")

	c := testCharge("chg-1", "staff-1", charge.MonthPeriod(2026, time.January))
	require.NoError(t, m.AppendCharge(ctx, c))

	err := m.AppendCharge(ctx, c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestMemory_PutSchedule_RequiresKnownStaff(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	err := m.PutSchedule(ctx, testSchedule("sch-1", "ghost", charge.NewDate(2026, time.January, 1)))
	assert.ErrorIs(t, err, charge.ErrStaffNotFound)
}

// =============================================================================
// SCHEDULED BILLING DEDUP
// =============================================================================

func TestMemory_AppendCharge_DeduplicatesScheduleMonth(t *testing.T) {
	// GIVEN: A schedule that already billed January
	// WHEN: Appending a second January charge for the same schedule
	// THEN: A DuplicateChargeError naming the existing charge

	ctx := context.Background()
	m := NewMemory()
	seedStaff(t, m, "staff-1", "Maya Okafor")

	jan := charge.MonthPeriod(2026, time.January)
	require.NoError(t, m.AppendCharge(ctx, scheduledCharge("chg-1", "staff-1", "sch-1", jan)))

	err := m.AppendCharge(ctx, scheduledCharge("chg-2", "staff-1", "sch-1", jan))
	require.ErrorIs(t, err, charge.ErrDuplicateCharge)

	var dup *charge.DuplicateChargeError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, charge.ScheduleID("sch-1"), dup.ScheduleID)
	assert.Equal(t, "2026-01", dup.Month)
	assert.Equal(t, charge.ChargeID("chg-1"), dup.ExistingID)

	// The rejected charge must not land in the ledger.
	_, err = m.GetCharge(ctx, "chg-2")
	assert.ErrorIs(t, err, charge.ErrChargeNotFound)
}

func TestMemory_AppendCharge_DedupIsPerMonthAndPerSchedule(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedStaff(t, m, "staff-1", "Maya Okafor")

	jan := charge.MonthPeriod(2026, time.January)
	feb := charge.MonthPeriod(2026, time.February)

	require.NoError(t, m.AppendCharge(ctx, scheduledCharge("chg-1", "staff-1", "sch-1", jan)))

	// Same schedule, next month: fine.
	assert.NoError(t, m.AppendCharge(ctx, scheduledCharge("chg-2", "staff-1", "sch-1", feb)))

	// Different schedule, same month: fine.
	assert.NoError(t, m.AppendCharge(ctx, scheduledCharge("chg-3", "staff-1", "sch-2", jan)))
}

func TestMemory_AppendCharge_ManualChargesNeverDedup(t *testing.T) {
	// Manual postings carry no schedule ID, so the same month can hold any
	// number of them.
	ctx := context.Background()
	m := NewMemory()
	seedStaff(t, m, "staff-1", "Maya Okafor")

	jan := charge.MonthPeriod(2026, time.January)
	require.NoError(t, m.AppendCharge(ctx, testCharge("chg-1", "staff-1", jan)))
	assert.NoError(t, m.AppendCharge(ctx, testCharge("chg-2", "staff-1", jan)))
}

func TestMemory_VoidedScheduledCharge_StillBlocksTheMonth(t *testing.T) {
	// Voiding records a correction; it does not reopen the month for the
	// generator. Re-billing a voided month is a manual decision.
	ctx := context.Background()
	m := NewMemory()
	seedStaff(t, m, "staff-1", "Maya Okafor")

	jan := charge.MonthPeriod(2026, time.January)
	require.NoError(t, m.AppendCharge(ctx, scheduledCharge("chg-1", "staff-1", "sch-1", jan)))
	_, err := m.VoidCharge(ctx, "chg-1", time.Now())
	require.NoError(t, err)

	err = m.AppendCharge(ctx, scheduledCharge("chg-2", "staff-1", "sch-1", jan))
	assert.ErrorIs(t, err, charge.ErrDuplicateCharge)
}

// =============================================================================
// LISTING AND FILTERS
// =============================================================================

func TestMemory_ListCharges_FiltersCombine(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedStaff(t, m, "staff-1", "Maya Okafor")
	seedStaff(t, m, "staff-2", "Jonas Lindqvist")

	jan := charge.MonthPeriod(2026, time.January)
	feb := charge.MonthPeriod(2026, time.February)

	rent := testCharge("chg-1", "staff-1", jan)
	util := testCharge("chg-2", "staff-1", jan)
	util.Type = charge.ChargeUtilities
	other := testCharge("chg-3", "staff-2", feb)

	for _, c := range []charge.Charge{rent, util, other} {
		require.NoError(t, m.AppendCharge(ctx, c))
	}
	_, err := m.VoidCharge(ctx, "chg-2", time.Now())
	require.NoError(t, err)

	staff1 := charge.StaffID("staff-1")
	utilities := charge.ChargeUtilities
	posted := charge.ChargePosted

	byStaff, err := m.ListCharges(ctx, charge.ChargeFilter{StaffID: &staff1})
	require.NoError(t, err)
	assert.Len(t, byStaff, 2)

	byType, err := m.ListCharges(ctx, charge.ChargeFilter{Type: &utilities})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, charge.ChargeID("chg-2"), byType[0].ID)

	postedOnly, err := m.ListCharges(ctx, charge.ChargeFilter{StaffID: &staff1, Status: &posted})
	require.NoError(t, err)
	require.Len(t, postedOnly, 1)
	assert.Equal(t, charge.ChargeID("chg-1"), postedOnly[0].ID)

	byWindow, err := m.ListCharges(ctx, charge.ChargeFilter{Overlaps: &feb})
	require.NoError(t, err)
	require.Len(t, byWindow, 1)
	assert.Equal(t, charge.ChargeID("chg-3"), byWindow[0].ID)
}

func TestMemory_ListCharges_OrderedByPeriodStart(t *testing.T) {
	// Appending out of order must not leak insertion order into listings.
	ctx := context.Background()
	m := NewMemory()
	seedStaff(t, m, "staff-1", "Maya Okafor")

	require.NoError(t, m.AppendCharge(ctx, testCharge("chg-mar", "staff-1", charge.MonthPeriod(2026, time.March))))
	require.NoError(t, m.AppendCharge(ctx, testCharge("chg-jan", "staff-1", charge.MonthPeriod(2026, time.January))))
	require.NoError(t, m.AppendCharge(ctx, testCharge("chg-feb", "staff-1", charge.MonthPeriod(2026, time.February))))

	all, err := m.ListCharges(ctx, charge.ChargeFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	var ids []charge.ChargeID
	for _, c := range all {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []charge.ChargeID{"chg-jan", "chg-feb", "chg-mar"}, ids)
}

// =============================================================================
// VOIDING
// =============================================================================

func TestMemory_VoidCharge_Lifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedStaff(t, m, "staff-1", "Maya Okafor")
	require.NoError(t, m.AppendCharge(ctx, testCharge("chg-1", "staff-1", charge.MonthPeriod(2026, time.January))))

	at := time.Date(2026, time.February, 1, 9, 0, 0, 0, time.UTC)
	voided, err := m.VoidCharge(ctx, "chg-1", at)
	require.NoError(t, err)
	assert.Equal(t, charge.ChargeVoid, voided.Status)
	require.NotNil(t, voided.VoidedAt)
	assert.True(t, voided.VoidedAt.Equal(at))

	// The stored record is updated, not just the returned copy.
	stored, err := m.GetCharge(ctx, "chg-1")
	require.NoError(t, err)
	assert.Equal(t, charge.ChargeVoid, stored.Status)

	_, err = m.VoidCharge(ctx, "chg-1", at.Add(time.Hour))
	assert.ErrorIs(t, err, charge.ErrChargeVoided)

	_, err = m.VoidCharge(ctx, "ghost", at)
	assert.ErrorIs(t, err, charge.ErrChargeNotFound)
}

// =============================================================================
// SCHEDULES
// =============================================================================

func TestMemory_Schedules_ListAndDeactivate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedStaff(t, m, "staff-1", "Maya Okafor")
	seedStaff(t, m, "staff-2", "Jonas Lindqvist")

	early := testSchedule("sch-early", "staff-1", charge.NewDate(2026, time.January, 1))
	late := testSchedule("sch-late", "staff-1", charge.NewDate(2026, time.March, 1))
	other := testSchedule("sch-other", "staff-2", charge.NewDate(2026, time.February, 1))

	for _, s := range []charge.Schedule{late, early, other} {
		require.NoError(t, m.PutSchedule(ctx, s))
	}

	deactivated, err := m.DeactivateSchedule(ctx, "sch-late")
	require.NoError(t, err)
	assert.False(t, deactivated.Active)

	// Active-only listing drops the deactivated schedule.
	active, err := m.ListSchedules(ctx, charge.ScheduleFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, charge.ScheduleID("sch-early"), active[0].ID)
	assert.Equal(t, charge.ScheduleID("sch-other"), active[1].ID)

	// Unfiltered listing keeps it, ordered by start date.
	all, err := m.ListSchedules(ctx, charge.ScheduleFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, charge.ScheduleID("sch-late"), all[2].ID)

	staff1 := charge.StaffID("staff-1")
	mine, err := m.ListSchedules(ctx, charge.ScheduleFilter{StaffID: &staff1})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = m.DeactivateSchedule(ctx, "ghost")
	assert.ErrorIs(t, err, charge.ErrScheduleNotFound)
}

// =============================================================================
// STAFF LISTING
// =============================================================================

func TestMemory_ListStaff_ActiveFilterAndOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedStaff(t, m, "staff-1", "Maya Okafor")
	seedStaff(t, m, "staff-2", "Jonas Lindqvist")

	former := charge.Staff{ID: "staff-3", Name: "Amara Diallo", Active: false, CreatedAt: time.Now().UTC()}
	require.NoError(t, m.PutStaff(ctx, former))

	active, err := m.ListStaff(ctx, false)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "Jonas Lindqvist", active[0].Name)
	assert.Equal(t, "Maya Okafor", active[1].Name)

	everyone, err := m.ListStaff(ctx, true)
	require.NoError(t, err)
	require.Len(t, everyone, 3)
	assert.Equal(t, "Amara Diallo", everyone[0].Name)
}

// =============================================================================
// RESET
// =============================================================================

func TestMemory_Reset_ClearsTheDedupIndex(t *testing.T) {
	// After a reset the same schedule may bill the same month again; a
	// stale dedup entry would break scenario reloading.
	ctx := context.Background()
	m := NewMemory()
	seedStaff(t, m, "staff-1", "Maya Okafor")

	jan := charge.MonthPeriod(2026, time.January)
	require.NoError(t, m.AppendCharge(ctx, scheduledCharge("chg-1", "staff-1", "sch-1", jan)))

	require.NoError(t, m.Reset(ctx))

	staff, err := m.ListStaff(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, staff)

	seedStaff(t, m, "staff-1", "Maya Okafor")
	assert.NoError(t, m.AppendCharge(ctx, scheduledCharge("chg-1", "staff-1", "sch-1", jan)))
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestTxMemory_WithTx_RollsBackOnError(t *testing.T) {
	// GIVEN: A transaction that seeds staff and a charge, then fails
	// WHEN: WithTx returns the error
	// THEN: Nothing from the transaction is visible afterwards

	ctx := context.Background()
	tm := NewTxMemory()

	boom := errors.New("boom")
	err := tm.WithTx(ctx, func(s charge.Store) error {
		if err := s.PutStaff(ctx, charge.Staff{ID: "staff-1", Name: "Maya Okafor", Active: true}); err != nil {
			return err
		}
		if err := s.AppendCharge(ctx, testCharge("chg-1", "staff-1", charge.MonthPeriod(2026, time.January))); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = tm.GetStaff(ctx, "staff-1")
	assert.ErrorIs(t, err, charge.ErrStaffNotFound)
	_, err = tm.GetCharge(ctx, "chg-1")
	assert.ErrorIs(t, err, charge.ErrChargeNotFound)
}

func TestTxMemory_WithTx_ReadsItsOwnWrites(t *testing.T) {
	// Seeding depends on this: schedules reference staff created moments
	// earlier in the same transaction.
	ctx := context.Background()
	tm := NewTxMemory()

	err := tm.WithTx(ctx, func(s charge.Store) error {
		if err := s.PutStaff(ctx, charge.Staff{ID: "staff-1", Name: "Maya Okafor", Active: true}); err != nil {
			return err
		}
		return s.PutSchedule(ctx, testSchedule("sch-1", "staff-1", charge.NewDate(2026, time.January, 1)))
	})
	require.NoError(t, err)

	sched, err := tm.GetSchedule(ctx, "sch-1")
	require.NoError(t, err)
	assert.Equal(t, charge.StaffID("staff-1"), sched.StaffID)
}
