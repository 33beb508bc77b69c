/*
store.go - Persistence interface for staff, charges, and schedules

PURPOSE:
  Defines the interface between the billing domain and the database.
  Different implementations can use SQLite, PostgreSQL, or in-memory
  storage; the API layer and the recurring generator only see this
  interface.

KEY INTERFACES:
  Store:   Staff roster, charge ledger, and schedule persistence
  TxStore: Transactional operations (atomic multi-write)

CHARGE LEDGER CONTRACT:
  Charges are append-and-void only:
  - AppendCharge(): The only way a charge comes into existence
  - VoidCharge():   The only mutation, and it is one-way
  - NO update or delete methods exist

  A scheduled charge is unique per (ScheduleID, billed month). Appending
  a duplicate fails with *DuplicateChargeError, which is what makes
  scheduler re-runs idempotent.

REFERENTIAL RULES:
  Charges and schedules reference an existing staff member; writes for an
  unknown staff ID fail with ErrStaffNotFound.

IMPLEMENTATIONS:
  - charge/store/memory.go: In-memory, for tests and dev servers
  - store/sqlite/sqlite.go: SQLite
  - store/postgres/postgres.go: PostgreSQL via pgx

EXAMPLE:
  st, err := sqlite.New("./data/charges.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()
  err = st.AppendCharge(ctx, c)
  if errors.Is(err, charge.ErrDuplicateCharge) {
      // month already billed, safe to ignore
  }

SEE ALSO:
  - record.go: The Charge type and its lifecycle
  - statement.go: Monthly aggregation built on ListCharges
*/
package charge

import (
	"context"
	"time"
)

// =============================================================================
// FILTERS
// =============================================================================

// ChargeFilter narrows ListCharges. Nil fields match everything.
type ChargeFilter struct {
	StaffID    *StaffID
	Type       *ChargeType
	Status     *ChargeStatus
	ScheduleID *ScheduleID

	// Overlaps keeps charges whose period shares at least one day with
	// the given period.
	Overlaps *Period
}

// ScheduleFilter narrows ListSchedules.
type ScheduleFilter struct {
	StaffID    *StaffID
	ActiveOnly bool
}

// =============================================================================
// STORE
// =============================================================================

type Store interface {
	// --- Staff roster ---

	// PutStaff creates or replaces a roster entry.
	PutStaff(ctx context.Context, st Staff) error

	// GetStaff returns ErrStaffNotFound for unknown IDs.
	GetStaff(ctx context.Context, id StaffID) (Staff, error)

	// ListStaff returns entries ordered by name.
	ListStaff(ctx context.Context, includeInactive bool) ([]Staff, error)

	// --- Charge ledger (append and void only) ---

	// AppendCharge persists a charge. Fails with ErrStaffNotFound for an
	// unknown staff ID and *DuplicateChargeError when the charge's
	// schedule already billed the same month.
	AppendCharge(ctx context.Context, c Charge) error

	// GetCharge returns ErrChargeNotFound for unknown IDs.
	GetCharge(ctx context.Context, id ChargeID) (Charge, error)

	// ListCharges returns matches ordered by period start, then creation
	// time.
	ListCharges(ctx context.Context, f ChargeFilter) ([]Charge, error)

	// VoidCharge marks a posted charge void and returns the updated
	// record. Fails with ErrChargeNotFound or ErrChargeVoided.
	VoidCharge(ctx context.Context, id ChargeID, at time.Time) (Charge, error)

	// --- Recurring schedules ---

	// PutSchedule creates or replaces a schedule. Fails with
	// ErrStaffNotFound for an unknown staff ID.
	PutSchedule(ctx context.Context, s Schedule) error

	// GetSchedule returns ErrScheduleNotFound for unknown IDs.
	GetSchedule(ctx context.Context, id ScheduleID) (Schedule, error)

	// ListSchedules returns matches ordered by start date, then ID.
	ListSchedules(ctx context.Context, f ScheduleFilter) ([]Schedule, error)

	// DeactivateSchedule turns a schedule off and returns the updated
	// record. Deactivating an inactive schedule is a no-op.
	DeactivateSchedule(ctx context.Context, id ScheduleID) (Schedule, error)

	// --- Maintenance ---

	// Reset clears all data (for testing/demo).
	Reset(ctx context.Context) error
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. If fn returns an error,
	// the transaction is rolled back; otherwise it is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
