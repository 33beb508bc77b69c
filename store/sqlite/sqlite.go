/*
Package sqlite provides a SQLite-backed implementation of the charge store.

PURPOSE:
  Implements charge.Store and charge.TxStore using SQLite. In production,
  the same patterns apply to PostgreSQL - only minor SQL dialect
  differences (see store/postgres).

KEY TABLES:
  staff:     Roster of billable staff members
  charges:   The charge ledger; voided rows stay, status flips to 'void'
  schedules: Recurring charge definitions driven by the generator

BILLING IDEMPOTENCY:
  A partial unique index enforces one scheduled charge per schedule per
  billed month:

    CREATE UNIQUE INDEX idx_charges_schedule_month
        ON charges(schedule_id, billed_month) WHERE schedule_id <> ''

  Manual charges carry an empty schedule_id and are exempt. Violations
  surface as *charge.DuplicateChargeError so the generator can skip.

MONEY AND DATES:
  Decimal amounts are stored as TEXT to avoid float drift. Period bounds
  are stored as YYYY-MM-DD strings, which compare correctly as text, so
  overlap queries need no date functions.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. WithTx holds the write lock for
  the whole callback; the transactional view routes every statement
  through the open *sql.Tx so seeding reads see uncommitted writes.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/charges.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - charge/store.go: Interface definitions
  - charge/store/memory.go: In-memory implementation for testing
  - store/postgres/postgres.go: PostgreSQL implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/charge-engine/charge"
)

// Store implements charge.Store and charge.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ charge.Store   = (*Store)(nil)
	_ charge.TxStore = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Staff roster
	CREATE TABLE IF NOT EXISTS staff (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		unit TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	-- Charge ledger (voids flip status, rows are never deleted)
	CREATE TABLE IF NOT EXISTS charges (
		id TEXT PRIMARY KEY,
		staff_id TEXT NOT NULL,
		charge_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		description TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		status TEXT NOT NULL,
		source TEXT NOT NULL,
		schedule_id TEXT NOT NULL DEFAULT '',
		billed_month TEXT NOT NULL,
		metadata_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		voided_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_charges_staff
		ON charges(staff_id);

	-- Composite index for statement and overlap queries (hot path)
	CREATE INDEX IF NOT EXISTS idx_charges_staff_period
		ON charges(staff_id, period_start, period_end);

	CREATE INDEX IF NOT EXISTS idx_charges_schedule
		ON charges(schedule_id) WHERE schedule_id <> '';

	-- CRITICAL: one scheduled charge per schedule per billed month.
	-- Manual charges have schedule_id = '' and are exempt.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_charges_schedule_month
		ON charges(schedule_id, billed_month) WHERE schedule_id <> '';

	-- Recurring schedules
	CREATE TABLE IF NOT EXISTS schedules (
		id TEXT PRIMARY KEY,
		staff_id TEXT NOT NULL,
		charge_type TEXT NOT NULL,
		base_amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		description TEXT NOT NULL,
		params_json TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_schedules_staff
		ON schedules(staff_id);
	CREATE INDEX IF NOT EXISTS idx_schedules_active
		ON schedules(active);
	`

	_, err := s.db.Exec(schema)
	return err
}

// executor abstracts *sql.DB and *sql.Tx so the same statement helpers
// serve both direct calls and WithTx callbacks.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// STAFF
// =============================================================================

// PutStaff inserts or updates a roster entry.
func (s *Store) PutStaff(ctx context.Context, st charge.Staff) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putStaff(ctx, s.db, st)
}

func (s *Store) putStaff(ctx context.Context, q executor, st charge.Staff) error {
	query := `
		INSERT INTO staff (id, name, unit, active, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			unit = excluded.unit,
			active = excluded.active
	`

	_, err := q.ExecContext(ctx, query,
		string(st.ID), st.Name, st.Unit, st.Active,
		st.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save staff: %w", err)
	}
	return nil
}

// GetStaff retrieves a roster entry by ID.
func (s *Store) GetStaff(ctx context.Context, id charge.StaffID) (charge.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getStaff(ctx, s.db, id)
}

func (s *Store) getStaff(ctx context.Context, q executor, id charge.StaffID) (charge.Staff, error) {
	var (
		st        charge.Staff
		staffID   string
		createdAt string
	)

	err := q.QueryRowContext(ctx,
		"SELECT id, name, unit, active, created_at FROM staff WHERE id = ?",
		string(id),
	).Scan(&staffID, &st.Name, &st.Unit, &st.Active, &createdAt)

	if err == sql.ErrNoRows {
		return charge.Staff{}, charge.ErrStaffNotFound
	}
	if err != nil {
		return charge.Staff{}, fmt.Errorf("failed to load staff: %w", err)
	}

	st.ID = charge.StaffID(staffID)
	st.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return st, nil
}

// ListStaff returns the roster ordered by name. Inactive members are
// excluded unless includeInactive is set.
func (s *Store) ListStaff(ctx context.Context, includeInactive bool) ([]charge.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listStaff(ctx, s.db, includeInactive)
}

func (s *Store) listStaff(ctx context.Context, q executor, includeInactive bool) ([]charge.Staff, error) {
	query := "SELECT id, name, unit, active, created_at FROM staff"
	if !includeInactive {
		query += " WHERE active = TRUE"
	}
	query += " ORDER BY name ASC, id ASC"

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}
	defer rows.Close()

	var staff []charge.Staff
	for rows.Next() {
		var (
			st        charge.Staff
			staffID   string
			createdAt string
		)
		if err := rows.Scan(&staffID, &st.Name, &st.Unit, &st.Active, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan staff: %w", err)
		}
		st.ID = charge.StaffID(staffID)
		st.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		staff = append(staff, st)
	}
	return staff, rows.Err()
}

// =============================================================================
// CHARGES
// =============================================================================

const chargeColumns = `id, staff_id, charge_type, amount, currency, description,
	       period_start, period_end, status, source, schedule_id, metadata_json, created_at, voided_at`

// AppendCharge writes a charge to the ledger. Scheduled charges that would
// bill an already-billed month fail with *charge.DuplicateChargeError.
func (s *Store) AppendCharge(ctx context.Context, c charge.Charge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendCharge(ctx, s.db, c)
}

func (s *Store) appendCharge(ctx context.Context, q executor, c charge.Charge) error {
	if err := s.requireStaff(ctx, q, c.StaffID); err != nil {
		return err
	}

	metadataJSON, err := json.Marshal(c.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	var voidedAt *string
	if c.VoidedAt != nil {
		t := c.VoidedAt.UTC().Format(time.RFC3339)
		voidedAt = &t
	}

	query := `
		INSERT INTO charges
		(id, staff_id, charge_type, amount, currency, description,
		 period_start, period_end, status, source, schedule_id, billed_month,
		 metadata_json, created_at, voided_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = q.ExecContext(ctx, query,
		string(c.ID),
		string(c.StaffID),
		string(c.Type),
		c.Amount.String(),
		c.Currency,
		c.Description,
		c.Period.Start.String(),
		c.Period.End.String(),
		string(c.Status),
		string(c.Source),
		string(c.ScheduleID),
		c.BilledMonth(),
		string(metadataJSON),
		c.CreatedAt.UTC().Format(time.RFC3339),
		voidedAt,
	)

	if err != nil {
		if isScheduleMonthConflict(err) {
			dup := &charge.DuplicateChargeError{
				ScheduleID: c.ScheduleID,
				Month:      c.BilledMonth(),
			}
			var existing string
			if scanErr := q.QueryRowContext(ctx,
				"SELECT id FROM charges WHERE schedule_id = ? AND billed_month = ?",
				string(c.ScheduleID), c.BilledMonth(),
			).Scan(&existing); scanErr == nil {
				dup.ExistingID = charge.ChargeID(existing)
			}
			return dup
		}
		if isUniqueConstraintError(err) {
			return fmt.Errorf("charge %s already exists", c.ID)
		}
		return fmt.Errorf("failed to append charge: %w", err)
	}

	return nil
}

// GetCharge retrieves a ledger entry by ID.
func (s *Store) GetCharge(ctx context.Context, id charge.ChargeID) (charge.Charge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getCharge(ctx, s.db, id)
}

func (s *Store) getCharge(ctx context.Context, q executor, id charge.ChargeID) (charge.Charge, error) {
	charges, err := s.queryCharges(ctx, q,
		"SELECT "+chargeColumns+" FROM charges WHERE id = ?", string(id))
	if err != nil {
		return charge.Charge{}, err
	}
	if len(charges) == 0 {
		return charge.Charge{}, charge.ErrChargeNotFound
	}
	return charges[0], nil
}

// ListCharges returns ledger entries matching the filter, ordered by
// period start then insertion time.
func (s *Store) ListCharges(ctx context.Context, f charge.ChargeFilter) ([]charge.Charge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listCharges(ctx, s.db, f)
}

func (s *Store) listCharges(ctx context.Context, q executor, f charge.ChargeFilter) ([]charge.Charge, error) {
	query := "SELECT " + chargeColumns + " FROM charges"
	var conds []string
	var args []any

	if f.StaffID != nil {
		conds = append(conds, "staff_id = ?")
		args = append(args, string(*f.StaffID))
	}
	if f.Type != nil {
		conds = append(conds, "charge_type = ?")
		args = append(args, string(*f.Type))
	}
	if f.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, string(*f.Status))
	}
	if f.ScheduleID != nil {
		conds = append(conds, "schedule_id = ?")
		args = append(args, string(*f.ScheduleID))
	}
	if f.Overlaps != nil {
		// Inclusive overlap; YYYY-MM-DD strings compare correctly as text.
		conds = append(conds, "period_start <= ? AND period_end >= ?")
		args = append(args, f.Overlaps.End.String(), f.Overlaps.Start.String())
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY period_start ASC, created_at ASC"

	return s.queryCharges(ctx, q, query, args...)
}

// VoidCharge flips a posted charge to void and returns the updated row.
func (s *Store) VoidCharge(ctx context.Context, id charge.ChargeID, at time.Time) (charge.Charge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voidCharge(ctx, s.db, id, at)
}

func (s *Store) voidCharge(ctx context.Context, q executor, id charge.ChargeID, at time.Time) (charge.Charge, error) {
	c, err := s.getCharge(ctx, q, id)
	if err != nil {
		return charge.Charge{}, err
	}
	if err := c.Void(at); err != nil {
		return charge.Charge{}, err
	}

	_, err = q.ExecContext(ctx,
		"UPDATE charges SET status = ?, voided_at = ? WHERE id = ?",
		string(c.Status), c.VoidedAt.Format(time.RFC3339), string(id),
	)
	if err != nil {
		return charge.Charge{}, fmt.Errorf("failed to void charge: %w", err)
	}
	return c, nil
}

func (s *Store) queryCharges(ctx context.Context, q executor, query string, args ...any) ([]charge.Charge, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query charges: %w", err)
	}
	defer rows.Close()

	var charges []charge.Charge
	for rows.Next() {
		c, err := scanCharge(rows)
		if err != nil {
			return nil, err
		}
		charges = append(charges, c)
	}
	return charges, rows.Err()
}

func scanCharge(rows *sql.Rows) (charge.Charge, error) {
	var (
		c            charge.Charge
		id           string
		staffID      string
		chargeType   string
		amount       string
		periodStart  string
		periodEnd    string
		status       string
		source       string
		scheduleID   string
		metadataJSON string
		createdAt    string
		voidedAt     sql.NullString
	)

	err := rows.Scan(
		&id, &staffID, &chargeType, &amount, &c.Currency, &c.Description,
		&periodStart, &periodEnd, &status, &source, &scheduleID,
		&metadataJSON, &createdAt, &voidedAt,
	)
	if err != nil {
		return c, fmt.Errorf("failed to scan charge: %w", err)
	}

	c.ID = charge.ChargeID(id)
	c.StaffID = charge.StaffID(staffID)
	c.Type = charge.ChargeType(chargeType)
	c.Amount = charge.MustParseDecimal(amount)
	c.Period.Start, _ = charge.ParseDate(periodStart)
	c.Period.End, _ = charge.ParseDate(periodEnd)
	c.Status = charge.ChargeStatus(status)
	c.Source = charge.ChargeSource(source)
	c.ScheduleID = charge.ScheduleID(scheduleID)
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	if metadataJSON != "" {
		json.Unmarshal([]byte(metadataJSON), &c.Metadata)
	}
	if voidedAt.Valid {
		t, _ := time.Parse(time.RFC3339, voidedAt.String)
		c.VoidedAt = &t
	}

	return c, nil
}

// =============================================================================
// SCHEDULES
// =============================================================================

const scheduleColumns = `id, staff_id, base_amount, currency, description,
	       params_json, start_date, end_date, active, created_at`

// PutSchedule inserts or updates a recurring schedule.
func (s *Store) PutSchedule(ctx context.Context, sc charge.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putSchedule(ctx, s.db, sc)
}

func (s *Store) putSchedule(ctx context.Context, q executor, sc charge.Schedule) error {
	if err := s.requireStaff(ctx, q, sc.StaffID); err != nil {
		return err
	}

	paramsJSON, err := charge.EncodeParams(sc.Params)
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}

	var endDate *string
	if sc.End != nil {
		e := sc.End.String()
		endDate = &e
	}

	query := `
		INSERT INTO schedules
		(id, staff_id, charge_type, base_amount, currency, description,
		 params_json, start_date, end_date, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			staff_id = excluded.staff_id,
			charge_type = excluded.charge_type,
			base_amount = excluded.base_amount,
			currency = excluded.currency,
			description = excluded.description,
			params_json = excluded.params_json,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			active = excluded.active
	`

	_, err = q.ExecContext(ctx, query,
		string(sc.ID),
		string(sc.StaffID),
		string(sc.ChargeType()),
		sc.BaseAmount.String(),
		sc.Currency,
		sc.Description,
		string(paramsJSON),
		sc.Start.String(),
		endDate,
		sc.Active,
		sc.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save schedule: %w", err)
	}
	return nil
}

// GetSchedule retrieves a schedule by ID.
func (s *Store) GetSchedule(ctx context.Context, id charge.ScheduleID) (charge.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getSchedule(ctx, s.db, id)
}

func (s *Store) getSchedule(ctx context.Context, q executor, id charge.ScheduleID) (charge.Schedule, error) {
	schedules, err := s.querySchedules(ctx, q,
		"SELECT "+scheduleColumns+" FROM schedules WHERE id = ?", string(id))
	if err != nil {
		return charge.Schedule{}, err
	}
	if len(schedules) == 0 {
		return charge.Schedule{}, charge.ErrScheduleNotFound
	}
	return schedules[0], nil
}

// ListSchedules returns schedules matching the filter, ordered by start
// date then ID.
func (s *Store) ListSchedules(ctx context.Context, f charge.ScheduleFilter) ([]charge.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listSchedules(ctx, s.db, f)
}

func (s *Store) listSchedules(ctx context.Context, q executor, f charge.ScheduleFilter) ([]charge.Schedule, error) {
	query := "SELECT " + scheduleColumns + " FROM schedules"
	var conds []string
	var args []any

	if f.StaffID != nil {
		conds = append(conds, "staff_id = ?")
		args = append(args, string(*f.StaffID))
	}
	if f.ActiveOnly {
		conds = append(conds, "active = TRUE")
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY start_date ASC, id ASC"

	return s.querySchedules(ctx, q, query, args...)
}

// DeactivateSchedule stops future billing and returns the updated schedule.
func (s *Store) DeactivateSchedule(ctx context.Context, id charge.ScheduleID) (charge.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deactivateSchedule(ctx, s.db, id)
}

func (s *Store) deactivateSchedule(ctx context.Context, q executor, id charge.ScheduleID) (charge.Schedule, error) {
	sc, err := s.getSchedule(ctx, q, id)
	if err != nil {
		return charge.Schedule{}, err
	}
	if !sc.Active {
		return sc, nil
	}

	if _, err := q.ExecContext(ctx,
		"UPDATE schedules SET active = FALSE WHERE id = ?", string(id)); err != nil {
		return charge.Schedule{}, fmt.Errorf("failed to deactivate schedule: %w", err)
	}

	sc.Active = false
	return sc, nil
}

func (s *Store) querySchedules(ctx context.Context, q executor, query string, args ...any) ([]charge.Schedule, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer rows.Close()

	var schedules []charge.Schedule
	for rows.Next() {
		sc, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, sc)
	}
	return schedules, rows.Err()
}

func scanSchedule(rows *sql.Rows) (charge.Schedule, error) {
	var (
		sc         charge.Schedule
		id         string
		staffID    string
		baseAmount string
		paramsJSON string
		startDate  string
		endDate    sql.NullString
		createdAt  string
	)

	err := rows.Scan(
		&id, &staffID, &baseAmount, &sc.Currency, &sc.Description,
		&paramsJSON, &startDate, &endDate, &sc.Active, &createdAt,
	)
	if err != nil {
		return sc, fmt.Errorf("failed to scan schedule: %w", err)
	}

	params, err := charge.DecodeParams([]byte(paramsJSON))
	if err != nil {
		return sc, fmt.Errorf("failed to decode params for schedule %s: %w", id, err)
	}

	sc.ID = charge.ScheduleID(id)
	sc.StaffID = charge.StaffID(staffID)
	sc.BaseAmount = charge.MustParseDecimal(baseAmount)
	sc.Params = params
	sc.Start, _ = charge.ParseDate(startDate)
	if endDate.Valid {
		e, _ := charge.ParseDate(endDate.String)
		sc.End = &e
	}
	sc.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	return sc, nil
}

// =============================================================================
// TRANSACTIONAL STORE (charge.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction. The Store passed to fn
// routes every statement through the transaction, so reads observe writes
// made earlier in the same callback.
func (s *Store) WithTx(ctx context.Context, fn func(charge.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx, parent: s}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

type txStore struct {
	tx     *sql.Tx
	parent *Store
}

var _ charge.Store = (*txStore)(nil)

func (ts *txStore) PutStaff(ctx context.Context, st charge.Staff) error {
	return ts.parent.putStaff(ctx, ts.tx, st)
}

func (ts *txStore) GetStaff(ctx context.Context, id charge.StaffID) (charge.Staff, error) {
	return ts.parent.getStaff(ctx, ts.tx, id)
}

func (ts *txStore) ListStaff(ctx context.Context, includeInactive bool) ([]charge.Staff, error) {
	return ts.parent.listStaff(ctx, ts.tx, includeInactive)
}

func (ts *txStore) AppendCharge(ctx context.Context, c charge.Charge) error {
	return ts.parent.appendCharge(ctx, ts.tx, c)
}

func (ts *txStore) GetCharge(ctx context.Context, id charge.ChargeID) (charge.Charge, error) {
	return ts.parent.getCharge(ctx, ts.tx, id)
}

func (ts *txStore) ListCharges(ctx context.Context, f charge.ChargeFilter) ([]charge.Charge, error) {
	return ts.parent.listCharges(ctx, ts.tx, f)
}

func (ts *txStore) VoidCharge(ctx context.Context, id charge.ChargeID, at time.Time) (charge.Charge, error) {
	return ts.parent.voidCharge(ctx, ts.tx, id, at)
}

func (ts *txStore) PutSchedule(ctx context.Context, sc charge.Schedule) error {
	return ts.parent.putSchedule(ctx, ts.tx, sc)
}

func (ts *txStore) GetSchedule(ctx context.Context, id charge.ScheduleID) (charge.Schedule, error) {
	return ts.parent.getSchedule(ctx, ts.tx, id)
}

func (ts *txStore) ListSchedules(ctx context.Context, f charge.ScheduleFilter) ([]charge.Schedule, error) {
	return ts.parent.listSchedules(ctx, ts.tx, f)
}

func (ts *txStore) DeactivateSchedule(ctx context.Context, id charge.ScheduleID) (charge.Schedule, error) {
	return ts.parent.deactivateSchedule(ctx, ts.tx, id)
}

func (ts *txStore) Reset(ctx context.Context) error {
	return ts.parent.reset(ctx, ts.tx)
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reset(ctx, s.db)
}

func (s *Store) reset(ctx context.Context, q executor) error {
	tables := []string{"charges", "schedules", "staff"}
	for _, table := range tables {
		if _, err := q.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// requireStaff fails with ErrStaffNotFound when the roster has no entry.
func (s *Store) requireStaff(ctx context.Context, q executor, id charge.StaffID) error {
	var count int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM staff WHERE id = ?", string(id)).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check staff: %w", err)
	}
	if count == 0 {
		return charge.ErrStaffNotFound
	}
	return nil
}

// Helper functions

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// SQLite spells a unique-index violation as "UNIQUE constraint failed:
// charges.schedule_id, charges.billed_month". schedule_id appears in no
// other unique constraint, so its presence identifies the billing dedup.
func isScheduleMonthConflict(err error) bool {
	return err != nil && strings.Contains(err.Error(), "charges.schedule_id")
}
