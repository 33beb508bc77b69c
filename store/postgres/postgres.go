/*
Package postgres provides a PostgreSQL-backed implementation of the
charge store.

PURPOSE:
  Implements charge.Store and charge.TxStore on pgxpool. Semantics match
  store/sqlite exactly; only the dialect and driver differ. Database-level
  concurrency control replaces the SQLite store's mutex.

BILLING IDEMPOTENCY:
  The same partial unique index as SQLite:

    CREATE UNIQUE INDEX idx_charges_schedule_month
        ON charges(schedule_id, billed_month) WHERE schedule_id <> ''

  Violations arrive as *pgconn.PgError code 23505 and are translated to
  *charge.DuplicateChargeError.

MONEY AND DATES:
  Decimal amounts and period bounds are stored as TEXT, matching the
  SQLite store, so both backends compare and round-trip identically.
  Timestamps use TIMESTAMPTZ.

USAGE:
  store, err := postgres.New(ctx, "postgres://localhost:5432/charges")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - charge/store.go: Interface definitions
  - store/sqlite/sqlite.go: SQLite implementation and schema rationale
*/
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/warp/charge-engine/charge"
)

// Store implements charge.Store and charge.TxStore on a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ charge.Store   = (*Store)(nil)
	_ charge.TxStore = (*Store)(nil)
)

// New connects to PostgreSQL and migrates the schema.
func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	store := &Store{pool: pool}
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Migrate creates the database schema.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS staff (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			unit TEXT NOT NULL DEFAULT '',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS charges (
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
			created_at TIMESTAMPTZ NOT NULL,
			voided_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_charges_staff
			ON charges(staff_id)`,
		`CREATE INDEX IF NOT EXISTS idx_charges_staff_period
			ON charges(staff_id, period_start, period_end)`,
		`CREATE INDEX IF NOT EXISTS idx_charges_schedule
			ON charges(schedule_id) WHERE schedule_id <> ''`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_charges_schedule_month
			ON charges(schedule_id, billed_month) WHERE schedule_id <> ''`,
		`CREATE TABLE IF NOT EXISTS schedules (
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
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_schedules_staff
			ON schedules(staff_id)`,
		`CREATE INDEX IF NOT EXISTS idx_schedules_active
			ON schedules(active)`,
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// querier abstracts *pgxpool.Pool and pgx.Tx so the same statement
// helpers serve both direct calls and WithTx callbacks.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// =============================================================================
// STAFF
// =============================================================================

func (s *Store) PutStaff(ctx context.Context, st charge.Staff) error {
	return s.putStaff(ctx, s.pool, st)
}

func (s *Store) putStaff(ctx context.Context, q querier, st charge.Staff) error {
	_, err := q.Exec(ctx, `
		INSERT INTO staff (id, name, unit, active, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			unit = EXCLUDED.unit,
			active = EXCLUDED.active
	`, string(st.ID), st.Name, st.Unit, st.Active, st.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save staff: %w", err)
	}
	return nil
}

func (s *Store) GetStaff(ctx context.Context, id charge.StaffID) (charge.Staff, error) {
	return s.getStaff(ctx, s.pool, id)
}

func (s *Store) getStaff(ctx context.Context, q querier, id charge.StaffID) (charge.Staff, error) {
	var (
		st      charge.Staff
		staffID string
	)

	err := q.QueryRow(ctx,
		"SELECT id, name, unit, active, created_at FROM staff WHERE id = $1",
		string(id),
	).Scan(&staffID, &st.Name, &st.Unit, &st.Active, &st.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return charge.Staff{}, charge.ErrStaffNotFound
	}
	if err != nil {
		return charge.Staff{}, fmt.Errorf("failed to load staff: %w", err)
	}

	st.ID = charge.StaffID(staffID)
	return st, nil
}

func (s *Store) ListStaff(ctx context.Context, includeInactive bool) ([]charge.Staff, error) {
	return s.listStaff(ctx, s.pool, includeInactive)
}

func (s *Store) listStaff(ctx context.Context, q querier, includeInactive bool) ([]charge.Staff, error) {
	query := "SELECT id, name, unit, active, created_at FROM staff"
	if !includeInactive {
		query += " WHERE active = TRUE"
	}
	query += " ORDER BY name ASC, id ASC"

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}
	defer rows.Close()

	var staff []charge.Staff
	for rows.Next() {
		var (
			st      charge.Staff
			staffID string
		)
		if err := rows.Scan(&staffID, &st.Name, &st.Unit, &st.Active, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan staff: %w", err)
		}
		st.ID = charge.StaffID(staffID)
		staff = append(staff, st)
	}
	return staff, rows.Err()
}

// =============================================================================
// CHARGES
// =============================================================================

const chargeColumns = `id, staff_id, charge_type, amount, currency, description,
	       period_start, period_end, status, source, schedule_id, metadata_json, created_at, voided_at`

func (s *Store) AppendCharge(ctx context.Context, c charge.Charge) error {
	return s.appendCharge(ctx, s.pool, c)
}

func (s *Store) appendCharge(ctx context.Context, q querier, c charge.Charge) error {
	if err := s.requireStaff(ctx, q, c.StaffID); err != nil {
		return err
	}

	metadataJSON, err := json.Marshal(c.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	var voidedAt *time.Time
	if c.VoidedAt != nil {
		t := c.VoidedAt.UTC()
		voidedAt = &t
	}

	_, err = q.Exec(ctx, `
		INSERT INTO charges
		(id, staff_id, charge_type, amount, currency, description,
		 period_start, period_end, status, source, schedule_id, billed_month,
		 metadata_json, created_at, voided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
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
		c.CreatedAt.UTC(),
		voidedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "idx_charges_schedule_month" {
				dup := &charge.DuplicateChargeError{
					ScheduleID: c.ScheduleID,
					Month:      c.BilledMonth(),
				}
				var existing string
				if scanErr := q.QueryRow(ctx,
					"SELECT id FROM charges WHERE schedule_id = $1 AND billed_month = $2",
					string(c.ScheduleID), c.BilledMonth(),
				).Scan(&existing); scanErr == nil {
					dup.ExistingID = charge.ChargeID(existing)
				}
				return dup
			}
			return fmt.Errorf("charge %s already exists", c.ID)
		}
		return fmt.Errorf("failed to append charge: %w", err)
	}

	return nil
}

func (s *Store) GetCharge(ctx context.Context, id charge.ChargeID) (charge.Charge, error) {
	return s.getCharge(ctx, s.pool, id)
}

func (s *Store) getCharge(ctx context.Context, q querier, id charge.ChargeID) (charge.Charge, error) {
	charges, err := s.queryCharges(ctx, q,
		"SELECT "+chargeColumns+" FROM charges WHERE id = $1", string(id))
	if err != nil {
		return charge.Charge{}, err
	}
	if len(charges) == 0 {
		return charge.Charge{}, charge.ErrChargeNotFound
	}
	return charges[0], nil
}

func (s *Store) ListCharges(ctx context.Context, f charge.ChargeFilter) ([]charge.Charge, error) {
	return s.listCharges(ctx, s.pool, f)
}

func (s *Store) listCharges(ctx context.Context, q querier, f charge.ChargeFilter) ([]charge.Charge, error) {
	query := "SELECT " + chargeColumns + " FROM charges"
	var conds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.StaffID != nil {
		conds = append(conds, "staff_id = "+arg(string(*f.StaffID)))
	}
	if f.Type != nil {
		conds = append(conds, "charge_type = "+arg(string(*f.Type)))
	}
	if f.Status != nil {
		conds = append(conds, "status = "+arg(string(*f.Status)))
	}
	if f.ScheduleID != nil {
		conds = append(conds, "schedule_id = "+arg(string(*f.ScheduleID)))
	}
	if f.Overlaps != nil {
		conds = append(conds, "period_start <= "+arg(f.Overlaps.End.String()))
		conds = append(conds, "period_end >= "+arg(f.Overlaps.Start.String()))
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY period_start ASC, created_at ASC"

	return s.queryCharges(ctx, q, query, args...)
}

func (s *Store) VoidCharge(ctx context.Context, id charge.ChargeID, at time.Time) (charge.Charge, error) {
	return s.voidCharge(ctx, s.pool, id, at)
}

func (s *Store) voidCharge(ctx context.Context, q querier, id charge.ChargeID, at time.Time) (charge.Charge, error) {
	c, err := s.getCharge(ctx, q, id)
	if err != nil {
		return charge.Charge{}, err
	}
	if err := c.Void(at); err != nil {
		return charge.Charge{}, err
	}

	_, err = q.Exec(ctx,
		"UPDATE charges SET status = $1, voided_at = $2 WHERE id = $3",
		string(c.Status), *c.VoidedAt, string(id),
	)
	if err != nil {
		return charge.Charge{}, fmt.Errorf("failed to void charge: %w", err)
	}
	return c, nil
}

func (s *Store) queryCharges(ctx context.Context, q querier, query string, args ...any) ([]charge.Charge, error) {
	rows, err := q.Query(ctx, query, args...)
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

func scanCharge(rows pgx.Rows) (charge.Charge, error) {
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
	)

	err := rows.Scan(
		&id, &staffID, &chargeType, &amount, &c.Currency, &c.Description,
		&periodStart, &periodEnd, &status, &source, &scheduleID,
		&metadataJSON, &c.CreatedAt, &c.VoidedAt,
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

	if metadataJSON != "" {
		json.Unmarshal([]byte(metadataJSON), &c.Metadata)
	}

	return c, nil
}

// =============================================================================
// SCHEDULES
// =============================================================================

const scheduleColumns = `id, staff_id, base_amount, currency, description,
	       params_json, start_date, end_date, active, created_at`

func (s *Store) PutSchedule(ctx context.Context, sc charge.Schedule) error {
	return s.putSchedule(ctx, s.pool, sc)
}

func (s *Store) putSchedule(ctx context.Context, q querier, sc charge.Schedule) error {
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

	_, err = q.Exec(ctx, `
		INSERT INTO schedules
		(id, staff_id, charge_type, base_amount, currency, description,
		 params_json, start_date, end_date, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			staff_id = EXCLUDED.staff_id,
			charge_type = EXCLUDED.charge_type,
			base_amount = EXCLUDED.base_amount,
			currency = EXCLUDED.currency,
			description = EXCLUDED.description,
			params_json = EXCLUDED.params_json,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			active = EXCLUDED.active
	`,
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
		sc.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save schedule: %w", err)
	}
	return nil
}

func (s *Store) GetSchedule(ctx context.Context, id charge.ScheduleID) (charge.Schedule, error) {
	return s.getSchedule(ctx, s.pool, id)
}

func (s *Store) getSchedule(ctx context.Context, q querier, id charge.ScheduleID) (charge.Schedule, error) {
	schedules, err := s.querySchedules(ctx, q,
		"SELECT "+scheduleColumns+" FROM schedules WHERE id = $1", string(id))
	if err != nil {
		return charge.Schedule{}, err
	}
	if len(schedules) == 0 {
		return charge.Schedule{}, charge.ErrScheduleNotFound
	}
	return schedules[0], nil
}

func (s *Store) ListSchedules(ctx context.Context, f charge.ScheduleFilter) ([]charge.Schedule, error) {
	return s.listSchedules(ctx, s.pool, f)
}

func (s *Store) listSchedules(ctx context.Context, q querier, f charge.ScheduleFilter) ([]charge.Schedule, error) {
	query := "SELECT " + scheduleColumns + " FROM schedules"
	var conds []string
	var args []any

	if f.StaffID != nil {
		args = append(args, string(*f.StaffID))
		conds = append(conds, fmt.Sprintf("staff_id = $%d", len(args)))
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

func (s *Store) DeactivateSchedule(ctx context.Context, id charge.ScheduleID) (charge.Schedule, error) {
	return s.deactivateSchedule(ctx, s.pool, id)
}

func (s *Store) deactivateSchedule(ctx context.Context, q querier, id charge.ScheduleID) (charge.Schedule, error) {
	sc, err := s.getSchedule(ctx, q, id)
	if err != nil {
		return charge.Schedule{}, err
	}
	if !sc.Active {
		return sc, nil
	}

	if _, err := q.Exec(ctx,
		"UPDATE schedules SET active = FALSE WHERE id = $1", string(id)); err != nil {
		return charge.Schedule{}, fmt.Errorf("failed to deactivate schedule: %w", err)
	}

	sc.Active = false
	return sc, nil
}

func (s *Store) querySchedules(ctx context.Context, q querier, query string, args ...any) ([]charge.Schedule, error) {
	rows, err := q.Query(ctx, query, args...)
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

func scanSchedule(rows pgx.Rows) (charge.Schedule, error) {
	var (
		sc         charge.Schedule
		id         string
		staffID    string
		baseAmount string
		paramsJSON string
		startDate  string
		endDate    *string
	)

	err := rows.Scan(
		&id, &staffID, &baseAmount, &sc.Currency, &sc.Description,
		&paramsJSON, &startDate, &endDate, &sc.Active, &sc.CreatedAt,
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
	if endDate != nil {
		e, _ := charge.ParseDate(*endDate)
		sc.End = &e
	}

	return sc, nil
}

// =============================================================================
// TRANSACTIONAL STORE (charge.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction. The Store passed to fn
// routes every statement through the transaction.
func (s *Store) WithTx(ctx context.Context, fn func(charge.Store) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&txStore{tx: tx, parent: s}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

type txStore struct {
	tx     pgx.Tx
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
	return s.reset(ctx, s.pool)
}

func (s *Store) reset(ctx context.Context, q querier) error {
	_, err := q.Exec(ctx, "TRUNCATE charges, schedules, staff")
	return err
}

// requireStaff fails with ErrStaffNotFound when the roster has no entry.
func (s *Store) requireStaff(ctx context.Context, q querier, id charge.StaffID) error {
	var count int
	err := q.QueryRow(ctx,
		"SELECT COUNT(*) FROM staff WHERE id = $1", string(id)).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check staff: %w", err)
	}
	if count == 0 {
		return charge.ErrStaffNotFound
	}
	return nil
}
