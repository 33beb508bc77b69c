// Package store provides Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/warp/charge-engine/charge"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	staff     map[charge.StaffID]charge.Staff
	charges   []charge.Charge // sorted by period start, then created at
	scheduled map[string]charge.ChargeID
	schedules map[charge.ScheduleID]charge.Schedule
}

var _ charge.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		staff:     make(map[charge.StaffID]charge.Staff),
		scheduled: make(map[string]charge.ChargeID),
		schedules: make(map[charge.ScheduleID]charge.Schedule),
	}
}

// dedupKey identifies one schedule's billing of one month.
func dedupKey(id charge.ScheduleID, month string) string {
	return string(id) + "|" + month
}

// --- Staff ---

func (m *Memory) PutStaff(_ context.Context, st charge.Staff) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putStaffLocked(st)
	return nil
}

func (m *Memory) GetStaff(_ context.Context, id charge.StaffID) (charge.Staff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getStaffLocked(id)
}

func (m *Memory) ListStaff(_ context.Context, includeInactive bool) ([]charge.Staff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listStaffLocked(includeInactive), nil
}

func (m *Memory) putStaffLocked(st charge.Staff) {
	m.staff[st.ID] = st
}

func (m *Memory) getStaffLocked(id charge.StaffID) (charge.Staff, error) {
	st, ok := m.staff[id]
	if !ok {
		return charge.Staff{}, charge.ErrStaffNotFound
	}
	return st, nil
}

func (m *Memory) listStaffLocked(includeInactive bool) []charge.Staff {
	result := make([]charge.Staff, 0, len(m.staff))
	for _, st := range m.staff {
		if !includeInactive && !st.Active {
			continue
		}
		result = append(result, st)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// --- Charges ---

func (m *Memory) AppendCharge(_ context.Context, c charge.Charge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendChargeLocked(c)
}

func (m *Memory) GetCharge(_ context.Context, id charge.ChargeID) (charge.Charge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getChargeLocked(id)
}

func (m *Memory) ListCharges(_ context.Context, f charge.ChargeFilter) ([]charge.Charge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listChargesLocked(f), nil
}

func (m *Memory) VoidCharge(_ context.Context, id charge.ChargeID, at time.Time) (charge.Charge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.voidChargeLocked(id, at)
}

func (m *Memory) appendChargeLocked(c charge.Charge) error {
	if _, ok := m.staff[c.StaffID]; !ok {
		return charge.ErrStaffNotFound
	}
	if _, err := m.getChargeLocked(c.ID); err == nil {
		return fmt.Errorf("charge %s already exists", c.ID)
	}
	if c.ScheduleID != "" {
		k := dedupKey(c.ScheduleID, c.BilledMonth())
		if existing, ok := m.scheduled[k]; ok {
			return &charge.DuplicateChargeError{
				ScheduleID: c.ScheduleID,
				Month:      c.BilledMonth(),
				ExistingID: existing,
			}
		}
		m.scheduled[k] = c.ID
	}

	// Binary search for insertion point: keeps the slice period-ordered.
	i := sort.Search(len(m.charges), func(i int) bool {
		if !m.charges[i].Period.Start.Equal(c.Period.Start) {
			return m.charges[i].Period.Start.After(c.Period.Start)
		}
		return m.charges[i].CreatedAt.After(c.CreatedAt)
	})
	m.charges = append(m.charges, charge.Charge{})
	copy(m.charges[i+1:], m.charges[i:])
	m.charges[i] = c
	return nil
}

func (m *Memory) getChargeLocked(id charge.ChargeID) (charge.Charge, error) {
	for _, c := range m.charges {
		if c.ID == id {
			return c, nil
		}
	}
	return charge.Charge{}, charge.ErrChargeNotFound
}

func (m *Memory) listChargesLocked(f charge.ChargeFilter) []charge.Charge {
	var result []charge.Charge
	for _, c := range m.charges {
		if !matchCharge(c, f) {
			continue
		}
		result = append(result, c)
	}
	return result
}

func matchCharge(c charge.Charge, f charge.ChargeFilter) bool {
	if f.StaffID != nil && c.StaffID != *f.StaffID {
		return false
	}
	if f.Type != nil && c.Type != *f.Type {
		return false
	}
	if f.Status != nil && c.Status != *f.Status {
		return false
	}
	if f.ScheduleID != nil && c.ScheduleID != *f.ScheduleID {
		return false
	}
	if f.Overlaps != nil && !c.Period.Overlaps(*f.Overlaps) {
		return false
	}
	return true
}

func (m *Memory) voidChargeLocked(id charge.ChargeID, at time.Time) (charge.Charge, error) {
	for i := range m.charges {
		if m.charges[i].ID != id {
			continue
		}
		c := m.charges[i]
		if err := c.Void(at); err != nil {
			return charge.Charge{}, err
		}
		m.charges[i] = c
		return c, nil
	}
	return charge.Charge{}, charge.ErrChargeNotFound
}

// --- Schedules ---

func (m *Memory) PutSchedule(_ context.Context, s charge.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putScheduleLocked(s)
}

func (m *Memory) GetSchedule(_ context.Context, id charge.ScheduleID) (charge.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getScheduleLocked(id)
}

func (m *Memory) ListSchedules(_ context.Context, f charge.ScheduleFilter) ([]charge.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listSchedulesLocked(f), nil
}

func (m *Memory) DeactivateSchedule(_ context.Context, id charge.ScheduleID) (charge.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deactivateScheduleLocked(id)
}

func (m *Memory) putScheduleLocked(s charge.Schedule) error {
	if _, ok := m.staff[s.StaffID]; !ok {
		return charge.ErrStaffNotFound
	}
	m.schedules[s.ID] = s
	return nil
}

func (m *Memory) getScheduleLocked(id charge.ScheduleID) (charge.Schedule, error) {
	s, ok := m.schedules[id]
	if !ok {
		return charge.Schedule{}, charge.ErrScheduleNotFound
	}
	return s, nil
}

func (m *Memory) listSchedulesLocked(f charge.ScheduleFilter) []charge.Schedule {
	var result []charge.Schedule
	for _, s := range m.schedules {
		if f.StaffID != nil && s.StaffID != *f.StaffID {
			continue
		}
		if f.ActiveOnly && !s.Active {
			continue
		}
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Start.Equal(result[j].Start) {
			return result[i].Start.Before(result[j].Start)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func (m *Memory) deactivateScheduleLocked(id charge.ScheduleID) (charge.Schedule, error) {
	s, ok := m.schedules[id]
	if !ok {
		return charge.Schedule{}, charge.ErrScheduleNotFound
	}
	s.Active = false
	m.schedules[id] = s
	return s, nil
}

// --- Maintenance ---

func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
	return nil
}

func (m *Memory) resetLocked() {
	m.staff = make(map[charge.StaffID]charge.Staff)
	m.charges = nil
	m.scheduled = make(map[string]charge.ChargeID)
	m.schedules = make(map[charge.ScheduleID]charge.Schedule)
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

var _ charge.TxStore = (*TxMemory)(nil)

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For the memory store this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(charge.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()
	view := &txMemoryView{parent: tm.Memory}

	if err := fn(view); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	staff     map[charge.StaffID]charge.Staff
	charges   []charge.Charge
	scheduled map[string]charge.ChargeID
	schedules map[charge.ScheduleID]charge.Schedule
}

func (tm *TxMemory) snapshot() memorySnapshot {
	s := memorySnapshot{
		staff:     make(map[charge.StaffID]charge.Staff, len(tm.staff)),
		charges:   append([]charge.Charge{}, tm.charges...),
		scheduled: make(map[string]charge.ChargeID, len(tm.scheduled)),
		schedules: make(map[charge.ScheduleID]charge.Schedule, len(tm.schedules)),
	}
	for k, v := range tm.staff {
		s.staff[k] = v
	}
	for k, v := range tm.scheduled {
		s.scheduled[k] = v
	}
	for k, v := range tm.schedules {
		s.schedules[k] = v
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.staff = s.staff
	tm.charges = s.charges
	tm.scheduled = s.scheduled
	tm.schedules = s.schedules
}

// txMemoryView runs against the parent's state while WithTx holds the lock.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) PutStaff(_ context.Context, st charge.Staff) error {
	tv.parent.putStaffLocked(st)
	return nil
}

func (tv *txMemoryView) GetStaff(_ context.Context, id charge.StaffID) (charge.Staff, error) {
	return tv.parent.getStaffLocked(id)
}

func (tv *txMemoryView) ListStaff(_ context.Context, includeInactive bool) ([]charge.Staff, error) {
	return tv.parent.listStaffLocked(includeInactive), nil
}

func (tv *txMemoryView) AppendCharge(_ context.Context, c charge.Charge) error {
	return tv.parent.appendChargeLocked(c)
}

func (tv *txMemoryView) GetCharge(_ context.Context, id charge.ChargeID) (charge.Charge, error) {
	return tv.parent.getChargeLocked(id)
}

func (tv *txMemoryView) ListCharges(_ context.Context, f charge.ChargeFilter) ([]charge.Charge, error) {
	return tv.parent.listChargesLocked(f), nil
}

func (tv *txMemoryView) VoidCharge(_ context.Context, id charge.ChargeID, at time.Time) (charge.Charge, error) {
	return tv.parent.voidChargeLocked(id, at)
}

func (tv *txMemoryView) PutSchedule(_ context.Context, s charge.Schedule) error {
	return tv.parent.putScheduleLocked(s)
}

func (tv *txMemoryView) GetSchedule(_ context.Context, id charge.ScheduleID) (charge.Schedule, error) {
	return tv.parent.getScheduleLocked(id)
}

func (tv *txMemoryView) ListSchedules(_ context.Context, f charge.ScheduleFilter) ([]charge.Schedule, error) {
	return tv.parent.listSchedulesLocked(f), nil
}

func (tv *txMemoryView) DeactivateSchedule(_ context.Context, id charge.ScheduleID) (charge.Schedule, error) {
	return tv.parent.deactivateScheduleLocked(id)
}

func (tv *txMemoryView) Reset(_ context.Context) error {
	tv.parent.resetLocked()
	return nil
}
