/*
statement_test.go - Monthly statement aggregation over stored charges

PURPOSE:
  Statements answer "what does this staff member owe for a month?".
  The selection rule is period OVERLAP and the totaling rule is
  posted-lines-only; both are pinned here against the in-memory store.
*/
package charge_test

import (
	"context"
	"testing"
	"time"

	"github.com/warp/charge-engine/charge"
	"github.com/warp/charge-engine/charge/store"
)

// =============================================================================
// FIXTURES
// =============================================================================

func statementStore(t *testing.T) *store.Memory {
	t.Helper()
	m := store.NewMemory()
	err := m.PutStaff(context.Background(), charge.Staff{
		ID:        "staff-1",
		Name:      "Maya Okafor",
		Unit:      "Studio 4A",
		Active:    true,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return m
}

func ledgerLine(id string, chargeType charge.ChargeType, amount string, period charge.Period) charge.Charge {
	return charge.Charge{
		ID:          charge.ChargeID(id),
		StaffID:     "staff-1",
		Type:        chargeType,
		Amount:      charge.MustParseDecimal(amount),
		Currency:    "USD",
		Description: string(chargeType),
		Period:      period,
		Status:      charge.ChargePosted,
		Source:      charge.SourceManual,
		CreatedAt:   time.Now().UTC(),
	}
}

// =============================================================================
// TOTALS
// =============================================================================

func TestStatement_VoidLinesListedButNotTotaled(t *testing.T) {
	// GIVEN: Two posted charges and one void charge in January
	// WHEN: Building the January statement
	// THEN: All three appear as lines; only the posted two total

	ctx := context.Background()
	m := statementStore(t)
	jan := charge.MonthPeriod(2026, time.January)

	for _, c := range []charge.Charge{
		ledgerLine("chg-rent", charge.ChargeRent, "850", jan),
		ledgerLine("chg-util", charge.ChargeUtilities, "77.50", jan),
		ledgerLine("chg-gym", charge.ChargeOther, "45", jan),
	} {
		if err := m.AppendCharge(ctx, c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if _, err := m.VoidCharge(ctx, "chg-gym", time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	st, err := charge.BuildStatement(ctx, m, "staff-1", jan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(st.Lines) != 3 {
		t.Errorf("expected 3 statement lines, got %d", len(st.Lines))
	}
	if !st.Total.Equal(charge.MustParseDecimal("927.50")) {
		t.Errorf("expected total 927.50, got %v", st.Total)
	}
	if len(st.TypeTotals) != 2 {
		t.Fatalf("expected 2 type totals, got %d", len(st.TypeTotals))
	}
}

func TestStatement_TypeTotals_SortedByTypeName(t *testing.T) {
	// GIVEN: Posted charges of three different types
	// WHEN: Building the statement
	// THEN: Type totals come back in stable alphabetical order

	ctx := context.Background()
	m := statementStore(t)
	jan := charge.MonthPeriod(2026, time.January)

	for _, c := range []charge.Charge{
		ledgerLine("chg-1", charge.ChargeUtilities, "60", jan),
		ledgerLine("chg-2", charge.ChargeRent, "900", jan),
		ledgerLine("chg-3", charge.ChargeOther, "45", jan),
	} {
		if err := m.AppendCharge(ctx, c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	st, err := charge.BuildStatement(ctx, m, "staff-1", jan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantOrder := []charge.ChargeType{charge.ChargeOther, charge.ChargeRent, charge.ChargeUtilities}
	if len(st.TypeTotals) != len(wantOrder) {
		t.Fatalf("expected %d type totals, got %d", len(wantOrder), len(st.TypeTotals))
	}
	for i, want := range wantOrder {
		if st.TypeTotals[i].Type != want {
			t.Errorf("type total %d: expected %s, got %s", i, want, st.TypeTotals[i].Type)
		}
	}
	if !st.TypeTotals[1].Amount.Equal(charge.MustParseDecimal("900")) {
		t.Errorf("expected rent total 900, got %v", st.TypeTotals[1].Amount)
	}
}

// =============================================================================
// SELECTION
// =============================================================================

func TestStatement_PeriodOverlap_LineAppearsOnBothMonths(t *testing.T) {
	// GIVEN: A charge covering Jan 15 through Feb 14
	// WHEN: Building the January and February statements
	// THEN: The line appears on both, at its full billed amount

	ctx := context.Background()
	m := statementStore(t)

	straddle := charge.NewPeriod(charge.NewDate(2026, time.January, 15), charge.NewDate(2026, time.February, 14))
	if err := m.AppendCharge(ctx, ledgerLine("chg-1", charge.ChargeRent, "850", straddle)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, month := range []time.Month{time.January, time.February} {
		st, err := charge.BuildStatement(ctx, m, "staff-1", charge.MonthPeriod(2026, month))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", month, err)
		}
		if len(st.Lines) != 1 {
			t.Errorf("%s: expected the straddling line, got %d lines", month, len(st.Lines))
		}
		if !st.Total.Equal(charge.MustParseDecimal("850")) {
			t.Errorf("%s: expected the full amount, got %v", month, st.Total)
		}
	}

	march, err := charge.BuildStatement(ctx, m, "staff-1", charge.MonthPeriod(2026, time.March))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(march.Lines) != 0 {
		t.Errorf("expected an empty March statement, got %d lines", len(march.Lines))
	}
}

func TestStatement_EmptyMonth_ZeroTotals(t *testing.T) {
	ctx := context.Background()
	m := statementStore(t)

	st, err := charge.BuildStatement(ctx, m, "staff-1", charge.MonthPeriod(2026, time.June))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(st.Lines) != 0 || len(st.TypeTotals) != 0 {
		t.Errorf("expected an empty statement, got %+v", st)
	}
	if !st.Total.IsZero() {
		t.Errorf("expected zero total, got %v", st.Total)
	}
}

func TestStatement_UnknownStaff_NotFound(t *testing.T) {
	ctx := context.Background()
	m := statementStore(t)

	_, err := charge.BuildStatement(ctx, m, "ghost", charge.MonthPeriod(2026, time.January))
	if !charge.IsNotFound(err) {
		t.Errorf("expected a not-found error, got %v", err)
	}
}
