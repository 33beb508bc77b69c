/*
statement.go - Monthly statement aggregation

PURPOSE:
  Answers "what does this staff member owe for a month?". A statement
  collects every charge whose period overlaps a calendar month and totals
  the posted ones, overall and per charge type.

KEY INSIGHT:
  Charges are period-based, not point-based, so a statement selects by
  period OVERLAP: a rent charge for Jan 15 - Feb 14 appears on both the
  January and the February statement. The charge amount is not re-split
  across months; the statement reports the lines as billed.

VOID LINES:
  Void charges stay on the statement (the month's history is complete)
  but contribute nothing to the totals.

SEE ALSO:
  - store.go: ListCharges does the selection
  - record.go: Charge status semantics
*/
package charge

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STATEMENT - One staff member, one calendar month
// =============================================================================

type TypeTotal struct {
	Type   ChargeType
	Amount decimal.Decimal
}

type Statement struct {
	StaffID StaffID
	Month   Period

	// Lines are all charges overlapping the month, in period order,
	// void ones included.
	Lines []Charge

	// TypeTotals sums posted lines per charge type, ordered by type name.
	TypeTotals []TypeTotal

	// Total sums all posted lines.
	Total decimal.Decimal
}

// =============================================================================
// STATEMENT BUILDER
// =============================================================================

// StatementBuilder computes statements from stored charges.
type StatementBuilder struct {
	Store Store
}

// Build assembles the statement for one staff member and month.
// Fails with ErrStaffNotFound for unknown staff.
func (sb *StatementBuilder) Build(ctx context.Context, staffID StaffID, month Period) (Statement, error) {
	if _, err := sb.Store.GetStaff(ctx, staffID); err != nil {
		return Statement{}, err
	}

	lines, err := sb.Store.ListCharges(ctx, ChargeFilter{
		StaffID:  &staffID,
		Overlaps: &month,
	})
	if err != nil {
		return Statement{}, err
	}

	total := decimal.Zero
	byType := make(map[ChargeType]decimal.Decimal)
	for _, line := range lines {
		if line.Status != ChargePosted {
			continue
		}
		total = total.Add(line.Amount)
		byType[line.Type] = byType[line.Type].Add(line.Amount)
	}

	typeTotals := make([]TypeTotal, 0, len(byType))
	for t, amount := range byType {
		typeTotals = append(typeTotals, TypeTotal{Type: t, Amount: amount})
	}
	sort.Slice(typeTotals, func(i, j int) bool { return typeTotals[i].Type < typeTotals[j].Type })

	return Statement{
		StaffID:    staffID,
		Month:      month,
		Lines:      lines,
		TypeTotals: typeTotals,
		Total:      total,
	}, nil
}

// BuildStatement is a convenience wrapper for one-off statement builds.
func BuildStatement(ctx context.Context, s Store, staffID StaffID, month Period) (Statement, error) {
	sb := &StatementBuilder{Store: s}
	return sb.Build(ctx, staffID, month)
}
