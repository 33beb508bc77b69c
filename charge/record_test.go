/*
record_test.go - Freezing calculations into charges and voiding them
*/
package charge_test

import (
	"errors"
	"testing"
	"time"

	"github.com/warp/charge-engine/charge"
)

func postedCharge(t *testing.T) charge.Charge {
	t.Helper()
	period := charge.MonthPeriod(2026, time.January)
	result, err := charge.Calculate(charge.CalculationInput{
		StaffID:     "staff-1",
		Period:      period,
		BaseAmount:  charge.MustParseDecimal("850"),
		Description: "Monthly rent",
		Params:      charge.RentParams{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	at := time.Date(2026, time.January, 31, 12, 0, 0, 0, time.UTC)
	return charge.NewCharge("chg-1", result, period, "USD", charge.SourceManual, "", at)
}

func TestNewCharge_FreezesTheCalculation(t *testing.T) {
	// GIVEN: A confirmed rent calculation
	// WHEN: Freezing it into a charge
	// THEN: Amount, evidence metadata and lifecycle fields are all captured

	c := postedCharge(t)

	if c.Status != charge.ChargePosted {
		t.Errorf("expected posted status, got %s", c.Status)
	}
	if c.Type != charge.ChargeRent || c.StaffID != "staff-1" || c.Currency != "USD" {
		t.Errorf("unexpected identity fields: %+v", c)
	}
	if c.Metadata.TotalDays != 31 {
		t.Errorf("expected 31 metadata days, got %d", c.Metadata.TotalDays)
	}
	if !c.Metadata.BaseAmount.Equal(charge.MustParseDecimal("850")) {
		t.Errorf("expected metadata base 850, got %v", c.Metadata.BaseAmount)
	}
	if len(c.Metadata.Breakdown) != 4 {
		t.Errorf("expected the full breakdown in metadata, got %d lines", len(c.Metadata.Breakdown))
	}
	if c.VoidedAt != nil {
		t.Error("expected no voided timestamp on a fresh charge")
	}
}

func TestCharge_Void_IsTerminal(t *testing.T) {
	// GIVEN: A posted charge
	// WHEN: Voiding it twice
	// THEN: The first void sticks, the second is rejected

	c := postedCharge(t)
	at := time.Date(2026, time.February, 1, 9, 0, 0, 0, time.UTC)

	if err := c.Void(at); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Status != charge.ChargeVoid {
		t.Errorf("expected void status, got %s", c.Status)
	}
	if c.VoidedAt == nil || !c.VoidedAt.Equal(at) {
		t.Errorf("expected voided timestamp %v, got %v", at, c.VoidedAt)
	}

	if err := c.Void(at.Add(time.Hour)); !errors.Is(err, charge.ErrChargeVoided) {
		t.Errorf("expected ErrChargeVoided on a second void, got %v", err)
	}
	if !c.VoidedAt.Equal(at) {
		t.Errorf("expected the original voided timestamp to survive, got %v", c.VoidedAt)
	}
}

func TestCharge_Void_KeepsTheEvidence(t *testing.T) {
	// A void is an audit event, not an erasure. The calculation metadata
	// must survive so the original posting stays explainable.
	c := postedCharge(t)
	if err := c.Void(time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Metadata.TotalDays != 31 || len(c.Metadata.Breakdown) != 4 {
		t.Error("expected calculation metadata to survive the void")
	}
}

func TestCharge_BilledMonth_ComesFromThePeriodStart(t *testing.T) {
	c := postedCharge(t)
	if got := c.BilledMonth(); got != "2026-01" {
		t.Errorf("expected billed month 2026-01, got %s", got)
	}

	// A period straddling a month boundary bills under its start month.
	c.Period = charge.NewPeriod(charge.NewDate(2026, time.March, 20), charge.NewDate(2026, time.April, 5))
	if got := c.BilledMonth(); got != "2026-03" {
		t.Errorf("expected billed month 2026-03, got %s", got)
	}
}
