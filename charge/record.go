/*
record.go - Persisted charge records and their lifecycle

PURPOSE:
  A Charge is the durable outcome of a confirmed calculation. The engine
  itself persists nothing; when a caller confirms a result, it is frozen
  into a Charge and handed to a Store.

LIFECYCLE:
  posted ──▶ void (terminal)

  Charges are never edited in place. A wrong charge is voided and a new
  one is posted; the void keeps its metadata so the original calculation
  stays auditable.

METADATA:
  Every charge carries the calculation evidence that produced it:
  base amount, proration factor, total days, and the ordered breakdown.
  SQL stores persist it as a JSON column.

SEE ALSO:
  - engine.go: Produces the CalculationResult a Charge freezes
  - store.go: Persistence interface for charges
*/
package charge

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CHARGE STATUS / SOURCE
// =============================================================================

type ChargeStatus string

const (
	ChargePosted ChargeStatus = "posted"
	ChargeVoid   ChargeStatus = "void"
)

type ChargeSource string

const (
	// SourceManual marks charges confirmed by a back-office operator.
	SourceManual ChargeSource = "manual"

	// SourceScheduled marks charges posted by the recurring generator.
	SourceScheduled ChargeSource = "scheduled"
)

// =============================================================================
// CHARGE - A confirmed, persisted billing line
// =============================================================================

// ChargeMetadata is the calculation evidence attached to every charge.
type ChargeMetadata struct {
	BaseAmount      decimal.Decimal `json:"baseAmount"`
	ProrationFactor decimal.Decimal `json:"prorationFactor"`
	TotalDays       int             `json:"totalDays"`
	Breakdown       []BreakdownLine `json:"breakdown"`
}

type Charge struct {
	ID          ChargeID
	StaffID     StaffID
	Type        ChargeType
	Amount      decimal.Decimal
	Currency    string
	Description string
	Period      Period
	Status      ChargeStatus
	Source      ChargeSource

	// ScheduleID is set only for scheduled charges; together with the
	// period's month it forms the generator's dedup key.
	ScheduleID ScheduleID

	Metadata  ChargeMetadata
	CreatedAt time.Time
	VoidedAt  *time.Time
}

// NewCharge freezes a confirmed calculation into a posted charge.
func NewCharge(id ChargeID, result CalculationResult, period Period, currency string, source ChargeSource, scheduleID ScheduleID, at time.Time) Charge {
	return Charge{
		ID:          id,
		StaffID:     result.StaffID,
		Type:        result.ChargeType,
		Amount:      result.ProratedAmount,
		Currency:    currency,
		Description: result.Description,
		Period:      period,
		Status:      ChargePosted,
		Source:      source,
		ScheduleID:  scheduleID,
		Metadata: ChargeMetadata{
			BaseAmount:      result.BaseAmount,
			ProrationFactor: result.ProrationFactor,
			TotalDays:       result.TotalDays,
			Breakdown:       result.Breakdown,
		},
		CreatedAt: at.UTC(),
	}
}

// Void transitions a posted charge to void. Voiding twice is an error.
func (c *Charge) Void(at time.Time) error {
	if c.Status == ChargeVoid {
		return ErrChargeVoided
	}
	t := at.UTC()
	c.Status = ChargeVoid
	c.VoidedAt = &t
	return nil
}

// BilledMonth returns the "2006-01" month key of the charge period's start.
// Scheduled charges are unique per (ScheduleID, BilledMonth).
func (c Charge) BilledMonth() string {
	return MonthContaining(c.Period.Start).MonthKey()
}
