/*
Package factory provides JSON to Go charge plan conversion.

PURPOSE:
  Converts JSON charge plans (staff roster + recurring schedules) into
  domain objects. This enables billing setup without code changes - the
  back office can define a building's plan in JSON, and the factory
  creates the proper Go structs.

JSON SCHEMA:
  {
    "staff": [
      {"id": "staff-001", "name": "Amara Osei", "unit": "B-12"}
    ],
    "schedules": [
      {
        "staffId": "staff-001",
        "chargeType": "rent",
        "baseAmount": "850",
        "description": "Studio rent",
        "startDate": "2025-01-01"
      },
      {
        "staffId": "staff-001",
        "chargeType": "utilities",
        "baseAmount": "150",
        "occupantCount": 2,
        "description": "Shared utilities",
        "startDate": "2025-01-01",
        "endDate": "2025-06-30"
      }
    ]
  }

KEY FEATURES:
  - Validates everything at parse time with the engine's own rules,
    so a plan that parses is a plan that bills
  - Mints UUIDs for schedules that omit an id
  - Staff references are checked inside the plan
  - Seeding runs in one transaction: a half-bad plan leaves nothing

USAGE:
  f := factory.NewPlanFactory("USD")
  plan, err := f.ParsePlan(jsonString)
  if err != nil { ... }
  err = plan.Seed(ctx, txStore, time.Now())

SEE ALSO:
  - charge/schedule.go: Schedule validation
  - api/scenarios.go: Built-in demo plans
*/
package factory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/charge-engine/charge"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PlanJSON is the JSON representation of a charge plan.
type PlanJSON struct {
	Staff     []StaffJSON    `json:"staff"`
	Schedules []ScheduleJSON `json:"schedules"`
}

// StaffJSON represents one roster entry.
type StaffJSON struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Unit   string `json:"unit,omitempty"`
	Active *bool  `json:"active,omitempty"` // default true
}

// ScheduleJSON represents one recurring charge, flat wire form.
type ScheduleJSON struct {
	ID                string           `json:"id,omitempty"` // minted when empty
	StaffID           string           `json:"staffId"`
	ChargeType        string           `json:"chargeType"`
	BaseAmount        decimal.Decimal  `json:"baseAmount"`
	Currency          string           `json:"currency,omitempty"` // default from factory
	Description       string           `json:"description"`
	StartDate         string           `json:"startDate"`
	EndDate           string           `json:"endDate,omitempty"` // open-ended when empty
	OccupantCount     *int             `json:"occupantCount,omitempty"`
	TransportDistance *decimal.Decimal `json:"transportDistance,omitempty"`
	PassengerCount    *int             `json:"passengerCount,omitempty"`
}

// =============================================================================
// PLAN FACTORY
// =============================================================================

// PlanFactory converts JSON charge plans to Go structs.
type PlanFactory struct {
	DefaultCurrency string
}

// NewPlanFactory creates a factory; currency fills schedules that omit one.
func NewPlanFactory(currency string) *PlanFactory {
	if currency == "" {
		currency = "USD"
	}
	return &PlanFactory{DefaultCurrency: currency}
}

// Plan holds parsed, validated domain objects ready to seed.
type Plan struct {
	Staff     []charge.Staff
	Schedules []charge.Schedule
}

// ParsePlan parses a JSON string into a Plan.
func (f *PlanFactory) ParsePlan(jsonStr string) (*Plan, error) {
	var pj PlanJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return nil, fmt.Errorf("failed to parse plan JSON: %w", err)
	}
	return f.FromJSON(pj)
}

// FromJSON converts PlanJSON to a validated Plan.
func (f *PlanFactory) FromJSON(pj PlanJSON) (*Plan, error) {
	plan := &Plan{}
	roster := make(map[charge.StaffID]bool)

	for i, sj := range pj.Staff {
		if sj.ID == "" || sj.Name == "" {
			return nil, fmt.Errorf("staff[%d]: id and name are required", i)
		}
		id := charge.StaffID(sj.ID)
		if roster[id] {
			return nil, fmt.Errorf("staff[%d]: duplicate id %q", i, sj.ID)
		}
		roster[id] = true

		active := true
		if sj.Active != nil {
			active = *sj.Active
		}
		plan.Staff = append(plan.Staff, charge.Staff{
			ID:     id,
			Name:   sj.Name,
			Unit:   sj.Unit,
			Active: active,
		})
	}

	for i, sj := range pj.Schedules {
		s, err := f.ParseSchedule(sj)
		if err != nil {
			return nil, fmt.Errorf("schedules[%d]: %w", i, err)
		}
		if !roster[s.StaffID] {
			return nil, fmt.Errorf("schedules[%d]: unknown staff %q", i, s.StaffID)
		}
		plan.Schedules = append(plan.Schedules, s)
	}

	return plan, nil
}

// ParseSchedule converts one flat schedule definition into a validated
// domain Schedule. Also used by the API's create-schedule route.
func (f *PlanFactory) ParseSchedule(sj ScheduleJSON) (charge.Schedule, error) {
	chargeType, err := charge.ParseChargeType(sj.ChargeType)
	if err != nil {
		return charge.Schedule{}, &charge.ValidationError{Field: "chargeType", Reason: err.Error()}
	}

	params, err := charge.NewParams(chargeType, sj.OccupantCount, sj.TransportDistance, sj.PassengerCount)
	if err != nil {
		return charge.Schedule{}, err
	}

	start, err := charge.ParseDate(sj.StartDate)
	if err != nil {
		return charge.Schedule{}, &charge.ValidationError{Field: "startDate", Reason: "must be a YYYY-MM-DD date"}
	}

	var end *charge.DatePoint
	if sj.EndDate != "" {
		e, err := charge.ParseDate(sj.EndDate)
		if err != nil {
			return charge.Schedule{}, &charge.ValidationError{Field: "endDate", Reason: "must be a YYYY-MM-DD date"}
		}
		end = &e
	}

	id := sj.ID
	if id == "" {
		id = uuid.NewString()
	}
	currency := sj.Currency
	if currency == "" {
		currency = f.DefaultCurrency
	}

	s := charge.Schedule{
		ID:          charge.ScheduleID(id),
		StaffID:     charge.StaffID(sj.StaffID),
		BaseAmount:  sj.BaseAmount,
		Currency:    currency,
		Description: sj.Description,
		Params:      params,
		Start:       start,
		End:         end,
		Active:      true,
	}
	if err := s.Validate(); err != nil {
		return charge.Schedule{}, err
	}
	return s, nil
}

// =============================================================================
// SEEDING
// =============================================================================

// Seed writes the plan's staff and schedules in one transaction.
func (p *Plan) Seed(ctx context.Context, store charge.TxStore, now time.Time) error {
	return store.WithTx(ctx, func(tx charge.Store) error {
		for _, st := range p.Staff {
			st.CreatedAt = now.UTC()
			if err := tx.PutStaff(ctx, st); err != nil {
				return fmt.Errorf("seeding staff %s: %w", st.ID, err)
			}
		}
		for _, s := range p.Schedules {
			s.CreatedAt = now.UTC()
			if err := tx.PutSchedule(ctx, s); err != nil {
				return fmt.Errorf("seeding schedule %s: %w", s.ID, err)
			}
		}
		return nil
	})
}

// LoadFile reads and parses a plan from disk (cmd/server -seed).
func (f *PlanFactory) LoadFile(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return f.ParsePlan(string(data))
}
