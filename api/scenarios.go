/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	data for testing and demos. Each scenario seeds a staff roster and
	recurring schedules through the plan factory, then backfills recent
	months through the billing generator so statements have history.

AVAILABLE SCENARIOS:

	single-tenant:    One rent schedule, three months billed
	shared-apartment: Split utilities with a mid-month move-in
	commuter-pool:    Distance-based transport billing
	mixed-billing:    Every charge type plus a voided correction

LOADING:

	POST /api/scenarios/load {"scenario_id": "shared-apartment"}

	Loading resets the store first, so scenarios are mutually exclusive.
	Dates are computed relative to the current month so backfilled
	history stays adjacent to "now" regardless of when the demo runs.
*/

package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/warp/charge-engine/charge"
	"github.com/warp/charge-engine/factory"
	"github.com/warp/charge-engine/recurring"
)

var scenarios = []ScenarioDTO{
	{
		ID:          "single-tenant",
		Name:        "Single Tenant",
		Description: "One staff member with a monthly rent schedule and three months of billing history",
	},
	{
		ID:          "shared-apartment",
		Name:        "Shared Apartment",
		Description: "Two staff splitting utilities, one moving in mid-month so the first charge is prorated",
	},
	{
		ID:          "commuter-pool",
		Name:        "Commuter Pool",
		Description: "Distance-based transport billing for two vanpool groups",
	},
	{
		ID:          "mixed-billing",
		Name:        "Mixed Billing",
		Description: "Rent, utilities, transport and a one-off charge, including a voided correction",
	},
}

// ============================================================================
// SCENARIO ENDPOINTS
// ============================================================================

// ListScenarios returns the available demo scenarios. GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario reports which scenario was last loaded, if any.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"scenario_id": h.currentScenario})
}

// LoadScenario wipes the store and loads a named scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	known := false
	for _, s := range scenarios {
		if s.ID == req.ScenarioID {
			known = true
			break
		}
	}
	if !known {
		writeError(w, http.StatusBadRequest, "Unknown scenario: "+req.ScenarioID, nil)
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "single-tenant":
		err = h.loadSingleTenant(ctx)
	case "shared-apartment":
		err = h.loadSharedApartment(ctx)
	case "commuter-pool":
		err = h.loadCommuterPool(ctx)
	case "mixed-billing":
		err = h.loadMixedBilling(ctx)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	log.Printf("[API] Loaded scenario %q", req.ScenarioID)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "loaded",
		"scenario_id": req.ScenarioID,
	})
}

// ResetDatabase clears all data without loading anything.
// POST /api/admin/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
		return
	}

	h.currentScenario = ""
	log.Printf("[API] Store reset")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// ============================================================================
// SCENARIO LOADERS
// ============================================================================

// loadSingleTenant: Maya rents studio 4A at 850/month. The schedule started
// two calendar months ago, so backfilling three months yields full-month
// charges that drift above base in 31-day months (850 * 31/30 = 878.33).
func (h *Handler) loadSingleTenant(ctx context.Context) error {
	start := h.monthsBack(2)

	return h.seedPlan(ctx, factory.PlanJSON{
		Staff: []factory.StaffJSON{
			{ID: "maya-okafor", Name: "Maya Okafor", Unit: "Studio 4A"},
		},
		Schedules: []factory.ScheduleJSON{
			{
				StaffID:     "maya-okafor",
				ChargeType:  "rent",
				BaseAmount:  charge.MustParseDecimal("850"),
				Description: "Studio 4A monthly rent",
				StartDate:   start.String(),
			},
		},
	}, 3)
}

// loadSharedApartment: Jonas has lived in 7C all along; Ines moved in on the
// 15th of last month, so her first utilities charge covers roughly half the
// month. Utilities are split two ways (150 / 2 occupants).
func (h *Handler) loadSharedApartment(ctx context.Context) error {
	start := h.monthsBack(2)
	moveIn := h.monthsBack(1).AddDays(14)
	occupants := 2

	return h.seedPlan(ctx, factory.PlanJSON{
		Staff: []factory.StaffJSON{
			{ID: "jonas-lindqvist", Name: "Jonas Lindqvist", Unit: "Apartment 7C"},
			{ID: "ines-barros", Name: "Ines Barros", Unit: "Apartment 7C"},
		},
		Schedules: []factory.ScheduleJSON{
			{
				StaffID:     "jonas-lindqvist",
				ChargeType:  "rent",
				BaseAmount:  charge.MustParseDecimal("780"),
				Description: "Apartment 7C monthly rent",
				StartDate:   start.String(),
			},
			{
				StaffID:       "jonas-lindqvist",
				ChargeType:    "utilities",
				BaseAmount:    charge.MustParseDecimal("150"),
				Description:   "Apartment 7C utilities, split two ways",
				StartDate:     start.String(),
				OccupantCount: &occupants,
			},
			{
				StaffID:       "ines-barros",
				ChargeType:    "utilities",
				BaseAmount:    charge.MustParseDecimal("150"),
				Description:   "Apartment 7C utilities, split two ways",
				StartDate:     moveIn.String(),
				OccupantCount: &occupants,
			},
		},
	}, 3)
}

// loadCommuterPool: two vanpool groups billed by distance. Transport charges
// ignore period proration (rate * distance * passengers), so both months
// bill the same amount.
func (h *Handler) loadCommuterPool(ctx context.Context) error {
	start := h.monthsBack(1)
	fourRiders, twoRiders := 4, 2
	route12, route5 := charge.MustParseDecimal("12"), charge.MustParseDecimal("8")

	return h.seedPlan(ctx, factory.PlanJSON{
		Staff: []factory.StaffJSON{
			{ID: "priya-raman", Name: "Priya Raman", Unit: "North Campus"},
			{ID: "tomas-east", Name: "Tomas East", Unit: "South Campus"},
		},
		Schedules: []factory.ScheduleJSON{
			{
				StaffID:           "priya-raman",
				ChargeType:        "transport",
				BaseAmount:        charge.MustParseDecimal("0.65"),
				Description:       "Vanpool route 12, four riders",
				StartDate:         start.String(),
				TransportDistance: &route12,
				PassengerCount:    &fourRiders,
			},
			{
				StaffID:           "tomas-east",
				ChargeType:        "transport",
				BaseAmount:        charge.MustParseDecimal("0.80"),
				Description:       "Vanpool route 5, two riders",
				StartDate:         start.String(),
				TransportDistance: &route5,
				PassengerCount:    &twoRiders,
			},
		},
	}, 2)
}

// loadMixedBilling: one staff member carrying every charge type, plus a
// manual one-off and a voided duplicate so the ledger shows a correction.
func (h *Handler) loadMixedBilling(ctx context.Context) error {
	start := h.monthsBack(1)
	occupants, riders := 3, 3
	distance := charge.MustParseDecimal("18")

	err := h.seedPlan(ctx, factory.PlanJSON{
		Staff: []factory.StaffJSON{
			{ID: "amara-diallo", Name: "Amara Diallo", Unit: "Apartment 2F"},
		},
		Schedules: []factory.ScheduleJSON{
			{
				StaffID:     "amara-diallo",
				ChargeType:  "rent",
				BaseAmount:  charge.MustParseDecimal("900"),
				Description: "Apartment 2F monthly rent",
				StartDate:   start.String(),
			},
			{
				StaffID:       "amara-diallo",
				ChargeType:    "utilities",
				BaseAmount:    charge.MustParseDecimal("180"),
				Description:   "Apartment 2F utilities, split three ways",
				StartDate:     start.String(),
				OccupantCount: &occupants,
			},
			{
				StaffID:           "amara-diallo",
				ChargeType:        "transport",
				BaseAmount:        charge.MustParseDecimal("0.55"),
				Description:       "Shuttle route 3, three riders",
				StartDate:         start.String(),
				TransportDistance: &distance,
				PassengerCount:    &riders,
			},
		},
	}, 2)
	if err != nil {
		return err
	}

	month := charge.MonthContaining(charge.Today())
	if _, err := h.postManual(ctx, "amara-diallo", month, "45", "Gym access"); err != nil {
		return err
	}

	// the duplicate entry, voided as a correction
	dup, err := h.postManual(ctx, "amara-diallo", month, "45", "Gym access (duplicate entry)")
	if err != nil {
		return err
	}
	if _, err := h.Store.VoidCharge(ctx, dup.ID, time.Now()); err != nil {
		return err
	}
	return nil
}

// ============================================================================
// LOADER HELPERS
// ============================================================================

// seedPlan seeds a plan transactionally, then backfills the last
// backfillMonths calendar months through the generator.
func (h *Handler) seedPlan(ctx context.Context, pj factory.PlanJSON, backfillMonths int) error {
	plan, err := h.Plans.FromJSON(pj)
	if err != nil {
		return err
	}
	if err := plan.Seed(ctx, h.Store, time.Now()); err != nil {
		return err
	}
	return h.backfill(ctx, backfillMonths)
}

// backfill runs the generator for each of the last n calendar months,
// ending at the current one.
func (h *Handler) backfill(ctx context.Context, n int) error {
	if n < 1 {
		return nil
	}
	gen := recurring.NewGenerator(h.Store)
	first := h.monthsBack(n - 1)
	for i := 0; i < n; i++ {
		m := first.AddMonths(i)
		if _, err := gen.GenerateMonth(ctx, m.Year(), m.Month()); err != nil {
			return err
		}
	}
	return nil
}

// postManual calculates and posts a one-off "other" charge.
func (h *Handler) postManual(ctx context.Context, staffID charge.StaffID, period charge.Period, amount, description string) (charge.Charge, error) {
	result, err := charge.Calculate(charge.CalculationInput{
		StaffID:     staffID,
		Period:      period,
		BaseAmount:  charge.MustParseDecimal(amount),
		Description: description,
		Params:      charge.OtherParams{},
	})
	if err != nil {
		return charge.Charge{}, err
	}

	c := charge.NewCharge(charge.ChargeID(uuid.NewString()), result, period, h.Currency, charge.SourceManual, "", time.Now())
	if err := h.Store.AppendCharge(ctx, c); err != nil {
		return charge.Charge{}, err
	}
	return c, nil
}

// monthsBack returns the first day of the month n months before the
// current one.
func (h *Handler) monthsBack(n int) charge.DatePoint {
	return charge.MonthContaining(charge.Today()).Start.AddMonths(-n)
}
