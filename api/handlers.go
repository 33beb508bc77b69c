/*
handlers.go - HTTP API handlers for the charge engine

PURPOSE:
  Exposes the charge calculation engine and ledger via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Calculation:
    POST   /api/calculate              Preview a charge (no persistence)
    POST   /api/charges                Calculate and post a charge
    GET    /api/charges                List charges (filterable)
    GET    /api/charges/{id}           Get charge details
    POST   /api/charges/{id}/void      Void a posted charge

  Staff:
    GET    /api/staff                  List staff roster
    POST   /api/staff                  Create staff member
    GET    /api/staff/{id}             Get staff details
    GET    /api/staff/{id}/statement   Monthly statement
    GET    /api/staff/{id}/upcoming    Projected recurring charges

  Schedules:
    GET    /api/schedules              List recurring schedules
    POST   /api/schedules              Create recurring schedule
    GET    /api/schedules/{id}         Get schedule details
    POST   /api/schedules/{id}/deactivate  Stop future billing

  Admin:
    POST   /api/admin/generate         Run the billing generator for a month
    POST   /api/admin/reset            Clear all data

ERROR CONTRACT:
  400  malformed JSON, bad query parameters
  404  unknown staff / charge / schedule
  409  duplicate scheduled charge, double void
  422  domain validation failures (code "validation_failed")
  500  storage errors

SEE ALSO:
  - dto.go: request/response shapes and wire conventions
  - server.go: routing and middleware
  - charge/engine.go: the calculation core these handlers front
*/

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/warp/charge-engine/charge"
	"github.com/warp/charge-engine/factory"
	"github.com/warp/charge-engine/metrics"
	"github.com/warp/charge-engine/recurring"
)

// Handler holds shared dependencies for all HTTP handlers.
type Handler struct {
	Store    charge.TxStore
	Plans    *factory.PlanFactory
	Currency string

	currentScenario string
}

// NewHandler creates a handler backed by the given store. Charges posted
// without an explicit currency use defaultCurrency.
func NewHandler(store charge.TxStore, defaultCurrency string) *Handler {
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}
	return &Handler{
		Store:    store,
		Plans:    factory.NewPlanFactory(defaultCurrency),
		Currency: defaultCurrency,
	}
}

// ============================================================================
// CALCULATION ENDPOINTS
// ============================================================================

// Calculate runs the proration engine on the request without persisting
// anything. POST /api/calculate
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	input, err := buildInput(req)
	if err != nil {
		metrics.ObserveCalculation(req.ChargeType, err)
		writeDomainError(w, err, "Failed to build calculation input")
		return
	}

	result, err := charge.Calculate(input)
	metrics.ObserveCalculation(req.ChargeType, err)
	if err != nil {
		writeDomainError(w, err, "Calculation failed")
		return
	}

	writeJSON(w, http.StatusOK, toCalculationResultDTO(result))
}

// CreateCharge calculates and posts a charge to the ledger.
// POST /api/charges
func (h *Handler) CreateCharge(w http.ResponseWriter, r *http.Request) {
	var req CreateChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	input, err := buildInput(req.CalculateRequest)
	if err != nil {
		metrics.ObserveCalculation(req.ChargeType, err)
		writeDomainError(w, err, "Failed to build calculation input")
		return
	}

	result, err := charge.Calculate(input)
	metrics.ObserveCalculation(req.ChargeType, err)
	if err != nil {
		writeDomainError(w, err, "Calculation failed")
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = h.Currency
	}

	c := charge.NewCharge(charge.ChargeID(uuid.NewString()), result, input.Period, currency, charge.SourceManual, "", time.Now())
	if err := h.Store.AppendCharge(r.Context(), c); err != nil {
		writeDomainError(w, err, "Failed to post charge")
		return
	}

	metrics.ObserveChargePosted(string(c.Type), string(c.Source))
	log.Printf("[API] Posted %s charge %s for staff %s: %s %s", c.Type, c.ID, c.StaffID, c.Amount.StringFixed(2), c.Currency)
	writeJSON(w, http.StatusCreated, toChargeDTO(c))
}

// ListCharges returns ledger entries, newest period first is not guaranteed;
// the store orders by period start. Supports filtering by staff_id, type,
// status, schedule_id, and a from/to date window. GET /api/charges
func (h *Handler) ListCharges(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f charge.ChargeFilter

	if v := q.Get("staff_id"); v != "" {
		id := charge.StaffID(v)
		f.StaffID = &id
	}
	if v := q.Get("type"); v != "" {
		t, err := charge.ParseChargeType(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid type filter", err)
			return
		}
		f.Type = &t
	}
	if v := q.Get("status"); v != "" {
		st, ok := parseStatusParam(v)
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid status filter (use posted or void)", nil)
			return
		}
		f.Status = &st
	}
	if v := q.Get("schedule_id"); v != "" {
		id := charge.ScheduleID(v)
		f.ScheduleID = &id
	}

	fromStr, toStr := q.Get("from"), q.Get("to")
	if (fromStr == "") != (toStr == "") {
		writeError(w, http.StatusBadRequest, "from and to must be provided together", nil)
		return
	}
	if fromStr != "" {
		from, err := charge.ParseDate(fromStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
			return
		}
		to, err := charge.ParseDate(toStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
			return
		}
		window := charge.Period{Start: from, End: to}
		if err := window.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "from must not be after to", err)
			return
		}
		f.Overlaps = &window
	}

	charges, err := h.Store.ListCharges(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list charges", err)
		return
	}

	writeJSON(w, http.StatusOK, toChargeDTOs(charges))
}

// GetCharge returns a single ledger entry. GET /api/charges/{id}
func (h *Handler) GetCharge(w http.ResponseWriter, r *http.Request) {
	id := charge.ChargeID(chi.URLParam(r, "id"))

	c, err := h.Store.GetCharge(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Failed to load charge")
		return
	}

	writeJSON(w, http.StatusOK, toChargeDTO(c))
}

// VoidCharge marks a posted charge void. Voided charges stay in the ledger
// but are excluded from statements. POST /api/charges/{id}/void
func (h *Handler) VoidCharge(w http.ResponseWriter, r *http.Request) {
	id := charge.ChargeID(chi.URLParam(r, "id"))

	c, err := h.Store.VoidCharge(r.Context(), id, time.Now())
	if err != nil {
		writeDomainError(w, err, "Failed to void charge")
		return
	}

	metrics.ChargesVoidedTotal.WithLabelValues(string(c.Type)).Inc()
	log.Printf("[API] Voided charge %s (%s, staff %s)", c.ID, c.Type, c.StaffID)
	writeJSON(w, http.StatusOK, toChargeDTO(c))
}

// ============================================================================
// STAFF ENDPOINTS
// ============================================================================

// ListStaff returns the roster, active members only unless
// ?include_inactive=true. GET /api/staff
func (h *Handler) ListStaff(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"

	staff, err := h.Store.ListStaff(r.Context(), includeInactive)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list staff", err)
		return
	}

	dtos := make([]StaffDTO, 0, len(staff))
	for _, s := range staff {
		dtos = append(dtos, toStaffDTO(s))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateStaff adds a staff member to the roster. POST /api/staff
func (h *Handler) CreateStaff(w http.ResponseWriter, r *http.Request) {
	var req CreateStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		writeDomainError(w, &charge.ValidationError{Field: "name", Reason: "must not be empty"}, "")
		return
	}

	s := charge.Staff{
		ID:        charge.StaffID(req.ID),
		Name:      req.Name,
		Unit:      req.Unit,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if s.ID == "" {
		s.ID = charge.StaffID(uuid.NewString())
	}

	if err := h.Store.PutStaff(r.Context(), s); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create staff", err)
		return
	}

	writeJSON(w, http.StatusCreated, toStaffDTO(s))
}

// GetStaff returns a roster entry. GET /api/staff/{id}
func (h *Handler) GetStaff(w http.ResponseWriter, r *http.Request) {
	id := charge.StaffID(chi.URLParam(r, "id"))

	s, err := h.Store.GetStaff(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Failed to load staff")
		return
	}

	writeJSON(w, http.StatusOK, toStaffDTO(s))
}

// GetStatement returns one month of posted charges for a staff member,
// totaled per charge type. Defaults to the current month.
// GET /api/staff/{id}/statement?month=2026-01
func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	staffID := charge.StaffID(chi.URLParam(r, "id"))

	month := charge.MonthContaining(charge.Today())
	if v := r.URL.Query().Get("month"); v != "" {
		m, err := charge.ParseMonth(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
			return
		}
		month = m
	}

	st, err := charge.BuildStatement(r.Context(), h.Store, staffID, month)
	if err != nil {
		writeDomainError(w, err, "Failed to build statement")
		return
	}

	writeJSON(w, http.StatusOK, toStatementDTO(st))
}

// GetUpcoming projects the next months of recurring charges for a staff
// member without posting them. GET /api/staff/{id}/upcoming?months=3
func (h *Handler) GetUpcoming(w http.ResponseWriter, r *http.Request) {
	staffID := charge.StaffID(chi.URLParam(r, "id"))

	months := 3
	if v := r.URL.Query().Get("months"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "months must be a positive integer", err)
			return
		}
		months = n
	}
	if months > 24 {
		months = 24
	}

	proj := &recurring.Projector{Store: h.Store}
	upcoming, err := proj.Upcoming(r.Context(), staffID, charge.Today(), months)
	if err != nil {
		writeDomainError(w, err, "Failed to project upcoming charges")
		return
	}

	dtos := make([]UpcomingChargeDTO, 0, len(upcoming))
	for _, u := range upcoming {
		dtos = append(dtos, toUpcomingDTO(u))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ============================================================================
// SCHEDULE ENDPOINTS
// ============================================================================

// ListSchedules returns recurring schedules, optionally scoped to one staff
// member or to active schedules only. GET /api/schedules
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f charge.ScheduleFilter

	if v := q.Get("staff_id"); v != "" {
		id := charge.StaffID(v)
		f.StaffID = &id
	}
	f.ActiveOnly = q.Get("active") == "true"

	schedules, err := h.Store.ListSchedules(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list schedules", err)
		return
	}

	dtos := make([]ScheduleDTO, 0, len(schedules))
	for _, s := range schedules {
		dtos = append(dtos, toScheduleDTO(s))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateSchedule registers a recurring charge. The request carries the same
// flat parameter fields as /api/calculate; validation matches the engine's.
// POST /api/schedules
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req CreateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	s, err := h.Plans.ParseSchedule(factory.ScheduleJSON{
		ID:                req.ID,
		StaffID:           req.StaffID,
		ChargeType:        req.ChargeType,
		BaseAmount:        req.BaseAmount,
		Currency:          req.Currency,
		Description:       req.Description,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		OccupantCount:     req.OccupantCount,
		TransportDistance: req.TransportDistance,
		PassengerCount:    req.PassengerCount,
	})
	if err != nil {
		writeDomainError(w, err, "Failed to parse schedule")
		return
	}
	s.CreatedAt = time.Now().UTC()

	if err := h.Store.PutSchedule(r.Context(), s); err != nil {
		writeDomainError(w, err, "Failed to store schedule")
		return
	}

	log.Printf("[API] Created %s schedule %s for staff %s (%s/month)", s.ChargeType(), s.ID, s.StaffID, s.BaseAmount.StringFixed(2))
	writeJSON(w, http.StatusCreated, toScheduleDTO(s))
}

// GetSchedule returns a recurring schedule. GET /api/schedules/{id}
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id := charge.ScheduleID(chi.URLParam(r, "id"))

	s, err := h.Store.GetSchedule(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Failed to load schedule")
		return
	}

	writeJSON(w, http.StatusOK, toScheduleDTO(s))
}

// DeactivateSchedule stops future billing for a schedule. Already-posted
// charges are unaffected. POST /api/schedules/{id}/deactivate
func (h *Handler) DeactivateSchedule(w http.ResponseWriter, r *http.Request) {
	id := charge.ScheduleID(chi.URLParam(r, "id"))

	s, err := h.Store.DeactivateSchedule(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Failed to deactivate schedule")
		return
	}

	log.Printf("[API] Deactivated schedule %s", id)
	writeJSON(w, http.StatusOK, toScheduleDTO(s))
}

// ============================================================================
// ADMIN ENDPOINTS
// ============================================================================

// GenerateCharges runs the recurring-billing generator for one month and
// reports what was posted, skipped, and failed. Safe to re-run: months
// already billed are skipped per schedule.
// POST /api/admin/generate?month=2026-01
func (h *Handler) GenerateCharges(w http.ResponseWriter, r *http.Request) {
	month := charge.MonthContaining(charge.Today())
	if v := r.URL.Query().Get("month"); v != "" {
		m, err := charge.ParseMonth(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
			return
		}
		month = m
	}

	gen := recurring.NewGenerator(h.Store)
	report, err := gen.GenerateMonth(r.Context(), month.Start.Year(), month.Start.Month())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Generation failed", err)
		return
	}

	for _, c := range report.Posted {
		metrics.ObserveChargePosted(string(c.Type), string(c.Source))
	}
	log.Printf("[API] Generated charges for %s: %d posted, %d skipped, %d failed",
		report.Month, len(report.Posted), report.Skipped, len(report.Failed))
	writeJSON(w, http.StatusOK, toGenerationReportDTO(report))
}

// Health reports liveness. GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ============================================================================
// REQUEST ASSEMBLY
// ============================================================================

// buildInput converts the flat wire request into a typed calculation input.
// Date parsing happens here so malformed dates surface as field-level
// validation errors; missing dates pass a zero period through for the
// engine to reject with its own message.
func buildInput(req CalculateRequest) (charge.CalculationInput, error) {
	chargeType, err := charge.ParseChargeType(req.ChargeType)
	if err != nil {
		return charge.CalculationInput{}, &charge.ValidationError{Field: "chargeType", Reason: err.Error()}
	}

	params, err := charge.NewParams(chargeType, req.OccupantCount, req.TransportDistance, req.PassengerCount)
	if err != nil {
		return charge.CalculationInput{}, err
	}

	var period charge.Period
	if req.StartDate != "" {
		start, err := charge.ParseDate(req.StartDate)
		if err != nil {
			return charge.CalculationInput{}, &charge.ValidationError{Field: "startDate", Reason: "must be a YYYY-MM-DD date"}
		}
		period.Start = start
	}
	if req.EndDate != "" {
		end, err := charge.ParseDate(req.EndDate)
		if err != nil {
			return charge.CalculationInput{}, &charge.ValidationError{Field: "endDate", Reason: "must be a YYYY-MM-DD date"}
		}
		period.End = end
	}

	return charge.CalculationInput{
		StaffID:     charge.StaffID(req.StaffID),
		Period:      period,
		BaseAmount:  req.BaseAmount,
		Description: req.Description,
		Params:      params,
	}, nil
}

func parseStatusParam(v string) (charge.ChargeStatus, bool) {
	switch v {
	case string(charge.ChargePosted):
		return charge.ChargePosted, true
	case string(charge.ChargeVoid):
		return charge.ChargeVoid, true
	default:
		return "", false
	}
}

// ============================================================================
// RESPONSE HELPERS
// ============================================================================

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] Failed to encode response: %v", err)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	if status >= 500 {
		log.Printf("[API] %s: %v", message, err)
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors onto the HTTP error contract:
// validation failures to 422, missing entities to 404, billing conflicts
// to 409. Anything unrecognized is a 500 with the fallback message.
func writeDomainError(w http.ResponseWriter, err error, fallback string) {
	var ve *charge.ValidationError
	var de *charge.DuplicateChargeError

	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error: "Validation failed",
			Code:  "validation_failed",
			Details: map[string]string{
				"field":  ve.Field,
				"reason": ve.Reason,
			},
		})
	case charge.IsValidation(err):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "Validation failed",
			Code:    "validation_failed",
			Details: err.Error(),
		})
	case errors.As(err, &de):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error: "Month already billed for this schedule",
			Code:  "duplicate_charge",
			Details: map[string]string{
				"scheduleId":       string(de.ScheduleID),
				"month":            de.Month,
				"existingChargeId": string(de.ExistingID),
			},
		})
	case errors.Is(err, charge.ErrDuplicateCharge):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:   "Duplicate charge",
			Code:    "duplicate_charge",
			Details: err.Error(),
		})
	case errors.Is(err, charge.ErrChargeVoided):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:   "Charge is already void",
			Code:    "already_void",
			Details: err.Error(),
		})
	case charge.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error: notFoundMessage(err),
			Code:  "not_found",
		})
	default:
		writeError(w, http.StatusInternalServerError, fallback, err)
	}
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, charge.ErrStaffNotFound):
		return "Staff member not found"
	case errors.Is(err, charge.ErrChargeNotFound):
		return "Charge not found"
	case errors.Is(err, charge.ErrScheduleNotFound):
		return "Schedule not found"
	default:
		return "Not found"
	}
}
