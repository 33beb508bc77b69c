/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

WIRE CONVENTIONS:
  - Field names are camelCase (the back-office frontend contract)
  - Dates are "2006-01-02", timestamps RFC3339
  - Money and factors are decimal STRINGS, never floats; "formatted"
    fields carry the display rendering (two decimals, three below 10)
  - Type-specific calculation fields (occupantCount, transportDistance,
    passengerCount) appear flat on requests and convert to ChargeParams
    at this boundary

TYPES:
  Calculation:
    CalculateRequest, CalculationResultDTO, BreakdownLineDTO

  Charges:
    CreateChargeRequest, ChargeDTO, ChargeMetadataDTO

  Staff:
    CreateStaffRequest, StaffDTO

  Schedules:
    CreateScheduleRequest, ScheduleDTO

  Statements:
    StatementDTO, TypeTotalDTO, UpcomingChargeDTO

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Validation is done in handlers and the domain, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - charge/params.go: The ChargeParams union behind the flat fields
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/charge-engine/charge"
	"github.com/warp/charge-engine/recurring"
)

// =============================================================================
// CALCULATION TYPES
// =============================================================================

// CalculateRequest is the flat calculation input.
type CalculateRequest struct {
	ChargeType  string          `json:"chargeType"`
	StaffID     string          `json:"staffId"`
	StartDate   string          `json:"startDate"`
	EndDate     string          `json:"endDate"`
	BaseAmount  decimal.Decimal `json:"baseAmount"`
	Description string          `json:"description"`

	// Type-specific; wrong-type extras are rejected.
	OccupantCount     *int             `json:"occupantCount,omitempty"`
	TransportDistance *decimal.Decimal `json:"transportDistance,omitempty"`
	PassengerCount    *int             `json:"passengerCount,omitempty"`
}

// BreakdownLineDTO is one ordered line of the calculation breakdown.
type BreakdownLineDTO struct {
	Label       string          `json:"label"`
	Value       decimal.Decimal `json:"value"`
	Description string          `json:"description"`
}

// CalculationResultDTO is the engine result plus display formatting.
type CalculationResultDTO struct {
	ChargeType      string             `json:"chargeType"`
	StaffID         string             `json:"staffId"`
	BaseAmount      decimal.Decimal    `json:"baseAmount"`
	ProrationFactor decimal.Decimal    `json:"prorationFactor"`
	ProratedAmount  decimal.Decimal    `json:"proratedAmount"`
	FormattedAmount string             `json:"formattedAmount"`
	TotalDays       int                `json:"totalDays"`
	Description     string             `json:"description"`
	Breakdown       []BreakdownLineDTO `json:"breakdown"`
}

// =============================================================================
// CHARGE TYPES
// =============================================================================

// CreateChargeRequest confirms a calculation into a stored charge.
// Same flat shape as CalculateRequest plus an optional currency.
type CreateChargeRequest struct {
	CalculateRequest
	Currency string `json:"currency,omitempty"`
}

// ChargeMetadataDTO mirrors the stored calculation metadata.
type ChargeMetadataDTO struct {
	BaseAmount      decimal.Decimal    `json:"baseAmount"`
	ProrationFactor decimal.Decimal    `json:"prorationFactor"`
	TotalDays       int                `json:"totalDays"`
	Breakdown       []BreakdownLineDTO `json:"breakdown"`
}

// ChargeDTO represents a stored charge in API responses.
type ChargeDTO struct {
	ID              string            `json:"id"`
	StaffID         string            `json:"staffId"`
	ChargeType      string            `json:"chargeType"`
	Amount          decimal.Decimal   `json:"amount"`
	FormattedAmount string            `json:"formattedAmount"`
	Currency        string            `json:"currency"`
	Description     string            `json:"description"`
	StartDate       string            `json:"startDate"`
	EndDate         string            `json:"endDate"`
	Status          string            `json:"status"`
	Source          string            `json:"source"`
	ScheduleID      string            `json:"scheduleId,omitempty"`
	Metadata        ChargeMetadataDTO `json:"metadata"`
	CreatedAt       string            `json:"createdAt"`
	VoidedAt        *string           `json:"voidedAt,omitempty"`
}

// =============================================================================
// STAFF TYPES
// =============================================================================

// CreateStaffRequest creates a roster entry. ID is minted when empty.
type CreateStaffRequest struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Unit string `json:"unit,omitempty"`
}

// StaffDTO represents a roster entry in API responses.
type StaffDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Unit      string `json:"unit,omitempty"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// =============================================================================
// SCHEDULE TYPES
// =============================================================================

// CreateScheduleRequest creates a recurring charge schedule.
type CreateScheduleRequest struct {
	ID          string          `json:"id,omitempty"`
	StaffID     string          `json:"staffId"`
	ChargeType  string          `json:"chargeType"`
	BaseAmount  decimal.Decimal `json:"baseAmount"`
	Currency    string          `json:"currency,omitempty"`
	Description string          `json:"description"`
	StartDate   string          `json:"startDate"`
	EndDate     string          `json:"endDate,omitempty"`

	OccupantCount     *int             `json:"occupantCount,omitempty"`
	TransportDistance *decimal.Decimal `json:"transportDistance,omitempty"`
	PassengerCount    *int             `json:"passengerCount,omitempty"`
}

// ScheduleDTO represents a schedule in API responses, flat wire form.
type ScheduleDTO struct {
	ID          string          `json:"id"`
	StaffID     string          `json:"staffId"`
	ChargeType  string          `json:"chargeType"`
	BaseAmount  decimal.Decimal `json:"baseAmount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	StartDate   string          `json:"startDate"`
	EndDate     string          `json:"endDate,omitempty"`
	Active      bool            `json:"active"`
	CreatedAt   string          `json:"createdAt,omitempty"`

	OccupantCount     *int             `json:"occupantCount,omitempty"`
	TransportDistance *decimal.Decimal `json:"transportDistance,omitempty"`
	PassengerCount    *int             `json:"passengerCount,omitempty"`
}

// =============================================================================
// STATEMENT TYPES
// =============================================================================

// TypeTotalDTO is one per-type subtotal on a statement.
type TypeTotalDTO struct {
	ChargeType      string          `json:"chargeType"`
	Amount          decimal.Decimal `json:"amount"`
	FormattedAmount string          `json:"formattedAmount"`
}

// StatementDTO is a staff member's month at a glance.
type StatementDTO struct {
	StaffID        string          `json:"staffId"`
	Month          string          `json:"month"` // "2006-01"
	Lines          []ChargeDTO     `json:"lines"`
	TypeTotals     []TypeTotalDTO  `json:"typeTotals"`
	Total          decimal.Decimal `json:"total"`
	FormattedTotal string          `json:"formattedTotal"`
}

// UpcomingChargeDTO is one projected future billing.
type UpcomingChargeDTO struct {
	Month           string          `json:"month"` // "2006-01"
	ScheduleID      string          `json:"scheduleId"`
	ChargeType      string          `json:"chargeType"`
	Description     string          `json:"description"`
	StartDate       string          `json:"startDate"`
	EndDate         string          `json:"endDate"`
	Amount          decimal.Decimal `json:"amount"`
	FormattedAmount string          `json:"formattedAmount"`
	ProrationFactor decimal.Decimal `json:"prorationFactor"`
	TotalDays       int             `json:"totalDays"`
	Currency        string          `json:"currency"`
}

// =============================================================================
// GENERATION TYPES
// =============================================================================

// GenerationFailureDTO is one schedule a billing run could not bill.
type GenerationFailureDTO struct {
	ScheduleID string `json:"scheduleId"`
	Error      string `json:"error"`
}

// GenerationReportDTO summarizes one billing run.
type GenerationReportDTO struct {
	Month   string                 `json:"month"`
	Posted  []ChargeDTO            `json:"posted"`
	Skipped int                    `json:"skipped"`
	Failed  []GenerationFailureDTO `json:"failed"`
}

// =============================================================================
// SCENARIO TYPES
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toBreakdownDTOs(lines []charge.BreakdownLine) []BreakdownLineDTO {
	dtos := make([]BreakdownLineDTO, len(lines))
	for i, l := range lines {
		dtos[i] = BreakdownLineDTO{
			Label:       l.Label,
			Value:       l.Value,
			Description: l.Description,
		}
	}
	return dtos
}

func toCalculationResultDTO(r charge.CalculationResult) CalculationResultDTO {
	return CalculationResultDTO{
		ChargeType:      string(r.ChargeType),
		StaffID:         string(r.StaffID),
		BaseAmount:      r.BaseAmount,
		ProrationFactor: r.ProrationFactor,
		ProratedAmount:  r.ProratedAmount,
		FormattedAmount: charge.FormatAmount(r.ProratedAmount),
		TotalDays:       r.TotalDays,
		Description:     r.Description,
		Breakdown:       toBreakdownDTOs(r.Breakdown),
	}
}

func toChargeDTO(c charge.Charge) ChargeDTO {
	dto := ChargeDTO{
		ID:              string(c.ID),
		StaffID:         string(c.StaffID),
		ChargeType:      string(c.Type),
		Amount:          c.Amount,
		FormattedAmount: charge.FormatAmount(c.Amount),
		Currency:        c.Currency,
		Description:     c.Description,
		StartDate:       c.Period.Start.String(),
		EndDate:         c.Period.End.String(),
		Status:          string(c.Status),
		Source:          string(c.Source),
		ScheduleID:      string(c.ScheduleID),
		Metadata: ChargeMetadataDTO{
			BaseAmount:      c.Metadata.BaseAmount,
			ProrationFactor: c.Metadata.ProrationFactor,
			TotalDays:       c.Metadata.TotalDays,
			Breakdown:       toBreakdownDTOs(c.Metadata.Breakdown),
		},
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
	if c.VoidedAt != nil {
		v := c.VoidedAt.Format(time.RFC3339)
		dto.VoidedAt = &v
	}
	return dto
}

func toChargeDTOs(cs []charge.Charge) []ChargeDTO {
	dtos := make([]ChargeDTO, len(cs))
	for i, c := range cs {
		dtos[i] = toChargeDTO(c)
	}
	return dtos
}

func toStaffDTO(st charge.Staff) StaffDTO {
	return StaffDTO{
		ID:        string(st.ID),
		Name:      st.Name,
		Unit:      st.Unit,
		Active:    st.Active,
		CreatedAt: st.CreatedAt.Format(time.RFC3339),
	}
}

func toScheduleDTO(s charge.Schedule) ScheduleDTO {
	dto := ScheduleDTO{
		ID:          string(s.ID),
		StaffID:     string(s.StaffID),
		ChargeType:  string(s.ChargeType()),
		BaseAmount:  s.BaseAmount,
		Currency:    s.Currency,
		Description: s.Description,
		StartDate:   s.Start.String(),
		Active:      s.Active,
		CreatedAt:   s.CreatedAt.Format(time.RFC3339),
	}
	if s.End != nil {
		dto.EndDate = s.End.String()
	}

	switch p := s.Params.(type) {
	case charge.UtilitiesParams:
		occ := p.OccupantCount
		dto.OccupantCount = &occ
	case charge.TransportParams:
		dist := p.Distance
		pass := p.Passengers
		dto.TransportDistance = &dist
		dto.PassengerCount = &pass
	}
	return dto
}

func toStatementDTO(st charge.Statement) StatementDTO {
	totals := make([]TypeTotalDTO, len(st.TypeTotals))
	for i, t := range st.TypeTotals {
		totals[i] = TypeTotalDTO{
			ChargeType:      string(t.Type),
			Amount:          t.Amount,
			FormattedAmount: charge.FormatAmount(t.Amount),
		}
	}
	return StatementDTO{
		StaffID:        string(st.StaffID),
		Month:          st.Month.MonthKey(),
		Lines:          toChargeDTOs(st.Lines),
		TypeTotals:     totals,
		Total:          st.Total,
		FormattedTotal: charge.FormatAmount(st.Total),
	}
}

func toUpcomingDTO(u recurring.UpcomingCharge) UpcomingChargeDTO {
	return UpcomingChargeDTO{
		Month:           u.Month,
		ScheduleID:      string(u.ScheduleID),
		ChargeType:      string(u.Result.ChargeType),
		Description:     u.Result.Description,
		StartDate:       u.Period.Start.String(),
		EndDate:         u.Period.End.String(),
		Amount:          u.Result.ProratedAmount,
		FormattedAmount: charge.FormatAmount(u.Result.ProratedAmount),
		ProrationFactor: u.Result.ProrationFactor,
		TotalDays:       u.Result.TotalDays,
		Currency:        u.Currency,
	}
}

func toGenerationReportDTO(r *recurring.GenerationReport) GenerationReportDTO {
	dto := GenerationReportDTO{
		Month:   r.Month,
		Posted:  toChargeDTOs(r.Posted),
		Skipped: r.Skipped,
		Failed:  make([]GenerationFailureDTO, len(r.Failed)),
	}
	for i, f := range r.Failed {
		dto.Failed[i] = GenerationFailureDTO{
			ScheduleID: string(f.ScheduleID),
			Error:      f.Err.Error(),
		}
	}
	return dto
}
