package charge

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CHARGE PARAMS - Type-specific calculation inputs
// =============================================================================

// ChargeParams is the type-specific portion of a calculation input. The set
// of implementations is closed: each charge type carries exactly the fields
// its rule needs, so a missing required field is unrepresentable and a zero
// one is rejected up front.
type ChargeParams interface {
	Type() ChargeType

	// validate rejects zero or negative counts instead of defaulting them.
	validate() *ValidationError

	// compute returns the final amount and its breakdown for a period
	// spanning totalDays with the given proration factor.
	compute(base, factor decimal.Decimal, totalDays int) (decimal.Decimal, []BreakdownLine)
}

var (
	_ ChargeParams = RentParams{}
	_ ChargeParams = UtilitiesParams{}
	_ ChargeParams = TransportParams{}
	_ ChargeParams = OtherParams{}
)

// =============================================================================
// RENT - Base amount prorated over the period
// =============================================================================

type RentParams struct{}

func (RentParams) Type() ChargeType { return ChargeRent }

func (RentParams) validate() *ValidationError { return nil }

func (RentParams) compute(base, factor decimal.Decimal, totalDays int) (decimal.Decimal, []BreakdownLine) {
	amount := base.Mul(factor)
	return amount, []BreakdownLine{
		{Label: "Base amount", Value: base, Description: "Monthly rent before proration"},
		{Label: "Days in period", Value: decimal.NewFromInt(int64(totalDays)), Description: "Inclusive of start and end dates"},
		{Label: "Proration factor", Value: factor, Description: "Days in period over a 30-day month"},
		{Label: "Prorated amount", Value: amount, Description: "Base amount times proration factor"},
	}
}

// =============================================================================
// UTILITIES - Shared cost split per occupant, then prorated
// =============================================================================

type UtilitiesParams struct {
	// OccupantCount is how many residents share the unit's utility cost.
	OccupantCount int
}

func (UtilitiesParams) Type() ChargeType { return ChargeUtilities }

func (p UtilitiesParams) validate() *ValidationError {
	if p.OccupantCount < 1 {
		return &ValidationError{Field: "occupantCount", Reason: "must be a positive integer"}
	}
	return nil
}

func (p UtilitiesParams) compute(base, factor decimal.Decimal, totalDays int) (decimal.Decimal, []BreakdownLine) {
	occupants := decimal.NewFromInt(int64(p.OccupantCount))
	perOccupant := base.Div(occupants)
	amount := perOccupant.Mul(factor)
	return amount, []BreakdownLine{
		{Label: "Total utility cost", Value: base, Description: "Shared cost for the unit"},
		{Label: "Occupants", Value: occupants, Description: "Residents sharing the cost"},
		{Label: "Per-occupant share", Value: perOccupant, Description: "Total cost split per occupant"},
		{Label: "Proration factor", Value: factor, Description: "Days in period over a 30-day month"},
		{Label: "Final amount", Value: amount, Description: "Per-occupant share times proration factor"},
	}
}

// =============================================================================
// TRANSPORT - Unit rate times distance times passengers, no date proration
// =============================================================================

type TransportParams struct {
	// Distance is the billed route distance in kilometers.
	Distance decimal.Decimal

	// Passengers is how many passengers the route is billed for.
	Passengers int
}

func (TransportParams) Type() ChargeType { return ChargeTransport }

func (p TransportParams) validate() *ValidationError {
	if !p.Distance.IsPositive() {
		return &ValidationError{Field: "transportDistance", Reason: "must be greater than zero"}
	}
	if p.Passengers < 1 {
		return &ValidationError{Field: "passengerCount", Reason: "must be a positive integer"}
	}
	return nil
}

func (p TransportParams) compute(base, factor decimal.Decimal, totalDays int) (decimal.Decimal, []BreakdownLine) {
	passengers := decimal.NewFromInt(int64(p.Passengers))
	amount := base.Mul(p.Distance).Mul(passengers)
	return amount, []BreakdownLine{
		{Label: "Cost per passenger-km", Value: base, Description: "Unit transport rate"},
		{Label: "Distance (km)", Value: p.Distance, Description: "Billed route distance"},
		{Label: "Passengers", Value: passengers, Description: "Passengers billed for the route"},
		{Label: "Total", Value: amount, Description: "Rate times distance times passengers"},
	}
}

// =============================================================================
// OTHER - Ad hoc charge, prorated like rent
// =============================================================================

type OtherParams struct{}

func (OtherParams) Type() ChargeType { return ChargeOther }

func (OtherParams) validate() *ValidationError { return nil }

func (OtherParams) compute(base, factor decimal.Decimal, totalDays int) (decimal.Decimal, []BreakdownLine) {
	amount := base.Mul(factor)
	return amount, []BreakdownLine{
		{Label: "Base amount", Value: base, Description: "Charge amount before proration"},
		{Label: "Proration factor", Value: factor, Description: "Days in period over a 30-day month"},
		{Label: "Final amount", Value: amount, Description: "Base amount times proration factor"},
	}
}

// =============================================================================
// FLAT FORM - Boundary conversion from optional fields to typed variants
// =============================================================================

// NewParams builds the typed variant for a charge type from the flat
// optional fields that boundaries carry (API requests, stored schedules,
// seed files). A field required by the type must be present; a field the
// type does not use must be absent.
func NewParams(t ChargeType, occupantCount *int, distance *decimal.Decimal, passengers *int) (ChargeParams, error) {
	switch t {
	case ChargeRent, ChargeOther:
		if occupantCount != nil || distance != nil || passengers != nil {
			return nil, &ValidationError{Field: "chargeType", Reason: fmt.Sprintf("%s charges take no extra parameters", t)}
		}
		if t == ChargeRent {
			return RentParams{}, nil
		}
		return OtherParams{}, nil

	case ChargeUtilities:
		if distance != nil || passengers != nil {
			return nil, &ValidationError{Field: "chargeType", Reason: "utilities charges take only an occupant count"}
		}
		if occupantCount == nil {
			return nil, &ValidationError{Field: "occupantCount", Reason: "required for utilities charges"}
		}
		return UtilitiesParams{OccupantCount: *occupantCount}, nil

	case ChargeTransport:
		if occupantCount != nil {
			return nil, &ValidationError{Field: "chargeType", Reason: "transport charges take only distance and passengers"}
		}
		if distance == nil {
			return nil, &ValidationError{Field: "transportDistance", Reason: "required for transport charges"}
		}
		if passengers == nil {
			return nil, &ValidationError{Field: "passengerCount", Reason: "required for transport charges"}
		}
		return TransportParams{Distance: *distance, Passengers: *passengers}, nil

	default:
		return nil, &ValidationError{Field: "chargeType", Reason: fmt.Sprintf("unknown charge type %q", string(t))}
	}
}

// paramsWire is the JSON shape params take in schedule storage and seed
// configs: the charge type plus only its own fields.
type paramsWire struct {
	Type              string           `json:"type"`
	OccupantCount     *int             `json:"occupantCount,omitempty"`
	TransportDistance *decimal.Decimal `json:"transportDistance,omitempty"`
	PassengerCount    *int             `json:"passengerCount,omitempty"`
}

// EncodeParams marshals params for a JSON column or seed file.
func EncodeParams(p ChargeParams) ([]byte, error) {
	if p == nil {
		return nil, &ValidationError{Field: "chargeType", Reason: "charge parameters are required"}
	}
	w := paramsWire{Type: string(p.Type())}
	switch v := p.(type) {
	case UtilitiesParams:
		w.OccupantCount = &v.OccupantCount
	case TransportParams:
		d := v.Distance
		w.TransportDistance = &d
		w.PassengerCount = &v.Passengers
	}
	return json.Marshal(w)
}

// DecodeParams is the inverse of EncodeParams.
func DecodeParams(data []byte) (ChargeParams, error) {
	var w paramsWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("malformed charge params: %w", err)
	}
	t, err := ParseChargeType(w.Type)
	if err != nil {
		return nil, &ValidationError{Field: "chargeType", Reason: err.Error()}
	}
	return NewParams(t, w.OccupantCount, w.TransportDistance, w.PassengerCount)
}
