/*
params_test.go - Typed charge parameters and their flat boundary form

PURPOSE:
  NewParams is the strictness gate at every boundary: a parameter a
  charge type does not use is an error, not dead weight to ignore.
  These tests pin that contract plus the JSON wire shape schedules
  store their params in.
*/
package charge_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/warp/charge-engine/charge"
)

func intPtr(n int) *int { return &n }

func decPtr(s string) *decimal.Decimal {
	d := charge.MustParseDecimal(s)
	return &d
}

// =============================================================================
// BUILDING FROM THE FLAT FORM
// =============================================================================

func TestNewParams_BuildsEachVariant(t *testing.T) {
	rent, err := charge.NewParams(charge.ChargeRent, nil, nil, nil)
	if err != nil || rent.Type() != charge.ChargeRent {
		t.Errorf("rent: expected RentParams, got %v (%v)", rent, err)
	}

	util, err := charge.NewParams(charge.ChargeUtilities, intPtr(2), nil, nil)
	if err != nil {
		t.Fatalf("utilities: unexpected error: %v", err)
	}
	if up, ok := util.(charge.UtilitiesParams); !ok || up.OccupantCount != 2 {
		t.Errorf("utilities: expected occupant count 2, got %+v", util)
	}

	tp, err := charge.NewParams(charge.ChargeTransport, nil, decPtr("10"), intPtr(4))
	if err != nil {
		t.Fatalf("transport: unexpected error: %v", err)
	}
	if v, ok := tp.(charge.TransportParams); !ok || v.Passengers != 4 || !v.Distance.Equal(charge.MustParseDecimal("10")) {
		t.Errorf("transport: expected 10 km x 4 passengers, got %+v", tp)
	}

	other, err := charge.NewParams(charge.ChargeOther, nil, nil, nil)
	if err != nil || other.Type() != charge.ChargeOther {
		t.Errorf("other: expected OtherParams, got %v (%v)", other, err)
	}
}

func TestNewParams_RejectsStrayFields(t *testing.T) {
	// GIVEN: Flat inputs carrying fields the charge type does not use
	// WHEN: Building typed params
	// THEN: Each is rejected instead of silently dropped

	cases := []struct {
		name       string
		chargeType charge.ChargeType
		occupants  *int
		distance   *decimal.Decimal
		passengers *int
	}{
		{"rent with occupants", charge.ChargeRent, intPtr(2), nil, nil},
		{"rent with distance", charge.ChargeRent, nil, decPtr("5"), nil},
		{"other with passengers", charge.ChargeOther, nil, nil, intPtr(3)},
		{"utilities with distance", charge.ChargeUtilities, intPtr(2), decPtr("5"), nil},
		{"transport with occupants", charge.ChargeTransport, intPtr(2), decPtr("5"), intPtr(3)},
	}
	for _, c := range cases {
		_, err := charge.NewParams(c.chargeType, c.occupants, c.distance, c.passengers)
		var ve *charge.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("%s: expected a validation error, got %v", c.name, err)
			continue
		}
		if ve.Field != "chargeType" {
			t.Errorf("%s: expected chargeType field, got %s", c.name, ve.Field)
		}
	}
}

func TestNewParams_RejectsMissingRequiredFields(t *testing.T) {
	var ve *charge.ValidationError

	_, err := charge.NewParams(charge.ChargeUtilities, nil, nil, nil)
	if !errors.As(err, &ve) || ve.Field != "occupantCount" {
		t.Errorf("expected missing occupantCount error, got %v", err)
	}

	_, err = charge.NewParams(charge.ChargeTransport, nil, nil, intPtr(4))
	if !errors.As(err, &ve) || ve.Field != "transportDistance" {
		t.Errorf("expected missing transportDistance error, got %v", err)
	}

	_, err = charge.NewParams(charge.ChargeTransport, nil, decPtr("10"), nil)
	if !errors.As(err, &ve) || ve.Field != "passengerCount" {
		t.Errorf("expected missing passengerCount error, got %v", err)
	}
}

func TestNewParams_UnknownType(t *testing.T) {
	_, err := charge.NewParams(charge.ChargeType("parking"), nil, nil, nil)
	if !charge.IsValidation(err) {
		t.Errorf("expected a validation error for an unknown type, got %v", err)
	}
}

// =============================================================================
// WIRE ENCODING
// =============================================================================

func TestEncodeParams_CarriesOnlyTheTypesOwnFields(t *testing.T) {
	// GIVEN: Utilities params
	// WHEN: Encoding for storage
	// THEN: The wire carries the type and occupant count, nothing transport-shaped

	data, err := charge.EncodeParams(charge.UtilitiesParams{OccupantCount: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := string(data)
	if !strings.Contains(got, `"type":"utilities"`) || !strings.Contains(got, `"occupantCount":3`) {
		t.Errorf("expected type and occupant count on the wire, got %s", got)
	}
	if strings.Contains(got, "transportDistance") || strings.Contains(got, "passengerCount") {
		t.Errorf("expected no transport fields on the wire, got %s", got)
	}
}

func TestDecodeParams_RebuildsTheTypedVariant(t *testing.T) {
	p, err := charge.DecodeParams([]byte(`{"type":"transport","transportDistance":"12.5","passengerCount":3}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tp, ok := p.(charge.TransportParams)
	if !ok {
		t.Fatalf("expected TransportParams, got %T", p)
	}
	if !tp.Distance.Equal(charge.MustParseDecimal("12.5")) || tp.Passengers != 3 {
		t.Errorf("expected 12.5 km x 3 passengers, got %+v", tp)
	}
}

func TestDecodeParams_RejectsBadInput(t *testing.T) {
	if _, err := charge.DecodeParams([]byte(`{"type":"parking"}`)); !charge.IsValidation(err) {
		t.Errorf("expected a validation error for an unknown type, got %v", err)
	}
	if _, err := charge.DecodeParams([]byte(`{not json`)); err == nil {
		t.Error("expected an error for malformed JSON")
	}
	// A stored blob with fields its type does not use is corrupt, not ignorable.
	if _, err := charge.DecodeParams([]byte(`{"type":"rent","occupantCount":2}`)); err == nil {
		t.Error("expected an error for stray fields")
	}
}

func TestEncodeParams_NilRejected(t *testing.T) {
	if _, err := charge.EncodeParams(nil); !charge.IsValidation(err) {
		t.Errorf("expected a validation error for nil params, got %v", err)
	}
}
