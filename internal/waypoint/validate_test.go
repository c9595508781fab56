package waypoint

import (
	"errors"
	"math"
	"testing"
)

func TestValidateRouteSortsAndDefaults(t *testing.T) {
	route, err := ValidateRoute([]Waypoint{
		{Order: 2, Kind: KindEnd, Lat: 1, Lng: 1, RadiusM: 30},
		{Order: 0, Kind: KindStart, Lat: 0, Lng: 0},
		{Order: 1, Kind: KindCheckpoint, Lat: 0.5, Lng: 0.5, RadiusM: -1},
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	for i, wp := range route {
		if wp.Order != i {
			t.Fatalf("route not sorted: %+v", route)
		}
	}
	if route[0].RadiusM != DefaultRadiusM || route[1].RadiusM != DefaultRadiusM || route[2].RadiusM != 30 {
		t.Fatalf("unexpected radii: %+v", route)
	}
}

func TestValidateRouteDoesNotMutateInput(t *testing.T) {
	in := []Waypoint{
		{Order: 1, Kind: KindEnd},
		{Order: 0, Kind: KindStart},
	}
	if _, err := ValidateRoute(in); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if in[0].Order != 1 || in[1].RadiusM != 0 {
		t.Fatalf("input mutated: %+v", in)
	}
}

func TestValidateRouteErrors(t *testing.T) {
	tests := []struct {
		name  string
		route []Waypoint
	}{
		{"too short", []Waypoint{{Order: 0, Kind: KindStart}}},
		{"gap", []Waypoint{{Order: 0, Kind: KindStart}, {Order: 2, Kind: KindEnd}}},
		{"duplicate order", []Waypoint{{Order: 0, Kind: KindStart}, {Order: 0, Kind: KindEnd}}},
		{"missing start", []Waypoint{{Order: 0, Kind: KindCheckpoint}, {Order: 1, Kind: KindEnd}}},
		{"missing end", []Waypoint{{Order: 0, Kind: KindStart}, {Order: 1, Kind: KindCheckpoint}}},
		{"second start", []Waypoint{{Order: 0, Kind: KindStart}, {Order: 1, Kind: KindStart}, {Order: 2, Kind: KindEnd}}},
		{"latitude", []Waypoint{{Order: 0, Kind: KindStart, Lat: 91}, {Order: 1, Kind: KindEnd}}},
		{"longitude", []Waypoint{{Order: 0, Kind: KindStart}, {Order: 1, Kind: KindEnd, Lng: -180.5}}},
		{"nan", []Waypoint{{Order: 0, Kind: KindStart, Lat: math.NaN()}, {Order: 1, Kind: KindEnd}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ValidateRoute(tc.route); !errors.Is(err, ErrInvalidRoute) {
				t.Fatalf("expected invalid route, got %v", err)
			}
		})
	}
}
