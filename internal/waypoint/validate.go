package waypoint

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var ErrInvalidRoute = errors.New("invalid route")

// ValidateRoute returns a copy of waypoints sorted by order, with missing
// radii defaulted. A route has a single start at order 0, a single end at
// the highest order and checkpoints in between, with contiguous orders.
func ValidateRoute(waypoints []Waypoint) ([]Waypoint, error) {
	if len(waypoints) < 2 {
		return nil, fmt.Errorf("%w: at least 2 waypoints required", ErrInvalidRoute)
	}
	route := make([]Waypoint, len(waypoints))
	copy(route, waypoints)
	sort.SliceStable(route, func(i, j int) bool { return route[i].Order < route[j].Order })

	last := len(route) - 1
	for i := range route {
		wp := &route[i]
		if wp.Order != i {
			return nil, fmt.Errorf("%w: expected order %d, got %d", ErrInvalidRoute, i, wp.Order)
		}
		want := KindCheckpoint
		switch i {
		case 0:
			want = KindStart
		case last:
			want = KindEnd
		}
		if wp.Kind != want {
			return nil, fmt.Errorf("%w: waypoint %d must be %s, got %q", ErrInvalidRoute, i, want, wp.Kind)
		}
		if !validCoordinate(wp.Lat, 90) || !validCoordinate(wp.Lng, 180) {
			return nil, fmt.Errorf("%w: waypoint %d coordinates out of range", ErrInvalidRoute, i)
		}
		if math.IsNaN(wp.RadiusM) || wp.RadiusM <= 0 {
			wp.RadiusM = DefaultRadiusM
		}
	}
	return route, nil
}

func validCoordinate(v, limit float64) bool {
	return !math.IsNaN(v) && v >= -limit && v <= limit
}
