package waypoint

import (
	"backend-strideup/internal/shared/geo"
	"backend-strideup/internal/tracking"
)

// Contains reports whether a position lies inside the waypoint's geofence.
// The boundary counts as inside.
func (w Waypoint) Contains(lat, lng float64) bool {
	return geo.HaversineMeters(w.Lat, w.Lng, lat, lng) <= w.RadiusM
}

// CheckProgress walks the full track once with a single forward pointer.
// Waypoints must be cleared in order: a sample inside a later geofence is
// ignored until every earlier waypoint has been reached. A sample clears at
// most one waypoint.
//
// An empty route is vacuously cleared with ReachedIndex -1.
func CheckProgress(waypoints []Waypoint, track []tracking.Sample) Progress {
	flags := make([]bool, len(waypoints))
	next := 0
	for _, s := range track {
		if next >= len(waypoints) {
			break
		}
		if waypoints[next].Contains(s.Lat, s.Lng) {
			flags[next] = true
			next++
		}
	}
	return Progress{
		ReachedIndex: next - 1,
		AllCleared:   next >= len(waypoints),
		ReachedFlags: flags,
	}
}
