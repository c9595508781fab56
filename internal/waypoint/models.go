package waypoint

import "backend-strideup/internal/tracking"

type Kind string

const (
	KindStart      Kind = "start"
	KindCheckpoint Kind = "checkpoint"
	KindEnd        Kind = "end"
)

// DefaultRadiusM is applied to waypoints saved without a radius.
const DefaultRadiusM = 50.0

// Waypoint is a circular geofence on a challenge route. Order is the
// zero-based position in the required visiting sequence.
type Waypoint struct {
	ID          string  `json:"id,omitempty"`
	ChallengeID string  `json:"challenge_id,omitempty"`
	Order       int     `json:"order"`
	Kind        Kind    `json:"kind"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	RadiusM     float64 `json:"radius_m"`
	Name        string  `json:"name,omitempty"`
}

// Progress is the result of one evaluation of a track against a route.
type Progress struct {
	ReachedIndex int    `json:"reached_index"`
	AllCleared   bool   `json:"all_cleared"`
	ReachedFlags []bool `json:"reached_flags"`
}

// ProgressUpdate is broadcast to the session's live subscribers.
type ProgressUpdate struct {
	ChallengeID string `json:"challenge_id"`
	Progress
}

type evaluateRequest struct {
	Waypoints []Waypoint        `json:"waypoints"`
	Track     []tracking.Sample `json:"track"`
}

type routeRequest struct {
	Waypoints []Waypoint `json:"waypoints"`
}
