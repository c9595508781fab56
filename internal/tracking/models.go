package tracking

import (
	"time"

	"github.com/paulmach/orb"
)

// DefaultPrivacyZoneM is the masking radius used when a session hides its
// start and end without naming one.
const DefaultPrivacyZoneM = 200

const (
	StatusInProgress = "in_progress"
	StatusPaused     = "paused"
	StatusCompleted  = "completed"
	StatusDiscarded  = "discarded"
)

// Sample is a single location fix. Optional fields are nil when the
// device did not report them.
type Sample struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	Timestamp  time.Time `json:"timestamp"`
	Accuracy   *float64  `json:"accuracy,omitempty"`
	ElevationM *float64  `json:"elevation_m,omitempty"`
	SpeedMps   *float64  `json:"speed_mps,omitempty"`
	Heading    *float64  `json:"heading,omitempty"`
}

type Session struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	ActivityType   string    `json:"activity_type"`
	Status         string    `json:"status"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at,omitempty"`
	TotalDistanceM float64   `json:"total_distance_m"`
	ElevationGainM float64   `json:"elevation_gain_m"`
	ElevationLossM float64   `json:"elevation_loss_m"`
	Calories       float64   `json:"calories"`

	HideStartEnd       bool       `json:"hide_start_end"`
	PrivacyZoneRadiusM int        `json:"privacy_zone_radius_m"`
	MaskedStart        *orb.Point `json:"masked_start,omitempty"`
	MaskedEnd          *orb.Point `json:"masked_end,omitempty"`
}

type TrackPoint struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Sample
	CreatedAt time.Time `json:"created_at"`
}

type Pause struct {
	PausedAt  time.Time `json:"paused_at"`
	ResumedAt time.Time `json:"resumed_at,omitempty"`
}

type Summary struct {
	SessionID      string  `json:"session_id"`
	Status         string  `json:"status"`
	PointCount     int     `json:"point_count"`
	DistanceM      float64 `json:"distance_m"`
	DurationSec    int64   `json:"duration_sec"`
	ElapsedSec     int64   `json:"elapsed_sec"`
	AverageSpeedM  float64 `json:"average_speed_mps"`
	PaceSecPerKm   float64 `json:"pace_sec_per_km"`
	ElevationGainM float64 `json:"elevation_gain_m"`
	ElevationLossM float64 `json:"elevation_loss_m"`
	Calories       float64 `json:"calories"`

	MaskedStart *orb.Point `json:"masked_start,omitempty"`
	MaskedEnd   *orb.Point `json:"masked_end,omitempty"`
}

// PointResult reports what happened to one sample fed to a session.
type PointResult struct {
	Point          TrackPoint
	Outcome        Outcome
	TotalDistanceM float64
}
