package tracking

import (
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const (
	defaultWeightKg = 70.0
	metersPerDegree = 111000.0
)

var metValues = map[string]float64{
	"run":   9.8,
	"walk":  3.8,
	"cycle": 7.5,
	"hike":  6.0,
}

// ElevationChange sums positive and negative elevation steps between
// consecutive samples that carry an elevation.
func ElevationChange(samples []Sample) (gain, loss float64) {
	var prev *float64
	for _, s := range samples {
		if s.ElevationM == nil {
			continue
		}
		if prev != nil {
			diff := *s.ElevationM - *prev
			if diff > 0 {
				gain += diff
			} else {
				loss -= diff
			}
		}
		prev = s.ElevationM
	}
	return gain, loss
}

// PauseDuration sums pauses that have been resumed.
func PauseDuration(pauses []Pause) time.Duration {
	var total time.Duration
	for _, p := range pauses {
		if p.ResumedAt.IsZero() {
			continue
		}
		total += p.ResumedAt.Sub(p.PausedAt)
	}
	return total
}

func PaceSecPerKm(distanceM float64, active time.Duration) float64 {
	km := distanceM / 1000
	if km <= 0 || active <= 0 {
		return 0
	}
	return active.Seconds() / km
}

func SpeedMps(distanceM float64, active time.Duration) float64 {
	if active <= 0 {
		return 0
	}
	return distanceM / active.Seconds()
}

// Calories estimates burned energy from the activity MET value.
func Calories(activityType string, active time.Duration) float64 {
	met, ok := metValues[activityType]
	if !ok {
		met = 5.0
	}
	return met * defaultWeightKg * active.Hours()
}

// Summarize builds a session summary from its ordered samples and pauses.
// Time is measured between the first and the last sample. Tracks with fewer
// than two samples carry no statistics.
func Summarize(session Session, samples []Sample, pauses []Pause) Summary {
	summary := Summary{
		SessionID:   session.ID,
		Status:      session.Status,
		PointCount:  len(samples),
		MaskedStart: session.MaskedStart,
		MaskedEnd:   session.MaskedEnd,
	}
	if len(samples) < 2 {
		return summary
	}

	elapsed := samples[len(samples)-1].Timestamp.Sub(samples[0].Timestamp)
	if elapsed < 0 {
		elapsed = 0
	}
	active := elapsed - PauseDuration(pauses)
	if active < 0 {
		active = 0
	}
	distance := session.TotalDistanceM

	summary.DistanceM = distance
	summary.DurationSec = int64(active.Seconds())
	summary.ElapsedSec = int64(elapsed.Seconds())
	summary.AverageSpeedM = SpeedMps(distance, active)
	summary.PaceSecPerKm = PaceSecPerKm(distance, active)
	summary.ElevationGainM, summary.ElevationLossM = ElevationChange(samples)
	if distance > 0 && active > 0 {
		summary.Calories = Calories(session.ActivityType, active)
	}
	return summary
}

// MaskPoint moves p in a random direction by between half and all of
// radiusM. random must return values in [0, 1).
func MaskPoint(p orb.Point, radiusM float64, random func() float64) orb.Point {
	angle := random() * 2 * math.Pi
	dist := radiusM * (0.5 + 0.5*random())
	dLat := dist * math.Cos(angle) / metersPerDegree
	dLng := dist * math.Sin(angle) / (metersPerDegree * math.Cos(p.Lat()*math.Pi/180))
	return orb.Point{p.Lon() + dLng, p.Lat() + dLat}
}

// MaskEndpoints masks the first and last sample of a track. ok is false for
// tracks with fewer than two samples.
func MaskEndpoints(samples []Sample, radiusM float64, random func() float64) (start, end orb.Point, ok bool) {
	if len(samples) < 2 {
		return orb.Point{}, orb.Point{}, false
	}
	first, last := samples[0], samples[len(samples)-1]
	start = MaskPoint(orb.Point{first.Lng, first.Lat}, radiusM, random)
	end = MaskPoint(orb.Point{last.Lng, last.Lat}, radiusM, random)
	return start, end, true
}

// RouteFeature renders the track as a GeoJSON LineString. With hideEnds set,
// tracks longer than ten points lose max(2, n/20) points at each end.
func RouteFeature(sessionID string, samples []Sample, hideEnds bool) *geojson.Feature {
	if hideEnds && len(samples) > 10 {
		trim := len(samples) / 20
		if trim < 2 {
			trim = 2
		}
		samples = samples[trim : len(samples)-trim]
	}
	line := make(orb.LineString, 0, len(samples))
	for _, s := range samples {
		line = append(line, orb.Point{s.Lng, s.Lat})
	}
	f := geojson.NewFeature(line)
	f.Properties["session_id"] = sessionID
	f.Properties["point_count"] = len(line)
	return f
}
