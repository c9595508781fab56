package geo

import "math"

// EarthRadiusM is the mean Earth radius used for the spherical model.
const EarthRadiusM = 6371000.0

// HaversineMeters returns the great-circle distance in meters between two
// points given in degrees. Inputs are not validated; NaN propagates.
func HaversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := toRad(lat1)
	phi2 := toRad(lat2)
	dPhi := toRad(lat2 - lat1)
	dLambda := toRad(lng2 - lng1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * EarthRadiusM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	return HaversineMeters(lat1, lng1, lat2, lng2) / 1000
}

// OffsetNorth returns the latitude reached by moving meters due north along a meridian.
func OffsetNorth(lat, meters float64) float64 {
	return lat + meters/EarthRadiusM*180/math.Pi
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
