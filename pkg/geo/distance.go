package geo

import "math"

// Mean Earth radius in meters, standard for spherical haversine.
const earthRadiusMeters = 6371000.0

// HaversineMeters calculates the great-circle distance in meters between two
// coordinates given in degrees. Spherical approximation by design; city-scale
// matching does not need ellipsoid corrections. NaN inputs propagate NaN.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLon := (lon2 - lon1) * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180.0)*math.Cos(lat2*math.Pi/180.0)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}
