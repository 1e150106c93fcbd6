package geo

import "math"

const earthRadiusKm = 6371.0

// kmPerDegree is the flat-earth conversion factor used for the distance
// annotation on listing responses. Filtering uses HaversineKm instead; the
// two paths intentionally disagree slightly.
const kmPerDegree = 111.0

// HaversineKm returns the great-circle distance in kilometers between two
// points given as decimal degrees.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// ApproxDistanceKm estimates distance as euclidean degree distance times
// 111 km/degree. Coarse, but it is what clients have always been shown.
func ApproxDistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := lat2 - lat1
	dLon := lon2 - lon1
	return math.Sqrt(dLat*dLat+dLon*dLon) * kmPerDegree
}

// RoundKm rounds a distance to one decimal place for display.
func RoundKm(km float64) float64 {
	return math.Round(km*10) / 10
}

// WithinRadius reports whether the target point lies within radiusKm of the
// origin, measured along the great circle.
func WithinRadius(originLat, originLon, lat, lon, radiusKm float64) bool {
	return HaversineKm(originLat, originLon, lat, lon) <= radiusKm
}
