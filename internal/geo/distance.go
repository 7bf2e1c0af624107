// Package geo holds the great-circle helpers used by discovery and profile views.
package geo

import "math"

// EarthRadiusKm is the mean earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// DistanceKm returns the haversine distance between two coordinates in km.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// RoundedDistanceKm is DistanceKm rounded to one decimal place.
func RoundedDistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	return Round1(DistanceKm(lat1, lon1, lat2, lon2))
}

func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
