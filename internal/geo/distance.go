// Package geo holds pure geographic helpers used by the matcher.
package geo

import "math"

const EarthRadiusKm = 6371.0

// Point is a coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DistanceKm returns the great-circle distance in kilometres between a and b
// using the haversine formula.
func DistanceKm(a, b Point) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	s := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)

	// Rounding can push s a hair past 1 for antipodal points; Asin would return NaN.
	s = math.Min(1, math.Max(0, s))

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(s))
}

// Valid reports whether p lies within ±90° latitude and ±180° longitude.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
