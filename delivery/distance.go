package delivery

import (
	"math"

	"grocery-orders/models"
)

const earthRadiusKm = 6371

// Distance returns the great-circle distance between a and b in kilometres,
// rounded to two decimals.
func Distance(a, b models.Coordinate) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	h = math.Min(1, h) // float error near antipodes
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return math.Round(earthRadiusKm*c*100) / 100
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

type GeoResult struct {
	DistanceKm   float64 `json:"distance_km"`
	WithinRadius bool    `json:"within_radius"`
}

// WithinRadius checks the customer against the shop's delivery radius.
// A point exactly on the boundary qualifies.
func WithinRadius(shop, customer models.Coordinate, maxRadiusKm float64) GeoResult {
	d := Distance(shop, customer)
	return GeoResult{DistanceKm: d, WithinRadius: d <= maxRadiusKm}
}
