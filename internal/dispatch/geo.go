package dispatch

import (
	"math"

	"github.com/mattw23n/emergency-dispatch-app/pkg/events"
)

const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance between two points in km.
func Haversine(a, b events.Location) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// ETAMinutes estimates travel time at 50 km/h, floored at one minute.
func ETAMinutes(distanceKm float64) int {
	eta := int(math.Ceil(distanceKm / 50 * 60))
	if eta < 1 {
		return 1
	}
	return eta
}
