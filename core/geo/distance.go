package geo

import (
	"math"

	"github.com/tbaiguzhinov/pizza-bot/core/catalog"
)

const earthRadiusKM = 6371.0

// DistanceKM is the great-circle distance between two points in kilometers.
func DistanceKM(a, b Point) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(h))
}

// ClosestPizzeria picks the outlet nearest to from. The boolean is false
// when the list is empty.
func ClosestPizzeria(pizzerias []catalog.Pizzeria, from Point) (catalog.Pizzeria, float64, bool) {
	var (
		best     catalog.Pizzeria
		bestDist float64
		found    bool
	)
	for _, p := range pizzerias {
		d := DistanceKM(from, Point{Lat: p.Lat, Lon: p.Lon})
		if !found || d < bestDist {
			best, bestDist, found = p, d, true
		}
	}
	return best, bestDist, found
}
