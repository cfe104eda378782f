// Package geo provides great-circle distance helpers used by the route
// sequencer. Distances are straight-line; no road network is involved.
package geo

import (
	"math"

	"github.com/kilianp07/routeplan/core/model"
)

// EarthRadiusKm is the mean radius of the spherical earth model.
const EarthRadiusKm = 6371.0

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// HaversineKm returns the great-circle distance in kilometres between two
// points given in decimal degrees.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// Distance is HaversineKm for two locations.
func Distance(a, b model.Location) float64 {
	return HaversineKm(a.Lat, a.Lon, b.Lat, b.Lon)
}

// PathKm sums the legs depot -> points... -> depot. An empty path is 0.
func PathKm(depot model.Location, points []model.Location) float64 {
	if len(points) == 0 {
		return 0
	}
	total := Distance(depot, points[0])
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}
	return total + Distance(points[len(points)-1], depot)
}
