package model

import (
	"fmt"
	"math"
)

const (
	minLat = -90.0
	maxLat = 90.0
	minLon = -180.0
	maxLon = 180.0
)

// Location is a WGS84 coordinate expressed in decimal degrees.
type Location struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Valid reports whether the latitude and longitude are finite and in range.
func (l Location) Valid() bool {
	if math.IsNaN(l.Lat) || math.IsNaN(l.Lon) || math.IsInf(l.Lat, 0) || math.IsInf(l.Lon, 0) {
		return false
	}
	return l.Lat >= minLat && l.Lat <= maxLat && l.Lon >= minLon && l.Lon <= maxLon
}

func (l Location) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", l.Lat, l.Lon)
}

// Depot is the fixed origin and return point of every route.
// It is configured per deployment.
type Depot struct {
	Name     string   `json:"name,omitempty" yaml:"name"`
	Location Location `json:"location" yaml:"location"`
}

// Validate checks the depot coordinates.
func (d Depot) Validate() error {
	if !d.Location.Valid() {
		return &InvalidCoordinateError{ItemID: "depot", Lat: d.Location.Lat, Lon: d.Location.Lon}
	}
	return nil
}
