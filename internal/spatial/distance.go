package spatial

import (
	"math"

	"github.com/golang/geo/s2"
)

// Constants
const (
	EarthRadiusMeters = 6371000.0 // Earth's mean radius in meters
	EarthRadiusKm     = 6371.0    // Earth's mean radius in kilometers

	MilesPerKm = 0.621371
)

// Point is a WGS84 coordinate in degrees
type Point struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// HaversineDistance calculates the great-circle distance between two points in meters
// using the Haversine formula. Invalid coordinates are not checked; NaN propagates.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// Distance returns the great-circle distance between a and b in meters
func Distance(a, b Point) float64 {
	return HaversineDistance(a.Lat, a.Lon, b.Lat, b.Lon)
}

// MetersToMiles converts meters to statute miles using the km→mi factor the
// area unit is built on.
func MetersToMiles(meters float64) float64 {
	return meters / 1000 * MilesPerKm
}

// CircularCellAreaSquareMiles returns the area of a circle of the given radius
// (in km) expressed in square miles. Summing it over a cell count does not
// correct for overlap between neighbouring cells.
func CircularCellAreaSquareMiles(radiusKm float64) float64 {
	r := radiusKm * MilesPerKm
	return math.Pi * r * r
}

// ValidCoordinate reports whether lat/lon are finite and within WGS84 bounds
func ValidCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
