// Package geo provides the spherical-distance primitives shared by the graph
// store, the raster service, and the planner.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// EarthRadiusM is the mean Earth radius in meters.
const EarthRadiusM = 6371000.0

// MetersPerDegree is the approximate north-south extent of one degree of latitude.
const MetersPerDegree = 111000.0

// ErrInvalidCoordinate is returned when a latitude/longitude pair is out of range.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Coord is a WGS84 latitude/longitude pair in degrees.
type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// String renders the coordinate as "lat,lon".
func (c Coord) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// Valid reports whether the coordinate lies in the legal lat/lon ranges.
func (c Coord) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180 &&
		!math.IsNaN(c.Lat) && !math.IsNaN(c.Lon)
}

// Validate returns ErrInvalidCoordinate if the coordinate is out of range.
func (c Coord) Validate() error {
	if !c.Valid() {
		return ErrInvalidCoordinate
	}
	return nil
}

// Haversine returns the great-circle distance between two coordinates in meters.
func Haversine(a, b Coord) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon

	return 2 * EarthRadiusM * math.Asin(math.Min(1, math.Sqrt(h)))
}

// DegreeDeltas converts a radius in meters at the given latitude into
// latitude/longitude degree deltas.
func DegreeDeltas(lat, radiusM float64) (dLat, dLon float64) {
	dLat = radiusM / MetersPerDegree
	cos := math.Cos(lat * math.Pi / 180)
	if cos < 1e-9 {
		cos = 1e-9
	}
	dLon = radiusM / (MetersPerDegree * cos)
	return dLat, dLon
}

// Midpoint returns the arithmetic midpoint of two coordinates. Adequate for the
// sub-kilometer segments of an urban road network.
func Midpoint(a, b Coord) Coord {
	return Coord{Lat: (a.Lat + b.Lat) / 2, Lon: (a.Lon + b.Lon) / 2}
}
