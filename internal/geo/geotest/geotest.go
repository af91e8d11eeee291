// Package geotest provides helpers for placing test points at known distances.
package geotest

import (
	"math"

	"attendance-tracker/backend/internal/geo"
)

// OffsetNorth returns the coordinate reached by moving meters along c's meridian.
// Negative meters move south.
func OffsetNorth(c geo.Coordinate, meters float64) geo.Coordinate {
	return geo.Coordinate{
		Latitude:  c.Latitude + (meters/geo.EarthRadiusMeters)*180/math.Pi,
		Longitude: c.Longitude,
	}
}
