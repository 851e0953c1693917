// Package geo provides geographic primitives shared across the sync
// pipeline: coordinates, bounding boxes, GeoJSON geometries and
// great-circle distance calculations.
package geo

import (
	"fmt"

	"github.com/golang/geo/s2"
)

// EarthRadius is the mean Earth radius in meters.
const EarthRadius = 6371000.0

// Location represents a WGS84 coordinate pair in decimal degrees.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// BoundingBox represents a rectangular latitude/longitude region.
type BoundingBox struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// ValidateCoords validates latitude and longitude values.
// Returns an error if the coordinates are invalid.
func ValidateCoords(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("invalid latitude: %f (must be between -90 and 90)", lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("invalid longitude: %f (must be between -180 and 180)", lon)
	}
	return nil
}

// Validate checks that the box corners are valid coordinates and that
// the box has positive extent (south < north, west < east).
func (b BoundingBox) Validate() error {
	if err := ValidateCoords(b.South, b.West); err != nil {
		return err
	}
	if err := ValidateCoords(b.North, b.East); err != nil {
		return err
	}
	if b.South >= b.North {
		return fmt.Errorf("invalid bounding box: south (%f) must be less than north (%f)", b.South, b.North)
	}
	if b.West >= b.East {
		return fmt.Errorf("invalid bounding box: west (%f) must be less than east (%f)", b.West, b.East)
	}
	return nil
}

// Contains reports whether the location lies within the box.
func (b BoundingBox) Contains(loc Location) bool {
	return loc.Latitude >= b.South && loc.Latitude <= b.North &&
		loc.Longitude >= b.West && loc.Longitude <= b.East
}

// Distance calculates the great-circle distance in meters between two
// locations using spherical geometry.
func Distance(from, to Location) float64 {
	a := s2.LatLngFromDegrees(from.Latitude, from.Longitude)
	b := s2.LatLngFromDegrees(to.Latitude, to.Longitude)
	return a.Distance(b).Radians() * EarthRadius
}
