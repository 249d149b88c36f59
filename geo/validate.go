// Package geo provides coordinate validation, forward/reverse geocoding with
// candidate disambiguation, and the per-session map context that supplies
// implicit locations to tools.
package geo

import (
	"fmt"
	"math"
)

// Coordinates is a validated latitude/longitude pair
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Point is a labeled map point as stored or rendered elsewhere. Records with
// malformed coordinates (NaN longitude and the like) must be filtered out
// before they reach rendering or geocoding logic.
type Point struct {
	ID    string  `json:"id,omitempty"`
	Label string  `json:"label,omitempty"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
}

// ValidationError is returned when a coordinate pair fails validation at a
// write boundary. Label identifies the offending field or record.
type ValidationError struct {
	Label string
	Lat   float64
	Lng   float64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid coordinates for %s: lat=%v lng=%v", e.Label, e.Lat, e.Lng)
}

// IsValidLatitude reports whether x is a finite latitude in [-90, 90]
func IsValidLatitude(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0) && x >= -90 && x <= 90
}

// IsValidLongitude reports whether x is a finite longitude in [-180, 180]
func IsValidLongitude(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0) && x >= -180 && x <= 180
}

// IsValidLatLng reports whether the pair is a valid coordinate
func IsValidLatLng(lat, lng float64) bool {
	return IsValidLatitude(lat) && IsValidLongitude(lng)
}

// AssertValidLatLng guards writes that store coordinates. It returns a
// *ValidationError carrying the label when the pair is invalid.
func AssertValidLatLng(lat, lng float64, label string) error {
	if !IsValidLatLng(lat, lng) {
		return &ValidationError{Label: label, Lat: lat, Lng: lng}
	}
	return nil
}

// FilterValidPoints returns the subset of points passing the pair check,
// preserving order. Filtering an already-filtered slice changes nothing.
func FilterValidPoints(points []Point) []Point {
	valid := make([]Point, 0, len(points))
	for _, p := range points {
		if IsValidLatLng(p.Lat, p.Lng) {
			valid = append(valid, p)
		}
	}
	return valid
}

// FormatCoordinates renders a coordinate pair for display when no human
// readable label is available.
func FormatCoordinates(lat, lng float64) string {
	return fmt.Sprintf("%.5f, %.5f", lat, lng)
}
