// Package geo turns free-text addresses into canonical (address, lat, lng)
// tuples and measures distances between points.
package geo

import "math"

// AddressCandidate is one geocoder match. Never persisted.
type AddressCandidate struct {
	DisplayName string  `json:"display_name"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
}

// MinQueryRunes is the shortest query sent upstream.
const MinQueryRunes = 3

// ValidCoordinates reports whether lat/lng are finite and in range. (0, 0) is
// rejected as it is almost always an unset value.
func ValidCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return false
	}
	return lat != 0 || lng != 0
}
