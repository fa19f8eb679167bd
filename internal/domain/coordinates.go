package domain

import "math"

// Immutable geographic coordinates (latitude, longitude).
type Coordinates struct {
	Lat float64
	Lng float64
}

// Round6 rounds both components to 6 decimal places so repeated geocoding
// of the same address yields an identical value for cache keying.
func (c Coordinates) Round6() Coordinates {
	return Coordinates{
		Lat: math.Round(c.Lat*1e6) / 1e6,
		Lng: math.Round(c.Lng*1e6) / 1e6,
	}
}
