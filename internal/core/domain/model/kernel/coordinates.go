package kernel

import (
	"errors"
	"fmt"
	"math"

	"fulfillment/internal/pkg/errs"
	"fulfillment/internal/pkg/guard"
)

// Valid ranges of Coordinates components, in degrees.
const (
	LatitudeMin  = -90.0
	LatitudeMax  = 90.0
	LongitudeMin = -180.0
	LongitudeMax = 180.0

	earthRadiusKm = 6371.0
)

// ErrCoordinatesIsNotConstructed is returned when a zero-value Coordinates is used.
var ErrCoordinatesIsNotConstructed = errs.NewValueIsRequiredError(
	"coordinates must be created via NewCoordinates")

// Coordinates is a WGS84 latitude/longitude pair.
//
// Example:
//
//	c, err := kernel.NewCoordinates(31.95, 35.91)
//	if err != nil {
//	    // lat or lng out of range
//	}
type Coordinates struct { //nolint:recvcheck //using for validation
	lat   float64
	lng   float64
	guard guard.ConstructorGuard
}

// NewCoordinates validates both components and reports every violation at once.
func NewCoordinates(lat, lng float64) (Coordinates, error) {
	c := Coordinates{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(c.setLat(lat), c.setLng(lng)); err != nil {
		return Coordinates{}, err
	}

	return c, nil
}

// Validate reports ErrCoordinatesIsNotConstructed for the zero value.
func (c Coordinates) Validate() error {
	return c.guard.Validate(ErrCoordinatesIsNotConstructed)
}

func (c Coordinates) Lat() float64 {
	return c.lat
}

func (c Coordinates) Lng() float64 {
	return c.lng
}

// String formats the pair for logs with six decimals.
func (c Coordinates) String() string {
	return fmt.Sprintf("Coordinates(%.6f,%.6f)", c.lat, c.lng)
}

// IsEqual compares both components exactly.
func (c Coordinates) IsEqual(other Coordinates) bool {
	return c == other
}

// DistanceKm returns the great-circle (haversine) distance between two points.
func (c Coordinates) DistanceKm(other Coordinates) (float64, error) {
	if err := errors.Join(c.Validate(), other.Validate()); err != nil {
		return 0, err
	}

	lat1 := c.lat * math.Pi / 180
	lat2 := other.lat * math.Pi / 180
	dLat := lat2 - lat1
	dLng := (other.lng - c.lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h))), nil
}

func (c *Coordinates) setLat(lat float64) error {
	if math.IsNaN(lat) || lat < LatitudeMin || lat > LatitudeMax {
		return errs.NewValueIsOutOfRangeError("lat", lat, LatitudeMin, LatitudeMax)
	}

	c.lat = lat
	return nil
}

func (c *Coordinates) setLng(lng float64) error {
	if math.IsNaN(lng) || lng < LongitudeMin || lng > LongitudeMax {
		return errs.NewValueIsOutOfRangeError("lng", lng, LongitudeMin, LongitudeMax)
	}

	c.lng = lng
	return nil
}
