package commands

import (
	"errors"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/pkg/errs"
	"fulfillment/internal/pkg/guard"
)

// MaxTripDistanceKm bounds the distance a driver may report for one trip.
const MaxTripDistanceKm = 1000.0

// ErrCompleteTripCommandIsNotConstructed is returned by Validate on a zero-value command.
var ErrCompleteTripCommandIsNotConstructed = errors.New(
	"CompleteTripCommand must be created via NewCompleteTripCommand constructor",
)

// CompleteTripCommand closes a trip with the distance the driver actually drove.
type CompleteTripCommand struct { //nolint:recvcheck //using for validation
	tripID   kernel.UUID
	driverID kernel.UUID
	totalKm  float64
	coords   *kernel.Coordinates

	guard guard.ConstructorGuard
}

// NewCompleteTripCommand requires total_km within 0..MaxTripDistanceKm and
// validates the ids and the optional end coordinates. All problems are returned joined.
func NewCompleteTripCommand(tripID, driverID kernel.UUID, totalKm *float64, lat, lng *float64) (CompleteTripCommand, error) {
	coords, coordsErr := optionalCoordinates(lat, lng)

	var kmErr error
	switch {
	case totalKm == nil:
		kmErr = errs.NewValueIsRequiredError("total_km")
	case *totalKm < 0 || *totalKm > MaxTripDistanceKm:
		kmErr = errs.NewValueIsOutOfRangeError("total_km", *totalKm, 0, MaxTripDistanceKm)
	}

	if err := errors.Join(
		requireID("trip_id", tripID),
		requireID("driver_id", driverID),
		kmErr,
		coordsErr,
	); err != nil {
		return CompleteTripCommand{}, err
	}

	return CompleteTripCommand{
		tripID:   tripID,
		driverID: driverID,
		totalKm:  *totalKm,
		coords:   coords,
		guard:    guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the command was created through the constructor.
func (c CompleteTripCommand) Validate() error {
	return c.guard.Validate(ErrCompleteTripCommandIsNotConstructed)
}

func (c CompleteTripCommand) TripID() kernel.UUID {
	return c.tripID
}

func (c CompleteTripCommand) DriverID() kernel.UUID {
	return c.driverID
}

// TotalKm returns the distance the driver reported, in kilometres.
func (c CompleteTripCommand) TotalKm() float64 {
	return c.totalKm
}

// Coordinates returns where the trip ended, or nil when not reported.
func (c CompleteTripCommand) Coordinates() *kernel.Coordinates {
	return c.coords
}
