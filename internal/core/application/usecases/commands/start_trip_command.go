package commands

import (
	"errors"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/pkg/errs"
	"fulfillment/internal/pkg/guard"
)

// ErrStartTripCommandIsNotConstructed is returned by Validate on a zero-value command.
var ErrStartTripCommandIsNotConstructed = errors.New(
	"StartTripCommand must be created via NewStartTripCommand constructor",
)

// StartTripCommand is sent by the assigned driver when leaving for the first stop.
// Start coordinates are optional.
type StartTripCommand struct { //nolint:recvcheck //using for validation
	tripID   kernel.UUID
	driverID kernel.UUID
	coords   *kernel.Coordinates

	guard guard.ConstructorGuard
}

// NewStartTripCommand validates the ids and the optional start coordinates.
// Latitude and longitude must be given together.
func NewStartTripCommand(tripID, driverID kernel.UUID, lat, lng *float64) (StartTripCommand, error) {
	coords, coordsErr := optionalCoordinates(lat, lng)
	if err := errors.Join(
		requireID("trip_id", tripID),
		requireID("driver_id", driverID),
		coordsErr,
	); err != nil {
		return StartTripCommand{}, err
	}

	return StartTripCommand{
		tripID:   tripID,
		driverID: driverID,
		coords:   coords,
		guard:    guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the command was created through the constructor.
func (c StartTripCommand) Validate() error {
	return c.guard.Validate(ErrStartTripCommandIsNotConstructed)
}

// TripID returns the trip being started.
func (c StartTripCommand) TripID() kernel.UUID {
	return c.tripID
}

// DriverID returns the driver starting the trip. It must match the assigned driver.
func (c StartTripCommand) DriverID() kernel.UUID {
	return c.driverID
}

// Coordinates returns where the trip started, or nil.
func (c StartTripCommand) Coordinates() *kernel.Coordinates {
	return c.coords
}

func requireID(name string, id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return errs.NewValueIsRequiredErrorWithCause(name, err)
	}
	return nil
}
