package commands

import (
	"errors"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/pkg/guard"
)

// ErrArriveDestinationCommandIsNotConstructed is returned by Validate on a zero-value command.
var ErrArriveDestinationCommandIsNotConstructed = errors.New(
	"ArriveDestinationCommand must be created via NewArriveDestinationCommand constructor",
)

// ArriveDestinationCommand records that the driver reached a stop. Sending it
// again while the stop is arrived updates the arrival record.
type ArriveDestinationCommand struct { //nolint:recvcheck //using for validation
	tripID        kernel.UUID
	destinationID kernel.UUID
	driverID      kernel.UUID
	coords        *kernel.Coordinates

	guard guard.ConstructorGuard
}

// NewArriveDestinationCommand validates every id and the optional coordinates.
// All problems are returned joined so the caller can report each field.
func NewArriveDestinationCommand(
	tripID, destinationID, driverID kernel.UUID,
	lat, lng *float64,
) (ArriveDestinationCommand, error) {
	coords, coordsErr := optionalCoordinates(lat, lng)
	if err := errors.Join(
		requireID("trip_id", tripID),
		requireID("destination_id", destinationID),
		requireID("driver_id", driverID),
		coordsErr,
	); err != nil {
		return ArriveDestinationCommand{}, err
	}

	return ArriveDestinationCommand{
		tripID:        tripID,
		destinationID: destinationID,
		driverID:      driverID,
		coords:        coords,
		guard:         guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the command was created through the constructor.
func (c ArriveDestinationCommand) Validate() error {
	return c.guard.Validate(ErrArriveDestinationCommandIsNotConstructed)
}

// TripID returns the trip the stop belongs to.
func (c ArriveDestinationCommand) TripID() kernel.UUID {
	return c.tripID
}

// DestinationID returns the stop the driver reached.
func (c ArriveDestinationCommand) DestinationID() kernel.UUID {
	return c.destinationID
}

// DriverID returns the driver reporting the arrival.
func (c ArriveDestinationCommand) DriverID() kernel.UUID {
	return c.driverID
}

// Coordinates returns where the driver reported from, or nil.
func (c ArriveDestinationCommand) Coordinates() *kernel.Coordinates {
	return c.coords
}
