package commands

import (
	"errors"

	"fulfillment/internal/core/domain/model/delivery"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/pkg/guard"
)

// ErrFailDestinationCommandIsNotConstructed is returned by Validate on a zero-value command.
var ErrFailDestinationCommandIsNotConstructed = errors.New(
	"FailDestinationCommand must be created via NewFailDestinationCommand constructor",
)

// FailDestinationCommand records a stop that could not be delivered. The reason
// must be one of delivery.FailureReasons.
type FailDestinationCommand struct { //nolint:recvcheck //using for validation
	tripID        kernel.UUID
	destinationID kernel.UUID
	driverID      kernel.UUID
	reason        delivery.FailureReason
	notes         string

	guard guard.ConstructorGuard
}

// NewFailDestinationCommand validates the ids and parses reason. Notes are free text.
func NewFailDestinationCommand(
	tripID, destinationID, driverID kernel.UUID,
	reason, notes string,
) (FailDestinationCommand, error) {
	parsed, reasonErr := delivery.ParseFailureReason(reason)
	if err := errors.Join(
		requireID("trip_id", tripID),
		requireID("destination_id", destinationID),
		requireID("driver_id", driverID),
		reasonErr,
	); err != nil {
		return FailDestinationCommand{}, err
	}

	return FailDestinationCommand{
		tripID:        tripID,
		destinationID: destinationID,
		driverID:      driverID,
		reason:        parsed,
		notes:         notes,
		guard:         guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the command was created through the constructor.
func (c FailDestinationCommand) Validate() error {
	return c.guard.Validate(ErrFailDestinationCommandIsNotConstructed)
}

// TripID returns the trip the stop belongs to.
func (c FailDestinationCommand) TripID() kernel.UUID {
	return c.tripID
}

// DestinationID returns the stop that could not be delivered.
func (c FailDestinationCommand) DestinationID() kernel.UUID {
	return c.destinationID
}

// DriverID returns the driver reporting the failure.
func (c FailDestinationCommand) DriverID() kernel.UUID {
	return c.driverID
}

// Reason returns the parsed failure reason.
func (c FailDestinationCommand) Reason() delivery.FailureReason {
	return c.reason
}

// Notes returns the driver's remarks, possibly empty.
func (c FailDestinationCommand) Notes() string {
	return c.notes
}
