package commands

import (
	"errors"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/pkg/guard"
)

// ErrCompleteDestinationCommandIsNotConstructed is returned by Validate on a zero-value command.
var ErrCompleteDestinationCommandIsNotConstructed = errors.New(
	"CompleteDestinationCommand must be created via NewCompleteDestinationCommand constructor",
)

// ProofOfDelivery is what the driver collected at a completed stop.
type ProofOfDelivery struct {
	RecipientName string
	Notes         string
	SignatureRef  string
	PhotoRefs     []string
}

// CompleteDestinationCommand records a delivered stop. Proof fields are stored as
// given; an empty proof is allowed.
//
// Example:
//
//	cmd, err := NewCompleteDestinationCommand(tripID, destinationID, driverID, ProofOfDelivery{
//	    RecipientName: "R. Haddad",
//	    PhotoRefs:     []string{"s3://pod/123.jpg"},
//	})
//	if err != nil {
//	    return err
//	}
//	if err := handler.Handle(ctx, cmd); err != nil {
//	    return fmt.Errorf("complete stop: %w", err)
//	}
type CompleteDestinationCommand struct { //nolint:recvcheck //using for validation
	tripID        kernel.UUID
	destinationID kernel.UUID
	driverID      kernel.UUID
	proof         ProofOfDelivery

	guard guard.ConstructorGuard
}

// NewCompleteDestinationCommand validates the trip, destination and driver ids.
func NewCompleteDestinationCommand(
	tripID, destinationID, driverID kernel.UUID,
	proof ProofOfDelivery,
) (CompleteDestinationCommand, error) {
	if err := errors.Join(
		requireID("trip_id", tripID),
		requireID("destination_id", destinationID),
		requireID("driver_id", driverID),
	); err != nil {
		return CompleteDestinationCommand{}, err
	}

	return CompleteDestinationCommand{
		tripID:        tripID,
		destinationID: destinationID,
		driverID:      driverID,
		proof:         proof,
		guard:         guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the command was created through the constructor.
// Returns ErrCompleteDestinationCommandIsNotConstructed if validation fails.
func (c CompleteDestinationCommand) Validate() error {
	return c.guard.Validate(ErrCompleteDestinationCommandIsNotConstructed)
}

// TripID returns the trip the stop belongs to.
func (c CompleteDestinationCommand) TripID() kernel.UUID {
	return c.tripID
}

// DestinationID returns the delivered stop.
func (c CompleteDestinationCommand) DestinationID() kernel.UUID {
	return c.destinationID
}

// DriverID returns the driver reporting the delivery.
func (c CompleteDestinationCommand) DriverID() kernel.UUID {
	return c.driverID
}

// Proof returns the proof of delivery collected at the door.
func (c CompleteDestinationCommand) Proof() ProofOfDelivery {
	return c.proof
}
