package commands

import (
	"errors"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/pkg/guard"
)

var ErrCancelTripCommandIsNotConstructed = errors.New(
	"CancelTripCommand must be created via NewCancelTripCommand constructor",
)

// CancelTripCommand abandons a trip so its request can be assigned again.
type CancelTripCommand struct { //nolint:recvcheck //using for validation
	tripID kernel.UUID

	guard guard.ConstructorGuard
}

func NewCancelTripCommand(tripID kernel.UUID) (CancelTripCommand, error) {
	if err := requireID("trip_id", tripID); err != nil {
		return CancelTripCommand{}, err
	}

	return CancelTripCommand{
		tripID: tripID,
		guard:  guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the command was created through the constructor.
func (c CancelTripCommand) Validate() error {
	return c.guard.Validate(ErrCancelTripCommandIsNotConstructed)
}

func (c CancelTripCommand) TripID() kernel.UUID {
	return c.tripID
}
