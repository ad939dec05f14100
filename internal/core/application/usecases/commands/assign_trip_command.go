package commands

import (
	"errors"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/pkg/errs"
	"fulfillment/internal/pkg/guard"
)

// ErrAssignTripCommandIsNotConstructed is returned by Validate on a zero-value command.
var ErrAssignTripCommandIsNotConstructed = errors.New(
	"AssignTripCommand must be created via NewAssignTripCommand constructor",
)

// AssignTripCommand binds a driver and vehicle to a delivery request.
//
// Example:
//
//	cmd, err := NewAssignTripCommand(kernel.NewUUID(), requestID, driverID, "VAN-7")
//	if err != nil {
//	    return fmt.Errorf("invalid assignment: %w", err)
//	}
//
//	handler := NewAssignTripCommandHandler(uowFactory, clock.System{})
//	trip, err := handler.Handle(ctx, cmd)
//	if err != nil {
//	    return fmt.Errorf("assign trip: %w", err)
//	}
type AssignTripCommand struct { //nolint:recvcheck //using for validation
	tripID    kernel.UUID
	requestID kernel.UUID
	driverID  kernel.UUID
	vehicleID string

	guard guard.ConstructorGuard
}

// NewAssignTripCommand validates the trip, request and driver ids and requires a
// vehicle. Every problem is returned joined.
func NewAssignTripCommand(tripID, requestID, driverID kernel.UUID, vehicleID string) (AssignTripCommand, error) {
	var vehicleErr error
	if vehicleID == "" {
		vehicleErr = errs.NewValueIsRequiredError("vehicle_id")
	}
	if err := errors.Join(
		requireID("trip_id", tripID),
		requireID("delivery_request_id", requestID),
		requireID("driver_id", driverID),
		vehicleErr,
	); err != nil {
		return AssignTripCommand{}, err
	}

	return AssignTripCommand{
		tripID:    tripID,
		requestID: requestID,
		driverID:  driverID,
		vehicleID: vehicleID,
		guard:     guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the command was created through the constructor.
// Returns ErrAssignTripCommandIsNotConstructed if validation fails.
func (c AssignTripCommand) Validate() error {
	return c.guard.Validate(ErrAssignTripCommandIsNotConstructed)
}

// TripID returns the id the new trip is created with.
func (c AssignTripCommand) TripID() kernel.UUID {
	return c.tripID
}

// RequestID returns the delivery request being dispatched.
func (c AssignTripCommand) RequestID() kernel.UUID {
	return c.requestID
}

// DriverID returns the driver taking the trip.
func (c AssignTripCommand) DriverID() kernel.UUID {
	return c.driverID
}

// VehicleID returns the fleet identifier of the vehicle.
func (c AssignTripCommand) VehicleID() string {
	return c.vehicleID
}
