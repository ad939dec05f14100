package commands

import (
	"context"

	"fulfillment/internal/pkg/clock"
)

// ArriveDestinationCommandHandler records the driver's arrival at a stop.
// No callback is queued for arrivals.
//
// Example:
//
//	handler := NewArriveDestinationCommandHandler(uowFactory, clock.System{})
//	cmd, _ := NewArriveDestinationCommand(tripID, destinationID, driverID, &lat, &lng)
//	if err := handler.Handle(ctx, cmd); err != nil {
//	    return fmt.Errorf("arrive: %w", err)
//	}
type ArriveDestinationCommandHandler struct {
	uowFactory UoWFactory
	clock      clock.Clock
}

// NewArriveDestinationCommandHandler creates the handler. The clock stamps the arrival.
func NewArriveDestinationCommandHandler(uowFactory UoWFactory, clk clock.Clock) ArriveDestinationCommandHandler {
	return ArriveDestinationCommandHandler{
		uowFactory: uowFactory,
		clock:      clk,
	}
}

// Handle locks the request and the trip, checks that the caller drives the trip
// and that it is in progress, then marks the stop arrived.
//
// Returns:
//   - AccessDeniedError when another driver holds the trip
//   - InvalidStateError when the trip is not in progress or the stop is terminal
//   - ObjectNotFoundError for an unknown trip or a stop outside the request
func (h ArriveDestinationCommandHandler) Handle(ctx context.Context, cmd ArriveDestinationCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	t, request, err := lockDriverTrip(ctx, uow, cmd.TripID(), cmd.DriverID())
	if err != nil {
		return err
	}
	if err = ensureTripInProgress(t, "arrive at"); err != nil {
		return err
	}

	if err = request.ArriveDestination(cmd.DestinationID(), cmd.Coordinates(), h.clock.Now()); err != nil {
		return err
	}

	if err = uow.DeliveryRequestRepository().Update(ctx, request); err != nil {
		return err
	}

	return uow.Commit(ctx)
}
