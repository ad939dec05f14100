package commands

import (
	"context"

	"fulfillment/internal/pkg/clock"
)

// StartTripCommandHandler moves a trip and its request to in progress.
type StartTripCommandHandler struct {
	uowFactory UoWFactory
	clock      clock.Clock
}

// NewStartTripCommandHandler creates the handler. The clock stamps the start.
func NewStartTripCommandHandler(uowFactory UoWFactory, clk clock.Clock) StartTripCommandHandler {
	return StartTripCommandHandler{
		uowFactory: uowFactory,
		clock:      clk,
	}
}

// Handle starts an assigned trip for its driver and moves the request to
// in progress in the same transaction.
//
// Returns:
//   - AccessDeniedError when another driver holds the trip
//   - InvalidStateError when the trip is not assigned
func (h StartTripCommandHandler) Handle(ctx context.Context, cmd StartTripCommand) error {
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

	if err = t.Start(request, cmd.Coordinates(), h.clock.Now()); err != nil {
		return err
	}

	if err = uow.TripRepository().Update(ctx, t); err != nil {
		return err
	}

	if err = uow.DeliveryRequestRepository().Update(ctx, request); err != nil {
		return err
	}

	return uow.Commit(ctx)
}
