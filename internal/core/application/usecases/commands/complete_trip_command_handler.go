package commands

import (
	"context"

	"fulfillment/internal/pkg/clock"
)

// CompleteTripCommandHandler closes a trip once every stop is terminal and
// queues the reconciliation callback.
type CompleteTripCommandHandler struct {
	uowFactory UoWFactory
	clock      clock.Clock
}

func NewCompleteTripCommandHandler(uowFactory UoWFactory, clk clock.Clock) CompleteTripCommandHandler {
	return CompleteTripCommandHandler{
		uowFactory: uowFactory,
		clock:      clk,
	}
}

// Handle completes the trip and records the reported distance on the request.
// The TripCompleted callback is queued with the same commit.
//
// Returns:
//   - AccessDeniedError when another driver holds the trip
//   - InvalidStateError when the trip is not in progress or a stop is still open
func (h CompleteTripCommandHandler) Handle(ctx context.Context, cmd CompleteTripCommand) error {
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

	now := h.clock.Now()
	if err = t.Complete(request, cmd.TotalKm(), cmd.Coordinates(), now); err != nil {
		return err
	}

	if err = uow.TripRepository().Update(ctx, t); err != nil {
		return err
	}

	if err = uow.DeliveryRequestRepository().Update(ctx, request); err != nil {
		return err
	}

	if err = enqueueEvents(ctx, uow.CallbackRepository(), t.PullEvents(), now); err != nil {
		return err
	}

	return uow.Commit(ctx)
}
