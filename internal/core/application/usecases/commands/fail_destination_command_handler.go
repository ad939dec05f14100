package commands

import (
	"context"

	"fulfillment/internal/core/domain/model/delivery"
	"fulfillment/internal/pkg/clock"
)

// FailDestinationCommandHandler records a failed stop and queues the
// DestinationFailed callback.
type FailDestinationCommandHandler struct {
	uowFactory UoWFactory
	clock      clock.Clock
}

func NewFailDestinationCommandHandler(uowFactory UoWFactory, clk clock.Clock) FailDestinationCommandHandler {
	return FailDestinationCommandHandler{
		uowFactory: uowFactory,
		clock:      clk,
	}
}

// Handle fails the stop on an in-progress trip driven by the caller and queues
// its callback with the same commit. A failed stop stays failed.
func (h FailDestinationCommandHandler) Handle(ctx context.Context, cmd FailDestinationCommand) error {
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
	if err = ensureTripInProgress(t, "fail"); err != nil {
		return err
	}

	now := h.clock.Now()
	if err = request.FailDestination(cmd.DestinationID(), delivery.Failure{
		Reason:   cmd.Reason(),
		Notes:    cmd.Notes(),
		FailedAt: now,
	}); err != nil {
		return err
	}

	if err = uow.DeliveryRequestRepository().Update(ctx, request); err != nil {
		return err
	}

	if err = enqueueEvents(ctx, uow.CallbackRepository(), request.PullEvents(), now); err != nil {
		return err
	}

	return uow.Commit(ctx)
}
