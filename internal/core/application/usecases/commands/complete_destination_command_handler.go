package commands

import (
	"context"

	"fulfillment/internal/core/domain/model/delivery"
	"fulfillment/internal/pkg/clock"
)

// CompleteDestinationCommandHandler records proof of delivery, rolls the request
// up and queues the DestinationCompleted callback in the same transaction.
//
// Example:
//
//	handler := NewCompleteDestinationCommandHandler(uowFactory, clock.System{})
//	cmd, _ := NewCompleteDestinationCommand(tripID, destinationID, driverID, proof)
//	if err := handler.Handle(ctx, cmd); err != nil {
//	    return err
//	}
//	// the callback is sent later by the delivery job
type CompleteDestinationCommandHandler struct {
	uowFactory UoWFactory
	clock      clock.Clock
}

// NewCompleteDestinationCommandHandler creates the handler. The clock stamps the
// completion and the queued callback.
func NewCompleteDestinationCommandHandler(uowFactory UoWFactory, clk clock.Clock) CompleteDestinationCommandHandler {
	return CompleteDestinationCommandHandler{
		uowFactory: uowFactory,
		clock:      clk,
	}
}

// Handle completes the stop on an in-progress trip driven by the caller.
//
// Returns:
//   - AccessDeniedError when another driver holds the trip
//   - InvalidStateError when the trip is not in progress or the stop is terminal
//   - ObjectNotFoundError for an unknown trip or stop
func (h CompleteDestinationCommandHandler) Handle(ctx context.Context, cmd CompleteDestinationCommand) error {
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
	if err = ensureTripInProgress(t, "complete"); err != nil {
		return err
	}

	now := h.clock.Now()
	proof := cmd.Proof()
	if err = request.CompleteDestination(cmd.DestinationID(), delivery.Completion{
		RecipientName: proof.RecipientName,
		Notes:         proof.Notes,
		SignatureRef:  proof.SignatureRef,
		PhotoRefs:     proof.PhotoRefs,
		CompletedAt:   now,
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
