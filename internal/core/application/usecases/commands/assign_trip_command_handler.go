package commands

import (
	"context"
	"errors"

	"fulfillment/internal/core/domain/model/trip"
	"fulfillment/internal/core/domain/services"
	"fulfillment/internal/pkg/clock"
	"fulfillment/internal/pkg/errs"
)

// AssignTripCommandHandler creates the trip for a request through TripDispatcher
// and stores both in one transaction.
//
// Example:
//
//	handler := NewAssignTripCommandHandler(uowFactory, clock.System{})
//	cmd, _ := NewAssignTripCommand(kernel.NewUUID(), requestID, driverID, "VAN-7")
//	t, err := handler.Handle(ctx, cmd)
//	if errors.Is(err, services.ErrRequestAlreadyAssigned) {
//	    // the running trip has to be cancelled first
//	}
type AssignTripCommandHandler struct {
	uowFactory UoWFactory
	clock      clock.Clock
}

// NewAssignTripCommandHandler creates the handler. The clock stamps the assignment.
func NewAssignTripCommandHandler(uowFactory UoWFactory, clk clock.Clock) AssignTripCommandHandler {
	return AssignTripCommandHandler{
		uowFactory: uowFactory,
		clock:      clk,
	}
}

// Handle locks the request, looks up its active trip and lets TripDispatcher
// create the new one. The trip is added and the request moved to assigned in one
// transaction.
//
// Parameters:
//   - ctx: request context
//   - cmd: validated assignment
//
// Returns:
//   - the assigned trip
//   - services.ErrRequestAlreadyAssigned when another trip is still active
//   - InvalidStateError when the request is cancelled or finished
//   - ObjectNotFoundError for an unknown request
func (h AssignTripCommandHandler) Handle(ctx context.Context, cmd AssignTripCommand) (*trip.Trip, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	requestRepo := uow.DeliveryRequestRepository()
	tripRepo := uow.TripRepository()

	request, err := requestRepo.GetForUpdate(ctx, cmd.RequestID())
	if err != nil {
		return nil, err
	}

	active, err := tripRepo.GetActiveByRequest(ctx, request.ID())
	if err != nil && !errors.Is(err, errs.ErrObjectNotFound) {
		return nil, err
	}

	t, err := services.NewTripDispatcher().Dispatch(
		cmd.TripID(), request, active, cmd.DriverID(), cmd.VehicleID(), h.clock.Now(),
	)
	if err != nil {
		return nil, err
	}

	if err = tripRepo.Add(ctx, t); err != nil {
		return nil, err
	}

	if err = requestRepo.Update(ctx, request); err != nil {
		return nil, err
	}

	if err = uow.Commit(ctx); err != nil {
		return nil, err
	}

	return t, nil
}
