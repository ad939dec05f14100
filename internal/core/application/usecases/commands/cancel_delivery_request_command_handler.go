package commands

import (
	"context"
	"errors"

	"fulfillment/internal/pkg/clock"
	"fulfillment/internal/pkg/errs"
)

// CancelDeliveryRequestCommandHandler cancels a request and its active trip.
// A request of another tenant is reported as not found.
type CancelDeliveryRequestCommandHandler struct {
	uowFactory UoWFactory
	clock      clock.Clock
}

func NewCancelDeliveryRequestCommandHandler(uowFactory UoWFactory, clk clock.Clock) CancelDeliveryRequestCommandHandler {
	return CancelDeliveryRequestCommandHandler{
		uowFactory: uowFactory,
		clock:      clk,
	}
}

// Handle cancels the request and, when one exists, its active trip in the same
// transaction. Cancelling twice is an InvalidStateError.
//
// Example:
//
//	cmd, _ := NewCancelDeliveryRequestCommand(tenantID, requestID)
//	err := handler.Handle(ctx, cmd)
//	if errors.Is(err, errs.ErrObjectNotFound) {
//	    // 404, also for a request of another tenant
//	}
func (h CancelDeliveryRequestCommandHandler) Handle(ctx context.Context, cmd CancelDeliveryRequestCommand) error {
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

	requestRepo := uow.DeliveryRequestRepository()
	tripRepo := uow.TripRepository()

	request, err := requestRepo.GetForUpdate(ctx, cmd.RequestID())
	if err != nil {
		return err
	}
	if !request.TenantID().IsEqual(cmd.TenantID()) {
		return errs.NewObjectNotFoundError("requestId", cmd.RequestID())
	}

	if err = request.Cancel(); err != nil {
		return err
	}

	active, err := tripRepo.GetActiveByRequest(ctx, request.ID())
	switch {
	case errors.Is(err, errs.ErrObjectNotFound):
	case err != nil:
		return err
	default:
		if err = active.Cancel(h.clock.Now()); err != nil {
			return err
		}
		if err = tripRepo.Update(ctx, active); err != nil {
			return err
		}
	}

	if err = requestRepo.Update(ctx, request); err != nil {
		return err
	}

	return uow.Commit(ctx)
}
