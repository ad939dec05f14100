package commands

import (
	"context"

	"fulfillment/internal/pkg/clock"
)

// CancelTripCommandHandler cancels a trip. The request keeps its status and can be
// assigned again.
type CancelTripCommandHandler struct {
	uowFactory UoWFactory
	clock      clock.Clock
}

func NewCancelTripCommandHandler(uowFactory UoWFactory, clk clock.Clock) CancelTripCommandHandler {
	return CancelTripCommandHandler{
		uowFactory: uowFactory,
		clock:      clk,
	}
}

// Handle locks the trip and cancels it. Finished trips are an InvalidStateError.
func (h CancelTripCommandHandler) Handle(ctx context.Context, cmd CancelTripCommand) error {
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

	tripRepo := uow.TripRepository()
	t, err := tripRepo.GetForUpdate(ctx, cmd.TripID())
	if err != nil {
		return err
	}

	if err = t.Cancel(h.clock.Now()); err != nil {
		return err
	}

	if err = tripRepo.Update(ctx, t); err != nil {
		return err
	}

	return uow.Commit(ctx)
}
