package commands

import (
	"context"

	"fulfillment/internal/core/domain/model/callback"
	"fulfillment/internal/pkg/clock"
)

// RequeueCallbackCommandHandler resets a failed or skipped callback so the
// delivery job picks it up on its next tick.
//
// Example:
//
//	cmd, _ := NewRequeueCallbackCommand(callbackID)
//	cb, err := handler.Handle(ctx, cmd)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cb.Status(), cb.Attempts()) // pending 0
type RequeueCallbackCommandHandler struct {
	uowFactory CallbackUoWFactory
	clock      clock.Clock
}

func NewRequeueCallbackCommandHandler(uowFactory CallbackUoWFactory, clk clock.Clock) RequeueCallbackCommandHandler {
	return RequeueCallbackCommandHandler{
		uowFactory: uowFactory,
		clock:      clk,
	}
}

// Handle requeues the callback and returns it as saved. Pending, in-flight and
// delivered callbacks are an InvalidStateError.
func (h RequeueCallbackCommandHandler) Handle(ctx context.Context, cmd RequeueCallbackCommand) (*callback.Callback, error) {
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

	repo := uow.CallbackRepository()
	cb, err := repo.Get(ctx, cmd.CallbackID())
	if err != nil {
		return nil, err
	}

	if err = cb.Requeue(h.clock.Now()); err != nil {
		return nil, err
	}

	if err = repo.Update(ctx, cb); err != nil {
		return nil, err
	}

	if err = uow.Commit(ctx); err != nil {
		return nil, err
	}

	return cb, nil
}
