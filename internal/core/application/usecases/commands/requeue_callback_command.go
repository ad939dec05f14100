package commands

import (
	"errors"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/pkg/guard"
)

var ErrRequeueCallbackCommandIsNotConstructed = errors.New(
	"RequeueCallbackCommand must be created via NewRequeueCallbackCommand constructor",
)

// RequeueCallbackCommand gives a failed or skipped callback a fresh set of attempts.
type RequeueCallbackCommand struct { //nolint:recvcheck //using for validation
	callbackID kernel.UUID

	guard guard.ConstructorGuard
}

func NewRequeueCallbackCommand(callbackID kernel.UUID) (RequeueCallbackCommand, error) {
	if err := requireID("callback_id", callbackID); err != nil {
		return RequeueCallbackCommand{}, err
	}

	return RequeueCallbackCommand{
		callbackID: callbackID,
		guard:      guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the command was created through the constructor.
func (c RequeueCallbackCommand) Validate() error {
	return c.guard.Validate(ErrRequeueCallbackCommandIsNotConstructed)
}

// CallbackID returns the callback to requeue.
func (c RequeueCallbackCommand) CallbackID() kernel.UUID {
	return c.callbackID
}
