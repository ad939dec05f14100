package commands

import (
	"errors"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/pkg/guard"
)

// ErrCancelDeliveryRequestCommandIsNotConstructed is returned by Validate on a zero-value command.
var ErrCancelDeliveryRequestCommandIsNotConstructed = errors.New(
	"CancelDeliveryRequestCommand must be created via NewCancelDeliveryRequestCommand constructor",
)

// CancelDeliveryRequestCommand is issued by the tenant that owns the request.
type CancelDeliveryRequestCommand struct { //nolint:recvcheck //using for validation
	tenantID  kernel.UUID
	requestID kernel.UUID

	guard guard.ConstructorGuard
}

func NewCancelDeliveryRequestCommand(tenantID, requestID kernel.UUID) (CancelDeliveryRequestCommand, error) {
	if err := errors.Join(
		requireID("tenant_id", tenantID),
		requireID("delivery_request_id", requestID),
	); err != nil {
		return CancelDeliveryRequestCommand{}, err
	}

	return CancelDeliveryRequestCommand{
		tenantID:  tenantID,
		requestID: requestID,
		guard:     guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the command was created through the constructor.
func (c CancelDeliveryRequestCommand) Validate() error {
	return c.guard.Validate(ErrCancelDeliveryRequestCommandIsNotConstructed)
}

// TenantID returns the caller's tenant. Requests of other tenants are reported as not found.
func (c CancelDeliveryRequestCommand) TenantID() kernel.UUID {
	return c.tenantID
}

func (c CancelDeliveryRequestCommand) RequestID() kernel.UUID {
	return c.requestID
}
