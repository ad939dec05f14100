package commands

import (
	"errors"
	"time"

	"fulfillment/internal/core/domain/model/delivery"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/pkg/errs"
	"fulfillment/internal/pkg/guard"
)

// ErrCreateDeliveryRequestCommandIsNotConstructed is returned by Validate on a zero-value command.
var ErrCreateDeliveryRequestCommandIsNotConstructed = errors.New(
	"CreateDeliveryRequestCommand must be created via NewCreateDeliveryRequestCommand constructor",
)

// CreateDeliveryRequestCommand submits a batch of stops in the tenant's own
// payload shape. Destinations stay raw until the handler applies the tenant's
// inbound schema.
//
// Example:
//
//	cmd, err := NewCreateDeliveryRequestCommand(kernel.NewUUID(), tenantID, raw, delivery.Details{})
//	if err != nil {
//	    return err
//	}
//	result, err := handler.Handle(ctx, cmd)
type CreateDeliveryRequestCommand struct { //nolint:recvcheck //using for validation
	requestID    kernel.UUID
	tenantID     kernel.UUID
	destinations []map[string]any
	details      delivery.Details

	guard guard.ConstructorGuard
}

// NewCreateDeliveryRequestCommand validates the ids and requires at least one
// destination. Destination contents are checked later against the tenant schema.
func NewCreateDeliveryRequestCommand(
	requestID, tenantID kernel.UUID,
	destinations []map[string]any,
	details delivery.Details,
) (CreateDeliveryRequestCommand, error) {
	cmd := CreateDeliveryRequestCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setRequestID(requestID),
		cmd.setTenantID(tenantID),
		cmd.setDestinations(destinations),
		cmd.setDetails(details),
	); err != nil {
		return CreateDeliveryRequestCommand{}, err
	}

	return cmd, nil
}

// Validate ensures the command was created through the constructor.
// Returns ErrCreateDeliveryRequestCommandIsNotConstructed if validation fails.
func (c CreateDeliveryRequestCommand) Validate() error {
	return c.guard.Validate(ErrCreateDeliveryRequestCommandIsNotConstructed)
}

// RequestID is the id used when the submission creates a new request.
func (c CreateDeliveryRequestCommand) RequestID() kernel.UUID {
	return c.requestID
}

// TenantID returns the submitting tenant.
func (c CreateDeliveryRequestCommand) TenantID() kernel.UUID {
	return c.tenantID
}

// Destinations returns the raw tenant payload of every stop.
func (c CreateDeliveryRequestCommand) Destinations() []map[string]any {
	return c.destinations
}

// Details returns the request level fields such as the callback override.
func (c CreateDeliveryRequestCommand) Details() delivery.Details {
	return c.details
}

func (c *CreateDeliveryRequestCommand) setRequestID(id kernel.UUID) error {
	if err := requireID("delivery_request_id", id); err != nil {
		return err
	}
	c.requestID = id
	return nil
}

func (c *CreateDeliveryRequestCommand) setTenantID(id kernel.UUID) error {
	if err := requireID("tenant_id", id); err != nil {
		return err
	}
	c.tenantID = id
	return nil
}

func (c *CreateDeliveryRequestCommand) setDestinations(destinations []map[string]any) error {
	if len(destinations) < delivery.MinDestinations || len(destinations) > delivery.MaxDestinations {
		return errs.NewValueIsOutOfRangeError(
			"destinations", len(destinations), delivery.MinDestinations, delivery.MaxDestinations,
		)
	}
	for i, d := range destinations {
		if d == nil {
			return errs.NewValidationError("destination is not an object", destinationField(i))
		}
	}
	c.destinations = destinations
	return nil
}

func (c *CreateDeliveryRequestCommand) setDetails(details delivery.Details) error {
	if details.CallbackURL != "" {
		if err := delivery.ValidateCallbackURL(details.CallbackURL); err != nil {
			return err
		}
	}
	if details.ScheduledDate != nil {
		day := details.ScheduledDate.UTC().Truncate(24 * time.Hour)
		details.ScheduledDate = &day
	}
	c.details = details
	return nil
}
