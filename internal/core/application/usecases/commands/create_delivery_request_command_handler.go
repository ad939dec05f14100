package commands

import (
	"context"
	"errors"
	"fmt"

	"fulfillment/internal/core/domain/model/delivery"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/schema"
	"fulfillment/internal/pkg/clock"
	"fulfillment/internal/pkg/errs"
)

// CreateDeliveryRequestResult tells the caller which request holds the stops and
// whether it was created or an earlier submission was updated.
type CreateDeliveryRequestResult struct {
	RequestID kernel.UUID
	Created   bool
	Updated   int
}

// CreateDeliveryRequestCommandHandler maps tenant payloads into canonical
// destinations and stores them as one delivery request.
//
// Resubmitting stops whose external ids all belong to one earlier request
// updates that request's pending stops instead of creating a duplicate.
// A submission that overlaps some but not all of an earlier request is rejected.
type CreateDeliveryRequestCommandHandler struct {
	uowFactory UoWFactory
	clock      clock.Clock
}

func NewCreateDeliveryRequestCommandHandler(uowFactory UoWFactory, clk clock.Clock) CreateDeliveryRequestCommandHandler {
	return CreateDeliveryRequestCommandHandler{
		uowFactory: uowFactory,
		clock:      clk,
	}
}

// Handle creates a delivery request, or updates the one an earlier submission of
// the same external ids created.
//
// Parameters:
//   - ctx: request context
//   - cmd: validated tenant submission
//
// Returns:
//   - the request id, with Created set for a new request or Updated counting the
//     pending stops that changed on a resubmission
//   - ValidationError when the payload breaks the tenant's inbound schema or
//     overlaps more than one earlier request
//   - ConflictError when a concurrent submission keeps winning the insert
//
// A first submission that races another one for the same external ids loses on
// the unique index; it is retried once in a fresh transaction, where it finds the
// winner and takes the resubmission path.
//
// Example:
//
//	cmd, err := commands.NewCreateDeliveryRequestCommand(kernel.NewUUID(), tenantID, raw, details)
//	if err != nil {
//	    return err
//	}
//	result, err := handler.Handle(ctx, cmd)
//	if err != nil {
//	    return err
//	}
//	if result.Created {
//	    // 201
//	}
func (h CreateDeliveryRequestCommandHandler) Handle(
	ctx context.Context,
	cmd CreateDeliveryRequestCommand,
) (CreateDeliveryRequestResult, error) {
	if err := cmd.Validate(); err != nil {
		return CreateDeliveryRequestResult{}, err
	}

	result, err := h.submit(ctx, cmd)
	if errors.Is(err, errs.ErrConflict) {
		result, err = h.submit(ctx, cmd)
	}
	return result, err
}

func (h CreateDeliveryRequestCommandHandler) submit(
	ctx context.Context,
	cmd CreateDeliveryRequestCommand,
) (CreateDeliveryRequestResult, error) {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return CreateDeliveryRequestResult{}, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	tenant, err := uow.TenantRepository().Get(ctx, cmd.TenantID())
	if err != nil {
		return CreateDeliveryRequestResult{}, err
	}

	data, err := transformDestinations(cmd.Destinations(), tenant.InboundSchema())
	if err != nil {
		return CreateDeliveryRequestResult{}, err
	}

	externalIDs := make([]string, 0, len(data))
	for _, d := range data {
		externalIDs = append(externalIDs, d.ExternalID)
	}

	requestRepo := uow.DeliveryRequestRepository()
	existing, err := requestRepo.FindByExternalIDs(ctx, cmd.TenantID(), externalIDs)
	if err != nil {
		return CreateDeliveryRequestResult{}, err
	}

	var result CreateDeliveryRequestResult
	switch len(existing) {
	case 0:
		result, err = h.create(ctx, uow, cmd, data)
	case 1:
		result, err = h.resubmit(ctx, uow, existing[0].ID(), data)
	default:
		err = errs.NewValidationError(
			"external ids belong to more than one delivery request", string(schema.FieldExternalID),
		)
	}
	if err != nil {
		return CreateDeliveryRequestResult{}, err
	}

	if err = uow.Commit(ctx); err != nil {
		return CreateDeliveryRequestResult{}, err
	}

	return result, nil
}

func (h CreateDeliveryRequestCommandHandler) create(
	ctx context.Context,
	uow UoW,
	cmd CreateDeliveryRequestCommand,
	data []delivery.DestinationData,
) (CreateDeliveryRequestResult, error) {
	destinations := make([]*delivery.Destination, 0, len(data))
	for _, d := range data {
		dest, err := delivery.NewDestination(kernel.NewUUID(), d)
		if err != nil {
			return CreateDeliveryRequestResult{}, err
		}
		destinations = append(destinations, dest)
	}

	request, err := delivery.NewDeliveryRequest(
		cmd.RequestID(), cmd.TenantID(), cmd.Details(), destinations, h.clock.Now(),
	)
	if err != nil {
		return CreateDeliveryRequestResult{}, err
	}

	if err = uow.DeliveryRequestRepository().Add(ctx, request); err != nil {
		return CreateDeliveryRequestResult{}, err
	}

	return CreateDeliveryRequestResult{RequestID: request.ID(), Created: true}, nil
}

func (h CreateDeliveryRequestCommandHandler) resubmit(
	ctx context.Context,
	uow UoW,
	requestID kernel.UUID,
	data []delivery.DestinationData,
) (CreateDeliveryRequestResult, error) {
	requestRepo := uow.DeliveryRequestRepository()
	request, err := requestRepo.GetForUpdate(ctx, requestID)
	if err != nil {
		return CreateDeliveryRequestResult{}, err
	}

	changed, err := request.ReplacePendingDestinations(data)
	if err != nil {
		return CreateDeliveryRequestResult{}, err
	}
	if changed > 0 {
		if err = requestRepo.Update(ctx, request); err != nil {
			return CreateDeliveryRequestResult{}, err
		}
	}

	return CreateDeliveryRequestResult{RequestID: request.ID(), Updated: changed}, nil
}

// transformDestinations applies the inbound schema to every raw stop and
// reports the problems of all stops together.
func transformDestinations(raw []map[string]any, s schema.Schema) ([]delivery.DestinationData, error) {
	data := make([]delivery.DestinationData, 0, len(raw))
	var errList []error
	for i, item := range raw {
		rec := schema.TransformIncoming(item, s)
		d, err := delivery.DestinationDataFromRecord(rec)
		if err != nil {
			errList = append(errList, prefixFields(destinationField(i), err))
			continue
		}
		data = append(data, d)
	}
	if err := errors.Join(errList...); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(data))
	for _, d := range data {
		if _, ok := seen[d.ExternalID]; ok {
			return nil, errs.NewValidationError(
				fmt.Sprintf("external id %q is submitted twice", d.ExternalID), string(schema.FieldExternalID),
			)
		}
		seen[d.ExternalID] = struct{}{}
	}
	return data, nil
}

func destinationField(i int) string {
	return fmt.Sprintf("destinations[%d]", i)
}
