package commands

import (
	"context"
	"fmt"
	"time"

	"fulfillment/internal/core/domain/model/callback"
	"fulfillment/internal/core/domain/model/delivery"
	"fulfillment/internal/core/domain/model/event"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/trip"
	"fulfillment/internal/core/ports"
	"fulfillment/internal/pkg/errs"
)

// optionalCoordinates builds coordinates when both parts are given.
func optionalCoordinates(lat, lng *float64) (*kernel.Coordinates, error) {
	switch {
	case lat == nil && lng == nil:
		return nil, nil
	case lat == nil:
		return nil, errs.NewValueIsRequiredError("lat")
	case lng == nil:
		return nil, errs.NewValueIsRequiredError("lng")
	}

	coords, err := kernel.NewCoordinates(*lat, *lng)
	if err != nil {
		return nil, err
	}
	return &coords, nil
}

// enqueueEvents stores one pending callback per event.
func enqueueEvents(ctx context.Context, repo ports.CallbackRepository, events []event.Event, now time.Time) error {
	for _, ev := range events {
		cb, err := callback.NewCallback(kernel.NewUUID(), ev, now)
		if err != nil {
			return err
		}
		if err = repo.Add(ctx, cb); err != nil {
			return fmt.Errorf("enqueue %s callback: %w", ev.Type, err)
		}
	}
	return nil
}

// lockDriverTrip loads a trip and its request for a driver action. The request
// row is locked before the trip row so concurrent writers queue in one order.
func lockDriverTrip(ctx context.Context, uow UoW, tripID, driverID kernel.UUID) (*trip.Trip, *delivery.DeliveryRequest, error) {
	tripRepo := uow.TripRepository()
	requestRepo := uow.DeliveryRequestRepository()

	t, err := tripRepo.Get(ctx, tripID)
	if err != nil {
		return nil, nil, err
	}
	if err = t.EnsureDriver(driverID); err != nil {
		return nil, nil, err
	}

	request, err := requestRepo.GetForUpdate(ctx, t.RequestID())
	if err != nil {
		return nil, nil, err
	}
	t, err = tripRepo.GetForUpdate(ctx, tripID)
	if err != nil {
		return nil, nil, err
	}

	return t, request, nil
}

// ensureTripInProgress guards destination actions.
func ensureTripInProgress(t *trip.Trip, action string) error {
	if t.Status() != trip.StatusInProgress {
		return errs.NewInvalidStateError("destination on trip", t.ID().String(), t.Status().String(), action)
	}
	return nil
}

// prefixFields rewrites the field names carried by err as prefix.field so the
// caller can tell which submitted item was rejected.
func prefixFields(prefix string, err error) error {
	if err == nil {
		return nil
	}
	fields := errs.Fields(err)
	if len(fields) == 0 {
		fields = []string{""}
	}

	prefixed := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == "" {
			prefixed = append(prefixed, prefix)
			continue
		}
		prefixed = append(prefixed, prefix+"."+f)
	}
	return errs.NewValidationError(err.Error(), prefixed...)
}
