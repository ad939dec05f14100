package services

import (
	"fmt"
	"time"

	"fulfillment/internal/core/domain/model/delivery"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/trip"
	"fulfillment/internal/pkg/errs"
)

// ErrRequestAlreadyAssigned is returned when the request still has an active trip.
var ErrRequestAlreadyAssigned = fmt.Errorf("%w: delivery request already has an active trip", errs.ErrInvalidState)

// TripDispatcher creates the trip that carries out a delivery request.
//
// Business rules:
//   - the request must not be completed or cancelled
//   - a request has at most one active (not started or in progress) trip
//   - the trip gets its driver and vehicle before the request is accepted
//
// Example usage:
//
//	dispatcher := services.NewTripDispatcher()
//	t, err := dispatcher.Dispatch(kernel.NewUUID(), request, activeTrip, driverID, "VAN-7", now)
//	if errors.Is(err, services.ErrRequestAlreadyAssigned) {
//	    // cancel the running trip first
//	}
type TripDispatcher struct{}

func NewTripDispatcher() TripDispatcher {
	return TripDispatcher{}
}

// Dispatch creates a trip for request and accepts the request. active is the
// request's current trip, or nil.
func (d TripDispatcher) Dispatch(
	id kernel.UUID,
	request *delivery.DeliveryRequest,
	active *trip.Trip,
	driverID kernel.UUID,
	vehicleID string,
	at time.Time,
) (*trip.Trip, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}
	if request.Status().IsFinal() {
		return nil, errs.NewInvalidStateError("delivery request", request.ID().String(), request.Status().String(), "assign")
	}
	if active != nil && active.Status().IsActive() {
		return nil, ErrRequestAlreadyAssigned
	}

	t, err := trip.NewTrip(id, request, at)
	if err != nil {
		return nil, err
	}
	if err = t.AssignDriver(driverID, vehicleID); err != nil {
		return nil, err
	}
	if err = request.Accept(); err != nil {
		return nil, err
	}

	return t, nil
}
