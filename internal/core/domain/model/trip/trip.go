package trip

import (
	"errors"
	"fmt"
	"time"

	"fulfillment/internal/core/domain/model/delivery"
	"fulfillment/internal/core/domain/model/event"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/pkg/errs"
	"fulfillment/internal/pkg/guard"
)

// ErrTripIsNotConstructed is returned by Validate for a Trip built without NewTrip
// or RestoreTrip.
var ErrTripIsNotConstructed = errors.New("Trip must be created via NewTrip constructor")

// Timeline holds the moments a trip changed state.
type Timeline struct {
	AssignedAt  time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time
}

// Trip binds a driver and a vehicle to one DeliveryRequest. It references the
// request but does not own it.
type Trip struct {
	id                kernel.UUID
	requestID         kernel.UUID
	tenantID          kernel.UUID
	driverID          *kernel.UUID
	vehicleID         string
	status            Status
	plannedDistanceKm float64
	actualDistanceKm  *float64
	startCoords       *kernel.Coordinates
	endCoords         *kernel.Coordinates
	timeline          Timeline
	events            []event.Event
	guard             guard.ConstructorGuard
}

// NewTrip creates a not-started trip for request. Driver and vehicle are bound
// with AssignDriver.
//
// Parameters:
//   - id: identifier of the trip
//   - request: the request the trip serves; its id, tenant and planned route
//     distance are copied
//   - assignedAt: assignment time, the first entry of the timeline
//
// Example:
//
//	t, err := trip.NewTrip(kernel.NewUUID(), request, clock.Now())
//	if err != nil {
//	    return err
//	}
//	if err := t.AssignDriver(driverID, "VAN-7"); err != nil {
//	    return err
//	}
//	if err := request.Accept(); err != nil {
//	    return err
//	}
func NewTrip(id kernel.UUID, request *delivery.DeliveryRequest, assignedAt time.Time) (*Trip, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	t := &Trip{
		requestID:         request.ID(),
		tenantID:          request.TenantID(),
		status:            StatusNotStarted,
		plannedDistanceKm: request.PlannedDistanceKm(),
		timeline:          Timeline{AssignedAt: assignedAt},
		guard:             guard.NewConstructorGuard(),
	}
	if err := t.setID(id); err != nil {
		return nil, err
	}

	return t, nil
}

// RestoreTrip rebuilds a trip read back from storage without raising events.
//
// Parameters:
//   - id, requestID, tenantID: stored identifiers, all required
//   - driverID, vehicleID: bound driver and vehicle; nil and "" for a trip
//     persisted before assignment
//   - status: stored status, must be a known value
//   - plannedDistanceKm: straight-line route length computed at creation
//   - actualDistanceKm: distance the driver reported, nil until completion
//   - startCoords, endCoords: optional positions reported at start and completion
//   - timeline: stored state change times
//
// Example:
//
//	var driverID *kernel.UUID
//	if dto.DriverID != nil {
//	    id, err := kernel.UUIDFromBytes(dto.DriverID[:])
//	    if err != nil {
//	        return nil, err
//	    }
//	    driverID = &id
//	}
//	return trip.RestoreTrip(
//	    kernel.RestoreUUID(dto.ID), kernel.RestoreUUID(dto.RequestID), kernel.RestoreUUID(dto.TenantID),
//	    driverID, dto.VehicleID, status,
//	    dto.PlannedDistanceKm, dto.ActualDistanceKm,
//	    startCoords, endCoords,
//	    trip.Timeline{AssignedAt: dto.AssignedAt, StartedAt: dto.StartedAt},
//	)
func RestoreTrip(
	id, requestID, tenantID kernel.UUID,
	driverID *kernel.UUID,
	vehicleID string,
	status Status,
	plannedDistanceKm float64,
	actualDistanceKm *float64,
	startCoords, endCoords *kernel.Coordinates,
	timeline Timeline,
) (*Trip, error) {
	t := &Trip{
		driverID:          driverID,
		vehicleID:         vehicleID,
		plannedDistanceKm: plannedDistanceKm,
		actualDistanceKm:  actualDistanceKm,
		startCoords:       startCoords,
		endCoords:         endCoords,
		timeline:          timeline,
		guard:             guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		t.setID(id),
		requestID.Validate(),
		tenantID.Validate(),
		status.Validate(),
	); err != nil {
		return nil, err
	}

	t.requestID = requestID
	t.tenantID = tenantID
	t.status = status
	return t, nil
}

// Validate reports ErrTripIsNotConstructed for a nil or zero-value trip.
func (t *Trip) Validate() error {
	if t == nil {
		return ErrTripIsNotConstructed
	}
	return t.guard.Validate(ErrTripIsNotConstructed)
}

func (t *Trip) ID() kernel.UUID {
	return t.id
}

// RequestID returns the delivery request the trip serves.
func (t *Trip) RequestID() kernel.UUID {
	return t.requestID
}

func (t *Trip) TenantID() kernel.UUID {
	return t.tenantID
}

// DriverID returns the bound driver, nil before assignment.
func (t *Trip) DriverID() *kernel.UUID {
	return t.driverID
}

// VehicleID returns the bound vehicle, "" before assignment.
func (t *Trip) VehicleID() string {
	return t.vehicleID
}

func (t *Trip) Status() Status {
	return t.status
}

// PlannedDistanceKm returns the straight-line route length through every stop,
// computed when the trip was created.
func (t *Trip) PlannedDistanceKm() float64 {
	return t.plannedDistanceKm
}

// ActualDistanceKm returns the distance reported at completion, nil before that.
func (t *Trip) ActualDistanceKm() *float64 {
	return t.actualDistanceKm
}

func (t *Trip) StartCoordinates() *kernel.Coordinates {
	return t.startCoords
}

func (t *Trip) EndCoordinates() *kernel.Coordinates {
	return t.endCoords
}

// Timeline returns when the trip was assigned, started, completed or cancelled.
func (t *Trip) Timeline() Timeline {
	return t.timeline
}

// IsDrivenBy reports whether driverID is the bound driver.
func (t *Trip) IsDrivenBy(driverID kernel.UUID) bool {
	return t.driverID != nil && t.driverID.IsEqual(driverID)
}

// EnsureDriver returns an AccessDeniedError unless driverID is the bound driver.
func (t *Trip) EnsureDriver(driverID kernel.UUID) error {
	if !t.IsDrivenBy(driverID) {
		return errs.NewAccessDeniedError("driver "+driverID.String(), "trip "+t.id.String())
	}
	return nil
}

// AssignDriver binds a driver and vehicle. Only allowed before the trip starts.
func (t *Trip) AssignDriver(driverID kernel.UUID, vehicleID string) error {
	if t.status != StatusNotStarted {
		return t.stateError("assign a driver to")
	}

	var errList []error
	if err := driverID.Validate(); err != nil {
		errList = append(errList, errs.NewValueIsRequiredErrorWithCause("driver_id", err))
	}
	if vehicleID == "" {
		errList = append(errList, errs.NewValueIsRequiredError("vehicle_id"))
	}
	if err := errors.Join(errList...); err != nil {
		return err
	}

	t.driverID = &driverID
	t.vehicleID = vehicleID
	return nil
}

// Start begins the trip and moves its request to in progress.
func (t *Trip) Start(request *delivery.DeliveryRequest, coords *kernel.Coordinates, at time.Time) error {
	if err := t.checkRequest(request); err != nil {
		return err
	}
	next, err := t.status.Start()
	if err != nil {
		return t.stateError("start")
	}
	if t.driverID == nil || t.vehicleID == "" {
		return errs.NewInvalidStateError("trip", t.id.String(), "without driver or vehicle", "start")
	}
	if err := request.Start(); err != nil {
		return err
	}

	t.status = next
	t.startCoords = coords
	t.timeline.StartedAt = &at
	return nil
}

// Complete closes the trip once every destination of request is terminal and
// raises TripCompleted for the reconciliation callback.
func (t *Trip) Complete(request *delivery.DeliveryRequest, totalKm float64, coords *kernel.Coordinates, at time.Time) error {
	if err := t.checkRequest(request); err != nil {
		return err
	}
	if totalKm < 0 {
		return errs.NewValueIsInvalidErrorWithCause("total_km", fmt.Errorf("%v is negative", totalKm))
	}
	next, err := t.status.Complete()
	if err != nil {
		return t.stateError("complete")
	}
	if !request.AllDestinationsTerminal() {
		return errs.NewInvalidStateError("trip", t.id.String(), "with non-terminal destinations", "complete")
	}
	if err := request.RecordDistance(totalKm); err != nil {
		return err
	}

	t.status = next
	t.actualDistanceKm = &totalKm
	t.endCoords = coords
	t.timeline.CompletedAt = &at
	t.events = append(t.events, event.New(event.TripCompleted, t.tenantID, t.requestID, t.id, at))
	return nil
}

// Cancel abandons a trip that has not finished. The request keeps its status and
// may be assigned to a new trip.
func (t *Trip) Cancel(at time.Time) error {
	next, err := t.status.Cancel()
	if err != nil {
		return t.stateError("cancel")
	}

	t.status = next
	t.timeline.CancelledAt = &at
	return nil
}

// PullEvents returns the events raised since the last call and forgets them.
func (t *Trip) PullEvents() []event.Event {
	events := t.events
	t.events = nil
	return events
}

func (t *Trip) checkRequest(request *delivery.DeliveryRequest) error {
	if err := request.Validate(); err != nil {
		return err
	}
	if !request.ID().IsEqual(t.requestID) {
		return errs.NewValueIsInvalidErrorWithCause("delivery_request_id",
			fmt.Errorf("trip %s belongs to request %s, not %s", t.id, t.requestID, request.ID()))
	}
	return nil
}

func (t *Trip) stateError(action string) error {
	return errs.NewInvalidStateError("trip", t.id.String(), t.status.String(), action)
}

func (t *Trip) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	t.id = id
	return nil
}
