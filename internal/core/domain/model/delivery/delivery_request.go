package delivery

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"fulfillment/internal/core/domain/model/event"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/schema"
	"fulfillment/internal/pkg/errs"
	"fulfillment/internal/pkg/guard"
)

// Bounds on the number of stops one delivery request carries.
const (
	MinDestinations = 1
	MaxDestinations = 25
)

// ErrDeliveryRequestIsNotConstructed is returned by Validate for a DeliveryRequest
// that was not built by NewDeliveryRequest or RestoreDeliveryRequest.
var ErrDeliveryRequestIsNotConstructed = errors.New("DeliveryRequest must be created via NewDeliveryRequest constructor")

// Details are the request-level attributes supplied at submission.
type Details struct {
	ScheduledDate *time.Time
	Notes         string
	// CallbackURL overrides the tenant callback URL for this request only.
	CallbackURL string
}

// DeliveryRequest is the aggregate root for one tenant submission. It owns its
// destinations and derives its completion from theirs.
//
// Invariants:
//   - between MinDestinations and MaxDestinations stops with distinct external ids
//   - status only moves forward, except for explicit cancellation
//   - completed only once every destination is terminal
type DeliveryRequest struct {
	id              kernel.UUID
	tenantID        kernel.UUID
	status          Status
	details         Details
	totalDistanceKm *float64
	destinations    []*Destination
	createdAt       time.Time
	events          []event.Event
	guard           guard.ConstructorGuard
}

// NewDeliveryRequest creates a pending request for one tenant submission.
//
// Parameters:
//   - id: identifier of the new request
//   - tenantID: owner of the request, must be set
//   - details: request level attributes; a CallbackURL, when present, must be an
//     absolute http(s) URL
//   - destinations: stops in submission order, between MinDestinations and
//     MaxDestinations with distinct external ids
//   - createdAt: submission time
//
// Returns every problem found, joined, so a caller can report them together.
//
// Example:
//
//	stop, err := delivery.NewDestination(kernel.NewUUID(), delivery.DestinationData{
//	    ExternalID:  "MELO-001",
//	    Address:     "Rainbow St 12, Amman",
//	    Coordinates: coords,
//	})
//	if err != nil {
//	    return err
//	}
//	request, err := delivery.NewDeliveryRequest(
//	    kernel.NewUUID(), tenantID, delivery.Details{Notes: "call before arrival"},
//	    []*delivery.Destination{stop}, clock.Now(),
//	)
func NewDeliveryRequest(
	id, tenantID kernel.UUID,
	details Details,
	destinations []*Destination,
	createdAt time.Time,
) (*DeliveryRequest, error) {
	r := &DeliveryRequest{
		status:    StatusPending,
		createdAt: createdAt,
		guard:     guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		r.setID(id),
		r.setTenantID(tenantID),
		r.setDetails(details),
		r.setDestinations(destinations),
	); err != nil {
		return nil, err
	}

	return r, nil
}

// RestoreDeliveryRequest rebuilds a request read back from storage. It checks the
// identifiers, the status and the stop set, but raises no events and skips the
// callback URL check so rows written under older rules still load.
//
// Parameters:
//   - id, tenantID: stored identifiers
//   - status: stored status, must be a known value
//   - details: stored request attributes
//   - totalDistanceKm: distance reported at trip completion, nil until then
//   - destinations: stops restored with RestoreDestination, in submission order
//   - createdAt: original submission time
//
// Example:
//
//	destinations := make([]*delivery.Destination, 0, len(dto.Destinations))
//	for _, d := range dto.Destinations {
//	    dest, err := destinationToDomain(d)
//	    if err != nil {
//	        return nil, err
//	    }
//	    destinations = append(destinations, dest)
//	}
//	return delivery.RestoreDeliveryRequest(
//	    kernel.RestoreUUID(dto.ID), kernel.RestoreUUID(dto.TenantID), status,
//	    details, dto.TotalDistanceKm, destinations, dto.CreatedAt,
//	)
func RestoreDeliveryRequest(
	id, tenantID kernel.UUID,
	status Status,
	details Details,
	totalDistanceKm *float64,
	destinations []*Destination,
	createdAt time.Time,
) (*DeliveryRequest, error) {
	r := &DeliveryRequest{
		createdAt:       createdAt,
		totalDistanceKm: totalDistanceKm,
		guard:           guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		r.setID(id),
		r.setTenantID(tenantID),
		status.Validate(),
		r.setDestinations(destinations),
	); err != nil {
		return nil, err
	}

	r.status = status
	r.details = details
	return r, nil
}

// Validate reports ErrDeliveryRequestIsNotConstructed for a nil or zero-value request.
// Repositories call it before writing.
func (r *DeliveryRequest) Validate() error {
	if r == nil {
		return ErrDeliveryRequestIsNotConstructed
	}
	return r.guard.Validate(ErrDeliveryRequestIsNotConstructed)
}

// ID returns the request identifier.
func (r *DeliveryRequest) ID() kernel.UUID {
	return r.id
}

// TenantID returns the tenant that submitted the request.
func (r *DeliveryRequest) TenantID() kernel.UUID {
	return r.tenantID
}

// Status returns the current lifecycle status.
func (r *DeliveryRequest) Status() Status {
	return r.status
}

func (r *DeliveryRequest) Details() Details {
	return r.details
}

// CallbackURL returns the per-request override, or "" when the tenant URL applies.
func (r *DeliveryRequest) CallbackURL() string {
	return r.details.CallbackURL
}

// TotalDistanceKm returns the distance the driver reported, nil before trip completion.
func (r *DeliveryRequest) TotalDistanceKm() *float64 {
	return r.totalDistanceKm
}

func (r *DeliveryRequest) CreatedAt() time.Time {
	return r.createdAt
}

// Destinations returns the stops in submission order.
func (r *DeliveryRequest) Destinations() []*Destination {
	out := make([]*Destination, len(r.destinations))
	copy(out, r.destinations)
	return out
}

// Destination finds a stop by id.
func (r *DeliveryRequest) Destination(id kernel.UUID) (*Destination, error) {
	for _, d := range r.destinations {
		if d.id.IsEqual(id) {
			return d, nil
		}
	}
	return nil, errs.NewObjectNotFoundError("destinationId", id.String())
}

// ExternalIDs lists the tenant identifiers of every stop.
func (r *DeliveryRequest) ExternalIDs() []string {
	ids := make([]string, 0, len(r.destinations))
	for _, d := range r.destinations {
		ids = append(ids, d.data.ExternalID)
	}
	return ids
}

// AllDestinationsTerminal reports whether every stop is completed or failed.
func (r *DeliveryRequest) AllDestinationsTerminal() bool {
	for _, d := range r.destinations {
		if !d.IsTerminal() {
			return false
		}
	}
	return true
}

// Counts returns how many stops are completed and failed.
func (r *DeliveryRequest) Counts() (completed, failed int) {
	for _, d := range r.destinations {
		switch d.status {
		case DestinationCompleted:
			completed++
		case DestinationFailed:
			failed++
		default:
		}
	}
	return completed, failed
}

// PlannedDistanceKm is the straight-line length of the route through every stop in order.
func (r *DeliveryRequest) PlannedDistanceKm() float64 {
	var total float64
	for i := 1; i < len(r.destinations); i++ {
		leg, err := r.destinations[i-1].data.Coordinates.DistanceKm(r.destinations[i].data.Coordinates)
		if err != nil {
			continue
		}
		total += leg
	}
	return total
}

// Accept records that a trip was assigned.
func (r *DeliveryRequest) Accept() error {
	next, err := r.status.Accept()
	if err != nil {
		return r.stateError("accept")
	}
	r.status = next
	return nil
}

// Start records that the assigned trip started.
func (r *DeliveryRequest) Start() error {
	next, err := r.status.Start()
	if err != nil {
		return r.stateError("start")
	}
	r.status = next
	return nil
}

// Cancel moves a pending, accepted or in-progress request to cancelled.
// Returns InvalidStateError once the request is completed or already cancelled.
func (r *DeliveryRequest) Cancel() error {
	next, err := r.status.Cancel()
	if err != nil {
		return r.stateError("cancel")
	}
	r.status = next
	return nil
}

// RecordDistance stores the distance reported when the trip completed.
func (r *DeliveryRequest) RecordDistance(km float64) error {
	if km < 0 {
		return errs.NewValueIsInvalidErrorWithCause("total_km", fmt.Errorf("%v is negative", km))
	}
	r.totalDistanceKm = &km
	return nil
}

// ArriveDestination marks a stop as reached. Repeating it updates the arrival record.
func (r *DeliveryRequest) ArriveDestination(id kernel.UUID, coords *kernel.Coordinates, at time.Time) error {
	d, err := r.activeDestination(id, "arrive at")
	if err != nil {
		return err
	}
	return d.arrive(at, coords)
}

// CompleteDestination records proof of delivery and raises DestinationCompleted.
func (r *DeliveryRequest) CompleteDestination(id kernel.UUID, c Completion) error {
	d, err := r.activeDestination(id, "complete")
	if err != nil {
		return err
	}
	if err := d.complete(c); err != nil {
		return err
	}

	r.raise(event.DestinationCompleted, d.id, c.CompletedAt)
	return r.rollup()
}

// FailDestination records an undeliverable stop and raises DestinationFailed.
func (r *DeliveryRequest) FailDestination(id kernel.UUID, f Failure) error {
	d, err := r.activeDestination(id, "fail")
	if err != nil {
		return err
	}
	if err := d.fail(f); err != nil {
		return err
	}

	r.raise(event.DestinationFailed, d.id, f.FailedAt)
	return r.rollup()
}

// ReplacePendingDestinations applies a resubmission of the same stops. Every external
// id must already belong to this request; stops past pending are left untouched.
// It returns how many stops changed.
func (r *DeliveryRequest) ReplacePendingDestinations(data []DestinationData) (int, error) {
	if r.status.IsFinal() {
		return 0, r.stateError("update")
	}

	byExternalID := make(map[string]*Destination, len(r.destinations))
	for _, d := range r.destinations {
		byExternalID[d.data.ExternalID] = d
	}

	var unknown []string
	for _, item := range data {
		if _, ok := byExternalID[item.ExternalID]; !ok {
			unknown = append(unknown, item.ExternalID)
		}
	}
	if len(unknown) > 0 {
		return 0, errs.NewValidationError(
			fmt.Sprintf("external ids %v are not part of delivery request %s", unknown, r.id),
			string(schema.FieldExternalID),
		)
	}

	changed := 0
	for _, item := range data {
		ok, err := byExternalID[item.ExternalID].replaceData(item)
		if err != nil {
			return changed, err
		}
		if ok {
			changed++
		}
	}
	return changed, nil
}

// PullEvents returns the events raised since the last call and forgets them.
func (r *DeliveryRequest) PullEvents() []event.Event {
	events := r.events
	r.events = nil
	return events
}

func (r *DeliveryRequest) activeDestination(id kernel.UUID, action string) (*Destination, error) {
	if r.status != StatusInProgress {
		return nil, errs.NewInvalidStateError("destination of delivery request", r.id.String(), r.status.String(), action)
	}
	return r.Destination(id)
}

func (r *DeliveryRequest) rollup() error {
	if !r.AllDestinationsTerminal() {
		return nil
	}
	next, err := r.status.Complete()
	if err != nil {
		return r.stateError("complete")
	}
	r.status = next
	return nil
}

func (r *DeliveryRequest) raise(t event.Type, subjectID kernel.UUID, at time.Time) {
	r.events = append(r.events, event.New(t, r.tenantID, r.id, subjectID, at))
}

func (r *DeliveryRequest) stateError(action string) error {
	return errs.NewInvalidStateError("delivery request", r.id.String(), r.status.String(), action)
}

func (r *DeliveryRequest) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	r.id = id
	return nil
}

func (r *DeliveryRequest) setTenantID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return errs.NewValueIsRequiredErrorWithCause("tenant_id", err)
	}
	r.tenantID = id
	return nil
}

func (r *DeliveryRequest) setDetails(details Details) error {
	if details.CallbackURL != "" {
		if err := ValidateCallbackURL(details.CallbackURL); err != nil {
			return err
		}
	}
	r.details = details
	return nil
}

func (r *DeliveryRequest) setDestinations(destinations []*Destination) error {
	if len(destinations) < MinDestinations || len(destinations) > MaxDestinations {
		return errs.NewValueIsOutOfRangeError("destinations", len(destinations), MinDestinations, MaxDestinations)
	}

	seen := make(map[string]struct{}, len(destinations))
	var duplicates []string
	for _, d := range destinations {
		if err := d.Validate(); err != nil {
			return err
		}
		if _, dup := seen[d.data.ExternalID]; dup {
			duplicates = append(duplicates, d.data.ExternalID)
		}
		seen[d.data.ExternalID] = struct{}{}
	}
	if len(duplicates) > 0 {
		return errs.NewValidationError(
			fmt.Sprintf("duplicate external ids %v", duplicates),
			string(schema.FieldExternalID),
		)
	}

	r.destinations = make([]*Destination, len(destinations))
	copy(r.destinations, destinations)
	return nil
}

// ValidateCallbackURL accepts absolute http and https URLs only.
func ValidateCallbackURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errs.NewValueIsInvalidErrorWithCause("callback_url", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errs.NewValueIsInvalidErrorWithCause("callback_url", fmt.Errorf("%q is not an absolute http(s) URL", raw))
	}
	return nil
}
