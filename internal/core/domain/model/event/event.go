// Package event defines the domain events raised by lifecycle transitions.
// Each one is turned into a queued callback in the same unit of work.
package event

import (
	"time"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/pkg/errs"
)

// Type names an event on the wire (X-Callback-Event header) and in storage.
type Type string

const (
	// DestinationCompleted is raised when a driver records proof of delivery.
	DestinationCompleted Type = "destination.completed"
	// DestinationFailed is raised when a driver reports an undeliverable stop.
	DestinationFailed    Type = "destination.failed"
	// TripCompleted is raised when a trip closes; its callback carries the summary.
	TripCompleted        Type = "trip.completed"
)

// SubjectKind tells the callback worker which aggregate to re-load.
type SubjectKind string

const (
	SubjectDestination SubjectKind = "destination"
	SubjectTrip        SubjectKind = "trip"
)

// ParseType rejects unknown event names read back from storage.
func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case DestinationCompleted, DestinationFailed, TripCompleted:
		return t, nil
	default:
		return "", errs.NewValueIsInvalidError("event_type")
	}
}

// SubjectKind returns the kind of aggregate the event is about.
func (t Type) SubjectKind() SubjectKind {
	if t == TripCompleted {
		return SubjectTrip
	}
	return SubjectDestination
}

func (t Type) String() string {
	return string(t)
}

// Event is raised by an aggregate and pulled by the command handler.
type Event struct {
	Type       Type
	TenantID   kernel.UUID
	RequestID  kernel.UUID
	SubjectID  kernel.UUID
	OccurredAt time.Time
}

// New stamps an event. Aggregates call it; handlers pull the result with PullEvents
// and queue one callback per event.
func New(t Type, tenantID, requestID, subjectID kernel.UUID, at time.Time) Event {
	return Event{
		Type:       t,
		TenantID:   tenantID,
		RequestID:  requestID,
		SubjectID:  subjectID,
		OccurredAt: at,
	}
}
