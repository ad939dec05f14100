package trip

import (
	"fmt"

	"fulfillment/internal/pkg/errs"
)

// Status is the lifecycle state of a Trip.
//
//	NotStarted ──> InProgress ──> Completed
//	     │              │
//	     └──────────────┴──> Cancelled
type Status int

const (
	// StatusUnknown is the zero value and never stored.
	StatusUnknown Status = iota
	// StatusNotStarted has a driver and vehicle bound but has not left.
	StatusNotStarted
	// StatusInProgress is on the road; its stops may be reported.
	StatusInProgress
	// StatusCompleted closed with every stop terminal. Final.
	StatusCompleted
	// StatusCancelled was abandoned by an operator. Final; the request may get a new trip.
	StatusCancelled
)

var statusNames = map[Status]string{
	StatusNotStarted: "not_started",
	StatusInProgress: "in_progress",
	StatusCompleted:  "completed",
	StatusCancelled:  "cancelled",
}

// ParseStatus reads the storage and API form of a trip status.
func ParseStatus(s string) (Status, error) {
	for st, name := range statusNames {
		if name == s {
			return st, nil
		}
	}
	return StatusUnknown, errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("%q is not a trip status", s))
}

// String returns the storage and API form, "unknown" for invalid values.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// Validate rejects values outside the declared constants, StatusUnknown included.
func (s Status) Validate() error {
	if _, ok := statusNames[s]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("%d is not a valid trip status", s))
	}
	return nil
}

// IsActive reports whether the trip still holds its delivery request.
func (s Status) IsActive() bool {
	return s == StatusNotStarted || s == StatusInProgress
}

// Start is legal from not started only.
func (s Status) Start() (Status, error) {
	if s != StatusNotStarted {
		return StatusUnknown, errs.NewInvalidStateError("trip", "", s.String(), "start")
	}
	return StatusInProgress, nil
}

// Complete is legal from in progress only.
func (s Status) Complete() (Status, error) {
	if s != StatusInProgress {
		return StatusUnknown, errs.NewInvalidStateError("trip", "", s.String(), "complete")
	}
	return StatusCompleted, nil
}

// Cancel is legal while the trip is active.
func (s Status) Cancel() (Status, error) {
	if !s.IsActive() {
		return StatusUnknown, errs.NewInvalidStateError("trip", "", s.String(), "cancel")
	}
	return StatusCancelled, nil
}
