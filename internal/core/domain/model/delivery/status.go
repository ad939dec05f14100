package delivery

import (
	"fmt"

	"fulfillment/internal/pkg/errs"
)

// Status is the lifecycle state of a DeliveryRequest.
//
//	Pending ──> Accepted ──> InProgress ──> Completed
//	   │           │             │
//	   └───────────┴─────────────┴──> Cancelled
//
// Accepted and InProgress may be entered again when a cancelled trip is replaced,
// so the status never moves backwards.
type Status int

const (
	// StatusUnknown is the zero value and never stored.
	StatusUnknown Status = iota
	// StatusPending is a submitted request waiting for a trip.
	StatusPending
	// StatusAccepted has a trip assigned that has not started yet.
	StatusAccepted
	// StatusInProgress has a started trip; its stops are being worked.
	StatusInProgress
	// StatusCompleted is reached once every stop is completed or failed. Final.
	StatusCompleted
	// StatusCancelled was called off by an operator. Final.
	StatusCancelled
)

var statusNames = map[Status]string{
	StatusPending:    "pending",
	StatusAccepted:   "accepted",
	StatusInProgress: "in_progress",
	StatusCompleted:  "completed",
	StatusCancelled:  "cancelled",
}

// ParseStatus reads the storage and API form of a request status.
func ParseStatus(s string) (Status, error) {
	for st, name := range statusNames {
		if name == s {
			return st, nil
		}
	}
	return StatusUnknown, errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("%q is not a request status", s))
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
		return errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("%d is not a valid request status", s))
	}
	return nil
}

// IsFinal reports whether no further transition is possible.
func (s Status) IsFinal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Accept binds a trip. A request already accepted or in progress keeps its status.
func (s Status) Accept() (Status, error) {
	switch s {
	case StatusPending, StatusAccepted:
		return StatusAccepted, nil
	case StatusInProgress:
		return StatusInProgress, nil
	default:
		return StatusUnknown, errs.NewInvalidStateError("delivery request", "", s.String(), "accept")
	}
}

// Start moves the request to in progress when its trip starts.
func (s Status) Start() (Status, error) {
	if s != StatusAccepted && s != StatusInProgress {
		return StatusUnknown, errs.NewInvalidStateError("delivery request", "", s.String(), "start")
	}
	return StatusInProgress, nil
}

// Complete is only reached through the destination rollup.
func (s Status) Complete() (Status, error) {
	if s != StatusInProgress {
		return StatusUnknown, errs.NewInvalidStateError("delivery request", "", s.String(), "complete")
	}
	return StatusCompleted, nil
}

// Cancel is legal from every non-final status.
//
// Example:
//
//	next, err := delivery.StatusInProgress.Cancel()
//	// next == delivery.StatusCancelled, err == nil
//
//	_, err = delivery.StatusCompleted.Cancel()
//	// errors.Is(err, errs.ErrInvalidState)
func (s Status) Cancel() (Status, error) {
	if s.IsFinal() || s == StatusUnknown {
		return StatusUnknown, errs.NewInvalidStateError("delivery request", "", s.String(), "cancel")
	}
	return StatusCancelled, nil
}

// DestinationStatus is the lifecycle state of a single stop.
//
//	Pending ──> Arrived ──┬──> Completed
//	   │                  └──> Failed
//	   └──────────────────────> Completed | Failed
//
// Completed and Failed are terminal.
type DestinationStatus int

const (
	// DestinationUnknown is the zero value and never stored.
	DestinationUnknown DestinationStatus = iota
	// DestinationPending is a stop the driver has not reached.
	DestinationPending
	// DestinationArrived is a stop the driver reported reaching.
	DestinationArrived
	// DestinationCompleted carries proof of delivery. Terminal.
	DestinationCompleted
	// DestinationFailed carries a failure reason. Terminal.
	DestinationFailed
)

var destinationStatusNames = map[DestinationStatus]string{
	DestinationPending:   "pending",
	DestinationArrived:   "arrived",
	DestinationCompleted: "completed",
	DestinationFailed:    "failed",
}

// ParseDestinationStatus reads the storage and API form of a stop status.
func ParseDestinationStatus(s string) (DestinationStatus, error) {
	for st, name := range destinationStatusNames {
		if name == s {
			return st, nil
		}
	}
	return DestinationUnknown, errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("%q is not a destination status", s))
}

func (s DestinationStatus) String() string {
	if name, ok := destinationStatusNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s DestinationStatus) Validate() error {
	if _, ok := destinationStatusNames[s]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("%d is not a valid destination status", s))
	}
	return nil
}

// IsTerminal reports whether the stop is completed or failed.
func (s DestinationStatus) IsTerminal() bool {
	return s == DestinationCompleted || s == DestinationFailed
}

// Arrive is accepted again while already arrived, updating the arrival record.
func (s DestinationStatus) Arrive() (DestinationStatus, error) {
	if s != DestinationPending && s != DestinationArrived {
		return DestinationUnknown, errs.NewInvalidStateError("destination", "", s.String(), "arrive at")
	}
	return DestinationArrived, nil
}

// Complete is legal from pending or arrived; a driver may skip the arrival report.
func (s DestinationStatus) Complete() (DestinationStatus, error) {
	if s != DestinationPending && s != DestinationArrived {
		return DestinationUnknown, errs.NewInvalidStateError("destination", "", s.String(), "complete")
	}
	return DestinationCompleted, nil
}

// Fail is legal from pending or arrived.
func (s DestinationStatus) Fail() (DestinationStatus, error) {
	if s != DestinationPending && s != DestinationArrived {
		return DestinationUnknown, errs.NewInvalidStateError("destination", "", s.String(), "fail")
	}
	return DestinationFailed, nil
}
