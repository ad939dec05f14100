package callback

import (
	"fmt"

	"fulfillment/internal/pkg/errs"
)

// Status of a queued callback.
//
//	Pending ──claim──> InFlight ──┬──> Delivered
//	   ^                          ├──> Pending (retry scheduled)
//	   │                          ├──> InFlight (lease expired, attempt counted)
//	   │                          ├──> Failed  (attempts exhausted)
//	   │                          └──> Skipped (configuration missing)
//	   └──────── requeue ─────────────── Failed | Skipped
//
// Status is stored by name, see String and ParseStatus.
type Status int

const (
	// StatusUnknown catches uninitialised values.
	StatusUnknown Status = iota

	// StatusPending waits for NextAttemptAt.
	StatusPending

	// StatusInFlight is leased to one worker until LeaseExpiresAt.
	StatusInFlight

	// StatusDelivered received a 2xx response. Final.
	StatusDelivered

	// StatusFailed used up MaxAttempts. Final until an operator requeues it.
	StatusFailed

	// StatusSkipped can never be sent, e.g. the tenant has no callback target.
	// Final until an operator requeues it.
	StatusSkipped
)

var statusNames = map[Status]string{
	StatusPending:   "pending",
	StatusInFlight:  "in_flight",
	StatusDelivered: "delivered",
	StatusFailed:    "failed",
	StatusSkipped:   "skipped",
}

// ParseStatus maps a stored status name back to a Status.
//
// Example:
//
//	st, err := callback.ParseStatus("in_flight") // StatusInFlight
func ParseStatus(s string) (Status, error) {
	for st, name := range statusNames {
		if name == s {
			return st, nil
		}
	}
	return StatusUnknown, errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("%q is not a callback status", s))
}

// String returns the stored name of the status, "unknown" for invalid values.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// Validate rejects StatusUnknown and values outside the enum.
func (s Status) Validate() error {
	if _, ok := statusNames[s]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("%d is not a valid callback status", s))
	}
	return nil
}

// IsFinal reports whether the worker will never pick the callback up again.
func (s Status) IsFinal() bool {
	return s == StatusDelivered || s == StatusFailed || s == StatusSkipped
}
