package delivery

import (
	"fmt"

	"fulfillment/internal/pkg/errs"
)

// FailureReason explains why a stop could not be delivered.
type FailureReason string

const (
	// FailureNotHome means nobody answered at the address.
	FailureNotHome      FailureReason = "not_home"
	// FailureRefused means the recipient declined the parcel.
	FailureRefused      FailureReason = "refused"
	// FailureWrongAddress means the address does not exist or is not the recipient's.
	FailureWrongAddress FailureReason = "wrong_address"
	// FailureInaccessible means the driver could not reach the door.
	FailureInaccessible FailureReason = "inaccessible"
	// FailureOther needs the failure notes to say what happened.
	FailureOther        FailureReason = "other"
)

// FailureReasons lists the accepted reasons in display order.
func FailureReasons() []FailureReason {
	return []FailureReason{FailureNotHome, FailureRefused, FailureWrongAddress, FailureInaccessible, FailureOther}
}

// ParseFailureReason returns a ValueIsInvalidError for anything outside the closed set.
func ParseFailureReason(s string) (FailureReason, error) {
	for _, r := range FailureReasons() {
		if string(r) == s {
			return r, nil
		}
	}
	if s == "" {
		return "", errs.NewValueIsRequiredError("reason")
	}
	return "", errs.NewValueIsInvalidErrorWithCause("reason", fmt.Errorf("%q is not a failure reason", s))
}

func (r FailureReason) String() string {
	return string(r)
}
