package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched with errors.Is. The HTTP adapter maps each one to a status code.
var (
	ErrObjectNotFound    = errors.New("object not found")
	ErrValueIsInvalid    = errors.New("value is invalid")
	ErrValueIsOutOfRange = errors.New("value is out of range")
	ErrValueIsRequired   = errors.New("value is required")
	ErrValidation        = errors.New("validation failed")
	ErrInvalidState      = errors.New("invalid state")
	ErrConfiguration     = errors.New("configuration error")
	ErrAccessDenied      = errors.New("access denied")
	ErrConflict          = errors.New("conflict")
)

// ObjectNotFoundError is returned when a repository cannot locate an entity.
type ObjectNotFoundError struct {
	ParamName string
	ID        any
	Cause     error
}

// NewObjectNotFoundError reports that no entity has id. paramName names the lookup,
// e.g. "tripId".
func NewObjectNotFoundError(paramName string, id any) *ObjectNotFoundError {
	return &ObjectNotFoundError{ParamName: paramName, ID: id}
}

func NewObjectNotFoundErrorWithCause(paramName string, id any, cause error) *ObjectNotFoundError {
	return &ObjectNotFoundError{ParamName: paramName, ID: id, Cause: cause}
}

func (e *ObjectNotFoundError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: param is: %s, ID is: %s (cause: %v)", ErrObjectNotFound, e.ParamName, e.ID, e.Cause)
	}
	return fmt.Sprintf("%s: %s", ErrObjectNotFound, e.ID)
}

func (e *ObjectNotFoundError) Unwrap() error {
	return ErrObjectNotFound
}

// ValueIsInvalidError reports a value that failed a domain rule.
type ValueIsInvalidError struct {
	ParamName string
	Cause     error
}

// NewValueIsInvalidError reports paramName as the offending field.
func NewValueIsInvalidError(paramName string) *ValueIsInvalidError {
	return &ValueIsInvalidError{ParamName: paramName}
}

func NewValueIsInvalidErrorWithCause(paramName string, cause error) *ValueIsInvalidError {
	return &ValueIsInvalidError{ParamName: paramName, Cause: cause}
}

func (e *ValueIsInvalidError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", ErrValueIsInvalid, e.ParamName, e.Cause)
	}
	return fmt.Sprintf("%s: %s", ErrValueIsInvalid, e.ParamName)
}

func (e *ValueIsInvalidError) Unwrap() error {
	return ErrValueIsInvalid
}

// ValueIsOutOfRangeError reports a value outside [Min, Max].
type ValueIsOutOfRangeError struct {
	ParamName string
	Value     any
	Min       any
	Max       any
	Cause     error
}

// NewValueIsOutOfRangeError reports value outside [minValue, maxValue]. The values
// are printed on one line whatever they contain.
//
// Example:
//
//	if km < 0 || km > MaxTripDistanceKm {
//	    return errs.NewValueIsOutOfRangeError("total_km", km, 0, MaxTripDistanceKm)
//	}
func NewValueIsOutOfRangeError(paramName string, value, minValue, maxValue any) *ValueIsOutOfRangeError {
	return &ValueIsOutOfRangeError{ParamName: paramName, Value: value, Min: minValue, Max: maxValue}
}

func NewValueIsOutOfRangeErrorWithCause(
	paramName string,
	value, minValue, maxValue any,
	cause error,
) *ValueIsOutOfRangeError {
	return &ValueIsOutOfRangeError{ParamName: paramName, Value: value, Min: minValue, Max: maxValue, Cause: cause}
}

func (e *ValueIsOutOfRangeError) Error() string {
	msg := fmt.Sprintf("%s: %s is %s, min value is %s, max value is %s",
		ErrValueIsInvalid, sanitize(e.Value), e.ParamName, sanitize(e.Min), sanitize(e.Max))
	if e.Cause != nil {
		msg += fmt.Sprintf(" (cause: %v)", e.Cause)
	}
	return msg
}

func (e *ValueIsOutOfRangeError) Unwrap() error {
	return ErrValueIsOutOfRange
}

// ValueIsRequiredError reports a missing mandatory value.
type ValueIsRequiredError struct {
	ParamName string
	Cause     error
}

// NewValueIsRequiredError reports paramName as missing.
func NewValueIsRequiredError(paramName string) *ValueIsRequiredError {
	return &ValueIsRequiredError{ParamName: paramName}
}

func NewValueIsRequiredErrorWithCause(paramName string, cause error) *ValueIsRequiredError {
	return &ValueIsRequiredError{ParamName: paramName, Cause: cause}
}

func (e *ValueIsRequiredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", ErrValueIsRequired, e.ParamName, e.Cause)
	}
	return fmt.Sprintf("%s: %s", ErrValueIsRequired, e.ParamName)
}

func (e *ValueIsRequiredError) Unwrap() error {
	return ErrValueIsRequired
}

// ValidationError carries every offending field of a caller payload at once.
type ValidationError struct {
	Reason string
	Fields []string
}

// NewValidationError reports reason and, optionally, the fields it concerns.
func NewValidationError(reason string, fields ...string) *ValidationError {
	return &ValidationError{Reason: reason, Fields: fields}
}

// NewMissingFieldsError is the ValidationError produced by required-field checks.
func NewMissingFieldsError(fields []string) *ValidationError {
	return &ValidationError{Reason: "missing required fields", Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Reason, strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// InvalidStateError is returned when a transition is not legal from the current status.
type InvalidStateError struct {
	Entity string
	ID     string
	Status string
	Action string
}

// NewInvalidStateError reports that action is not allowed on entity while it is in
// status. id may be empty.
func NewInvalidStateError(entity, id, status, action string) *InvalidStateError {
	return &InvalidStateError{Entity: entity, ID: id, Status: status, Action: action}
}

func (e *InvalidStateError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: cannot %s %s in status %s", ErrInvalidState, e.Action, e.Entity, e.Status)
	}
	return fmt.Sprintf("%s: cannot %s %s %s in status %s", ErrInvalidState, e.Action, e.Entity, e.ID, e.Status)
}

func (e *InvalidStateError) Unwrap() error {
	return ErrInvalidState
}

// ConfigurationError marks tenant or operator configuration that is missing.
// It is permanent: nothing retries it.
type ConfigurationError struct {
	TenantID string
	Setting  string
}

func NewConfigurationError(tenantID, setting string) *ConfigurationError {
	return &ConfigurationError{TenantID: tenantID, Setting: setting}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: tenant %s has no %s configured", ErrConfiguration, e.TenantID, e.Setting)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// AccessDeniedError is returned when an authenticated caller acts on something it does not own.
type AccessDeniedError struct {
	Subject  string
	Resource string
}

// NewAccessDeniedError reports that subject may not act on resource.
func NewAccessDeniedError(subject, resource string) *AccessDeniedError {
	return &AccessDeniedError{Subject: subject, Resource: resource}
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("%s: %s may not act on %s", ErrAccessDenied, e.Subject, e.Resource)
}

func (e *AccessDeniedError) Unwrap() error {
	return ErrAccessDenied
}

// ConflictError is returned when a write loses a race on a unique key to a
// concurrent writer. Re-reading and retrying usually resolves it.
type ConflictError struct {
	Entity string
	Key    string
	Cause  error
}

// NewConflictError reports that another writer already holds key for entity.
// cause is the driver error and may be nil.
func NewConflictError(entity, key string, cause error) *ConflictError {
	return &ConflictError{Entity: entity, Key: key, Cause: cause}
}

func (e *ConflictError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s with this %s already exists (cause: %v)", ErrConflict, e.Entity, e.Key, e.Cause)
	}
	return fmt.Sprintf("%s: %s with this %s already exists", ErrConflict, e.Entity, e.Key)
}

// Unwrap exposes ErrConflict and the storage error it was built from.
func (e *ConflictError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrConflict}
	}
	return []error{ErrConflict, e.Cause}
}

// Fields collects the parameter names carried by err and any errors joined into it.
func Fields(err error) []string {
	var out []string
	seen := map[string]struct{}{}
	add := func(name string) {
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}

	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		switch v := e.(type) {
		case *ValidationError:
			for _, f := range v.Fields {
				add(f)
			}
		case *ValueIsInvalidError:
			add(v.ParamName)
		case *ValueIsOutOfRangeError:
			add(v.ParamName)
		case *ValueIsRequiredError:
			add(v.ParamName)
		}
		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}
	walk(err)

	return out
}

// IsValidation reports whether err belongs to the caller-input family.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrValueIsInvalid) ||
		errors.Is(err, ErrValueIsOutOfRange) ||
		errors.Is(err, ErrValueIsRequired)
}

func sanitize(v any) string {
	s := fmt.Sprintf("%v", v)
	return strings.ReplaceAll(s, "\n", " ")
}
