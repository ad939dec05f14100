// Package errs provides standardized error types for the fulfillment service.
//
// Every type follows the same pattern: a sentinel error variable, a struct with the
// error details, constructors with and without a cause, an Error method and an
// Unwrap method returning the sentinel so callers can use errors.Is.
// ConflictError also unwraps to the storage error it was built from.
//
// The package covers three families:
//   - caller input: ValueIsRequiredError, ValueIsInvalidError, ValueIsOutOfRangeError
//     and ValidationError (several fields at once)
//   - lifecycle: InvalidStateError for transitions that are not legal from the
//     current status, ObjectNotFoundError for missing entities
//   - operations: ConfigurationError for tenant settings that block a callback,
//     AccessDeniedError for a driver acting on another driver's trip and
//     ConflictError for a write that lost a unique key to a concurrent one
//
// Fields walks joined and wrapped errors and returns the offending field names,
// which the HTTP adapter reports back to the caller.
package errs
