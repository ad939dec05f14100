package callback

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"fulfillment/internal/core/domain/model/event"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/pkg/errs"
	"fulfillment/internal/pkg/guard"
)

var (
	// ErrCallbackIsNotConstructed is returned when a Callback was not built through
	// NewCallback or RestoreCallback.
	ErrCallbackIsNotConstructed = errors.New("Callback must be created via NewCallback constructor")
)

// LeaseExpiredError is recorded as the last error of an attempt whose worker never
// reported an outcome before its lease ran out.
const LeaseExpiredError = "lease expired before the attempt outcome was recorded"

// maxErrorLength bounds LastError in bytes.
const maxErrorLength = 1024

// Callback is a durable work item: one event to be reported to one tenant.
// It references its subject by id and the worker re-loads the subject at send time,
// so the tenant always receives the latest state.
//
// Callback follows these invariants:
//   - at most MaxAttempts attempts are ever counted
//   - an attempt is counted for every claim that ends, including a claim whose
//     lease ran out without an outcome
//   - LastError is valid UTF-8 of at most 1024 bytes
//
// Example:
//
//	cb, err := callback.NewCallback(kernel.NewUUID(), ev, now)
//	if err != nil {
//	    return err
//	}
//	if err := cb.Claim(now, time.Minute); err != nil {
//	    return err
//	}
//	permanent, err := cb.RecordFailure("callback endpoint answered 503", 503, now)
type Callback struct {
	id             kernel.UUID
	tenantID       kernel.UUID
	requestID      kernel.UUID
	subjectID      kernel.UUID
	eventType      event.Type
	status         Status
	attempts       int
	nextAttemptAt  time.Time
	leaseExpiresAt *time.Time
	lastError      string
	lastStatusCode int
	createdAt      time.Time
	updatedAt      time.Time
	deliveredAt    *time.Time
	guard          guard.ConstructorGuard
}

// NewCallback queues ev for immediate delivery.
//
// Parameters:
//   - id: identifier of the queue row
//   - ev: the domain event to report; its type must be known
//   - now: creation time, also the first due time
//
// Returns:
//   - *Callback in StatusPending with no attempts
//   - error if the id, the event type or any event reference is invalid
//
// Example:
//
//	ev := event.New(event.DestinationCompleted, tenantID, requestID, destinationID, now)
//	cb, err := callback.NewCallback(kernel.NewUUID(), ev, now)
func NewCallback(id kernel.UUID, ev event.Event, now time.Time) (*Callback, error) {
	if _, err := event.ParseType(string(ev.Type)); err != nil {
		return nil, err
	}
	if err := errors.Join(id.Validate(), ev.TenantID.Validate(), ev.RequestID.Validate(), ev.SubjectID.Validate()); err != nil {
		return nil, err
	}

	return &Callback{
		id:            id,
		tenantID:      ev.TenantID,
		requestID:     ev.RequestID,
		subjectID:     ev.SubjectID,
		eventType:     ev.Type,
		status:        StatusPending,
		nextAttemptAt: now,
		createdAt:     now,
		updatedAt:     now,
		guard:         guard.NewConstructorGuard(),
	}, nil
}

// State is the mutable part of a callback as stored.
type State struct {
	Status         Status
	Attempts       int
	NextAttemptAt  time.Time
	LeaseExpiresAt *time.Time
	LastError      string
	LastStatusCode int
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeliveredAt    *time.Time
}

// RestoreCallback rebuilds a callback read back from storage.
//
// Returns:
//   - *Callback carrying state as is
//   - error if an identifier, the event type or the status is invalid, or if
//     Attempts lies outside 0..MaxAttempts
//
// Example:
//
//	cb, err := callback.RestoreCallback(id, tenantID, requestID, subjectID, event.TripCompleted, state)
func RestoreCallback(
	id, tenantID, requestID, subjectID kernel.UUID,
	eventType event.Type,
	state State,
) (*Callback, error) {
	if err := errors.Join(
		id.Validate(),
		tenantID.Validate(),
		requestID.Validate(),
		subjectID.Validate(),
		state.Status.Validate(),
	); err != nil {
		return nil, err
	}
	if _, err := event.ParseType(string(eventType)); err != nil {
		return nil, err
	}
	if state.Attempts < 0 || state.Attempts > MaxAttempts {
		return nil, errs.NewValueIsOutOfRangeError("attempts", state.Attempts, 0, MaxAttempts)
	}

	return &Callback{
		id:             id,
		tenantID:       tenantID,
		requestID:      requestID,
		subjectID:      subjectID,
		eventType:      eventType,
		status:         state.Status,
		attempts:       state.Attempts,
		nextAttemptAt:  state.NextAttemptAt,
		leaseExpiresAt: state.LeaseExpiresAt,
		lastError:      state.LastError,
		lastStatusCode: state.LastStatusCode,
		createdAt:      state.CreatedAt,
		updatedAt:      state.UpdatedAt,
		deliveredAt:    state.DeliveredAt,
		guard:          guard.NewConstructorGuard(),
	}, nil
}

// Validate returns ErrCallbackIsNotConstructed for a nil or zero-value callback.
func (c *Callback) Validate() error {
	if c == nil {
		return ErrCallbackIsNotConstructed
	}
	return c.guard.Validate(ErrCallbackIsNotConstructed)
}

// ID returns the queue row identifier, sent as X-Callback-Id.
func (c *Callback) ID() kernel.UUID {
	return c.id
}

// TenantID returns the tenant the callback is addressed to.
func (c *Callback) TenantID() kernel.UUID {
	return c.tenantID
}

// RequestID returns the delivery request the subject belongs to.
func (c *Callback) RequestID() kernel.UUID {
	return c.requestID
}

// SubjectID returns the destination or trip the event is about.
func (c *Callback) SubjectID() kernel.UUID {
	return c.subjectID
}

// SubjectKind tells whether SubjectID names a destination or a trip.
func (c *Callback) SubjectKind() event.SubjectKind {
	return c.eventType.SubjectKind()
}

// EventType returns the reported event.
func (c *Callback) EventType() event.Type {
	return c.eventType
}

// Status returns the queue status.
func (c *Callback) Status() Status {
	return c.status
}

// Attempts returns how many attempts have been counted so far.
func (c *Callback) Attempts() int {
	return c.attempts
}

// NextAttemptAt returns when a pending callback becomes due.
func (c *Callback) NextAttemptAt() time.Time {
	return c.nextAttemptAt
}

// LeaseExpiresAt returns the end of the current claim, nil unless in flight.
func (c *Callback) LeaseExpiresAt() *time.Time {
	return c.leaseExpiresAt
}

// LastError returns the error of the latest counted attempt, at most 1024 bytes of
// valid UTF-8.
func (c *Callback) LastError() string {
	return c.lastError
}

// LastStatusCode returns the endpoint's status of the latest attempt, or 0 when no
// response arrived.
func (c *Callback) LastStatusCode() int {
	return c.lastStatusCode
}

func (c *Callback) CreatedAt() time.Time {
	return c.createdAt
}

func (c *Callback) UpdatedAt() time.Time {
	return c.updatedAt
}

// DeliveredAt is nil until the callback is delivered.
func (c *Callback) DeliveredAt() *time.Time {
	return c.deliveredAt
}

// State returns the stored form of the mutable fields.
func (c *Callback) State() State {
	return State{
		Status:         c.status,
		Attempts:       c.attempts,
		NextAttemptAt:  c.nextAttemptAt,
		LeaseExpiresAt: c.leaseExpiresAt,
		LastError:      c.lastError,
		LastStatusCode: c.lastStatusCode,
		CreatedAt:      c.createdAt,
		UpdatedAt:      c.updatedAt,
		DeliveredAt:    c.deliveredAt,
	}
}

// IsDue reports whether a worker may claim the callback at now: a pending one whose
// next attempt time has passed, or an in-flight one whose lease ran out.
func (c *Callback) IsDue(now time.Time) bool {
	switch c.status {
	case StatusPending:
		return !c.nextAttemptAt.After(now)
	case StatusInFlight:
		return c.leaseExpiresAt != nil && !c.leaseExpiresAt.After(now)
	default:
		return false
	}
}

// Claim leases the callback to one worker until now+lease.
//
// Reclaiming an in-flight callback whose lease ran out counts the attempt the
// previous worker never recorded, with LeaseExpiredError as its error. When that
// was the last allowed attempt the callback moves to StatusFailed instead of being
// leased, and the caller must save it without sending.
//
// Returns:
//   - nil once the callback is leased or failed for good
//   - InvalidStateError if the callback is not due at now
//
// Example:
//
//	if err := cb.Claim(now, lease); err != nil {
//	    return err
//	}
//	if cb.Status() == callback.StatusFailed {
//	    // attempts exhausted by lost leases, report and save
//	}
func (c *Callback) Claim(now time.Time, lease time.Duration) error {
	if !c.IsDue(now) {
		return c.stateError("claim")
	}

	if c.status == StatusInFlight {
		c.attempts++
		c.lastError = LeaseExpiredError
		c.lastStatusCode = 0
		if c.attempts >= MaxAttempts {
			c.status = StatusFailed
			c.leaseExpiresAt = nil
			c.updatedAt = now
			return nil
		}
	}

	until := now.Add(lease)
	c.status = StatusInFlight
	c.leaseExpiresAt = &until
	c.updatedAt = now
	return nil
}

// RecordDelivered closes the callback after a 2xx response.
//
// Returns InvalidStateError unless the callback is in flight.
func (c *Callback) RecordDelivered(statusCode int, now time.Time) error {
	if c.status != StatusInFlight {
		return c.stateError("deliver")
	}
	c.attempts++
	c.status = StatusDelivered
	c.lastStatusCode = statusCode
	c.lastError = ""
	c.leaseExpiresAt = nil
	c.deliveredAt = &now
	c.updatedAt = now
	return nil
}

// RecordFailure counts a failed attempt and either schedules the next one from the
// backoff table or, once MaxAttempts is reached, fails the callback for good.
//
// Parameters:
//   - cause: error text; it is cut to 1024 bytes on a rune boundary and stripped
//     of invalid UTF-8
//   - statusCode: HTTP status of the response, 0 when none was received
//   - now: time of the attempt
//
// Returns:
//   - true if the failure is permanent
//   - InvalidStateError unless the callback is in flight
//
// Example:
//
//	permanent, err := cb.RecordFailure(sendErr.Error(), result.StatusCode, now)
//	if permanent {
//	    logger.Error("Callback permanently failed", "attempts", cb.Attempts())
//	}
func (c *Callback) RecordFailure(cause string, statusCode int, now time.Time) (bool, error) {
	if c.status != StatusInFlight {
		return false, c.stateError("record a failure for")
	}
	c.attempts++
	c.lastError = sanitize(cause)
	c.lastStatusCode = statusCode
	c.leaseExpiresAt = nil
	c.updatedAt = now

	if c.attempts >= MaxAttempts {
		c.status = StatusFailed
		return true, nil
	}
	c.status = StatusPending
	c.nextAttemptAt = now.Add(Backoff(c.attempts))
	return false, nil
}

// Skip closes a callback that can never be sent, without counting an attempt.
//
// Returns InvalidStateError unless the callback is pending or in flight.
func (c *Callback) Skip(reason string, now time.Time) error {
	if c.status != StatusPending && c.status != StatusInFlight {
		return c.stateError("skip")
	}
	c.status = StatusSkipped
	c.lastError = sanitize(reason)
	c.leaseExpiresAt = nil
	c.updatedAt = now
	return nil
}

// Release hands a claimed callback back without counting an attempt. The next
// attempt is due at retryAt.
//
// Returns InvalidStateError unless the callback is in flight.
func (c *Callback) Release(retryAt, now time.Time) error {
	if c.status != StatusInFlight {
		return c.stateError("release")
	}
	c.status = StatusPending
	c.nextAttemptAt = retryAt
	c.leaseExpiresAt = nil
	c.updatedAt = now
	return nil
}

// Requeue gives a failed or skipped callback a fresh set of attempts.
//
// Returns InvalidStateError for any other status.
//
// Example:
//
//	if err := cb.Requeue(now); err != nil {
//	    return err // still pending, in flight or delivered
//	}
func (c *Callback) Requeue(now time.Time) error {
	if c.status != StatusFailed && c.status != StatusSkipped {
		return c.stateError("requeue")
	}
	c.status = StatusPending
	c.attempts = 0
	c.nextAttemptAt = now
	c.leaseExpiresAt = nil
	c.updatedAt = now
	return nil
}

func (c *Callback) stateError(action string) error {
	return errs.NewInvalidStateError("callback", c.id.String(), c.status.String(), action)
}

// sanitize returns s as valid UTF-8 without NUL bytes, cut to maxErrorLength bytes
// on a rune boundary. Postgres text columns reject both invalid sequences and NUL.
func sanitize(s string) string {
	s = strings.ToValidUTF8(strings.ReplaceAll(s, "\x00", ""), "")
	if len(s) <= maxErrorLength {
		return s
	}
	cut := maxErrorLength
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
