package queries

import (
	"errors"
	"time"

	"fulfillment/internal/core/domain/model/callback"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/pkg/errs"
	"fulfillment/internal/pkg/guard"
)

const (
	DefaultCallbackListLimit = 50
	MaxCallbackListLimit     = 500
)

// ErrListCallbacksQueryIsNotConstructed is returned by Validate on a zero-value query.
var ErrListCallbacksQueryIsNotConstructed = errors.New(
	"ListCallbacksQuery must be created via NewListCallbacksQuery constructor",
)

// ListCallbacksQuery lists queued callbacks for operators, newest first.
// An empty status lists every status; a zero limit means DefaultCallbackListLimit.
//
// Example:
//
//	query, err := NewListCallbacksQuery("failed", 20)
//	if err != nil {
//	    return err // unknown status or limit above MaxCallbackListLimit
//	}
//	rows, err := handler.Handle(ctx, query)
type ListCallbacksQuery struct {
	status callback.Status
	limit  int

	guard guard.ConstructorGuard
}

// NewListCallbacksQuery parses status and bounds limit to 0..MaxCallbackListLimit.
// Both problems are reported together.
func NewListCallbacksQuery(status string, limit int) (ListCallbacksQuery, error) {
	q := ListCallbacksQuery{
		limit: DefaultCallbackListLimit,
		guard: guard.NewConstructorGuard(),
	}

	var errList []error
	if status != "" {
		parsed, err := callback.ParseStatus(status)
		if err != nil {
			errList = append(errList, err)
		}
		q.status = parsed
	}
	switch {
	case limit < 0 || limit > MaxCallbackListLimit:
		errList = append(errList, errs.NewValueIsOutOfRangeError("limit", limit, 0, MaxCallbackListLimit))
	case limit > 0:
		q.limit = limit
	}
	if err := errors.Join(errList...); err != nil {
		return ListCallbacksQuery{}, err
	}

	return q, nil
}

// Validate ensures the query was created through the constructor.
func (q ListCallbacksQuery) Validate() error {
	return q.guard.Validate(ErrListCallbacksQueryIsNotConstructed)
}

// Status returns the status filter, empty for all.
func (q ListCallbacksQuery) Status() callback.Status {
	return q.status
}

func (q ListCallbacksQuery) Limit() int {
	return q.limit
}

// ListCallbacksQueryResponse is one queue row as operators see it.
type ListCallbacksQueryResponse struct {
	ID             kernel.UUID
	TenantID       kernel.UUID
	RequestID      kernel.UUID
	SubjectID      kernel.UUID
	SubjectKind    string
	EventType      string
	Status         string
	Attempts       int
	NextAttemptAt  time.Time
	LastError      string
	LastStatusCode int
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeliveredAt    *time.Time
}

// NewListCallbacksQueryResponse maps a callback into its read model.
func NewListCallbacksQueryResponse(c *callback.Callback) ListCallbacksQueryResponse {
	return ListCallbacksQueryResponse{
		ID:             c.ID(),
		TenantID:       c.TenantID(),
		RequestID:      c.RequestID(),
		SubjectID:      c.SubjectID(),
		SubjectKind:    string(c.SubjectKind()),
		EventType:      c.EventType().String(),
		Status:         c.Status().String(),
		Attempts:       c.Attempts(),
		NextAttemptAt:  c.NextAttemptAt(),
		LastError:      c.LastError(),
		LastStatusCode: c.LastStatusCode(),
		CreatedAt:      c.CreatedAt(),
		UpdatedAt:      c.UpdatedAt(),
		DeliveredAt:    c.DeliveredAt(),
	}
}
