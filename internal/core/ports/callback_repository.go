package ports

import (
	"context"
	"time"

	"fulfillment/internal/core/domain/model/callback"
	"fulfillment/internal/core/domain/model/kernel"
)

// CallbackFilter narrows ListCallbacks. Zero values mean "any".
type CallbackFilter struct {
	Status    callback.Status
	TenantID  *kernel.UUID
	SubjectID *kernel.UUID
	Limit     int
}

// CallbackRepository is the durable callback queue. Callbacks are added in the
// same unit of work as the transition that raised their event, so a committed
// transition always has its callback queued.
type CallbackRepository interface {
	// Add queues a new pending callback.
	Add(ctx context.Context, aggregate *callback.Callback) error

	// Update persists status, attempts, schedule, lease and last error.
	// Fails when the row is gone.
	Update(ctx context.Context, aggregate *callback.Callback) error

	// Get loads one callback. Returns errs.ObjectNotFoundError when absent.
	Get(ctx context.Context, id kernel.UUID) (*callback.Callback, error)

	// ClaimDue leases up to limit due callbacks, oldest first, and persists the
	// claim. Rows claimed by another worker are skipped. Reclaiming a callback
	// whose lease ran out counts the lost attempt (see callback.Callback.Claim);
	// a callback failed that way is returned with StatusFailed and must not be sent.
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*callback.Callback, error)

	// List returns callbacks matching filter, newest first. A zero Limit falls
	// back to the adapter default.
	//
	// Example:
	//
	//	failed, err := repo.List(ctx, ports.CallbackFilter{
	//	    Status:   callback.StatusFailed,
	//	    TenantID: &tenantID,
	//	    Limit:    50,
	//	})
	List(ctx context.Context, filter CallbackFilter) ([]*callback.Callback, error)
}
