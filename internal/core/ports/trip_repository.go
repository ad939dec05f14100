package ports

import (
	"context"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/trip"
)

// TripRepository persists Trip aggregates.
type TripRepository interface {
	// Add stores a new trip.
	Add(ctx context.Context, aggregate *trip.Trip) error

	// Update persists status, assignment, distances, coordinates and timeline.
	Update(ctx context.Context, aggregate *trip.Trip) error

	// Get loads a trip. Returns errs.ObjectNotFoundError when absent.
	Get(ctx context.Context, id kernel.UUID) (*trip.Trip, error)

	// GetForUpdate loads a trip under a row lock held until the unit of work ends.
	GetForUpdate(ctx context.Context, id kernel.UUID) (*trip.Trip, error)

	// ListByRequest returns every trip of a request, newest first.
	ListByRequest(ctx context.Context, requestID kernel.UUID) ([]*trip.Trip, error)

	// GetActiveByRequest returns the not-started or in-progress trip of a request,
	// or errs.ObjectNotFoundError.
	GetActiveByRequest(ctx context.Context, requestID kernel.UUID) (*trip.Trip, error)
}
