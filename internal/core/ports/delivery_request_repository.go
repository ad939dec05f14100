// Package ports defines the contracts between the application core and its adapters.
package ports

import (
	"context"

	"fulfillment/internal/core/domain/model/delivery"
	"fulfillment/internal/core/domain/model/kernel"
)

// DeliveryRequestRepository persists DeliveryRequest aggregates together with
// their destinations.
type DeliveryRequestRepository interface {
	// Add persists a new request and all of its destinations.
	// Returns errs.ConflictError when one of the external ids is already stored
	// for the tenant, which happens when two first submissions race.
	Add(ctx context.Context, aggregate *delivery.DeliveryRequest) error

	// Update persists the request status and every destination.
	Update(ctx context.Context, aggregate *delivery.DeliveryRequest) error

	// Get loads a request. Returns errs.ObjectNotFoundError when absent.
	Get(ctx context.Context, id kernel.UUID) (*delivery.DeliveryRequest, error)

	// GetForUpdate loads a request and holds a row lock on it until the unit of
	// work ends, so at most one writer changes an aggregate at a time.
	GetForUpdate(ctx context.Context, id kernel.UUID) (*delivery.DeliveryRequest, error)

	// GetByDestination loads the request that owns a destination.
	// Returns errs.ObjectNotFoundError for an unknown destination id.
	GetByDestination(ctx context.Context, destinationID kernel.UUID) (*delivery.DeliveryRequest, error)

	// FindByExternalIDs returns the tenant's requests owning any of externalIDs,
	// each request once. An empty result means none of the stops was submitted
	// before.
	//
	// Example:
	//
	//	existing, err := repo.FindByExternalIDs(ctx, tenantID, []string{"MELO-001", "MELO-002"})
	//	if err != nil {
	//	    return err
	//	}
	//	switch len(existing) {
	//	case 0:
	//	    // first submission
	//	case 1:
	//	    // resubmission of existing[0]
	//	default:
	//	    // stops spread over several requests
	//	}
	FindByExternalIDs(ctx context.Context, tenantID kernel.UUID, externalIDs []string) ([]*delivery.DeliveryRequest, error)
}
