// Package queries contains read operations. They return read models shaped
// for the HTTP layer and never change state.
package queries

import (
	"fulfillment/internal/core/ports"
)

type (
	// Repositories gives queries read access outside of a transaction.
	Repositories interface {
		DeliveryRequestRepository() ports.DeliveryRequestRepository
		TripRepository() ports.TripRepository
		CallbackRepository() ports.CallbackRepository
	}

	RepositoriesFactory interface {
		Create() Repositories
	}
)
