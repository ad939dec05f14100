package callbacks

import (
	"fulfillment/internal/core/ports"
)

type (
	// Repositories are used without a transaction: every callback row is
	// written on its own once its attempt is over.
	Repositories interface {
		DeliveryRequestRepository() ports.DeliveryRequestRepository
		TripRepository() ports.TripRepository
		TenantRepository() ports.TenantRepository
		CallbackRepository() ports.CallbackRepository
	}

	RepositoriesFactory interface {
		Create() Repositories
	}
)
