package ports

import (
	"context"
)

// UnitOfWorkFactory creates one UnitOfWork per command or job run.
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// UnitOfWork is a business transaction boundary. Repositories it hands out
// share the transaction started by Begin.
//
// Example:
//
//	uow := factory.Create()
//	if err := uow.Begin(ctx); err != nil {
//	    return err
//	}
//	defer func() { _ = uow.Rollback(ctx) }()
//
//	t, err := uow.TripRepository().GetForUpdate(ctx, tripID)
//	if err != nil {
//	    return err
//	}
//	// change t, save it, queue callbacks
//	return uow.Commit(ctx)
type UnitOfWork interface {
	// Begin opens the transaction. A second call while it is open is a no-op.
	Begin(ctx context.Context) error

	// Commit makes every write visible. It fails when no transaction is open.
	Commit(ctx context.Context) error

	// Rollback discards the writes. After Commit it only reports that no
	// transaction is open, so callers defer it and ignore the result.
	Rollback(ctx context.Context) error

	DeliveryRequestRepository() DeliveryRequestRepository
	TripRepository() TripRepository
	TenantRepository() TenantRepository
	CallbackRepository() CallbackRepository
}
