// Package postgres is the GORM implementation of the unit of work and of
// every repository port.
//
// Repositories obtained from a GormUnitOfWork run inside its transaction once
// Begin was called and directly on the pool otherwise, so the same factory
// serves command handlers and read paths.
//
// Example:
//
//	factory := NewGormUnitOfWorkFactory(db)
//	uow := factory.Create()
//	if err := uow.Begin(ctx); err != nil {
//	    return err
//	}
//	defer func() { _ = uow.Rollback(ctx) }()
//
//	request, err := uow.DeliveryRequestRepository().GetForUpdate(ctx, id)
//	if err != nil {
//	    return err
//	}
//	// mutate request
//	if err := uow.DeliveryRequestRepository().Update(ctx, request); err != nil {
//	    return err
//	}
//	return uow.Commit(ctx)
package postgres

import (
	"context"

	"fulfillment/internal/adapters/out/postgres/callbackrepo"
	"fulfillment/internal/adapters/out/postgres/deliveryrepo"
	"fulfillment/internal/adapters/out/postgres/tenantrepo"
	"fulfillment/internal/adapters/out/postgres/triprepo"
	"fulfillment/internal/core/ports"

	"gorm.io/gorm"
)

// GormUnitOfWorkFactory creates UnitOfWork instances sharing one connection pool.
type GormUnitOfWorkFactory struct {
	db *gorm.DB
}

// NewGormUnitOfWorkFactory wraps a migrated database handle. The handle carries the
// pool; every unit of work borrows one connection for its transaction.
func NewGormUnitOfWorkFactory(db *gorm.DB) *GormUnitOfWorkFactory {
	return &GormUnitOfWorkFactory{db: db}
}

// Create returns a unit of work with no transaction open.
func (f *GormUnitOfWorkFactory) Create() ports.UnitOfWork {
	return &GormUnitOfWork{db: f.db}
}

// GormUnitOfWork holds at most one open transaction. It is not safe for
// concurrent use; every operation creates its own.
//
// Repository accessors build a fresh repository on each call, bound to the open
// transaction or to the pool when none is open, so a repository taken before
// Begin does not join the transaction.
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
//	if err := t.Cancel(now); err != nil {
//	    return err
//	}
//	if err := uow.TripRepository().Update(ctx, t); err != nil {
//	    return err
//	}
//	return uow.Commit(ctx)
type GormUnitOfWork struct {
	db *gorm.DB
	tx *gorm.DB
}

// Begin opens a transaction. Calling it again while one is open is a no-op.
func (uow *GormUnitOfWork) Begin(ctx context.Context) error {
	if uow.tx != nil {
		return nil
	}

	uow.tx = uow.db.WithContext(ctx).Begin()
	if uow.tx.Error != nil {
		err := uow.tx.Error
		uow.tx = nil
		return err
	}

	return nil
}

// Commit returns gorm.ErrInvalidTransaction when no transaction is open.
func (uow *GormUnitOfWork) Commit(_ context.Context) error {
	if uow.tx == nil {
		return gorm.ErrInvalidTransaction
	}

	err := uow.tx.Commit().Error
	uow.tx = nil
	return err
}

// Rollback returns gorm.ErrInvalidTransaction when no transaction is open,
// which is the normal case for the deferred call after a Commit.
func (uow *GormUnitOfWork) Rollback(_ context.Context) error {
	if uow.tx == nil {
		return gorm.ErrInvalidTransaction
	}

	err := uow.tx.Rollback().Error
	uow.tx = nil
	return err
}

// DeliveryRequestRepository returns the request repository on the current connection.
func (uow *GormUnitOfWork) DeliveryRequestRepository() ports.DeliveryRequestRepository {
	return deliveryrepo.NewGormDeliveryRequestRepository(uow.conn())
}

// TripRepository returns the trip repository on the current connection.
func (uow *GormUnitOfWork) TripRepository() ports.TripRepository {
	return triprepo.NewGormTripRepository(uow.conn())
}

// TenantRepository returns the tenant repository on the current connection.
func (uow *GormUnitOfWork) TenantRepository() ports.TenantRepository {
	return tenantrepo.NewGormTenantRepository(uow.conn())
}

// CallbackRepository returns the callback queue on the current connection.
func (uow *GormUnitOfWork) CallbackRepository() ports.CallbackRepository {
	return callbackrepo.NewGormCallbackRepository(uow.conn())
}

func (uow *GormUnitOfWork) conn() *gorm.DB {
	if uow.tx != nil {
		return uow.tx
	}
	return uow.db
}
