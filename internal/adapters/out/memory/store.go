// Package memory is an in-process implementation of the unit of work, the
// repository ports and the entity locker. It backs the service when no
// database is configured and the end-to-end tests.
//
// Transactions are serialised: Begin waits until no other unit of work holds
// one, writes are staged and become visible to others on Commit. Repositories
// used without Begin read and write the committed state directly.
package memory

import (
	"context"
	"errors"
	"sync"

	"fulfillment/internal/core/domain/model/callback"
	"fulfillment/internal/core/domain/model/delivery"
	"fulfillment/internal/core/domain/model/tenant"
	"fulfillment/internal/core/domain/model/trip"
	"fulfillment/internal/core/ports"
)

var (
	ErrNoTransaction = errors.New("no transaction is open")
	ErrDuplicateKey  = errors.New("duplicate key")
)

// tables holds one version of every aggregate, keyed by id.
type tables struct {
	requests  map[string]*delivery.DeliveryRequest
	trips     map[string]*trip.Trip
	tenants   map[string]*tenant.Tenant
	callbacks map[string]*callback.Callback
}

func newTables() *tables {
	return &tables{
		requests:  map[string]*delivery.DeliveryRequest{},
		trips:     map[string]*trip.Trip{},
		tenants:   map[string]*tenant.Tenant{},
		callbacks: map[string]*callback.Callback{},
	}
}

// Store is the committed state shared by every unit of work.
type Store struct {
	mu sync.RWMutex
	// tx admits one open transaction at a time.
	tx   chan struct{}
	data *tables
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{tx: make(chan struct{}, 1), data: newTables()}
}

// UnitOfWorkFactory creates units of work over one Store.
type UnitOfWorkFactory struct {
	store *Store
}

func NewUnitOfWorkFactory(store *Store) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{store: store}
}

func (f *UnitOfWorkFactory) Create() ports.UnitOfWork {
	return &UnitOfWork{store: f.store}
}

// UnitOfWork stages writes in staged until Commit. It is not safe for
// concurrent use.
type UnitOfWork struct {
	store  *Store
	staged *tables
}

// Begin waits for the store's transaction slot or for ctx. Calling it on an open
// transaction does nothing.
func (uow *UnitOfWork) Begin(ctx context.Context) error {
	if uow.staged != nil {
		return nil
	}

	select {
	case uow.store.tx <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	uow.staged = newTables()
	return nil
}

// Commit publishes every staged row and frees the slot.
func (uow *UnitOfWork) Commit(_ context.Context) error {
	if uow.staged == nil {
		return ErrNoTransaction
	}

	uow.store.mu.Lock()
	for id, r := range uow.staged.requests {
		uow.store.data.requests[id] = r
	}
	for id, t := range uow.staged.trips {
		uow.store.data.trips[id] = t
	}
	for id, t := range uow.staged.tenants {
		uow.store.data.tenants[id] = t
	}
	for id, c := range uow.staged.callbacks {
		uow.store.data.callbacks[id] = c
	}
	uow.store.mu.Unlock()

	uow.end()
	return nil
}

// Rollback drops the staged rows. Without an open transaction it returns
// ErrNoTransaction, which deferred rollbacks ignore.
func (uow *UnitOfWork) Rollback(_ context.Context) error {
	if uow.staged == nil {
		return ErrNoTransaction
	}
	uow.end()
	return nil
}

func (uow *UnitOfWork) end() {
	uow.staged = nil
	<-uow.store.tx
}

func (uow *UnitOfWork) DeliveryRequestRepository() ports.DeliveryRequestRepository {
	return &DeliveryRequestRepository{view: uow.view()}
}

func (uow *UnitOfWork) TripRepository() ports.TripRepository {
	return &TripRepository{view: uow.view()}
}

func (uow *UnitOfWork) TenantRepository() ports.TenantRepository {
	return &TenantRepository{view: uow.view()}
}

func (uow *UnitOfWork) CallbackRepository() ports.CallbackRepository {
	return &CallbackRepository{view: uow.view()}
}

func (uow *UnitOfWork) view() view {
	return view{uow: uow}
}

// view reads staged rows first and falls back to the committed ones.
type view struct {
	uow *UnitOfWork
}

// read runs fn over the merged state under the read lock.
func (v view) read(fn func(t *tables)) {
	store := v.uow.store
	store.mu.RLock()
	defer store.mu.RUnlock()
	fn(v.merged())
}

// write runs fn against the staged tables, or the committed ones under the
// write lock when no transaction is open. fn sees the merged state in current.
func (v view) write(fn func(current, target *tables) error) error {
	store := v.uow.store
	if staged := v.uow.staged; staged != nil {
		store.mu.RLock()
		defer store.mu.RUnlock()
		return fn(v.merged(), staged)
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	return fn(store.data, store.data)
}

func (v view) merged() *tables {
	staged := v.uow.staged
	if staged == nil {
		return v.uow.store.data
	}
	m := newTables()
	for _, src := range []*tables{v.uow.store.data, staged} {
		for id, r := range src.requests {
			m.requests[id] = r
		}
		for id, t := range src.trips {
			m.trips[id] = t
		}
		for id, t := range src.tenants {
			m.tenants[id] = t
		}
		for id, c := range src.callbacks {
			m.callbacks[id] = c
		}
	}
	return m
}
