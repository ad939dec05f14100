// Package commands contains the operations that change delivery state.
// Every command follows the same pattern: a value built by its constructor, a
// handler that validates it, opens a unit of work, loads and locks what it
// changes, applies domain rules and commits.
package commands

import (
	"context"

	"fulfillment/internal/core/ports"
)

type (
	// TxManager handles the transaction lifecycle.
	TxManager interface {
		Begin(ctx context.Context) error
		Commit(ctx context.Context) error
		Rollback(ctx context.Context) error
	}

	DeliveryRequestRepoFactory interface {
		DeliveryRequestRepository() ports.DeliveryRequestRepository
	}

	TripRepoFactory interface {
		TripRepository() ports.TripRepository
	}

	TenantRepoFactory interface {
		TenantRepository() ports.TenantRepository
	}

	CallbackRepoFactory interface {
		CallbackRepository() ports.CallbackRepository
	}

	// UoW spans requests, trips and the callback queue. Events raised by a
	// transition are queued in the same transaction that stores it.
	//
	// Example:
	//   uow := factory.Create()
	//   err := uow.Begin(ctx)
	//   defer uow.Rollback(ctx)
	//
	//   request, err := uow.DeliveryRequestRepository().GetForUpdate(ctx, id)
	//   // ... apply the transition
	//
	//   err = uow.Commit(ctx)
	UoW interface {
		TxManager
		DeliveryRequestRepoFactory
		TripRepoFactory
		TenantRepoFactory
		CallbackRepoFactory
	}

	UoWFactory interface {
		Create() UoW
	}

	// TenantUoW is used by tenant configuration only.
	TenantUoW interface {
		TxManager
		TenantRepoFactory
	}

	TenantUoWFactory interface {
		Create() TenantUoW
	}

	// CallbackUoW is used by operator actions on the callback queue.
	CallbackUoW interface {
		TxManager
		CallbackRepoFactory
	}

	CallbackUoWFactory interface {
		Create() CallbackUoW
	}
)
