package commands

import (
	"context"
	"errors"

	"fulfillment/internal/core/domain/model/tenant"
	"fulfillment/internal/pkg/errs"
)

// ConfigureTenantCommandHandler upserts a tenant. It reports whether the
// tenant was created.
type ConfigureTenantCommandHandler struct {
	uowFactory TenantUoWFactory
}

// NewConfigureTenantCommandHandler creates the handler over a tenant-only unit of work.
func NewConfigureTenantCommandHandler(uowFactory TenantUoWFactory) ConfigureTenantCommandHandler {
	return ConfigureTenantCommandHandler{
		uowFactory: uowFactory,
	}
}

// Handle creates the tenant or replaces its settings.
//
// Returns:
//   - true when the tenant did not exist before
//   - the storage error, with nothing written
//
// Example:
//
//	created, err := handler.Handle(ctx, cmd)
//	if err != nil {
//	    return err
//	}
//	status := http.StatusOK
//	if created {
//	    status = http.StatusCreated
//	}
func (h ConfigureTenantCommandHandler) Handle(ctx context.Context, cmd ConfigureTenantCommand) (bool, error) {
	if err := cmd.Validate(); err != nil {
		return false, err
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	repo := uow.TenantRepository()
	existing, err := repo.Get(ctx, cmd.TenantID())
	switch {
	case errors.Is(err, errs.ErrObjectNotFound):
		created, err := tenant.NewTenant(cmd.TenantID(), cmd.Settings())
		if err != nil {
			return false, err
		}
		if err = repo.Add(ctx, created); err != nil {
			return false, err
		}
	case err != nil:
		return false, err
	default:
		if err = existing.Configure(cmd.Settings()); err != nil {
			return false, err
		}
		if err = repo.Update(ctx, existing); err != nil {
			return false, err
		}
	}

	if err = uow.Commit(ctx); err != nil {
		return false, err
	}

	return existing == nil, nil
}
