package ports

import (
	"context"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/tenant"
)

// TenantRepository persists tenants with their callback and schema settings.
type TenantRepository interface {
	// Add stores a new tenant.
	Add(ctx context.Context, aggregate *tenant.Tenant) error

	// Update replaces name, key hash, callback settings and schema.
	Update(ctx context.Context, aggregate *tenant.Tenant) error

	// Get loads a tenant. Returns errs.ObjectNotFoundError when absent.
	Get(ctx context.Context, id kernel.UUID) (*tenant.Tenant, error)

	// GetByAPIKeyHash finds the tenant owning a hashed API key.
	// Returns errs.ObjectNotFoundError for an unknown key.
	//
	// Example:
	//
	//	tn, err := repo.GetByAPIKeyHash(ctx, tenant.HashAPIKey(presentedKey))
	GetByAPIKeyHash(ctx context.Context, hash string) (*tenant.Tenant, error)
}
