package tenantrepo

import (
	"context"
	"errors"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/tenant"
	"fulfillment/internal/pkg/errs"

	"gorm.io/gorm"
)

// GormTenantRepository implements ports.TenantRepository using GORM.
type GormTenantRepository struct {
	db *gorm.DB
}

// NewGormTenantRepository binds the repository to db, a pool or an open transaction.
func NewGormTenantRepository(db *gorm.DB) *GormTenantRepository {
	return &GormTenantRepository{db: db}
}

// Add inserts a tenant. The schema is stored as JSON.
func (r *GormTenantRepository) Add(ctx context.Context, aggregate *tenant.Tenant) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto, err := fromDomain(aggregate)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&dto).Error
}

// Update rewrites every column of the tenant row.
// Returns gorm.ErrRecordNotFound when no row has the tenant's id.
func (r *GormTenantRepository) Update(ctx context.Context, aggregate *tenant.Tenant) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto, err := fromDomain(aggregate)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Model(&TenantDTO{}).Where("id = ?", dto.ID).Select("*").Updates(&dto)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// Get loads one tenant by id.
func (r *GormTenantRepository) Get(ctx context.Context, id kernel.UUID) (*tenant.Tenant, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var dto TenantDTO
	if err := r.db.WithContext(ctx).First(&dto, "id = ?", id.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("tenantId", id.String())
		}
		return nil, err
	}

	return toDomain(dto)
}

// GetByAPIKeyHash resolves the tenant authenticating a request.
func (r *GormTenantRepository) GetByAPIKeyHash(ctx context.Context, hash string) (*tenant.Tenant, error) {
	if hash == "" {
		return nil, errs.NewValueIsRequiredError("api_key")
	}

	var dto TenantDTO
	if err := r.db.WithContext(ctx).First(&dto, "api_key_hash = ?", hash).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("apiKey", "***")
		}
		return nil, err
	}

	return toDomain(dto)
}
