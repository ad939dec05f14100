package deliveryrepo

import (
	"context"
	"errors"

	"fulfillment/internal/core/domain/model/delivery"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/pkg/errs"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDeliveryRequestRepository implements ports.DeliveryRequestRepository using GORM.
type GormDeliveryRequestRepository struct {
	db *gorm.DB
}

// NewGormDeliveryRequestRepository binds the repository to db, a pool or an open
// transaction.
func NewGormDeliveryRequestRepository(db *gorm.DB) *GormDeliveryRequestRepository {
	return &GormDeliveryRequestRepository{db: db}
}

// Add inserts the request together with its destinations.
//
// Returns a ConflictError when another transaction already stored one of the
// tenant's external ids. The transaction is aborted at that point; the caller
// retries in a new one.
func (r *GormDeliveryRequestRepository) Add(ctx context.Context, aggregate *delivery.DeliveryRequest) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	db := r.db.WithContext(ctx)
	if err := db.Create(&dto).Error; err != nil {
		if isDuplicateKey(db, err) {
			return errs.NewConflictError("destination", "external_id", err)
		}
		return err
	}
	return nil
}

// Update writes the root row and every destination row. The set of
// destinations never changes after creation.
func (r *GormDeliveryRequestRepository) Update(ctx context.Context, aggregate *delivery.DeliveryRequest) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	db := r.db.WithContext(ctx)

	result := db.Model(&DeliveryRequestDTO{}).
		Where("id = ?", dto.ID).
		Select("*").
		Omit("Destinations", "CreatedAt").
		Updates(&dto)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	for i := range dto.Destinations {
		d := dto.Destinations[i]
		result = db.Model(&DestinationDTO{}).Where("id = ?", d.ID).Select("*").Updates(&d)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
	}

	return nil
}

// Get loads a request with its destinations in submission order.
func (r *GormDeliveryRequestRepository) Get(ctx context.Context, id kernel.UUID) (*delivery.DeliveryRequest, error) {
	return r.get(r.db.WithContext(ctx), id)
}

// GetForUpdate locks the request row until the surrounding transaction ends.
func (r *GormDeliveryRequestRepository) GetForUpdate(ctx context.Context, id kernel.UUID) (*delivery.DeliveryRequest, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

// GetByDestination loads the request owning a destination id.
func (r *GormDeliveryRequestRepository) GetByDestination(
	ctx context.Context,
	destinationID kernel.UUID,
) (*delivery.DeliveryRequest, error) {
	if err := destinationID.Validate(); err != nil {
		return nil, err
	}

	db := r.db.WithContext(ctx)
	owner := db.Model(&DestinationDTO{}).Select("request_id").Where("id = ?", destinationID.Bytes())

	var dto DeliveryRequestDTO
	if err := withDestinations(db).Where("id = (?)", owner).First(&dto).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("destinationId", destinationID.String())
		}
		return nil, err
	}

	return toDomain(dto)
}

// FindByExternalIDs returns every request of the tenant owning at least one of
// the given external ids.
func (r *GormDeliveryRequestRepository) FindByExternalIDs(
	ctx context.Context,
	tenantID kernel.UUID,
	externalIDs []string,
) ([]*delivery.DeliveryRequest, error) {
	if len(externalIDs) == 0 {
		return nil, nil
	}

	db := r.db.WithContext(ctx)
	owners := db.Model(&DestinationDTO{}).
		Select("request_id").
		Where("tenant_id = ? AND external_id IN ?", tenantID.Bytes(), externalIDs)

	var dtos []DeliveryRequestDTO
	if err := withDestinations(db).Where("id IN (?)", owners).Order("created_at").Find(&dtos).Error; err != nil {
		return nil, err
	}

	requests := make([]*delivery.DeliveryRequest, 0, len(dtos))
	for _, dto := range dtos {
		req, err := toDomain(dto)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}

	return requests, nil
}

func (r *GormDeliveryRequestRepository) get(db *gorm.DB, id kernel.UUID) (*delivery.DeliveryRequest, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var dto DeliveryRequestDTO
	if err := withDestinations(db).First(&dto, "id = ?", id.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("requestId", id.String())
		}
		return nil, err
	}

	return toDomain(dto)
}

func withDestinations(db *gorm.DB) *gorm.DB {
	return db.Preload("Destinations", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position")
	})
}

// isDuplicateKey reports a unique violation whether or not the connection was
// opened with TranslateError.
func isDuplicateKey(db *gorm.DB, err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	if t, ok := db.Dialector.(gorm.ErrorTranslator); ok {
		return errors.Is(t.Translate(err), gorm.ErrDuplicatedKey)
	}
	return false
}
