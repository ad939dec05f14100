package triprepo

import (
	"context"
	"errors"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/trip"
	"fulfillment/internal/pkg/errs"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var activeStatuses = []string{trip.StatusNotStarted.String(), trip.StatusInProgress.String()}

// GormTripRepository implements ports.TripRepository using GORM.
type GormTripRepository struct {
	db *gorm.DB
}

// NewGormTripRepository binds the repository to db, a pool or an open transaction.
func NewGormTripRepository(db *gorm.DB) *GormTripRepository {
	return &GormTripRepository{db: db}
}

// Add inserts a trip row.
func (r *GormTripRepository) Add(ctx context.Context, aggregate *trip.Trip) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	return r.db.WithContext(ctx).Create(&dto).Error
}

// Update rewrites every column of the trip row.
func (r *GormTripRepository) Update(ctx context.Context, aggregate *trip.Trip) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	result := r.db.WithContext(ctx).Model(&TripDTO{}).Where("id = ?", dto.ID).Select("*").Updates(&dto)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// Get loads one trip by id.
func (r *GormTripRepository) Get(ctx context.Context, id kernel.UUID) (*trip.Trip, error) {
	return r.get(r.db.WithContext(ctx), id)
}

// GetForUpdate locks the trip row until the surrounding transaction ends.
func (r *GormTripRepository) GetForUpdate(ctx context.Context, id kernel.UUID) (*trip.Trip, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

// ListByRequest returns every trip of a request, newest assignment first.
func (r *GormTripRepository) ListByRequest(ctx context.Context, requestID kernel.UUID) ([]*trip.Trip, error) {
	if err := requestID.Validate(); err != nil {
		return nil, err
	}

	var dtos []TripDTO
	if err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID.Bytes()).
		Order("assigned_at DESC").
		Find(&dtos).Error; err != nil {
		return nil, err
	}

	trips := make([]*trip.Trip, 0, len(dtos))
	for _, dto := range dtos {
		t, err := toDomain(dto)
		if err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}

	return trips, nil
}

// GetActiveByRequest returns the not started or in progress trip of a request.
func (r *GormTripRepository) GetActiveByRequest(ctx context.Context, requestID kernel.UUID) (*trip.Trip, error) {
	if err := requestID.Validate(); err != nil {
		return nil, err
	}

	var dto TripDTO
	if err := r.db.WithContext(ctx).
		Where("request_id = ? AND status IN ?", requestID.Bytes(), activeStatuses).
		First(&dto).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("activeTrip", requestID.String())
		}
		return nil, err
	}

	return toDomain(dto)
}

func (r *GormTripRepository) get(db *gorm.DB, id kernel.UUID) (*trip.Trip, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var dto TripDTO
	if err := db.First(&dto, "id = ?", id.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("tripId", id.String())
		}
		return nil, err
	}

	return toDomain(dto)
}
