package callbackrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fulfillment/internal/core/domain/model/callback"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/ports"
	"fulfillment/internal/pkg/errs"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// dueCondition matches rows a worker may claim: pending and due, or in flight
// with an expired lease.
const dueCondition = "(status = ? AND next_attempt_at <= ?) OR (status = ? AND lease_expires_at <= ?)"

// GormCallbackRepository implements ports.CallbackRepository using GORM.
type GormCallbackRepository struct {
	db *gorm.DB
}

// NewGormCallbackRepository binds the repository to db, a pool or an open transaction.
func NewGormCallbackRepository(db *gorm.DB) *GormCallbackRepository {
	return &GormCallbackRepository{db: db}
}

// Add inserts a pending callback row.
func (r *GormCallbackRepository) Add(ctx context.Context, aggregate *callback.Callback) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	return r.db.WithContext(ctx).Create(&dto).Error
}

// Update rewrites every column of the row, zero values included.
// Returns gorm.ErrRecordNotFound when no row has the callback's id.
func (r *GormCallbackRepository) Update(ctx context.Context, aggregate *callback.Callback) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	result := r.db.WithContext(ctx).Model(&CallbackDTO{}).Where("id = ?", dto.ID).Select("*").Updates(&dto)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// Get loads one callback by id.
func (r *GormCallbackRepository) Get(ctx context.Context, id kernel.UUID) (*callback.Callback, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var dto CallbackDTO
	if err := r.db.WithContext(ctx).First(&dto, "id = ?", id.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("callbackId", id.String())
		}
		return nil, err
	}

	return toDomain(dto)
}

// ClaimDue selects due rows with FOR UPDATE SKIP LOCKED, leases them and
// commits, so concurrent pollers never receive the same row.
//
// A reclaimed row whose lease ran out gets its lost attempt counted; when that
// exhausts the attempts it is stored as failed and returned with StatusFailed.
// A row that no longer restores into a Callback is stored as skipped and left out.
//
// Example:
//
//	claimed, err := repo.ClaimDue(ctx, now, 2*time.Minute, 50)
//	for _, cb := range claimed {
//	    if cb.Status() == callback.StatusFailed {
//	        continue // report, nothing to send
//	    }
//	    // send cb
//	}
func (r *GormCallbackRepository) ClaimDue(
	ctx context.Context,
	now time.Time,
	lease time.Duration,
	limit int,
) ([]*callback.Callback, error) {
	if limit <= 0 {
		return nil, errs.NewValueIsInvalidError("limit")
	}

	var claimed []*callback.Callback
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dtos []CallbackDTO
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where(dueCondition,
				callback.StatusPending.String(), now,
				callback.StatusInFlight.String(), now).
			Order("next_attempt_at").
			Limit(limit).
			Find(&dtos).Error; err != nil {
			return err
		}

		claimed = make([]*callback.Callback, 0, len(dtos))
		for _, dto := range dtos {
			cb, err := toDomain(dto)
			if err != nil {
				if err := skipCorrupt(tx, dto, err, now); err != nil {
					return err
				}
				continue
			}
			if err := cb.Claim(now, lease); err != nil {
				return err
			}

			row := fromDomain(cb)
			if err := tx.Model(&CallbackDTO{}).Where("id = ?", row.ID).Updates(map[string]any{
				"status":           row.Status,
				"attempts":         row.Attempts,
				"lease_expires_at": row.LeaseExpiresAt,
				"last_error":       row.LastError,
				"last_status_code": row.LastStatusCode,
				"updated_at":       row.UpdatedAt,
			}).Error; err != nil {
				return err
			}
			claimed = append(claimed, cb)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim callbacks: %w", err)
	}

	return claimed, nil
}

// List returns callbacks matching filter, newest first.
func (r *GormCallbackRepository) List(ctx context.Context, filter ports.CallbackFilter) ([]*callback.Callback, error) {
	db := r.db.WithContext(ctx).Model(&CallbackDTO{})
	if filter.Status != callback.StatusUnknown {
		db = db.Where("status = ?", filter.Status.String())
	}
	if filter.TenantID != nil {
		db = db.Where("tenant_id = ?", filter.TenantID.Bytes())
	}
	if filter.SubjectID != nil {
		db = db.Where("subject_id = ?", filter.SubjectID.Bytes())
	}
	if filter.Limit > 0 {
		db = db.Limit(filter.Limit)
	}

	var dtos []CallbackDTO
	if err := db.Order("created_at DESC").Order("id").Find(&dtos).Error; err != nil {
		return nil, err
	}

	callbacks := make([]*callback.Callback, 0, len(dtos))
	for _, dto := range dtos {
		cb, err := toDomain(dto)
		if err != nil {
			return nil, err
		}
		callbacks = append(callbacks, cb)
	}

	return callbacks, nil
}

// skipCorrupt parks a row that fails validation so it stops blocking the poller.
func skipCorrupt(tx *gorm.DB, dto CallbackDTO, cause error, now time.Time) error {
	return tx.Model(&CallbackDTO{}).Where("id = ?", dto.ID).Updates(map[string]any{
		"status":           callback.StatusSkipped.String(),
		"lease_expires_at": nil,
		"last_error":       strings.ToValidUTF8("stored callback is invalid: "+cause.Error(), ""),
		"updated_at":       now,
	}).Error
}
