// Package callbackrepo is the durable callback queue on PostgreSQL.
package callbackrepo

import (
	"time"

	"fulfillment/internal/core/domain/model/callback"
	"fulfillment/internal/core/domain/model/event"
	"fulfillment/internal/core/domain/model/kernel"

	"github.com/google/uuid"
)

// CallbackDTO is one row of callbacks. The partial index serves the poller.
type CallbackDTO struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TenantID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	RequestID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	SubjectID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	EventType      string     `gorm:"type:varchar(40);not null"`
	Status         string     `gorm:"type:varchar(20);not null;index:idx_callbacks_due,priority:1"`
	Attempts       int        `gorm:"type:int;not null"`
	NextAttemptAt  time.Time  `gorm:"type:timestamptz;not null;index:idx_callbacks_due,priority:2"`
	LeaseExpiresAt *time.Time `gorm:"type:timestamptz"`
	LastError      string     `gorm:"type:text"`
	LastStatusCode int        `gorm:"type:int"`
	CreatedAt      time.Time  `gorm:"type:timestamptz;not null;autoCreateTime:false"`
	UpdatedAt      time.Time  `gorm:"type:timestamptz;not null;autoUpdateTime:false"`
	DeliveredAt    *time.Time `gorm:"type:timestamptz"`
}

func (CallbackDTO) TableName() string {
	return "callbacks"
}

func fromDomain(c *callback.Callback) CallbackDTO {
	s := c.State()
	return CallbackDTO{
		ID:             c.ID().Bytes(),
		TenantID:       c.TenantID().Bytes(),
		RequestID:      c.RequestID().Bytes(),
		SubjectID:      c.SubjectID().Bytes(),
		EventType:      c.EventType().String(),
		Status:         s.Status.String(),
		Attempts:       s.Attempts,
		NextAttemptAt:  s.NextAttemptAt,
		LeaseExpiresAt: s.LeaseExpiresAt,
		LastError:      s.LastError,
		LastStatusCode: s.LastStatusCode,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
		DeliveredAt:    s.DeliveredAt,
	}
}

func toDomain(dto CallbackDTO) (*callback.Callback, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}
	tenantID, err := kernel.UUIDFromBytes(dto.TenantID[:])
	if err != nil {
		return nil, err
	}
	requestID, err := kernel.UUIDFromBytes(dto.RequestID[:])
	if err != nil {
		return nil, err
	}
	subjectID, err := kernel.UUIDFromBytes(dto.SubjectID[:])
	if err != nil {
		return nil, err
	}
	status, err := callback.ParseStatus(dto.Status)
	if err != nil {
		return nil, err
	}

	return callback.RestoreCallback(id, tenantID, requestID, subjectID, event.Type(dto.EventType), callback.State{
		Status:         status,
		Attempts:       dto.Attempts,
		NextAttemptAt:  dto.NextAttemptAt,
		LeaseExpiresAt: dto.LeaseExpiresAt,
		LastError:      dto.LastError,
		LastStatusCode: dto.LastStatusCode,
		CreatedAt:      dto.CreatedAt,
		UpdatedAt:      dto.UpdatedAt,
		DeliveredAt:    dto.DeliveredAt,
	})
}
