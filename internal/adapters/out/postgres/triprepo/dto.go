// Package triprepo persists trips.
package triprepo

import (
	"time"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/trip"

	"github.com/google/uuid"
)

// TripDTO is one row of trips. At most one trip per request is active, which
// the partial unique index enforces.
type TripDTO struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	RequestID         uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_trips_active_request,where:status <> 'completed' AND status <> 'cancelled'"`
	TenantID          uuid.UUID  `gorm:"type:uuid;not null;index"`
	DriverID          *uuid.UUID `gorm:"type:uuid;index"`
	VehicleID         string     `gorm:"type:varchar(64)"`
	Status            string     `gorm:"type:varchar(20);not null"`
	PlannedDistanceKm float64    `gorm:"type:double precision;not null"`
	ActualDistanceKm  *float64   `gorm:"type:double precision"`
	Start             PointDTO   `gorm:"embedded;embeddedPrefix:start_"`
	End               PointDTO   `gorm:"embedded;embeddedPrefix:end_"`
	AssignedAt        time.Time  `gorm:"type:timestamptz;not null"`
	StartedAt         *time.Time `gorm:"type:timestamptz"`
	CompletedAt       *time.Time `gorm:"type:timestamptz"`
	CancelledAt       *time.Time `gorm:"type:timestamptz"`
}

func (TripDTO) TableName() string {
	return "trips"
}

// PointDTO is an optional coordinate pair.
type PointDTO struct {
	Lat *float64 `gorm:"type:double precision"`
	Lng *float64 `gorm:"type:double precision"`
}

func pointFromDomain(c *kernel.Coordinates) PointDTO {
	if c == nil {
		return PointDTO{}
	}
	lat, lng := c.Lat(), c.Lng()
	return PointDTO{Lat: &lat, Lng: &lng}
}

func (p PointDTO) toDomain() (*kernel.Coordinates, error) {
	if p.Lat == nil || p.Lng == nil {
		return nil, nil
	}
	c, err := kernel.NewCoordinates(*p.Lat, *p.Lng)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func fromDomain(t *trip.Trip) TripDTO {
	var driverID *uuid.UUID
	if id := t.DriverID(); id != nil {
		raw := id.Bytes()
		driverID = &raw
	}

	tl := t.Timeline()
	return TripDTO{
		ID:                t.ID().Bytes(),
		RequestID:         t.RequestID().Bytes(),
		TenantID:          t.TenantID().Bytes(),
		DriverID:          driverID,
		VehicleID:         t.VehicleID(),
		Status:            t.Status().String(),
		PlannedDistanceKm: t.PlannedDistanceKm(),
		ActualDistanceKm:  t.ActualDistanceKm(),
		Start:             pointFromDomain(t.StartCoordinates()),
		End:               pointFromDomain(t.EndCoordinates()),
		AssignedAt:        tl.AssignedAt,
		StartedAt:         tl.StartedAt,
		CompletedAt:       tl.CompletedAt,
		CancelledAt:       tl.CancelledAt,
	}
}

func toDomain(dto TripDTO) (*trip.Trip, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}
	requestID, err := kernel.UUIDFromBytes(dto.RequestID[:])
	if err != nil {
		return nil, err
	}
	tenantID, err := kernel.UUIDFromBytes(dto.TenantID[:])
	if err != nil {
		return nil, err
	}

	var driverID *kernel.UUID
	if dto.DriverID != nil {
		dID, driverErr := kernel.UUIDFromBytes((*dto.DriverID)[:])
		if driverErr != nil {
			return nil, driverErr
		}
		driverID = &dID
	}

	status, err := trip.ParseStatus(dto.Status)
	if err != nil {
		return nil, err
	}
	start, err := dto.Start.toDomain()
	if err != nil {
		return nil, err
	}
	end, err := dto.End.toDomain()
	if err != nil {
		return nil, err
	}

	return trip.RestoreTrip(
		id, requestID, tenantID,
		driverID,
		dto.VehicleID,
		status,
		dto.PlannedDistanceKm,
		dto.ActualDistanceKm,
		start, end,
		trip.Timeline{
			AssignedAt:  dto.AssignedAt,
			StartedAt:   dto.StartedAt,
			CompletedAt: dto.CompletedAt,
			CancelledAt: dto.CancelledAt,
		},
	)
}
