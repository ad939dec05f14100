// Package deliveryrepo persists delivery requests and their destinations.
package deliveryrepo

import (
	"time"

	"fulfillment/internal/core/domain/model/delivery"
	"fulfillment/internal/core/domain/model/kernel"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// DeliveryRequestDTO is one row of delivery_requests. Destinations are loaded
// in submission order.
type DeliveryRequestDTO struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey"`
	TenantID        uuid.UUID        `gorm:"type:uuid;not null;index"`
	Status          string           `gorm:"type:varchar(20);not null;index"`
	ScheduledDate   *time.Time       `gorm:"type:date"`
	Notes           string           `gorm:"type:text"`
	CallbackURL     string           `gorm:"type:text"`
	TotalDistanceKm *float64         `gorm:"type:double precision"`
	CreatedAt       time.Time        `gorm:"type:timestamptz;not null"`
	UpdatedAt       time.Time        `gorm:"type:timestamptz;not null;autoUpdateTime"`
	Destinations    []DestinationDTO `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE"`
}

func (DeliveryRequestDTO) TableName() string {
	return "delivery_requests"
}

// DestinationDTO is one row of destinations. External ids are unique per tenant.
type DestinationDTO struct {
	ID           uuid.UUID                 `gorm:"type:uuid;primaryKey"`
	RequestID    uuid.UUID                 `gorm:"type:uuid;not null;index"`
	TenantID     uuid.UUID                 `gorm:"type:uuid;not null;uniqueIndex:idx_destinations_tenant_external"`
	ExternalID   string                    `gorm:"type:varchar(255);not null;uniqueIndex:idx_destinations_tenant_external"`
	Position     int                       `gorm:"type:int;not null"`
	Address      string                    `gorm:"type:text;not null"`
	Lat          float64                   `gorm:"type:double precision;not null"`
	Lng          float64                   `gorm:"type:double precision;not null"`
	ContactName  string                    `gorm:"type:varchar(255)"`
	ContactPhone string                    `gorm:"type:varchar(64)"`
	Notes        string                    `gorm:"type:text"`
	Items        datatypes.JSONType[[]any] `gorm:"type:jsonb"`
	Status       string                    `gorm:"type:varchar(20);not null"`
	Arrival      ArrivalDTO                `gorm:"embedded;embeddedPrefix:arrival_"`
	Completion   CompletionDTO             `gorm:"embedded;embeddedPrefix:completion_"`
	Failure      FailureDTO                `gorm:"embedded;embeddedPrefix:failure_"`
}

func (DestinationDTO) TableName() string {
	return "destinations"
}

type ArrivalDTO struct {
	At  *time.Time `gorm:"type:timestamptz"`
	Lat *float64   `gorm:"type:double precision"`
	Lng *float64   `gorm:"type:double precision"`
}

type CompletionDTO struct {
	At            *time.Time     `gorm:"type:timestamptz"`
	RecipientName string         `gorm:"type:varchar(255)"`
	Notes         string         `gorm:"type:text"`
	SignatureRef  string         `gorm:"type:text"`
	PhotoRefs     pq.StringArray `gorm:"type:text[]"`
}

type FailureDTO struct {
	At     *time.Time `gorm:"type:timestamptz"`
	Reason string     `gorm:"type:varchar(32)"`
	Notes  string     `gorm:"type:text"`
}

func fromDomain(r *delivery.DeliveryRequest) DeliveryRequestDTO {
	details := r.Details()
	dto := DeliveryRequestDTO{
		ID:              r.ID().Bytes(),
		TenantID:        r.TenantID().Bytes(),
		Status:          r.Status().String(),
		ScheduledDate:   details.ScheduledDate,
		Notes:           details.Notes,
		CallbackURL:     details.CallbackURL,
		TotalDistanceKm: r.TotalDistanceKm(),
		CreatedAt:       r.CreatedAt(),
	}

	for i, d := range r.Destinations() {
		dto.Destinations = append(dto.Destinations, destinationFromDomain(dto.ID, dto.TenantID, i, d))
	}
	return dto
}

func destinationFromDomain(requestID, tenantID uuid.UUID, position int, d *delivery.Destination) DestinationDTO {
	data := d.Data()
	dto := DestinationDTO{
		ID:           d.ID().Bytes(),
		RequestID:    requestID,
		TenantID:     tenantID,
		ExternalID:   data.ExternalID,
		Position:     position,
		Address:      data.Address,
		Lat:          data.Coordinates.Lat(),
		Lng:          data.Coordinates.Lng(),
		ContactName:  data.ContactName,
		ContactPhone: data.ContactPhone,
		Notes:        data.Notes,
		Items:        datatypes.NewJSONType(data.Items),
		Status:       d.Status().String(),
	}

	if a := d.Arrival(); a != nil {
		at := a.At
		dto.Arrival.At = &at
		if a.Coordinates != nil {
			lat, lng := a.Coordinates.Lat(), a.Coordinates.Lng()
			dto.Arrival.Lat, dto.Arrival.Lng = &lat, &lng
		}
	}
	if c := d.Completion(); c != nil {
		at := c.CompletedAt
		dto.Completion = CompletionDTO{
			At:            &at,
			RecipientName: c.RecipientName,
			Notes:         c.Notes,
			SignatureRef:  c.SignatureRef,
			PhotoRefs:     c.PhotoRefs,
		}
	}
	if f := d.Failure(); f != nil {
		at := f.FailedAt
		dto.Failure = FailureDTO{At: &at, Reason: f.Reason.String(), Notes: f.Notes}
	}
	return dto
}

func toDomain(dto DeliveryRequestDTO) (*delivery.DeliveryRequest, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}
	tenantID, err := kernel.UUIDFromBytes(dto.TenantID[:])
	if err != nil {
		return nil, err
	}
	status, err := delivery.ParseStatus(dto.Status)
	if err != nil {
		return nil, err
	}

	destinations := make([]*delivery.Destination, 0, len(dto.Destinations))
	for _, d := range dto.Destinations {
		dest, err := destinationToDomain(d)
		if err != nil {
			return nil, err
		}
		destinations = append(destinations, dest)
	}

	return delivery.RestoreDeliveryRequest(
		id,
		tenantID,
		status,
		delivery.Details{
			ScheduledDate: dto.ScheduledDate,
			Notes:         dto.Notes,
			CallbackURL:   dto.CallbackURL,
		},
		dto.TotalDistanceKm,
		destinations,
		dto.CreatedAt,
	)
}

func destinationToDomain(dto DestinationDTO) (*delivery.Destination, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}
	coords, err := kernel.NewCoordinates(dto.Lat, dto.Lng)
	if err != nil {
		return nil, err
	}
	status, err := delivery.ParseDestinationStatus(dto.Status)
	if err != nil {
		return nil, err
	}

	var arrival *delivery.Arrival
	if dto.Arrival.At != nil {
		arrival = &delivery.Arrival{At: *dto.Arrival.At}
		if dto.Arrival.Lat != nil && dto.Arrival.Lng != nil {
			c, err := kernel.NewCoordinates(*dto.Arrival.Lat, *dto.Arrival.Lng)
			if err != nil {
				return nil, err
			}
			arrival.Coordinates = &c
		}
	}

	var completion *delivery.Completion
	if dto.Completion.At != nil {
		completion = &delivery.Completion{
			RecipientName: dto.Completion.RecipientName,
			Notes:         dto.Completion.Notes,
			SignatureRef:  dto.Completion.SignatureRef,
			PhotoRefs:     dto.Completion.PhotoRefs,
			CompletedAt:   *dto.Completion.At,
		}
	}

	var failure *delivery.Failure
	if dto.Failure.At != nil {
		reason, err := delivery.ParseFailureReason(dto.Failure.Reason)
		if err != nil {
			return nil, err
		}
		failure = &delivery.Failure{Reason: reason, Notes: dto.Failure.Notes, FailedAt: *dto.Failure.At}
	}

	return delivery.RestoreDestination(
		id,
		delivery.DestinationData{
			ExternalID:   dto.ExternalID,
			Address:      dto.Address,
			Coordinates:  coords,
			ContactName:  dto.ContactName,
			ContactPhone: dto.ContactPhone,
			Notes:        dto.Notes,
			Items:        dto.Items.Data(),
		},
		status,
		arrival,
		completion,
		failure,
	)
}
