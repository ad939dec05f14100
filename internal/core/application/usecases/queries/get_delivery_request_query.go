package queries

import (
	"errors"
	"time"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/pkg/errs"
	"fulfillment/internal/pkg/guard"
)

var ErrGetDeliveryRequestQueryIsNotConstructed = errors.New(
	"GetDeliveryRequestQuery must be created via NewGetDeliveryRequestQuery constructor",
)

// GetDeliveryRequestQuery reads one request with its destinations and trips.
// A tenant-scoped query hides requests of other tenants.
//
// Example:
//
//	query, _ := NewGetDeliveryRequestQuery(requestID, &tenantID)
//	view, err := handler.Handle(ctx, query)
//	if errors.Is(err, errs.ErrObjectNotFound) {
//	    // unknown id or another tenant's request
//	}
type GetDeliveryRequestQuery struct {
	requestID kernel.UUID
	tenantID  *kernel.UUID

	guard guard.ConstructorGuard
}

// NewGetDeliveryRequestQuery builds the query. tenantID is nil for operators.
func NewGetDeliveryRequestQuery(requestID kernel.UUID, tenantID *kernel.UUID) (GetDeliveryRequestQuery, error) {
	if err := requestID.Validate(); err != nil {
		return GetDeliveryRequestQuery{}, errs.NewValueIsRequiredErrorWithCause("delivery_request_id", err)
	}
	return GetDeliveryRequestQuery{
		requestID: requestID,
		tenantID:  tenantID,
		guard:     guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the query was created through the constructor.
func (q GetDeliveryRequestQuery) Validate() error {
	return q.guard.Validate(ErrGetDeliveryRequestQueryIsNotConstructed)
}

func (q GetDeliveryRequestQuery) RequestID() kernel.UUID {
	return q.requestID
}

// TenantID returns the tenant the read is scoped to, or nil for operators.
func (q GetDeliveryRequestQuery) TenantID() *kernel.UUID {
	return q.tenantID
}

// GetDeliveryRequestQueryResponse is the read model of a delivery request.
type GetDeliveryRequestQueryResponse struct {
	ID              kernel.UUID
	TenantID        kernel.UUID
	Status          string
	ScheduledDate   *time.Time
	Notes           string
	CallbackURL     string
	TotalDistanceKm *float64
	CreatedAt       time.Time
	Destinations    []DestinationView
	Trips           []TripView
}

// DestinationView is one stop with its delivery outcome.
type DestinationView struct {
	ID            kernel.UUID
	ExternalID    string
	Address       string
	Lat           float64
	Lng           float64
	ContactName   string
	ContactPhone  string
	Notes         string
	Items         []any
	Status        string
	ArrivedAt     *time.Time
	CompletedAt   *time.Time
	RecipientName string
	SignatureRef  string
	PhotoRefs     []string
	FailureReason string
	FailureNotes  string
	FailedAt      *time.Time
}

// TripView is a trip of the request, newest first.
type TripView struct {
	ID                kernel.UUID
	DriverID          *kernel.UUID
	VehicleID         string
	Status            string
	PlannedDistanceKm float64
	ActualDistanceKm  *float64
	AssignedAt        time.Time
	StartedAt         *time.Time
	CompletedAt       *time.Time
	CancelledAt       *time.Time
}
