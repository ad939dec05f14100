package queries

import (
	"context"

	"fulfillment/internal/core/domain/model/delivery"
	"fulfillment/internal/core/domain/model/trip"
	"fulfillment/internal/pkg/errs"
)

// GetDeliveryRequestQueryHandler builds the read model of one delivery request
// from the request aggregate and its trips. It does not open a transaction.
type GetDeliveryRequestQueryHandler struct {
	factory RepositoriesFactory
}

// NewGetDeliveryRequestQueryHandler creates the handler over plain repositories.
func NewGetDeliveryRequestQueryHandler(factory RepositoriesFactory) GetDeliveryRequestQueryHandler {
	return GetDeliveryRequestQueryHandler{factory: factory}
}

// Handle loads the request and every trip of it.
//
// Parameters:
//   - ctx: request context
//   - query: validated query, optionally tenant scoped
//
// Returns:
//   - the request with destinations in submission order and trips newest first
//   - ObjectNotFoundError for an unknown id or a request of another tenant
func (h GetDeliveryRequestQueryHandler) Handle(
	ctx context.Context,
	query GetDeliveryRequestQuery,
) (GetDeliveryRequestQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return GetDeliveryRequestQueryResponse{}, err
	}

	repos := h.factory.Create()
	request, err := repos.DeliveryRequestRepository().Get(ctx, query.RequestID())
	if err != nil {
		return GetDeliveryRequestQueryResponse{}, err
	}
	if tenantID := query.TenantID(); tenantID != nil && !request.TenantID().IsEqual(*tenantID) {
		return GetDeliveryRequestQueryResponse{}, errs.NewObjectNotFoundError("requestId", query.RequestID())
	}

	trips, err := repos.TripRepository().ListByRequest(ctx, request.ID())
	if err != nil {
		return GetDeliveryRequestQueryResponse{}, err
	}

	return toRequestView(request, trips), nil
}

func toRequestView(r *delivery.DeliveryRequest, trips []*trip.Trip) GetDeliveryRequestQueryResponse {
	details := r.Details()
	view := GetDeliveryRequestQueryResponse{
		ID:              r.ID(),
		TenantID:        r.TenantID(),
		Status:          r.Status().String(),
		ScheduledDate:   details.ScheduledDate,
		Notes:           details.Notes,
		CallbackURL:     details.CallbackURL,
		TotalDistanceKm: r.TotalDistanceKm(),
		CreatedAt:       r.CreatedAt(),
		Destinations:    make([]DestinationView, 0, len(r.Destinations())),
		Trips:           make([]TripView, 0, len(trips)),
	}

	for _, d := range r.Destinations() {
		view.Destinations = append(view.Destinations, toDestinationView(d))
	}
	for _, t := range trips {
		tl := t.Timeline()
		view.Trips = append(view.Trips, TripView{
			ID:                t.ID(),
			DriverID:          t.DriverID(),
			VehicleID:         t.VehicleID(),
			Status:            t.Status().String(),
			PlannedDistanceKm: t.PlannedDistanceKm(),
			ActualDistanceKm:  t.ActualDistanceKm(),
			AssignedAt:        tl.AssignedAt,
			StartedAt:         tl.StartedAt,
			CompletedAt:       tl.CompletedAt,
			CancelledAt:       tl.CancelledAt,
		})
	}

	return view
}

func toDestinationView(d *delivery.Destination) DestinationView {
	data := d.Data()
	v := DestinationView{
		ID:           d.ID(),
		ExternalID:   data.ExternalID,
		Address:      data.Address,
		Lat:          data.Coordinates.Lat(),
		Lng:          data.Coordinates.Lng(),
		ContactName:  data.ContactName,
		ContactPhone: data.ContactPhone,
		Notes:        data.Notes,
		Items:        data.Items,
		Status:       d.Status().String(),
	}
	if a := d.Arrival(); a != nil {
		at := a.At
		v.ArrivedAt = &at
	}
	if c := d.Completion(); c != nil {
		at := c.CompletedAt
		v.CompletedAt = &at
		v.RecipientName = c.RecipientName
		v.SignatureRef = c.SignatureRef
		v.PhotoRefs = c.PhotoRefs
	}
	if f := d.Failure(); f != nil {
		at := f.FailedAt
		v.FailedAt = &at
		v.FailureReason = f.Reason.String()
		v.FailureNotes = f.Notes
	}
	return v
}
