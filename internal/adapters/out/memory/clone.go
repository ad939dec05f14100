package memory

import (
	"slices"

	"fulfillment/internal/core/domain/model/callback"
	"fulfillment/internal/core/domain/model/delivery"
	"fulfillment/internal/core/domain/model/tenant"
	"fulfillment/internal/core/domain/model/trip"
)

// Stored aggregates are copies so a caller mutating what it loaded does not
// change the store until it calls Update. Raised events are not stored.

func cloneRequest(r *delivery.DeliveryRequest) (*delivery.DeliveryRequest, error) {
	destinations := make([]*delivery.Destination, 0, len(r.Destinations()))
	for _, d := range r.Destinations() {
		c, err := cloneDestination(d)
		if err != nil {
			return nil, err
		}
		destinations = append(destinations, c)
	}

	details := r.Details()
	if details.ScheduledDate != nil {
		details.ScheduledDate = ptr(*details.ScheduledDate)
	}

	var total *float64
	if km := r.TotalDistanceKm(); km != nil {
		total = ptr(*km)
	}

	return delivery.RestoreDeliveryRequest(
		r.ID(), r.TenantID(), r.Status(), details, total, destinations, r.CreatedAt(),
	)
}

func cloneDestination(d *delivery.Destination) (*delivery.Destination, error) {
	data := d.Data()
	data.Items = slices.Clone(data.Items)

	var arrival *delivery.Arrival
	if a := d.Arrival(); a != nil {
		arrival = ptr(*a)
	}
	var completion *delivery.Completion
	if c := d.Completion(); c != nil {
		cp := *c
		cp.PhotoRefs = slices.Clone(c.PhotoRefs)
		completion = &cp
	}
	var failure *delivery.Failure
	if f := d.Failure(); f != nil {
		failure = ptr(*f)
	}

	return delivery.RestoreDestination(d.ID(), data, d.Status(), arrival, completion, failure)
}

func cloneTrip(t *trip.Trip) (*trip.Trip, error) {
	var actual *float64
	if km := t.ActualDistanceKm(); km != nil {
		actual = ptr(*km)
	}
	return trip.RestoreTrip(
		t.ID(), t.RequestID(), t.TenantID(),
		t.DriverID(), t.VehicleID(), t.Status(),
		t.PlannedDistanceKm(), actual,
		t.StartCoordinates(), t.EndCoordinates(),
		t.Timeline(),
	)
}

func cloneTenant(t *tenant.Tenant) (*tenant.Tenant, error) {
	return tenant.RestoreTenant(
		t.ID(), t.Name(), t.APIKeyHash(), t.CallbackURL(), t.CallbackAPIKey(), t.Schema(),
	)
}

func cloneCallback(c *callback.Callback) (*callback.Callback, error) {
	return callback.RestoreCallback(c.ID(), c.TenantID(), c.RequestID(), c.SubjectID(), c.EventType(), c.State())
}

func ptr[T any](v T) *T {
	return &v
}
