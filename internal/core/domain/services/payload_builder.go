package services

import (
	"fulfillment/internal/core/domain/model/delivery"
	"fulfillment/internal/core/domain/model/event"
	"fulfillment/internal/core/domain/model/schema"
	"fulfillment/internal/core/domain/model/trip"
	"fulfillment/internal/pkg/errs"
)

// PayloadBuilder turns the current state of an event subject into the body the
// tenant receives. It never caches: callers pass freshly loaded aggregates.
type PayloadBuilder struct{}

func NewPayloadBuilder() PayloadBuilder {
	return PayloadBuilder{}
}

// Destination shapes a destination callback. The event type is written under
// the tenant key for "event" when the map carries it.
func (PayloadBuilder) Destination(t event.Type, d *delivery.Destination, s schema.Schema) (map[string]any, error) {
	if d == nil {
		return nil, errs.NewValueIsRequiredError("destination")
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	snapshot := d.Snapshot()
	snapshot[schema.FieldEvent] = t.String()
	return schema.TransformOutgoing(snapshot, s), nil
}

// TripSummary shapes the reconciliation callback sent when a trip completes.
func (PayloadBuilder) TripSummary(t *trip.Trip, request *delivery.DeliveryRequest, s schema.Schema) (map[string]any, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := request.Validate(); err != nil {
		return nil, err
	}
	if !t.RequestID().IsEqual(request.ID()) {
		return nil, errs.NewValueIsInvalidError("delivery_request_id")
	}

	completed, failed := request.Counts()
	var totalKm any
	if km := t.ActualDistanceKm(); km != nil {
		totalKm = *km
	}
	summary := schema.Record{
		schema.FieldDeliveryRequestID: request.ID().String(),
		schema.FieldTripID:            t.ID().String(),
		schema.FieldTotalKm:           totalKm,
		schema.FieldCompletedCount:    completed,
		schema.FieldFailedCount:       failed,
	}

	destinations := request.Destinations()
	records := make([]schema.Record, 0, len(destinations))
	for _, d := range destinations {
		snap := d.Snapshot()
		snap[schema.FieldEvent] = event.TripCompleted.String()
		records = append(records, snap)
	}

	return schema.TransformSummary(summary, records, s), nil
}
