package schema

import (
	"fulfillment/internal/pkg/errs"
)

// Field is a canonical, system-defined field name used regardless of tenant wire format.
type Field string

// Destination fields read from tenant submissions.
const (
	FieldExternalID   Field = "external_id"
	FieldAddress      Field = "address"
	FieldLat          Field = "lat"
	FieldLng          Field = "lng"
	FieldContactName  Field = "contact_name"
	FieldContactPhone Field = "contact_phone"
	FieldNotes        Field = "notes"
	FieldItems        Field = "items"
)

// Destination fields written into callbacks.
const (
	FieldStatus        Field = "status"
	FieldEvent         Field = "event"
	FieldArrivedAt     Field = "arrived_at"
	FieldCompletedAt   Field = "completed_at"
	FieldRecipientName Field = "recipient_name"
	FieldSignatureRef  Field = "signature_ref"
	FieldPhotoRefs     Field = "photo_refs"
	FieldFailureReason Field = "failure_reason"
	FieldFailureNotes  Field = "failure_notes"
	FieldFailedAt      Field = "failed_at"
)

// Trip reconciliation summary fields.
const (
	FieldDeliveryRequestID Field = "delivery_request_id"
	FieldTripID            Field = "trip_id"
	FieldTotalKm           Field = "total_km"
	FieldCompletedCount    Field = "completed_count"
	FieldFailedCount       Field = "failed_count"
	FieldDestinations      Field = "destinations"
)

var inboundFields = []Field{
	FieldExternalID,
	FieldAddress,
	FieldLat,
	FieldLng,
	FieldContactName,
	FieldContactPhone,
	FieldNotes,
	FieldItems,
}

var outboundFields = []Field{
	FieldExternalID,
	FieldStatus,
	FieldEvent,
	FieldArrivedAt,
	FieldCompletedAt,
	FieldRecipientName,
	FieldSignatureRef,
	FieldPhotoRefs,
	FieldNotes,
	FieldItems,
	FieldFailureReason,
	FieldFailureNotes,
	FieldFailedAt,
	FieldDeliveryRequestID,
	FieldTripID,
	FieldTotalKm,
	FieldCompletedCount,
	FieldFailedCount,
	FieldDestinations,
}

var requiredInbound = []Field{FieldExternalID, FieldAddress, FieldLat, FieldLng}

// InboundFields lists the canonical fields resolved from a tenant submission, in order.
func InboundFields() []Field {
	return append([]Field(nil), inboundFields...)
}

// OutboundFields lists every canonical field a callback map may reference.
func OutboundFields() []Field {
	return append([]Field(nil), outboundFields...)
}

// RequiredInboundFields are the destination fields that must be present after mapping.
func RequiredInboundFields() []Field {
	return append([]Field(nil), requiredInbound...)
}

func (f Field) String() string {
	return string(f)
}

// IsInbound reports whether f may appear in an inbound map.
func (f Field) IsInbound() bool {
	return contains(inboundFields, f)
}

// IsOutbound reports whether f may appear in an outbound map.
func (f Field) IsOutbound() bool {
	return contains(outboundFields, f)
}

// ParseInboundField rejects names outside the inbound set.
func ParseInboundField(name string) (Field, error) {
	f := Field(name)
	if !f.IsInbound() {
		return "", errs.NewValueIsInvalidError(name)
	}
	return f, nil
}

// ParseOutboundField rejects names outside the outbound set.
func ParseOutboundField(name string) (Field, error) {
	f := Field(name)
	if !f.IsOutbound() {
		return "", errs.NewValueIsInvalidError(name)
	}
	return f, nil
}

func contains(fields []Field, f Field) bool {
	for _, candidate := range fields {
		if candidate == f {
			return true
		}
	}
	return false
}
