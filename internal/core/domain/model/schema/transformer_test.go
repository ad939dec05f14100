package schema_test

import (
	"encoding/json"
	"testing"

	"fulfillment/internal/core/domain/model/schema"
	"fulfillment/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaRoundTrip(t *testing.T) {
	s, err := schema.ParseSchema(
		map[string]string{"external_id": "order.id"},
		map[string]string{"external_id": "order_id"},
	)
	require.NoError(t, err)

	rec := schema.TransformIncoming(map[string]any{"order": map[string]any{"id": "X1"}}, s)
	assert.Equal(t, "X1", rec[schema.FieldExternalID])

	out := schema.TransformOutgoing(schema.Record{schema.FieldExternalID: rec[schema.FieldExternalID]}, s)
	assert.Equal(t, map[string]any{"order_id": "X1"}, out)
}

func TestTransformIncoming(t *testing.T) {
	s, err := schema.ParseSchema(map[string]string{
		"external_id":   "ref",
		"address":       "shipping.address.line1",
		"lat":           "shipping.coordinates.latitude",
		"lng":           "shipping.coordinates.longitude",
		"contact_phone": "customer.phone",
	}, nil)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{
		"ref": "MELO-001",
		"shipping": {"address": {"line1": "12 Rainbow St"}},
		"customer": {"name": "Lina"},
		"contact_name": "Lina H.",
		"items": [{"sku": "A-1", "qty": 2}]
	}`), &raw))

	rec := schema.TransformIncoming(raw, s)

	assert.Equal(t, "MELO-001", rec[schema.FieldExternalID])
	assert.Equal(t, "12 Rainbow St", rec[schema.FieldAddress])
	assert.Nil(t, rec[schema.FieldLat], "missing intermediate yields nil")
	assert.Nil(t, rec[schema.FieldLng])
	assert.Nil(t, rec[schema.FieldContactPhone])
	assert.Equal(t, "Lina H.", rec[schema.FieldContactName], "unmapped field uses the default path")
	assert.Len(t, rec[schema.FieldItems], 1)
	assert.Len(t, rec, len(schema.InboundFields()))

	err = rec.Validate(schema.RequiredInboundFields())
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Equal(t, []string{"lat", "lng"}, errs.Fields(err))
}

func TestTransformOutgoing(t *testing.T) {
	snapshot := schema.Record{
		schema.FieldExternalID:    "MELO-001",
		schema.FieldStatus:        "completed",
		schema.FieldCompletedAt:   "2026-10-17T09:30:00Z",
		schema.FieldRecipientName: "Lina",
		schema.FieldFailureReason: nil,
	}

	t.Run("default shape", func(t *testing.T) {
		out := schema.TransformOutgoing(snapshot, schema.DefaultSchema())

		assert.Equal(t, map[string]any{
			"external_id":    "MELO-001",
			"status":         "completed",
			"completed_at":   "2026-10-17T09:30:00Z",
			"recipient_name": "Lina",
			"notes":          nil,
			"items":          nil,
		}, out)
	})

	t.Run("tenant keys and omitted fields", func(t *testing.T) {
		s, err := schema.ParseSchema(nil, map[string]string{
			"external_id":  "orderRef",
			"status":       "deliveryState",
			"completed_at": "deliveredOn",
		})
		require.NoError(t, err)

		out := schema.TransformOutgoing(snapshot, s)

		assert.Equal(t, map[string]any{
			"orderRef":      "MELO-001",
			"deliveryState": "completed",
			"deliveredOn":   "2026-10-17T09:30:00Z",
		}, out)
	})
}

func TestTransformSummary(t *testing.T) {
	s, err := schema.ParseSchema(nil, map[string]string{
		"external_id": "ref",
		"status":      "state",
		"total_km":    "km",
	})
	require.NoError(t, err)

	out := schema.TransformSummary(
		schema.Record{
			schema.FieldDeliveryRequestID: "req-1",
			schema.FieldTripID:            "trip-1",
			schema.FieldTotalKm:           42.5,
			schema.FieldCompletedCount:    1,
			schema.FieldFailedCount:       1,
		},
		[]schema.Record{
			{schema.FieldExternalID: "MELO-001", schema.FieldStatus: "completed"},
			{schema.FieldExternalID: "MELO-002", schema.FieldStatus: "failed"},
		},
		s,
	)

	assert.Equal(t, map[string]any{
		"delivery_request_id": "req-1",
		"trip_id":             "trip-1",
		"km":                  42.5,
		"completed_count":     1,
		"failed_count":        1,
		"destinations": []map[string]any{
			{"ref": "MELO-001", "state": "completed"},
			{"ref": "MELO-002", "state": "failed"},
		},
	}, out)
}

func TestValidateRequiredFields(t *testing.T) {
	t.Run("zero is present, empty string is missing", func(t *testing.T) {
		err := schema.ValidateRequiredFields(
			map[string]any{"address": "", "lat": 0, "lng": 35.9},
			[]string{"address", "lat", "lng"},
		)

		require.Error(t, err)
		var vErr *errs.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, []string{"address"}, vErr.Fields)
	})

	t.Run("lists every missing field", func(t *testing.T) {
		err := schema.ValidateRequiredFields(
			map[string]any{"external_id": nil, "flag": false},
			[]string{"external_id", "address", "flag"},
		)

		require.Error(t, err)
		assert.Equal(t, []string{"external_id", "address"}, errs.Fields(err))
	})

	t.Run("all present", func(t *testing.T) {
		err := schema.ValidateRequiredFields(
			map[string]any{"external_id": "X1", "address": "Main St", "lat": 0.0, "lng": 0.0},
			[]string{"external_id", "address", "lat", "lng"},
		)

		assert.NoError(t, err)
	})
}

func TestRecordCoercion(t *testing.T) {
	rec := schema.Record{
		schema.FieldExternalID: 1042.0,
		schema.FieldLat:        "31.95",
		schema.FieldLng:        json.Number("35.91"),
		schema.FieldAddress:    "   ",
		schema.FieldNotes:      true,
	}

	assert.Equal(t, "1042", rec.String(schema.FieldExternalID))
	assert.Equal(t, "", rec.String(schema.FieldContactName))

	lat, err := rec.Float(schema.FieldLat)
	require.NoError(t, err)
	assert.InDelta(t, 31.95, lat, 1e-9)

	lng, err := rec.Float(schema.FieldLng)
	require.NoError(t, err)
	assert.InDelta(t, 35.91, lng, 1e-9)

	_, err = rec.Float(schema.FieldAddress)
	require.ErrorIs(t, err, errs.ErrValueIsInvalid)

	_, err = rec.Float(schema.FieldNotes)
	require.ErrorIs(t, err, errs.ErrValueIsInvalid)

	_, err = rec.Float(schema.FieldContactPhone)
	require.ErrorIs(t, err, errs.ErrValueIsRequired)
}
