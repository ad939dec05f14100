package commands_test

import (
	"testing"

	"fulfillment/internal/core/application/usecases/commands"
	"fulfillment/internal/core/domain/model/delivery"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func TestNewCreateDeliveryRequestCommand(t *testing.T) {
	raw := []map[string]any{{"external_id": "MELO-001"}}

	t.Run("valid", func(t *testing.T) {
		cmd, err := commands.NewCreateDeliveryRequestCommand(kernel.NewUUID(), kernel.NewUUID(), raw, delivery.Details{
			CallbackURL: "https://erp.example.com/hooks",
		})

		require.NoError(t, err)
		require.NoError(t, cmd.Validate())
		assert.Equal(t, raw, cmd.Destinations())
	})

	t.Run("destination count out of range", func(t *testing.T) {
		_, err := commands.NewCreateDeliveryRequestCommand(kernel.NewUUID(), kernel.NewUUID(), nil, delivery.Details{})

		require.ErrorIs(t, err, errs.ErrValueIsOutOfRange)
		assert.Equal(t, []string{"destinations"}, errs.Fields(err))
	})

	t.Run("too many destinations", func(t *testing.T) {
		many := make([]map[string]any, delivery.MaxDestinations+1)
		for i := range many {
			many[i] = map[string]any{}
		}

		_, err := commands.NewCreateDeliveryRequestCommand(kernel.NewUUID(), kernel.NewUUID(), many, delivery.Details{})

		require.ErrorIs(t, err, errs.ErrValueIsOutOfRange)
	})

	t.Run("null destination", func(t *testing.T) {
		_, err := commands.NewCreateDeliveryRequestCommand(
			kernel.NewUUID(), kernel.NewUUID(), []map[string]any{nil}, delivery.Details{},
		)

		require.ErrorIs(t, err, errs.ErrValidation)
		assert.Equal(t, []string{"destinations[0]"}, errs.Fields(err))
	})

	t.Run("collects every problem", func(t *testing.T) {
		_, err := commands.NewCreateDeliveryRequestCommand(kernel.UUID{}, kernel.UUID{}, raw, delivery.Details{
			CallbackURL: "ftp://erp",
		})

		require.Error(t, err)
		assert.Equal(t, []string{"delivery_request_id", "tenant_id", "callback_url"}, errs.Fields(err))
	})

	t.Run("zero value is not constructed", func(t *testing.T) {
		var cmd commands.CreateDeliveryRequestCommand

		require.ErrorIs(t, cmd.Validate(), commands.ErrCreateDeliveryRequestCommandIsNotConstructed)
	})
}

func TestNewAssignTripCommand(t *testing.T) {
	_, err := commands.NewAssignTripCommand(kernel.NewUUID(), kernel.UUID{}, kernel.UUID{}, "")

	require.Error(t, err)
	assert.ElementsMatch(t, []string{"delivery_request_id", "driver_id", "vehicle_id"}, errs.Fields(err))
}

func TestNewStartTripCommand(t *testing.T) {
	t.Run("coordinates optional", func(t *testing.T) {
		cmd, err := commands.NewStartTripCommand(kernel.NewUUID(), kernel.NewUUID(), nil, nil)

		require.NoError(t, err)
		assert.Nil(t, cmd.Coordinates())
	})

	t.Run("half a coordinate pair", func(t *testing.T) {
		_, err := commands.NewStartTripCommand(kernel.NewUUID(), kernel.NewUUID(), ptr(31.9), nil)

		require.ErrorIs(t, err, errs.ErrValueIsRequired)
		assert.Equal(t, []string{"lng"}, errs.Fields(err))
	})

	t.Run("coordinates out of range", func(t *testing.T) {
		_, err := commands.NewStartTripCommand(kernel.NewUUID(), kernel.NewUUID(), ptr(91.0), ptr(35.9))

		require.ErrorIs(t, err, errs.ErrValueIsOutOfRange)
	})
}

func TestNewFailDestinationCommand(t *testing.T) {
	t.Run("known reason", func(t *testing.T) {
		cmd, err := commands.NewFailDestinationCommand(kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID(), "refused", "")

		require.NoError(t, err)
		assert.Equal(t, delivery.FailureRefused, cmd.Reason())
	})

	t.Run("unknown reason", func(t *testing.T) {
		_, err := commands.NewFailDestinationCommand(kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID(), "lost", "")

		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
		assert.Equal(t, []string{"reason"}, errs.Fields(err))
	})

	t.Run("missing reason", func(t *testing.T) {
		_, err := commands.NewFailDestinationCommand(kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID(), "", "")

		require.ErrorIs(t, err, errs.ErrValueIsRequired)
	})
}

func TestNewCompleteTripCommand(t *testing.T) {
	tests := []struct {
		name    string
		totalKm *float64
		wantErr error
	}{
		{name: "zero", totalKm: ptr(0.0)},
		{name: "upper bound", totalKm: ptr(1000.0)},
		{name: "missing", totalKm: nil, wantErr: errs.ErrValueIsRequired},
		{name: "negative", totalKm: ptr(-1.0), wantErr: errs.ErrValueIsOutOfRange},
		{name: "too far", totalKm: ptr(1000.5), wantErr: errs.ErrValueIsOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := commands.NewCompleteTripCommand(kernel.NewUUID(), kernel.NewUUID(), tt.totalKm, nil, nil)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, []string{"total_km"}, errs.Fields(err))
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, *tt.totalKm, cmd.TotalKm(), 1e-9)
		})
	}
}

func TestNewConfigureTenantCommand(t *testing.T) {
	t.Run("with schema", func(t *testing.T) {
		cmd, err := commands.NewConfigureTenantCommand(kernel.NewUUID(), "Melo", "key", "", "", &commands.SchemaMaps{
			Inbound:  map[string]string{"external_id": "order.id"},
			Outbound: map[string]string{"external_id": "order_id"},
		})

		require.NoError(t, err)
		require.NotNil(t, cmd.Settings().Schema)
		assert.Equal(t, "order.id", cmd.Settings().Schema.InboundMap()["external_id"])
	})

	t.Run("without schema", func(t *testing.T) {
		cmd, err := commands.NewConfigureTenantCommand(kernel.NewUUID(), "Melo", "key", "", "", nil)

		require.NoError(t, err)
		assert.Nil(t, cmd.Settings().Schema)
	})

	t.Run("unknown schema field", func(t *testing.T) {
		_, err := commands.NewConfigureTenantCommand(kernel.NewUUID(), "Melo", "key", "", "", &commands.SchemaMaps{
			Inbound: map[string]string{"weight": "pkg.weight"},
		})

		require.ErrorIs(t, err, errs.ErrValidation)
		assert.Equal(t, []string{"schema.weight"}, errs.Fields(err))
	})
}

func TestNewRequeueCallbackCommand(t *testing.T) {
	_, err := commands.NewRequeueCallbackCommand(kernel.UUID{})

	require.ErrorIs(t, err, errs.ErrValueIsRequired)
	assert.Equal(t, []string{"callback_id"}, errs.Fields(err))
}
