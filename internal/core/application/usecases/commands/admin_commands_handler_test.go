package commands_test

import (
	"testing"
	"time"

	"fulfillment/internal/core/application/usecases/commands"
	"fulfillment/internal/core/domain/model/callback"
	"fulfillment/internal/core/domain/model/delivery"
	"fulfillment/internal/core/domain/model/event"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/tenant"
	"fulfillment/internal/core/domain/model/trip"
	"fulfillment/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCancelDeliveryRequestCommandHandler_Handle(t *testing.T) {
	t.Run("cancels request and active trip", func(t *testing.T) {
		ctx := t.Context()
		f := newFixture(t)
		request, tr, _ := newStartedTrip(t, "MELO-001")
		cmd, err := commands.NewCancelDeliveryRequestCommand(request.TenantID(), request.ID())
		require.NoError(t, err)

		f.expectTx(ctx, true)
		f.requests.On("GetForUpdate", ctx, request.ID()).Return(request, nil).Once()
		f.trips.On("GetActiveByRequest", ctx, request.ID()).Return(tr, nil).Once()
		f.trips.On("Update", ctx, tr).Return(nil).Once()
		f.requests.On("Update", ctx, request).Return(nil).Once()

		err = commands.NewCancelDeliveryRequestCommandHandler(f.factory, f.clock).Handle(ctx, cmd)

		require.NoError(t, err)
		assert.Equal(t, delivery.StatusCancelled, request.Status())
		assert.Equal(t, trip.StatusCancelled, tr.Status())
		require.NotNil(t, tr.Timeline().CancelledAt)
		f.assert(t)
	})

	t.Run("pending request without trip", func(t *testing.T) {
		ctx := t.Context()
		f := newFixture(t)
		request := newRequest(t, kernel.NewUUID(), "MELO-001")
		cmd, err := commands.NewCancelDeliveryRequestCommand(request.TenantID(), request.ID())
		require.NoError(t, err)

		f.expectTx(ctx, true)
		f.requests.On("GetForUpdate", ctx, request.ID()).Return(request, nil).Once()
		f.trips.On("GetActiveByRequest", ctx, request.ID()).
			Return(nil, errs.NewObjectNotFoundError("requestId", request.ID())).Once()
		f.requests.On("Update", ctx, request).Return(nil).Once()

		err = commands.NewCancelDeliveryRequestCommandHandler(f.factory, f.clock).Handle(ctx, cmd)

		require.NoError(t, err)
		assert.Equal(t, delivery.StatusCancelled, request.Status())
		f.assert(t)
	})

	t.Run("other tenant sees not found", func(t *testing.T) {
		ctx := t.Context()
		f := newFixture(t)
		request := newRequest(t, kernel.NewUUID(), "MELO-001")
		cmd, err := commands.NewCancelDeliveryRequestCommand(kernel.NewUUID(), request.ID())
		require.NoError(t, err)

		f.expectTx(ctx, false)
		f.requests.On("GetForUpdate", ctx, request.ID()).Return(request, nil).Once()

		err = commands.NewCancelDeliveryRequestCommandHandler(f.factory, f.clock).Handle(ctx, cmd)

		require.ErrorIs(t, err, errs.ErrObjectNotFound)
		assert.Equal(t, delivery.StatusPending, request.Status())
		f.assert(t)
	})
}

func TestCancelTripCommandHandler_Handle(t *testing.T) {
	t.Run("cancels not started trip", func(t *testing.T) {
		ctx := t.Context()
		f := newFixture(t)
		request, tr, _ := newAssignedTrip(t, "MELO-001")
		cmd, err := commands.NewCancelTripCommand(tr.ID())
		require.NoError(t, err)

		f.expectTx(ctx, true)
		f.trips.On("GetForUpdate", ctx, tr.ID()).Return(tr, nil).Once()
		f.trips.On("Update", ctx, tr).Return(nil).Once()

		err = commands.NewCancelTripCommandHandler(f.factory, f.clock).Handle(ctx, cmd)

		require.NoError(t, err)
		assert.Equal(t, trip.StatusCancelled, tr.Status())
		assert.Equal(t, delivery.StatusAccepted, request.Status())
		f.assert(t)
	})

	t.Run("completed trip", func(t *testing.T) {
		ctx := t.Context()
		f := newFixture(t)
		request, tr, _ := newStartedTrip(t, "MELO-001")
		require.NoError(t, request.CompleteDestination(request.Destinations()[0].ID(), delivery.Completion{CompletedAt: now}))
		require.NoError(t, tr.Complete(request, 3, nil, now))
		cmd, err := commands.NewCancelTripCommand(tr.ID())
		require.NoError(t, err)

		f.expectTx(ctx, false)
		f.trips.On("GetForUpdate", ctx, tr.ID()).Return(tr, nil).Once()

		err = commands.NewCancelTripCommandHandler(f.factory, f.clock).Handle(ctx, cmd)

		require.ErrorIs(t, err, errs.ErrInvalidState)
		f.assert(t)
	})
}

func TestConfigureTenantCommandHandler_Handle(t *testing.T) {
	t.Run("creates tenant", func(t *testing.T) {
		ctx := t.Context()
		f := newFixture(t)
		factory := new(MockTenantUoWFactory)
		factory.On("Create").Return(f.uow).Once()
		tenantID := kernel.NewUUID()
		cmd, err := commands.NewConfigureTenantCommand(tenantID, "Melo", "melo-key", "https://erp.melo.jo/hooks", "cb-key", nil)
		require.NoError(t, err)

		var added *tenant.Tenant
		f.expectTx(ctx, true)
		f.tenants.On("Get", ctx, tenantID).Return(nil, errs.NewObjectNotFoundError("tenantId", tenantID)).Once()
		f.tenants.On("Add", ctx, mock.AnythingOfType("*tenant.Tenant")).
			Run(func(args mock.Arguments) { added = args.Get(1).(*tenant.Tenant) }).
			Return(nil).Once()

		created, err := commands.NewConfigureTenantCommandHandler(factory).Handle(ctx, cmd)

		require.NoError(t, err)
		assert.True(t, created)
		require.NotNil(t, added)
		assert.True(t, added.MatchesAPIKey("melo-key"))
		assert.Equal(t, "https://erp.melo.jo/hooks", added.CallbackURL())
		f.uow.AssertExpectations(t)
		f.tenants.AssertExpectations(t)
	})

	t.Run("updates tenant and keeps key", func(t *testing.T) {
		ctx := t.Context()
		f := newFixture(t)
		factory := new(MockTenantUoWFactory)
		factory.On("Create").Return(f.uow).Once()
		existing := newTenant(t, nil)
		cmd, err := commands.NewConfigureTenantCommand(existing.ID(), "Melo JO", "", "", "", &commands.SchemaMaps{
			Outbound: map[string]string{"external_id": "order_id"},
		})
		require.NoError(t, err)

		f.expectTx(ctx, true)
		f.tenants.On("Get", ctx, existing.ID()).Return(existing, nil).Once()
		f.tenants.On("Update", ctx, existing).Return(nil).Once()

		created, err := commands.NewConfigureTenantCommandHandler(factory).Handle(ctx, cmd)

		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "Melo JO", existing.Name())
		assert.True(t, existing.MatchesAPIKey("melo-key"))
		require.NotNil(t, existing.Schema())
		f.uow.AssertExpectations(t)
		f.tenants.AssertExpectations(t)
	})

	t.Run("new tenant needs api key", func(t *testing.T) {
		ctx := t.Context()
		f := newFixture(t)
		factory := new(MockTenantUoWFactory)
		factory.On("Create").Return(f.uow).Once()
		tenantID := kernel.NewUUID()
		cmd, err := commands.NewConfigureTenantCommand(tenantID, "Melo", "", "", "", nil)
		require.NoError(t, err)

		f.expectTx(ctx, false)
		f.tenants.On("Get", ctx, tenantID).Return(nil, errs.NewObjectNotFoundError("tenantId", tenantID)).Once()

		_, err = commands.NewConfigureTenantCommandHandler(factory).Handle(ctx, cmd)

		require.ErrorIs(t, err, errs.ErrValueIsRequired)
		assert.Equal(t, []string{"api_key"}, errs.Fields(err))
	})
}

func TestRequeueCallbackCommandHandler_Handle(t *testing.T) {
	newFailedCallback := func(t *testing.T) *callback.Callback {
		t.Helper()
		ev := event.New(event.DestinationCompleted, kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID(), now)
		cb, err := callback.NewCallback(kernel.NewUUID(), ev, now)
		require.NoError(t, err)
		for i := range callback.MaxAttempts {
			at := now.Add(time.Duration(i) * time.Hour)
			require.NoError(t, cb.Claim(at, time.Minute))
			_, err = cb.RecordFailure("connection refused", 0, at)
			require.NoError(t, err)
		}
		require.Equal(t, callback.StatusFailed, cb.Status())
		return cb
	}

	t.Run("failed callback gets fresh attempts", func(t *testing.T) {
		ctx := t.Context()
		f := newFixture(t)
		factory := new(MockCallbackUoWFactory)
		factory.On("Create").Return(f.uow).Once()
		cb := newFailedCallback(t)
		cmd, err := commands.NewRequeueCallbackCommand(cb.ID())
		require.NoError(t, err)

		f.expectTx(ctx, true)
		f.callbacks.On("Get", ctx, cb.ID()).Return(cb, nil).Once()
		f.callbacks.On("Update", ctx, cb).Return(nil).Once()

		result, err := commands.NewRequeueCallbackCommandHandler(factory, f.clock).Handle(ctx, cmd)

		require.NoError(t, err)
		assert.Equal(t, callback.StatusPending, result.Status())
		assert.Equal(t, 0, result.Attempts())
		assert.Equal(t, now, result.NextAttemptAt())
		f.callbacks.AssertExpectations(t)
	})

	t.Run("pending callback cannot be requeued", func(t *testing.T) {
		ctx := t.Context()
		f := newFixture(t)
		factory := new(MockCallbackUoWFactory)
		factory.On("Create").Return(f.uow).Once()
		ev := event.New(event.TripCompleted, kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID(), now)
		cb, err := callback.NewCallback(kernel.NewUUID(), ev, now)
		require.NoError(t, err)
		cmd, err := commands.NewRequeueCallbackCommand(cb.ID())
		require.NoError(t, err)

		f.expectTx(ctx, false)
		f.callbacks.On("Get", ctx, cb.ID()).Return(cb, nil).Once()

		_, err = commands.NewRequeueCallbackCommandHandler(factory, f.clock).Handle(ctx, cmd)

		require.ErrorIs(t, err, errs.ErrInvalidState)
	})
}
