package commands_test

import (
	"context"
	"testing"
	"time"

	"fulfillment/internal/core/application/usecases/commands"
	"fulfillment/internal/core/domain/model/callback"
	"fulfillment/internal/core/domain/model/delivery"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/tenant"
	"fulfillment/internal/core/domain/model/trip"
	"fulfillment/internal/core/ports"
	"fulfillment/internal/pkg/clock"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

type MockDeliveryRequestRepository struct{ mock.Mock }

func (m *MockDeliveryRequestRepository) Add(ctx context.Context, r *delivery.DeliveryRequest) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockDeliveryRequestRepository) Update(ctx context.Context, r *delivery.DeliveryRequest) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockDeliveryRequestRepository) Get(ctx context.Context, id kernel.UUID) (*delivery.DeliveryRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*delivery.DeliveryRequest), args.Error(1)
}

func (m *MockDeliveryRequestRepository) GetForUpdate(ctx context.Context, id kernel.UUID) (*delivery.DeliveryRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*delivery.DeliveryRequest), args.Error(1)
}

func (m *MockDeliveryRequestRepository) GetByDestination(ctx context.Context, id kernel.UUID) (*delivery.DeliveryRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*delivery.DeliveryRequest), args.Error(1)
}

func (m *MockDeliveryRequestRepository) FindByExternalIDs(
	ctx context.Context,
	tenantID kernel.UUID,
	externalIDs []string,
) ([]*delivery.DeliveryRequest, error) {
	args := m.Called(ctx, tenantID, externalIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*delivery.DeliveryRequest), args.Error(1)
}

type MockTripRepository struct{ mock.Mock }

func (m *MockTripRepository) Add(ctx context.Context, t *trip.Trip) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTripRepository) Update(ctx context.Context, t *trip.Trip) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTripRepository) Get(ctx context.Context, id kernel.UUID) (*trip.Trip, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trip.Trip), args.Error(1)
}

func (m *MockTripRepository) GetForUpdate(ctx context.Context, id kernel.UUID) (*trip.Trip, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trip.Trip), args.Error(1)
}

func (m *MockTripRepository) ListByRequest(ctx context.Context, requestID kernel.UUID) ([]*trip.Trip, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*trip.Trip), args.Error(1)
}

func (m *MockTripRepository) GetActiveByRequest(ctx context.Context, requestID kernel.UUID) (*trip.Trip, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trip.Trip), args.Error(1)
}

type MockTenantRepository struct{ mock.Mock }

func (m *MockTenantRepository) Add(ctx context.Context, t *tenant.Tenant) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTenantRepository) Update(ctx context.Context, t *tenant.Tenant) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTenantRepository) Get(ctx context.Context, id kernel.UUID) (*tenant.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenant.Tenant), args.Error(1)
}

func (m *MockTenantRepository) GetByAPIKeyHash(ctx context.Context, hash string) (*tenant.Tenant, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenant.Tenant), args.Error(1)
}

type MockCallbackRepository struct{ mock.Mock }

func (m *MockCallbackRepository) Add(ctx context.Context, c *callback.Callback) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCallbackRepository) Update(ctx context.Context, c *callback.Callback) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCallbackRepository) Get(ctx context.Context, id kernel.UUID) (*callback.Callback, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*callback.Callback), args.Error(1)
}

func (m *MockCallbackRepository) ClaimDue(
	ctx context.Context,
	at time.Time,
	lease time.Duration,
	limit int,
) ([]*callback.Callback, error) {
	args := m.Called(ctx, at, lease, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*callback.Callback), args.Error(1)
}

func (m *MockCallbackRepository) List(ctx context.Context, filter ports.CallbackFilter) ([]*callback.Callback, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*callback.Callback), args.Error(1)
}

// MockUoW satisfies UoW, TenantUoW and CallbackUoW.
type MockUoW struct{ mock.Mock }

func (m *MockUoW) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUoW) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUoW) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUoW) DeliveryRequestRepository() ports.DeliveryRequestRepository {
	args := m.Called()
	return args.Get(0).(ports.DeliveryRequestRepository)
}

func (m *MockUoW) TripRepository() ports.TripRepository {
	args := m.Called()
	return args.Get(0).(ports.TripRepository)
}

func (m *MockUoW) TenantRepository() ports.TenantRepository {
	args := m.Called()
	return args.Get(0).(ports.TenantRepository)
}

func (m *MockUoW) CallbackRepository() ports.CallbackRepository {
	args := m.Called()
	return args.Get(0).(ports.CallbackRepository)
}

type MockUoWFactory struct{ mock.Mock }

func (m *MockUoWFactory) Create() commands.UoW {
	args := m.Called()
	return args.Get(0).(commands.UoW)
}

type MockTenantUoWFactory struct{ mock.Mock }

func (m *MockTenantUoWFactory) Create() commands.TenantUoW {
	args := m.Called()
	return args.Get(0).(commands.TenantUoW)
}

type MockCallbackUoWFactory struct{ mock.Mock }

func (m *MockCallbackUoWFactory) Create() commands.CallbackUoW {
	args := m.Called()
	return args.Get(0).(commands.CallbackUoW)
}

// fixture wires one unit of work with all four repositories. Repository
// accessors may be called any number of times; transaction calls are explicit.
type fixture struct {
	uow       *MockUoW
	factory   *MockUoWFactory
	requests  *MockDeliveryRequestRepository
	trips     *MockTripRepository
	tenants   *MockTenantRepository
	callbacks *MockCallbackRepository
	clock     *clock.Fake
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		uow:       new(MockUoW),
		factory:   new(MockUoWFactory),
		requests:  new(MockDeliveryRequestRepository),
		trips:     new(MockTripRepository),
		tenants:   new(MockTenantRepository),
		callbacks: new(MockCallbackRepository),
		clock:     clock.NewFake(now),
	}
	f.factory.On("Create").Return(f.uow).Once()
	f.uow.On("DeliveryRequestRepository").Return(f.requests).Maybe()
	f.uow.On("TripRepository").Return(f.trips).Maybe()
	f.uow.On("TenantRepository").Return(f.tenants).Maybe()
	f.uow.On("CallbackRepository").Return(f.callbacks).Maybe()
	return f
}

// expectTx registers Begin, an optional Commit and the deferred Rollback.
func (f *fixture) expectTx(ctx context.Context, commit bool) {
	f.uow.On("Begin", ctx).Return(nil).Once()
	if commit {
		f.uow.On("Commit", ctx).Return(nil).Once()
	}
	f.uow.On("Rollback", ctx).Return(nil).Once()
}

func (f *fixture) assert(t *testing.T) {
	t.Helper()
	f.factory.AssertExpectations(t)
	f.uow.AssertExpectations(t)
	f.requests.AssertExpectations(t)
	f.trips.AssertExpectations(t)
	f.tenants.AssertExpectations(t)
	f.callbacks.AssertExpectations(t)
}

func newRequest(t *testing.T, tenantID kernel.UUID, externalIDs ...string) *delivery.DeliveryRequest {
	t.Helper()
	coords, err := kernel.NewCoordinates(31.9539, 35.9106)
	require.NoError(t, err)

	var destinations []*delivery.Destination
	for _, id := range externalIDs {
		d, err := delivery.NewDestination(kernel.NewUUID(), delivery.DestinationData{
			ExternalID:  id,
			Address:     "Rainbow St 12, Amman",
			Coordinates: coords,
		})
		require.NoError(t, err)
		destinations = append(destinations, d)
	}

	r, err := delivery.NewDeliveryRequest(kernel.NewUUID(), tenantID, delivery.Details{}, destinations, now)
	require.NoError(t, err)
	return r
}

// newAssignedTrip returns an accepted request with a not-started trip.
func newAssignedTrip(t *testing.T, externalIDs ...string) (*delivery.DeliveryRequest, *trip.Trip, kernel.UUID) {
	t.Helper()
	request := newRequest(t, kernel.NewUUID(), externalIDs...)
	tr, err := trip.NewTrip(kernel.NewUUID(), request, now)
	require.NoError(t, err)
	driverID := kernel.NewUUID()
	require.NoError(t, tr.AssignDriver(driverID, "VAN-7"))
	require.NoError(t, request.Accept())
	return request, tr, driverID
}

// newStartedTrip returns an in-progress request and trip.
func newStartedTrip(t *testing.T, externalIDs ...string) (*delivery.DeliveryRequest, *trip.Trip, kernel.UUID) {
	t.Helper()
	request, tr, driverID := newAssignedTrip(t, externalIDs...)
	require.NoError(t, tr.Start(request, nil, now))
	return request, tr, driverID
}

// expectDriverTrip registers the loads done by driver actions.
func (f *fixture) expectDriverTrip(ctx context.Context, request *delivery.DeliveryRequest, tr *trip.Trip) {
	f.trips.On("Get", ctx, tr.ID()).Return(tr, nil).Once()
	f.requests.On("GetForUpdate", ctx, request.ID()).Return(request, nil).Once()
	f.trips.On("GetForUpdate", ctx, tr.ID()).Return(tr, nil).Once()
}
