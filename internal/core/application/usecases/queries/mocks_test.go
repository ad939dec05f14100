package queries_test

import (
	"context"
	"testing"
	"time"

	"fulfillment/internal/core/application/usecases/queries"
	"fulfillment/internal/core/domain/model/callback"
	"fulfillment/internal/core/domain/model/delivery"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/trip"
	"fulfillment/internal/core/ports"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

type MockRepositories struct {
	requests  ports.DeliveryRequestRepository
	trips     ports.TripRepository
	callbacks ports.CallbackRepository
}

func (m *MockRepositories) DeliveryRequestRepository() ports.DeliveryRequestRepository {
	return m.requests
}

func (m *MockRepositories) TripRepository() ports.TripRepository {
	return m.trips
}

func (m *MockRepositories) CallbackRepository() ports.CallbackRepository {
	return m.callbacks
}

type MockRepositoriesFactory struct{ mock.Mock }

func (m *MockRepositoriesFactory) Create() queries.Repositories {
	args := m.Called()
	return args.Get(0).(queries.Repositories)
}

// MockDeliveryRequestRepository only implements the reads; writes panic via the embedded nil interface.
type MockDeliveryRequestRepository struct {
	ports.DeliveryRequestRepository
	mock.Mock
}

func (m *MockDeliveryRequestRepository) Get(ctx context.Context, id kernel.UUID) (*delivery.DeliveryRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*delivery.DeliveryRequest), args.Error(1)
}

type MockTripRepository struct {
	ports.TripRepository
	mock.Mock
}

func (m *MockTripRepository) ListByRequest(ctx context.Context, requestID kernel.UUID) ([]*trip.Trip, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*trip.Trip), args.Error(1)
}

type MockCallbackRepository struct {
	ports.CallbackRepository
	mock.Mock
}

func (m *MockCallbackRepository) List(ctx context.Context, filter ports.CallbackFilter) ([]*callback.Callback, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*callback.Callback), args.Error(1)
}

type fixture struct {
	factory   *MockRepositoriesFactory
	requests  *MockDeliveryRequestRepository
	trips     *MockTripRepository
	callbacks *MockCallbackRepository
}

func newFixture() *fixture {
	f := &fixture{
		factory:   new(MockRepositoriesFactory),
		requests:  new(MockDeliveryRequestRepository),
		trips:     new(MockTripRepository),
		callbacks: new(MockCallbackRepository),
	}
	f.factory.On("Create").Return(&MockRepositories{
		requests:  f.requests,
		trips:     f.trips,
		callbacks: f.callbacks,
	}).Once()
	return f
}

func (f *fixture) assert(t *testing.T) {
	t.Helper()
	f.factory.AssertExpectations(t)
	f.requests.AssertExpectations(t)
	f.trips.AssertExpectations(t)
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
			ContactName: "Lina",
			Items:       []any{map[string]any{"sku": "OUD-50", "qty": 1.0}},
		})
		require.NoError(t, err)
		destinations = append(destinations, d)
	}

	r, err := delivery.NewDeliveryRequest(kernel.NewUUID(), tenantID, delivery.Details{Notes: "fragile"}, destinations, now)
	require.NoError(t, err)
	return r
}
