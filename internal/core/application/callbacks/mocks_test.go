package callbacks_test

import (
	"context"
	"testing"
	"time"

	"fulfillment/internal/core/application/callbacks"
	"fulfillment/internal/core/domain/model/callback"
	"fulfillment/internal/core/domain/model/delivery"
	"fulfillment/internal/core/domain/model/event"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/schema"
	"fulfillment/internal/core/domain/model/tenant"
	"fulfillment/internal/core/domain/model/trip"
	"fulfillment/internal/core/ports"
	"fulfillment/internal/pkg/clock"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

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

func (m *MockDeliveryRequestRepository) GetByDestination(ctx context.Context, id kernel.UUID) (*delivery.DeliveryRequest, error) {
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

func (m *MockTripRepository) Get(ctx context.Context, id kernel.UUID) (*trip.Trip, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trip.Trip), args.Error(1)
}

type MockTenantRepository struct {
	ports.TenantRepository
	mock.Mock
}

func (m *MockTenantRepository) Get(ctx context.Context, id kernel.UUID) (*tenant.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenant.Tenant), args.Error(1)
}

type MockCallbackRepository struct {
	ports.CallbackRepository
	mock.Mock
}

func (m *MockCallbackRepository) Update(ctx context.Context, c *callback.Callback) error {
	args := m.Called(ctx, c)
	return args.Error(0)
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

type repositories struct {
	requests  *MockDeliveryRequestRepository
	trips     *MockTripRepository
	tenants   *MockTenantRepository
	callbacks *MockCallbackRepository
}

func (r *repositories) DeliveryRequestRepository() ports.DeliveryRequestRepository { return r.requests }
func (r *repositories) TripRepository() ports.TripRepository                       { return r.trips }
func (r *repositories) TenantRepository() ports.TenantRepository                   { return r.tenants }
func (r *repositories) CallbackRepository() ports.CallbackRepository               { return r.callbacks }

type repositoriesFactory struct{ repos *repositories }

func (f repositoriesFactory) Create() callbacks.Repositories { return f.repos }

type MockSender struct{ mock.Mock }

func (m *MockSender) Send(ctx context.Context, msg ports.CallbackMessage) (ports.CallbackResult, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(ports.CallbackResult), args.Error(1)
}

type MockLocker struct{ mock.Mock }

func (m *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	args := m.Called(ctx, key, ttl)
	return func(context.Context) error { return nil }, args.Bool(0), args.Error(1)
}

type MockRecorder struct{ mock.Mock }

func (m *MockRecorder) CallbacksClaimed(n int) {
	m.Called(n)
}

func (m *MockRecorder) CallbackProcessed(eventType event.Type, outcome callbacks.Outcome, latency time.Duration) {
	m.Called(eventType, outcome, latency)
}

type fixture struct {
	repos    *repositories
	sender   *MockSender
	locker   *MockLocker
	recorder *MockRecorder
	clock    *clock.Fake
}

func newFixture() *fixture {
	return &fixture{
		repos: &repositories{
			requests:  new(MockDeliveryRequestRepository),
			trips:     new(MockTripRepository),
			tenants:   new(MockTenantRepository),
			callbacks: new(MockCallbackRepository),
		},
		sender:   new(MockSender),
		locker:   new(MockLocker),
		recorder: new(MockRecorder),
		clock:    clock.NewFake(now),
	}
}

func (f *fixture) deliverer(cfg callbacks.Config) *callbacks.Deliverer {
	return callbacks.NewDeliverer(
		repositoriesFactory{repos: f.repos},
		f.sender,
		f.locker,
		f.clock,
		f.recorder,
		discardLogger(),
		cfg,
	)
}

func (f *fixture) assert(t *testing.T) {
	t.Helper()
	f.repos.requests.AssertExpectations(t)
	f.repos.trips.AssertExpectations(t)
	f.repos.tenants.AssertExpectations(t)
	f.repos.callbacks.AssertExpectations(t)
	f.sender.AssertExpectations(t)
	f.locker.AssertExpectations(t)
	f.recorder.AssertExpectations(t)
}

// newTenant maps two outbound fields so the body shape is easy to check.
func newTenant(t *testing.T, callbackURL string, withSchema bool) *tenant.Tenant {
	t.Helper()
	settings := tenant.Settings{
		Name:           "Melody Perfumes",
		APIKey:         "tenant-key",
		CallbackURL:    callbackURL,
		CallbackAPIKey: "cb-secret",
	}
	if withSchema {
		s, err := schema.ParseSchema(nil, map[string]string{
			"external_id": "order_id",
			"status":      "state",
			"event":       "event",
		})
		require.NoError(t, err)
		settings.Schema = &s
	}
	tn, err := tenant.NewTenant(kernel.NewUUID(), settings)
	require.NoError(t, err)
	return tn
}

// newStartedRequest returns an in-progress request of tn and its trip.
func newStartedRequest(t *testing.T, tn *tenant.Tenant, externalIDs ...string) (*delivery.DeliveryRequest, *trip.Trip) {
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
	request, err := delivery.NewDeliveryRequest(kernel.NewUUID(), tn.ID(), delivery.Details{}, destinations, now)
	require.NoError(t, err)

	tr, err := trip.NewTrip(kernel.NewUUID(), request, now)
	require.NoError(t, err)
	require.NoError(t, tr.AssignDriver(kernel.NewUUID(), "VAN-7"))
	require.NoError(t, request.Accept())
	require.NoError(t, tr.Start(request, nil, now))
	return request, tr
}

// claimed returns a callback leased at now, as ClaimDue hands it out.
func claimed(t *testing.T, ev event.Event) *callback.Callback {
	t.Helper()
	cb, err := callback.NewCallback(kernel.NewUUID(), ev, now)
	require.NoError(t, err)
	require.NoError(t, cb.Claim(now, callbacks.DefaultLease))
	return cb
}
