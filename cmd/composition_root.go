package cmd

import (
	"context"
	"log/slog"

	http_adapter "fulfillment/internal/adapters/in/http"
	"fulfillment/internal/core/application/callbacks"
	"fulfillment/internal/core/application/usecases/commands"
	"fulfillment/internal/core/application/usecases/queries"
	"fulfillment/internal/core/domain/model/tenant"
	"fulfillment/internal/core/ports"
	"fulfillment/internal/jobs"
	"fulfillment/internal/metrics"
	"fulfillment/internal/pkg/clock"

	"github.com/labstack/echo/v4"
)

// Adapters are the outbound dependencies main picked for this environment.
type Adapters struct {
	UnitOfWork ports.UnitOfWorkFactory
	Locker     ports.EntityLocker
	Sender     ports.CallbackSender
	Clock      clock.Clock
	Logger     *slog.Logger
}

// CompositionRoot wires the use cases, the HTTP router and the delivery job over
// the adapters main chose. One Deliverer is built up front and shared.
//
// Example:
//
//	root := cmd.NewCompositionRoot(cfg, cmd.Adapters{
//	    UnitOfWork: postgres.NewGormUnitOfWorkFactory(db),
//	    Locker:     locker,
//	    Sender:     webhook.NewSender(nil, webhook.Config{Timeout: cfg.CallbackTimeout}),
//	})
//	e, err := root.CreateRouter()
//	if err != nil {
//	    return err
//	}
//	manager := root.CreateJobManager()
type CompositionRoot struct {
	cfg        Config
	uowFactory ports.UnitOfWorkFactory
	locker     ports.EntityLocker
	sender     ports.CallbackSender
	clock      clock.Clock
	logger     *slog.Logger
	metrics    *metrics.Metrics
	deliverer  *callbacks.Deliverer
}

// NewCompositionRoot defaults to the system clock and slog.Default.
func NewCompositionRoot(cfg Config, adapters Adapters) *CompositionRoot {
	if adapters.Clock == nil {
		adapters.Clock = clock.System{}
	}
	if adapters.Logger == nil {
		adapters.Logger = slog.Default()
	}

	c := &CompositionRoot{
		cfg:        cfg,
		uowFactory: adapters.UnitOfWork,
		locker:     adapters.Locker,
		sender:     adapters.Sender,
		clock:      adapters.Clock,
		logger:     adapters.Logger,
		metrics:    metrics.New(),
	}
	c.deliverer = c.createDeliverer()
	return c
}

func (c *CompositionRoot) Metrics() *metrics.Metrics {
	return c.metrics
}

// Deliverer is shared by the polling job and the operator send-now route.
func (c *CompositionRoot) Deliverer() *callbacks.Deliverer {
	return c.deliverer
}

func (c *CompositionRoot) createDeliverer() *callbacks.Deliverer {
	var f callbacks.RepositoriesFactory = FuncCallbackRepositoriesFactory(func() callbacks.Repositories {
		return c.uowFactory.Create()
	})

	lease := callbacks.DefaultLease
	if c.cfg.CallbackTimeout*2 > lease {
		lease = c.cfg.CallbackTimeout * 2
	}

	return callbacks.NewDeliverer(f, c.sender, c.locker, c.clock, c.metrics, c.logger, callbacks.Config{
		BatchSize:   c.cfg.CallbackBatchSize,
		Concurrency: c.cfg.CallbackConcurrency,
		Lease:       lease,
	})
}

func (c *CompositionRoot) uow() commands.UoWFactory {
	return FuncUoWFactory(func() commands.UoW {
		return c.uowFactory.Create()
	})
}

func (c *CompositionRoot) CreateCreateDeliveryRequestCommandHandler() commands.CreateDeliveryRequestCommandHandler {
	return commands.NewCreateDeliveryRequestCommandHandler(c.uow(), c.clock)
}

func (c *CompositionRoot) CreateCancelDeliveryRequestCommandHandler() commands.CancelDeliveryRequestCommandHandler {
	return commands.NewCancelDeliveryRequestCommandHandler(c.uow(), c.clock)
}

func (c *CompositionRoot) CreateAssignTripCommandHandler() commands.AssignTripCommandHandler {
	return commands.NewAssignTripCommandHandler(c.uow(), c.clock)
}

func (c *CompositionRoot) CreateStartTripCommandHandler() commands.StartTripCommandHandler {
	return commands.NewStartTripCommandHandler(c.uow(), c.clock)
}

func (c *CompositionRoot) CreateArriveDestinationCommandHandler() commands.ArriveDestinationCommandHandler {
	return commands.NewArriveDestinationCommandHandler(c.uow(), c.clock)
}

func (c *CompositionRoot) CreateCompleteDestinationCommandHandler() commands.CompleteDestinationCommandHandler {
	return commands.NewCompleteDestinationCommandHandler(c.uow(), c.clock)
}

func (c *CompositionRoot) CreateFailDestinationCommandHandler() commands.FailDestinationCommandHandler {
	return commands.NewFailDestinationCommandHandler(c.uow(), c.clock)
}

func (c *CompositionRoot) CreateCompleteTripCommandHandler() commands.CompleteTripCommandHandler {
	return commands.NewCompleteTripCommandHandler(c.uow(), c.clock)
}

func (c *CompositionRoot) CreateCancelTripCommandHandler() commands.CancelTripCommandHandler {
	return commands.NewCancelTripCommandHandler(c.uow(), c.clock)
}

func (c *CompositionRoot) CreateConfigureTenantCommandHandler() commands.ConfigureTenantCommandHandler {
	var f commands.TenantUoWFactory = FuncTenantUoWFactory(func() commands.TenantUoW {
		return c.uowFactory.Create()
	})
	return commands.NewConfigureTenantCommandHandler(f)
}

func (c *CompositionRoot) CreateRequeueCallbackCommandHandler() commands.RequeueCallbackCommandHandler {
	var f commands.CallbackUoWFactory = FuncCallbackUoWFactory(func() commands.CallbackUoW {
		return c.uowFactory.Create()
	})
	return commands.NewRequeueCallbackCommandHandler(f, c.clock)
}

func (c *CompositionRoot) queryRepositories() queries.RepositoriesFactory {
	return FuncQueryRepositoriesFactory(func() queries.Repositories {
		return c.uowFactory.Create()
	})
}

func (c *CompositionRoot) CreateGetDeliveryRequestQueryHandler() queries.GetDeliveryRequestQueryHandler {
	return queries.NewGetDeliveryRequestQueryHandler(c.queryRepositories())
}

func (c *CompositionRoot) CreateListCallbacksQueryHandler() queries.ListCallbacksQueryHandler {
	return queries.NewListCallbacksQueryHandler(c.queryRepositories())
}

func (c *CompositionRoot) CreateServer() *http_adapter.Server {
	return http_adapter.NewServer(http_adapter.Handlers{
		CreateDeliveryRequest: c.CreateCreateDeliveryRequestCommandHandler(),
		CancelDeliveryRequest: c.CreateCancelDeliveryRequestCommandHandler(),
		AssignTrip:            c.CreateAssignTripCommandHandler(),
		StartTrip:             c.CreateStartTripCommandHandler(),
		ArriveDestination:     c.CreateArriveDestinationCommandHandler(),
		CompleteDestination:   c.CreateCompleteDestinationCommandHandler(),
		FailDestination:       c.CreateFailDestinationCommandHandler(),
		CompleteTrip:          c.CreateCompleteTripCommandHandler(),
		CancelTrip:            c.CreateCancelTripCommandHandler(),
		ConfigureTenant:       c.CreateConfigureTenantCommandHandler(),
		RequeueCallback:       c.CreateRequeueCallbackCommandHandler(),
		GetDeliveryRequest:    c.CreateGetDeliveryRequestQueryHandler(),
		ListCallbacks:         c.CreateListCallbacksQueryHandler(),
		Notifier:              c.deliverer,
	})
}

// CreateRouter builds the echo instance with authentication, request validation
// and metrics. It fails when the embedded OpenAPI document does not load.
func (c *CompositionRoot) CreateRouter() (*echo.Echo, error) {
	tenants := FuncTenantDirectory(func(ctx context.Context, hash string) (*tenant.Tenant, error) {
		return c.uowFactory.Create().TenantRepository().GetByAPIKeyHash(ctx, hash)
	})

	return http_adapter.NewRouter(c.CreateServer(), http_adapter.RouterConfig{
		Tenants:     tenants,
		DriverToken: http_adapter.NewDriverTokens(c.cfg.DriverTokenSecret),
		AdminKey:    c.cfg.AdminAPIKey,
		Metrics:     c.metrics,
		Logger:      c.logger,
	})
}

func (c *CompositionRoot) CreateCallbackDeliveryJob() *jobs.CallbackDeliveryJob {
	batchSize := c.cfg.CallbackBatchSize
	if batchSize <= 0 {
		batchSize = callbacks.DefaultBatchSize
	}
	return jobs.NewCallbackDeliveryJob(c.deliverer, c.cfg.CallbackSchedule, batchSize, c.logger)
}

func (c *CompositionRoot) CreateJobManager() *jobs.JobManager {
	return jobs.NewJobManager(c.CreateCallbackDeliveryJob())
}

type FuncUoWFactory func() commands.UoW

func (f FuncUoWFactory) Create() commands.UoW {
	return f()
}

type FuncTenantUoWFactory func() commands.TenantUoW

func (f FuncTenantUoWFactory) Create() commands.TenantUoW {
	return f()
}

type FuncCallbackUoWFactory func() commands.CallbackUoW

func (f FuncCallbackUoWFactory) Create() commands.CallbackUoW {
	return f()
}

type FuncQueryRepositoriesFactory func() queries.Repositories

func (f FuncQueryRepositoriesFactory) Create() queries.Repositories {
	return f()
}

type FuncCallbackRepositoriesFactory func() callbacks.Repositories

func (f FuncCallbackRepositoriesFactory) Create() callbacks.Repositories {
	return f()
}

type FuncTenantDirectory func(ctx context.Context, hash string) (*tenant.Tenant, error)

func (f FuncTenantDirectory) GetByAPIKeyHash(ctx context.Context, hash string) (*tenant.Tenant, error) {
	return f(ctx, hash)
}
