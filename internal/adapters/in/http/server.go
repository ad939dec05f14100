// Package http exposes the service over REST: tenant submissions, driver
// actions and operator tools, described by the embedded openapi.yaml.
package http

import (
	"context"
	"net/http"

	"fulfillment/internal/core/application/callbacks"
	"fulfillment/internal/core/application/usecases/commands"
	"fulfillment/internal/core/application/usecases/queries"
	"fulfillment/internal/core/domain/model/kernel"

	"github.com/labstack/echo/v4"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// DestinationNotifier sends a destination callback right away.
type DestinationNotifier interface {
	SendNow(ctx context.Context, destinationID kernel.UUID) (callbacks.SendNowResult, error)
}

// Handlers are the use cases behind the operations.
type Handlers struct {
	CreateDeliveryRequest commands.CreateDeliveryRequestCommandHandler
	CancelDeliveryRequest commands.CancelDeliveryRequestCommandHandler
	AssignTrip            commands.AssignTripCommandHandler
	StartTrip             commands.StartTripCommandHandler
	ArriveDestination     commands.ArriveDestinationCommandHandler
	CompleteDestination   commands.CompleteDestinationCommandHandler
	FailDestination       commands.FailDestinationCommandHandler
	CompleteTrip          commands.CompleteTripCommandHandler
	CancelTrip            commands.CancelTripCommandHandler
	ConfigureTenant       commands.ConfigureTenantCommandHandler
	RequeueCallback       commands.RequeueCallbackCommandHandler

	GetDeliveryRequest queries.GetDeliveryRequestQueryHandler
	ListCallbacks      queries.ListCallbacksQueryHandler

	Notifier DestinationNotifier
}

// Server implements ServerInterface on top of the application use cases.
type Server struct {
	h Handlers
}

// NewServer creates the server over the use case handlers.
func NewServer(handlers Handlers) *Server {
	return &Server{h: handlers}
}

var _ ServerInterface = (*Server)(nil)

// CreateDeliveryRequest handles POST /delivery-requests.
func (s *Server) CreateDeliveryRequest(ctx echo.Context) error {
	var body NewDeliveryRequest
	if err := ctx.Bind(&body); err != nil {
		return err
	}
	details, err := body.details()
	if err != nil {
		return err
	}

	tenant := tenantID(ctx)
	cmd, err := commands.NewCreateDeliveryRequestCommand(kernel.NewUUID(), tenant, body.Destinations, details)
	if err != nil {
		return err
	}

	result, err := s.h.CreateDeliveryRequest.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return err
	}

	status := http.StatusCreated
	if !result.Created {
		status = http.StatusOK
	}
	return s.respondWithRequest(ctx, status, result.RequestID, &tenant)
}

// GetDeliveryRequest handles GET /delivery-requests/{requestId}.
func (s *Server) GetDeliveryRequest(ctx echo.Context, requestID openapi_types.UUID) error {
	tenant := tenantID(ctx)
	return s.respondWithRequest(ctx, http.StatusOK, kernel.RestoreUUID(requestID), &tenant)
}

// CancelDeliveryRequest handles POST /delivery-requests/{requestId}/cancel.
func (s *Server) CancelDeliveryRequest(ctx echo.Context, requestID openapi_types.UUID) error {
	tenant := tenantID(ctx)
	id := kernel.RestoreUUID(requestID)

	cmd, err := commands.NewCancelDeliveryRequestCommand(tenant, id)
	if err != nil {
		return err
	}
	if err := s.h.CancelDeliveryRequest.Handle(ctx.Request().Context(), cmd); err != nil {
		return err
	}

	return s.respondWithRequest(ctx, http.StatusOK, id, &tenant)
}

// StartTrip handles POST /driver/trips/{tripId}/start.
func (s *Server) StartTrip(ctx echo.Context, tripID openapi_types.UUID) error {
	var body Position
	if err := ctx.Bind(&body); err != nil {
		return err
	}

	cmd, err := commands.NewStartTripCommand(kernel.RestoreUUID(tripID), driverID(ctx), body.Lat, body.Lng)
	if err != nil {
		return err
	}
	if err := s.h.StartTrip.Handle(ctx.Request().Context(), cmd); err != nil {
		return err
	}

	return ctx.NoContent(http.StatusNoContent)
}

// CompleteTrip handles POST /driver/trips/{tripId}/complete.
func (s *Server) CompleteTrip(ctx echo.Context, tripID openapi_types.UUID) error {
	var body TripCompletion
	if err := ctx.Bind(&body); err != nil {
		return err
	}

	cmd, err := commands.NewCompleteTripCommand(kernel.RestoreUUID(tripID), driverID(ctx), body.TotalKm, body.Lat, body.Lng)
	if err != nil {
		return err
	}
	if err := s.h.CompleteTrip.Handle(ctx.Request().Context(), cmd); err != nil {
		return err
	}

	return ctx.NoContent(http.StatusNoContent)
}

// ArriveDestination handles POST /driver/trips/{tripId}/destinations/{destinationId}/arrive.
func (s *Server) ArriveDestination(ctx echo.Context, tripID, destinationID openapi_types.UUID) error {
	var body Position
	if err := ctx.Bind(&body); err != nil {
		return err
	}

	cmd, err := commands.NewArriveDestinationCommand(
		kernel.RestoreUUID(tripID), kernel.RestoreUUID(destinationID), driverID(ctx), body.Lat, body.Lng,
	)
	if err != nil {
		return err
	}
	if err := s.h.ArriveDestination.Handle(ctx.Request().Context(), cmd); err != nil {
		return err
	}

	return ctx.NoContent(http.StatusNoContent)
}

// CompleteDestination handles POST /driver/trips/{tripId}/destinations/{destinationId}/complete.
func (s *Server) CompleteDestination(ctx echo.Context, tripID, destinationID openapi_types.UUID) error {
	var body ProofOfDelivery
	if err := ctx.Bind(&body); err != nil {
		return err
	}

	cmd, err := commands.NewCompleteDestinationCommand(
		kernel.RestoreUUID(tripID), kernel.RestoreUUID(destinationID), driverID(ctx), body.toCommand(),
	)
	if err != nil {
		return err
	}
	if err := s.h.CompleteDestination.Handle(ctx.Request().Context(), cmd); err != nil {
		return err
	}

	return ctx.NoContent(http.StatusNoContent)
}

// FailDestination handles POST /driver/trips/{tripId}/destinations/{destinationId}/fail.
func (s *Server) FailDestination(ctx echo.Context, tripID, destinationID openapi_types.UUID) error {
	var body DeliveryFailure
	if err := ctx.Bind(&body); err != nil {
		return err
	}

	cmd, err := commands.NewFailDestinationCommand(
		kernel.RestoreUUID(tripID), kernel.RestoreUUID(destinationID), driverID(ctx), body.Reason, body.Notes,
	)
	if err != nil {
		return err
	}
	if err := s.h.FailDestination.Handle(ctx.Request().Context(), cmd); err != nil {
		return err
	}

	return ctx.NoContent(http.StatusNoContent)
}

// ConfigureTenant handles PUT /admin/tenants/{tenantId}.
func (s *Server) ConfigureTenant(ctx echo.Context, tenantID openapi_types.UUID) error {
	var body TenantSettings
	if err := ctx.Bind(&body); err != nil {
		return err
	}

	cmd, err := commands.NewConfigureTenantCommand(
		kernel.RestoreUUID(tenantID),
		body.Name, body.APIKey, body.CallbackURL, body.CallbackAPIKey,
		body.Schema.toCommand(),
	)
	if err != nil {
		return err
	}

	created, err := s.h.ConfigureTenant.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return err
	}
	if created {
		return ctx.NoContent(http.StatusCreated)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// AssignTrip handles POST /admin/delivery-requests/{requestId}/assign.
func (s *Server) AssignTrip(ctx echo.Context, requestID openapi_types.UUID) error {
	var body TripAssignment
	if err := ctx.Bind(&body); err != nil {
		return err
	}

	cmd, err := commands.NewAssignTripCommand(
		kernel.NewUUID(), kernel.RestoreUUID(requestID), kernel.RestoreUUID(body.DriverID), body.VehicleID,
	)
	if err != nil {
		return err
	}

	t, err := s.h.AssignTrip.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusCreated, toTrip(t))
}

// CancelTrip handles POST /admin/trips/{tripId}/cancel.
func (s *Server) CancelTrip(ctx echo.Context, tripID openapi_types.UUID) error {
	cmd, err := commands.NewCancelTripCommand(kernel.RestoreUUID(tripID))
	if err != nil {
		return err
	}
	if err := s.h.CancelTrip.Handle(ctx.Request().Context(), cmd); err != nil {
		return err
	}

	return ctx.NoContent(http.StatusNoContent)
}

// ListCallbacks handles GET /admin/callbacks.
func (s *Server) ListCallbacks(ctx echo.Context, params ListCallbacksParams) error {
	var (
		status string
		limit  int
	)
	if params.Status != nil {
		status = *params.Status
	}
	if params.Limit != nil {
		limit = *params.Limit
	}

	query, err := queries.NewListCallbacksQuery(status, limit)
	if err != nil {
		return err
	}
	rows, err := s.h.ListCallbacks.Handle(ctx.Request().Context(), query)
	if err != nil {
		return err
	}

	response := make([]Callback, 0, len(rows))
	for _, row := range rows {
		response = append(response, toCallback(row))
	}
	return ctx.JSON(http.StatusOK, response)
}

// RequeueCallback handles POST /admin/callbacks/{callbackId}/requeue.
func (s *Server) RequeueCallback(ctx echo.Context, callbackID openapi_types.UUID) error {
	cmd, err := commands.NewRequeueCallbackCommand(kernel.RestoreUUID(callbackID))
	if err != nil {
		return err
	}

	cb, err := s.h.RequeueCallback.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, toCallback(queries.NewListCallbacksQueryResponse(cb)))
}

// SendDestinationCallback handles POST /admin/destinations/{destinationId}/callback.
func (s *Server) SendDestinationCallback(ctx echo.Context, destinationID openapi_types.UUID) error {
	result, err := s.h.Notifier.SendNow(ctx.Request().Context(), kernel.RestoreUUID(destinationID))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, toSendNowResult(result))
}

func (s *Server) respondWithRequest(ctx echo.Context, status int, requestID kernel.UUID, tenant *kernel.UUID) error {
	query, err := queries.NewGetDeliveryRequestQuery(requestID, tenant)
	if err != nil {
		return err
	}
	view, err := s.h.GetDeliveryRequest.Handle(ctx.Request().Context(), query)
	if err != nil {
		return err
	}
	return ctx.JSON(status, toDeliveryRequest(view))
}
