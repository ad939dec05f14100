package http

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// ServerInterface has one method per operation of openapi.yaml. Path
// parameters arrive already parsed.
type ServerInterface interface {
	// (POST /delivery-requests)
	CreateDeliveryRequest(ctx echo.Context) error
	// (GET /delivery-requests/{requestId})
	GetDeliveryRequest(ctx echo.Context, requestID openapi_types.UUID) error
	// (POST /delivery-requests/{requestId}/cancel)
	CancelDeliveryRequest(ctx echo.Context, requestID openapi_types.UUID) error

	// (POST /driver/trips/{tripId}/start)
	StartTrip(ctx echo.Context, tripID openapi_types.UUID) error
	// (POST /driver/trips/{tripId}/complete)
	CompleteTrip(ctx echo.Context, tripID openapi_types.UUID) error
	// (POST /driver/trips/{tripId}/destinations/{destinationId}/arrive)
	ArriveDestination(ctx echo.Context, tripID, destinationID openapi_types.UUID) error
	// (POST /driver/trips/{tripId}/destinations/{destinationId}/complete)
	CompleteDestination(ctx echo.Context, tripID, destinationID openapi_types.UUID) error
	// (POST /driver/trips/{tripId}/destinations/{destinationId}/fail)
	FailDestination(ctx echo.Context, tripID, destinationID openapi_types.UUID) error

	// (PUT /admin/tenants/{tenantId})
	ConfigureTenant(ctx echo.Context, tenantID openapi_types.UUID) error
	// (POST /admin/delivery-requests/{requestId}/assign)
	AssignTrip(ctx echo.Context, requestID openapi_types.UUID) error
	// (POST /admin/trips/{tripId}/cancel)
	CancelTrip(ctx echo.Context, tripID openapi_types.UUID) error
	// (GET /admin/callbacks)
	ListCallbacks(ctx echo.Context, params ListCallbacksParams) error
	// (POST /admin/callbacks/{callbackId}/requeue)
	RequeueCallback(ctx echo.Context, callbackID openapi_types.UUID) error
	// (POST /admin/destinations/{destinationId}/callback)
	SendDestinationCallback(ctx echo.Context, destinationID openapi_types.UUID) error
}

// ServerInterfaceWrapper converts echo contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

// CreateDeliveryRequest converts echo context to params.
func (w *ServerInterfaceWrapper) CreateDeliveryRequest(ctx echo.Context) error {
	return w.Handler.CreateDeliveryRequest(ctx)
}

// GetDeliveryRequest converts echo context to params.
func (w *ServerInterfaceWrapper) GetDeliveryRequest(ctx echo.Context) error {
	requestID, err := bindPathUUID(ctx, "requestId")
	if err != nil {
		return err
	}
	return w.Handler.GetDeliveryRequest(ctx, requestID)
}

// CancelDeliveryRequest converts echo context to params.
func (w *ServerInterfaceWrapper) CancelDeliveryRequest(ctx echo.Context) error {
	requestID, err := bindPathUUID(ctx, "requestId")
	if err != nil {
		return err
	}
	return w.Handler.CancelDeliveryRequest(ctx, requestID)
}

// StartTrip converts echo context to params.
func (w *ServerInterfaceWrapper) StartTrip(ctx echo.Context) error {
	tripID, err := bindPathUUID(ctx, "tripId")
	if err != nil {
		return err
	}
	return w.Handler.StartTrip(ctx, tripID)
}

// CompleteTrip converts echo context to params.
func (w *ServerInterfaceWrapper) CompleteTrip(ctx echo.Context) error {
	tripID, err := bindPathUUID(ctx, "tripId")
	if err != nil {
		return err
	}
	return w.Handler.CompleteTrip(ctx, tripID)
}

// ArriveDestination converts echo context to params.
func (w *ServerInterfaceWrapper) ArriveDestination(ctx echo.Context) error {
	tripID, destinationID, err := bindStop(ctx)
	if err != nil {
		return err
	}
	return w.Handler.ArriveDestination(ctx, tripID, destinationID)
}

// CompleteDestination converts echo context to params.
func (w *ServerInterfaceWrapper) CompleteDestination(ctx echo.Context) error {
	tripID, destinationID, err := bindStop(ctx)
	if err != nil {
		return err
	}
	return w.Handler.CompleteDestination(ctx, tripID, destinationID)
}

// FailDestination converts echo context to params.
func (w *ServerInterfaceWrapper) FailDestination(ctx echo.Context) error {
	tripID, destinationID, err := bindStop(ctx)
	if err != nil {
		return err
	}
	return w.Handler.FailDestination(ctx, tripID, destinationID)
}

// ConfigureTenant converts echo context to params.
func (w *ServerInterfaceWrapper) ConfigureTenant(ctx echo.Context) error {
	tenantID, err := bindPathUUID(ctx, "tenantId")
	if err != nil {
		return err
	}
	return w.Handler.ConfigureTenant(ctx, tenantID)
}

// AssignTrip converts echo context to params.
func (w *ServerInterfaceWrapper) AssignTrip(ctx echo.Context) error {
	requestID, err := bindPathUUID(ctx, "requestId")
	if err != nil {
		return err
	}
	return w.Handler.AssignTrip(ctx, requestID)
}

// CancelTrip converts echo context to params.
func (w *ServerInterfaceWrapper) CancelTrip(ctx echo.Context) error {
	tripID, err := bindPathUUID(ctx, "tripId")
	if err != nil {
		return err
	}
	return w.Handler.CancelTrip(ctx, tripID)
}

// ListCallbacks converts echo context to params.
func (w *ServerInterfaceWrapper) ListCallbacks(ctx echo.Context) error {
	var params ListCallbacksParams

	if err := runtime.BindQueryParameter("form", true, false, "status", ctx.QueryParams(), &params.Status); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter status: %s", err))
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", ctx.QueryParams(), &params.Limit); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter limit: %s", err))
	}

	return w.Handler.ListCallbacks(ctx, params)
}

// RequeueCallback converts echo context to params.
func (w *ServerInterfaceWrapper) RequeueCallback(ctx echo.Context) error {
	callbackID, err := bindPathUUID(ctx, "callbackId")
	if err != nil {
		return err
	}
	return w.Handler.RequeueCallback(ctx, callbackID)
}

// SendDestinationCallback converts echo context to params.
func (w *ServerInterfaceWrapper) SendDestinationCallback(ctx echo.Context) error {
	destinationID, err := bindPathUUID(ctx, "destinationId")
	if err != nil {
		return err
	}
	return w.Handler.SendDestinationCallback(ctx, destinationID)
}

func bindPathUUID(ctx echo.Context, name string) (openapi_types.UUID, error) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", name, ctx.Param(name), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return openapi_types.UUID{}, echo.NewHTTPError(
			http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter %s: %s", name, err),
		)
	}
	return id, nil
}

func bindStop(ctx echo.Context) (openapi_types.UUID, openapi_types.UUID, error) {
	tripID, err := bindPathUUID(ctx, "tripId")
	if err != nil {
		return openapi_types.UUID{}, openapi_types.UUID{}, err
	}
	destinationID, err := bindPathUUID(ctx, "destinationId")
	if err != nil {
		return openapi_types.UUID{}, openapi_types.UUID{}, err
	}
	return tripID, destinationID, nil
}

// EchoRouter is the part of *echo.Echo and *echo.Group routes are added to.
type EchoRouter interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	PUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// Middlewares run in front of the operations: the guard of the audience, then
// the request validator. Nil entries are skipped.
type Middlewares struct {
	Tenant   echo.MiddlewareFunc
	Driver   echo.MiddlewareFunc
	Admin    echo.MiddlewareFunc
	Validate echo.MiddlewareFunc
}

func (m Middlewares) chain(guard echo.MiddlewareFunc) []echo.MiddlewareFunc {
	var out []echo.MiddlewareFunc
	for _, mw := range []echo.MiddlewareFunc{guard, m.Validate} {
		if mw != nil {
			out = append(out, mw)
		}
	}
	return out
}

// RegisterHandlers adds every operation of si to router.
func RegisterHandlers(router EchoRouter, si ServerInterface, m Middlewares) {
	w := &ServerInterfaceWrapper{Handler: si}
	tenant := m.chain(m.Tenant)
	driver := m.chain(m.Driver)
	admin := m.chain(m.Admin)

	router.POST("/delivery-requests", w.CreateDeliveryRequest, tenant...)
	router.GET("/delivery-requests/:requestId", w.GetDeliveryRequest, tenant...)
	router.POST("/delivery-requests/:requestId/cancel", w.CancelDeliveryRequest, tenant...)

	router.POST("/driver/trips/:tripId/start", w.StartTrip, driver...)
	router.POST("/driver/trips/:tripId/complete", w.CompleteTrip, driver...)
	router.POST("/driver/trips/:tripId/destinations/:destinationId/arrive", w.ArriveDestination, driver...)
	router.POST("/driver/trips/:tripId/destinations/:destinationId/complete", w.CompleteDestination, driver...)
	router.POST("/driver/trips/:tripId/destinations/:destinationId/fail", w.FailDestination, driver...)

	router.PUT("/admin/tenants/:tenantId", w.ConfigureTenant, admin...)
	router.POST("/admin/delivery-requests/:requestId/assign", w.AssignTrip, admin...)
	router.POST("/admin/trips/:tripId/cancel", w.CancelTrip, admin...)
	router.GET("/admin/callbacks", w.ListCallbacks, admin...)
	router.POST("/admin/callbacks/:callbackId/requeue", w.RequeueCallback, admin...)
	router.POST("/admin/destinations/:destinationId/callback", w.SendDestinationCallback, admin...)
}
