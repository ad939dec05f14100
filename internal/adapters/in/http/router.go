package http

import (
	"log/slog"
	"net/http"

	"fulfillment/internal/metrics"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// RouterConfig holds what the echo instance needs besides the server.
type RouterConfig struct {
	Tenants     TenantDirectory
	DriverToken DriverTokens
	AdminKey    string
	// Metrics is optional; without it /metrics is not served.
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// NewRouter builds the echo instance serving the API, its documentation and
// the health and metrics endpoints.
func NewRouter(server *Server, cfg RouterConfig) (*echo.Echo, error) {
	doc, err := GetSwagger()
	if err != nil {
		return nil, err
	}
	validate, err := OpenAPIRequestValidator(doc)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = NewErrorHandler(logger)
	e.Use(middleware.Recover())
	if cfg.Metrics != nil {
		e.Use(cfg.Metrics.Middleware())
		e.GET("/metrics", echo.WrapHandler(cfg.Metrics.Handler()))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "Healthy")
	})
	e.GET("/openapi.yaml", OpenAPIDocumentHandler)
	e.GET("/docs/*", echoSwagger.EchoWrapHandler(echoSwagger.URL("/openapi.yaml")))

	RegisterHandlers(e, server, Middlewares{
		Tenant:   TenantAuth(cfg.Tenants),
		Driver:   DriverAuth(cfg.DriverToken),
		Admin:    AdminAuth(cfg.AdminKey),
		Validate: validate,
	})

	return e, nil
}
