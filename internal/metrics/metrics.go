// Package metrics owns the Prometheus registry of the service: HTTP traffic
// and the callback queue.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"fulfillment/internal/core/application/callbacks"
	"fulfillment/internal/core/domain/model/event"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is registered on its own registry so tests can build as many as
// they need.
type Metrics struct {
	Registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	callbacksClaimed prometheus.Counter
	callbackOutcomes *prometheus.CounterVec
	callbackLatency  *prometheus.HistogramVec
}

// New registers the HTTP and callback collectors plus the Go runtime and process
// collectors on a fresh registry.
//
// Example:
//
//	m := metrics.New()
//	e.Use(m.Middleware())
//	e.GET("/metrics", echo.WrapHandler(m.Handler()))
//	deliverer := callbacks.NewDeliverer(repos, sender, locker, clock.System{}, m, logger, cfg)
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
			[]string{"method", "path", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		callbacksClaimed: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "callbacks_claimed_total", Help: "Callbacks leased by the delivery poller."},
		),
		callbackOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "callback_attempts_total", Help: "Callback attempts by event type and outcome."},
			[]string{"event_type", "outcome"},
		),
		callbackLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "callback_latency_seconds",
				Help:    "Tenant endpoint response time.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"event_type"},
		),
	}

	m.Registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.callbacksClaimed,
		m.callbackOutcomes,
		m.callbackLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// Middleware records every request under its route template, not the raw path,
// so ids do not explode the label space.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				// Let the error handler write the response so its status is recorded.
				c.Error(err)
			}

			status := c.Response().Status
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := c.Request().Method

			m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
			m.httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// CallbacksClaimed counts rows leased by one poll.
func (m *Metrics) CallbacksClaimed(n int) {
	m.callbacksClaimed.Add(float64(n))
}

// CallbackProcessed counts the outcome. Latency is observed only when a response
// was timed.
func (m *Metrics) CallbackProcessed(eventType event.Type, outcome callbacks.Outcome, latency time.Duration) {
	m.callbackOutcomes.WithLabelValues(eventType.String(), string(outcome)).Inc()
	if latency > 0 {
		m.callbackLatency.WithLabelValues(eventType.String()).Observe(latency.Seconds())
	}
}

var _ callbacks.Recorder = (*Metrics)(nil)
