// Package telemetry exposes Prometheus metrics and OpenTelemetry tracing for
// the LIMS server.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	samplesCreated  *prometheus.CounterVec
	resultsRecorded *prometheus.CounterVec
	writeErrors     *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),
		samplesCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lims_samples_created_total",
				Help: "Total number of samples created",
			},
			[]string{"source"},
		),
		resultsRecorded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lims_results_recorded_total",
				Help: "Total number of test results recorded, by previous status",
			},
			[]string{"from_status"},
		),
		writeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lims_write_errors_total",
				Help: "Total number of failed write operations",
			},
			[]string{"method"},
		),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.httpRequestsInFlight,
		m.samplesCreated,
		m.resultsRecorded,
		m.writeErrors,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latency labelled by route template.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			m.httpRequestsInFlight.Inc()
			defer m.httpRequestsInFlight.Dec()

			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			m.httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// SampleCreated counts a new sample. source is "api" or "seed".
func (m *Metrics) SampleCreated(source string) {
	if m == nil {
		return
	}
	m.samplesCreated.WithLabelValues(source).Inc()
}

// ResultRecorded counts a result entry, labelled by the status it left.
func (m *Metrics) ResultRecorded(fromStatus string) {
	if m == nil {
		return
	}
	if fromStatus == "" {
		fromStatus = "none"
	}
	m.resultsRecorded.WithLabelValues(fromStatus).Inc()
}

func (m *Metrics) WriteError(method string) {
	if m == nil {
		return
	}
	m.writeErrors.WithLabelValues(method).Inc()
}
