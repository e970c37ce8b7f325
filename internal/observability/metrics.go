package observability

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fluxbase-eu/fluxfilter/internal/query"
	"github.com/fluxbase-eu/fluxfilter/internal/schema"
)

// Metrics holds all Prometheus metrics for fluxfilter. It implements
// query.Recorder so the filter engine can report into it.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Filter engine metrics
	filtersBuiltTotal     *prometheus.CounterVec
	coercionFailuresTotal *prometheus.CounterVec
	dateDegradationsTotal prometheus.Counter

	// Catalog metrics
	catalogQueriesTotal  *prometheus.CounterVec
	catalogQueryDuration *prometheus.HistogramVec

	// Rate limiting metrics
	rateLimitHitsTotal prometheus.Counter

	// System metrics
	systemUptime prometheus.Gauge
}

var _ query.Recorder = (*Metrics)(nil)

// NewMetrics creates all metrics on a private registry that also carries the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// HTTP metrics
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fluxfilter_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fluxfilter_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path", "status"},
		),
		httpRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "fluxfilter_http_requests_in_flight",
				Help: "Current number of HTTP requests being processed",
			},
		),

		// Filter engine metrics
		filtersBuiltTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fluxfilter_filters_built_total",
				Help: "Total number of filters built from request parameters",
			},
			[]string{"operator"},
		),
		coercionFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fluxfilter_coercion_failures_total",
				Help: "Total number of raw values that could not be converted to their property type",
			},
			[]string{"kind"},
		),
		dateDegradationsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fluxfilter_date_parse_degradations_total",
				Help: "Total number of date values that matched no format and were replaced by null",
			},
		),

		// Catalog metrics
		catalogQueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fluxfilter_catalog_queries_total",
				Help: "Total number of database catalog queries",
			},
			[]string{"relation", "status"},
		),
		catalogQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fluxfilter_catalog_query_duration_seconds",
				Help:    "Database catalog query latency in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"relation"},
		),

		// Rate limiting metrics
		rateLimitHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fluxfilter_rate_limit_hits_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
		),

		// System metrics
		systemUptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "fluxfilter_uptime_seconds",
				Help: "System uptime in seconds",
			},
		),
	}
}

// Registry returns the registry the metrics are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// MetricsMiddleware returns a Fiber middleware that collects HTTP metrics
func (m *Metrics) MetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		m.httpRequestsInFlight.Inc()
		defer m.httpRequestsInFlight.Dec()

		method := c.Method()

		err := c.Next()

		// Prefer the route pattern so /api/v1/query/User and
		// /api/v1/query/Role share one series
		path := c.Route().Path
		if path == "" || path == "/" {
			path = normalizePath(c.Path())
		}

		status := statusClass(c.Response().StatusCode())
		m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		m.httpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())

		return err
	}
}

// FilterBuilt counts a successfully built filter
func (m *Metrics) FilterBuilt(op query.Operator) {
	m.filtersBuiltTotal.WithLabelValues(string(op)).Inc()
}

// CoercionFailed counts a value that could not be converted
func (m *Metrics) CoercionFailed(kind schema.Kind) {
	m.coercionFailuresTotal.WithLabelValues(string(kind)).Inc()
}

// DateDegraded counts a date value that degraded to null
func (m *Metrics) DateDegraded() {
	m.dateDegradationsTotal.Inc()
}

// RecordCatalogQuery records a schema discovery query
func (m *Metrics) RecordCatalogQuery(relation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.catalogQueriesTotal.WithLabelValues(relation, status).Inc()
	m.catalogQueryDuration.WithLabelValues(relation).Observe(duration.Seconds())
}

// RecordRateLimitHit records a rate limit hit
func (m *Metrics) RecordRateLimitHit() {
	m.rateLimitHitsTotal.Inc()
}

// UpdateUptime updates the system uptime metric
func (m *Metrics) UpdateUptime(startTime time.Time) {
	m.systemUptime.Set(time.Since(startTime).Seconds())
}

// Handler returns a Fiber handler that exposes the registry
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// normalizePath caps the length of unmatched paths to bound label cardinality
func normalizePath(path string) string {
	if len(path) > 50 {
		return "long_path"
	}
	return path
}

// statusClass returns the HTTP status class (2xx, 3xx, 4xx, 5xx)
func statusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
