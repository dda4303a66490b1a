// Package metrics exposes application metrics through a dedicated
// prometheus registry. The server mounts the scrape endpoint and the
// HTTP middleware when the metrics DSL is enabled; beans can register
// their own collectors next to the built-in ones.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// DefaultPath is where the scrape endpoint is mounted.
const DefaultPath = "/metrics"

// DefaultNamespace prefixes the built-in metric names.
const DefaultNamespace = "gofu"

// Config controls the metrics surface.
type Config struct {
	// Namespace prefixes the built-in metric names. Default "gofu".
	Namespace string

	// Path of the scrape endpoint. Default "/metrics".
	Path string

	// DisableRuntimeCollectors leaves out the Go runtime and process
	// collectors.
	DisableRuntimeCollectors bool
}

// Metrics owns a prometheus registry plus the built-in HTTP
// instrumentation.
type Metrics struct {
	registry *prometheus.Registry
	path     string

	inFlight prometheus.Gauge
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New creates a registry with the built-in HTTP collectors registered.
func New(cfg Config) *Metrics {
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		path:     cfg.Path,
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "path", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method", "path"}),
	}

	m.registry.MustRegister(m.inFlight, m.requests, m.duration)
	if !cfg.DisableRuntimeCollectors {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// Registry returns the underlying registry for custom collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Path returns the scrape endpoint path.
func (m *Metrics) Path() string {
	return m.path
}

// MustRegister adds application collectors to the registry.
func (m *Metrics) MustRegister(cs ...prometheus.Collector) {
	m.registry.MustRegister(cs...)
}

// Middleware instruments requests with the built-in counter and
// histogram. The route pattern is used as the path label to keep
// cardinality bounded; scrapes of the metrics endpoint itself are not
// counted.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == m.path {
			return c.Next()
		}

		m.inFlight.Inc()
		start := time.Now()
		err := c.Next()
		elapsed := time.Since(start)
		m.inFlight.Dec()

		// The error handler runs after the chain unwinds, so on the
		// error path the response status is not set yet.
		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}

		route := c.Route().Path
		method := c.Method()

		m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())

		return err
	}
}

// Handler returns the scrape endpoint as a fiber handler.
func (m *Metrics) Handler() fiber.Handler {
	h := fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	return func(c *fiber.Ctx) error {
		h(c.Context())
		return nil
	}
}
