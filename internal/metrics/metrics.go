// Package metrics exposes Prometheus collectors for Markdown rendering, slug
// assignment, commands and the HTTP surface.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "press"

// Metrics owns a registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	renderDuration  prometheus.Histogram
	renderFallbacks prometheus.Counter
	slugCollisions  *prometheus.CounterVec
	slugRetries     *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry. Process and Go runtime
// collectors are included when withRuntime is set.
func New(withRuntime bool) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		renderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "markdown",
			Name:      "render_duration_seconds",
			Help:      "Time spent converting and sanitizing Markdown.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}),
		renderFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "markdown",
			Name:      "render_fallbacks_total",
			Help:      "Conversions that fell back to escaped plain text.",
		}),
		slugCollisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "slugs",
			Name:      "collisions_total",
			Help:      "Proposed slugs that were already taken.",
		}, []string{"entity"}),
		slugRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "slugs",
			Name:      "write_retries_total",
			Help:      "Writes retried after a storage uniqueness violation.",
		}, []string{"entity"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "duration_seconds",
			Help:      "Command executions by command and outcome.",
			Buckets:   prometheus.ExponentialBuckets(.005, 4, 8),
		}, []string{"command", "status"}),
	}

	m.registry.MustRegister(
		m.renderDuration,
		m.renderFallbacks,
		m.slugCollisions,
		m.slugRetries,
		m.httpRequests,
		m.commandDuration,
	)
	if withRuntime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// ObserveRender records one Markdown conversion.
func (m *Metrics) ObserveRender(duration time.Duration, fallback bool) {
	m.renderDuration.Observe(duration.Seconds())
	if fallback {
		m.renderFallbacks.Inc()
	}
}

// SlugCollision counts a taken slug for entity.
func (m *Metrics) SlugCollision(entity string) {
	m.slugCollisions.WithLabelValues(entity).Inc()
}

// SlugRetry counts a write retried after a uniqueness violation.
func (m *Metrics) SlugRetry(entity string) {
	m.slugRetries.WithLabelValues(entity).Inc()
}

// ObserveCommand records one command execution with its outcome status.
func (m *Metrics) ObserveCommand(command, status string, duration time.Duration) {
	m.commandDuration.WithLabelValues(command, status).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware counts requests handled by next.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerCounter(m.httpRequests, next)
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
