package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all metrics for the application
type Registry struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Graph Metrics
	GraphNodes             prometheus.Gauge
	GraphLinks             prometheus.Gauge
	GraphUnresolvedLinks   prometheus.Gauge
	GraphPinnedNodes       prometheus.Gauge
	GraphMergesTotal       *prometheus.CounterVec
	GraphDuplicatesIgnored prometheus.Counter

	// Layout Metrics
	LayoutTicksTotal   prometheus.Counter
	LayoutAlpha        prometheus.Gauge
	LayoutActive       prometheus.Gauge
	LayoutReheatsTotal *prometheus.CounterVec
	LayoutTickDuration prometheus.Histogram

	// Expansion Metrics
	ExpansionRequestsTotal *prometheus.CounterVec
	ExpansionDuration      *prometheus.HistogramVec
	ExpansionInFlight      prometheus.Gauge
	ExpansionTableReloads  prometheus.Counter
	PresenterClients       prometheus.Gauge
	PresenterFramesDropped prometheus.Counter

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge

	registry *prometheus.Registry
	started  time.Time
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		started:  time.Now(),
	}

	r.initHTTPMetrics()
	r.initGraphMetrics()
	r.initLayoutMetrics()
	r.initExpansionMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
