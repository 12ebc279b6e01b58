package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the service
type Registry struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Tick Metrics
	TicksTotal        prometheus.Counter
	TickPhaseDuration *prometheus.HistogramVec
	TickTimeStep      prometheus.Gauge

	// Fusion Metrics
	FusionEdgesUpdated   prometheus.Gauge
	FusionAverageRisk    prometheus.Gauge
	FusionCacheSize      *prometheus.GaugeVec
	FusionRasterApplied  prometheus.Gauge
	FusionCommitFailures prometheus.Counter

	// Graph Metrics
	GraphNodesTotal prometheus.Gauge
	GraphEdgesTotal prometheus.Gauge
	GraphRiskyEdges prometheus.Gauge

	// Raster Metrics
	RasterCacheHits   prometheus.Gauge
	RasterCacheMisses prometheus.Gauge
	RasterCacheSize   prometheus.Gauge

	// Agent Metrics
	MailboxDepth         *prometheus.GaugeVec
	AgentMessagesHandled *prometheus.CounterVec
	AgentStepFailures    *prometheus.CounterVec

	// Planner Metrics
	RoutesTotal   *prometheus.CounterVec
	RouteDuration *prometheus.HistogramVec
	RouteDistance prometheus.Histogram

	// Scheduler Metrics
	SchedulerRunsTotal  *prometheus.CounterVec
	SchedulerDataPoints prometheus.Counter

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge

	registry *prometheus.Registry
	mu       sync.RWMutex
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
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initHTTPMetrics()
	r.initTickMetrics()
	r.initFusionMetrics()
	r.initGraphMetrics()
	r.initRasterMetrics()
	r.initAgentMetrics()
	r.initPlannerMetrics()
	r.initSchedulerMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
