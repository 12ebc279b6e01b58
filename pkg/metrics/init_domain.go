package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initGraphMetrics() {
	r.GraphNodesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "floodroute_graph_nodes_total",
			Help: "Nodes in the loaded road graph",
		},
	)

	r.GraphEdgesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "floodroute_graph_edges_total",
			Help: "Edges in the loaded road graph",
		},
	)

	r.GraphRiskyEdges = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "floodroute_graph_risky_edges",
			Help: "Edges carrying a nonzero risk score",
		},
	)
}

func (r *Registry) initRasterMetrics() {
	r.RasterCacheHits = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "floodroute_raster_cache_hits",
			Help: "Cumulative raster cache hits",
		},
	)

	r.RasterCacheMisses = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "floodroute_raster_cache_misses",
			Help: "Cumulative raster cache misses",
		},
	)

	r.RasterCacheSize = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "floodroute_raster_cache_size",
			Help: "Grids currently held in the raster cache",
		},
	)
}

func (r *Registry) initAgentMetrics() {
	r.MailboxDepth = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "floodroute_mailbox_depth",
			Help: "Queued messages per agent mailbox",
		},
		[]string{"agent"},
	)

	r.AgentMessagesHandled = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "floodroute_agent_messages_handled_total",
			Help: "Messages consumed per agent",
		},
		[]string{"agent"},
	)

	r.AgentStepFailures = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "floodroute_agent_step_failures_total",
			Help: "Agent steps that surfaced an error",
		},
		[]string{"agent"},
	)
}

func (r *Registry) initPlannerMetrics() {
	r.RoutesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "floodroute_routes_total",
			Help: "Route computations by profile and outcome",
		},
		[]string{"profile", "status"},
	)

	r.RouteDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "floodroute_route_duration_seconds",
			Help:    "Route computation latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"profile"},
	)

	r.RouteDistance = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "floodroute_route_distance_meters",
			Help:    "Planned route length in meters",
			Buckets: []float64{250, 500, 1000, 2500, 5000, 10000, 25000},
		},
	)
}

func (r *Registry) initSchedulerMetrics() {
	r.SchedulerRunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "floodroute_scheduler_runs_total",
			Help: "Upstream refresh runs by result",
		},
		[]string{"result"},
	)

	r.SchedulerDataPoints = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "floodroute_scheduler_data_points_total",
			Help: "Hazard readings collected by scheduled refreshes",
		},
	)
}

func (r *Registry) initSystemMetrics() {
	r.UptimeSeconds = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "floodroute_uptime_seconds",
			Help: "Service uptime in seconds",
		},
	)

	r.GoRoutines = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "floodroute_goroutines",
			Help: "Current number of goroutines",
		},
	)

	r.MemoryAllocBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "floodroute_memory_alloc_bytes",
			Help: "Bytes of allocated heap objects",
		},
	)
}
