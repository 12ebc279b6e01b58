package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initTickMetrics() {
	r.TicksTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "floodroute_ticks_total",
			Help: "Total number of completed simulation ticks",
		},
	)

	r.TickPhaseDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "floodroute_tick_phase_duration_seconds",
			Help:    "Duration of each tick phase in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"phase"},
	)

	r.TickTimeStep = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "floodroute_tick_time_step",
			Help: "Current raster time step of the running scenario",
		},
	)
}

func (r *Registry) initFusionMetrics() {
	r.FusionEdgesUpdated = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "floodroute_fusion_edges_updated",
			Help: "Edges updated by the most recent fusion commit",
		},
	)

	r.FusionAverageRisk = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "floodroute_fusion_average_risk",
			Help: "Graph-wide average edge risk after the last commit",
		},
	)

	r.FusionCacheSize = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "floodroute_fusion_cache_size",
			Help: "Entries held per fusion cache",
		},
		[]string{"cache"},
	)

	r.FusionRasterApplied = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "floodroute_fusion_raster_applied",
			Help: "Whether the raster term contributed to the last commit (1/0)",
		},
	)

	r.FusionCommitFailures = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "floodroute_fusion_commit_failures_total",
			Help: "Fusion commits aborted by a graph lock timeout",
		},
	)
}
