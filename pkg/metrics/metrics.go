package metrics

import (
	"runtime"
	"time"
)

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordTickPhase records the duration of one tick phase
func (r *Registry) RecordTickPhase(phase string, duration time.Duration) {
	r.TickPhaseDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

// RecordTick records the outcome of a completed tick
func (r *Registry) RecordTick(timeStep, edgesUpdated int, averageRisk float64, rasterApplied bool) {
	r.TicksTotal.Inc()
	r.TickTimeStep.Set(float64(timeStep))
	r.FusionEdgesUpdated.Set(float64(edgesUpdated))
	r.FusionAverageRisk.Set(averageRisk)
	if rasterApplied {
		r.FusionRasterApplied.Set(1)
	} else {
		r.FusionRasterApplied.Set(0)
	}
}

// UpdateFusionCaches records current fusion cache sizes
func (r *Registry) UpdateFusionCaches(flood, scout int) {
	r.FusionCacheSize.WithLabelValues("flood").Set(float64(flood))
	r.FusionCacheSize.WithLabelValues("scout").Set(float64(scout))
}

// UpdateGraph records graph store sizes
func (r *Registry) UpdateGraph(nodes, edges, risky int) {
	r.GraphNodesTotal.Set(float64(nodes))
	r.GraphEdgesTotal.Set(float64(edges))
	r.GraphRiskyEdges.Set(float64(risky))
}

// UpdateRasterCache records raster cache counters
func (r *Registry) UpdateRasterCache(hits, misses uint64, size int) {
	r.RasterCacheHits.Set(float64(hits))
	r.RasterCacheMisses.Set(float64(misses))
	r.RasterCacheSize.Set(float64(size))
}

// UpdateMailboxDepths records the queue depth per agent mailbox
func (r *Registry) UpdateMailboxDepths(depths map[string]int) {
	for agent, depth := range depths {
		r.MailboxDepth.WithLabelValues(agent).Set(float64(depth))
	}
}

// RecordAgentStep records one agent step outcome
func (r *Registry) RecordAgentStep(agent string, handled int, failed bool) {
	if handled > 0 {
		r.AgentMessagesHandled.WithLabelValues(agent).Add(float64(handled))
	}
	if failed {
		r.AgentStepFailures.WithLabelValues(agent).Inc()
	}
}

// RecordRoute records a route computation
func (r *Registry) RecordRoute(profile, status string, duration time.Duration, distanceM float64) {
	r.RoutesTotal.WithLabelValues(profile, status).Inc()
	r.RouteDuration.WithLabelValues(profile).Observe(duration.Seconds())
	if distanceM > 0 {
		r.RouteDistance.Observe(distanceM)
	}
}

// RecordSchedulerRun records one upstream refresh run
func (r *Registry) RecordSchedulerRun(success bool, dataPoints int) {
	result := "success"
	if !success {
		result = "failure"
	}
	r.SchedulerRunsTotal.WithLabelValues(result).Inc()
	if dataPoints > 0 {
		r.SchedulerDataPoints.Add(float64(dataPoints))
	}
}

// UpdateSystemMetrics refreshes process-level gauges
func (r *Registry) UpdateSystemMetrics(startTime time.Time) {
	r.UptimeSeconds.Set(time.Since(startTime).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	r.MemoryAllocBytes.Set(float64(mem.Alloc))
}
