// Package api exposes the HTTP surface and the WebSocket broadcast hub.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/fusion"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/graph"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/health"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/logging"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/metrics"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/planner"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/raster"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/scheduler"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/sim"
)

// Deps wires the server's collaborators. Everything except Store, Planner and
// Orchestrator is optional; missing subsystems answer 503 on their endpoints.
type Deps struct {
	Store        *graph.Store
	Planner      *planner.Planner
	Engine       *fusion.Engine
	Orchestrator *sim.Orchestrator
	Scheduler    *scheduler.Scheduler
	Rasters      *raster.Service
	Shelters     func() []planner.Shelter
	Metrics      *metrics.Registry
	Health       *health.Checker
	Logger       logging.Logger

	// Hub lets the caller share a pre-built broadcast hub with the
	// orchestrator; nil creates a fresh one.
	Hub *Hub
}

// Server handles the HTTP API.
type Server struct {
	store     *graph.Store
	planner   *planner.Planner
	engine    *fusion.Engine
	orch      *sim.Orchestrator
	sched     *scheduler.Scheduler
	rasters   *raster.Service
	shelters  func() []planner.Shelter
	hub       *Hub
	metrics   *metrics.Registry
	checker   *health.Checker
	logger    logging.Logger
	startTime time.Time
}

// NewServer creates an API server and its broadcast hub.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	shelters := deps.Shelters
	if shelters == nil {
		shelters = func() []planner.Shelter { return nil }
	}
	s := &Server{
		store:     deps.Store,
		planner:   deps.Planner,
		engine:    deps.Engine,
		orch:      deps.Orchestrator,
		sched:     deps.Scheduler,
		rasters:   deps.Rasters,
		shelters:  shelters,
		metrics:   deps.Metrics,
		checker:   deps.Health,
		logger:    logger.With(logging.Component("api")),
		startTime: time.Now(),
	}
	if deps.Hub != nil {
		s.hub = deps.Hub
	} else {
		s.hub = NewHub(logger)
	}
	return s
}

// Hub returns the WebSocket broadcast hub; it implements sim.Broadcaster.
func (s *Server) Hub() *Hub { return s.hub }

// Routes assembles the full handler chain.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/route", s.handleRoute)
	mux.HandleFunc("/evacuate", s.handleEvacuate)

	mux.HandleFunc("/admin/collect-flood-data", s.handleCollectFloodData)
	mux.HandleFunc("/scheduler/status", s.handleSchedulerStats)
	mux.HandleFunc("/scheduler/stats", s.handleSchedulerStats)
	mux.HandleFunc("/scheduler/trigger", s.handleSchedulerTrigger)

	mux.HandleFunc("/simulation/start", s.handleSimulationStart)
	mux.HandleFunc("/simulation/stop", s.handleSimulationStop)
	mux.HandleFunc("/simulation/reset", s.handleSimulationReset)
	mux.HandleFunc("/simulation/status", s.handleSimulationStatus)
	mux.HandleFunc("/simulation/tick", s.handleSimulationTick)

	mux.HandleFunc("/admin/geotiff/enable", s.handleGeoTIFFEnable)
	mux.HandleFunc("/admin/geotiff/disable", s.handleGeoTIFFDisable)
	mux.HandleFunc("/admin/geotiff/status", s.handleGeoTIFFStatus)
	mux.HandleFunc("/admin/geotiff/set-scenario", s.handleGeoTIFFSetScenario)

	mux.HandleFunc("/ws", s.hub.HandleUpgrade)

	if s.checker != nil {
		mux.HandleFunc("/healthz", s.checker.HTTPHandler())
		mux.HandleFunc("/readyz", s.checker.ReadinessHandler())
		mux.HandleFunc("/livez", s.checker.LivenessHandler())
	}
	if s.metrics != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(
			s.metrics.GetPrometheusRegistry(), promhttp.HandlerOpts{}))
	}

	return s.loggingMiddleware(s.corsMiddleware(s.metricsMiddleware(mux)))
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
