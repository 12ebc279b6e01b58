package api

import (
	"net/http"
	"strconv"

	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/logging"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/raster"
)

func (s *Server) handleCollectFloodData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.sched == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Scheduler not configured")
		return
	}

	outcome, err := s.sched.Trigger()
	if s.metrics != nil {
		s.metrics.RecordSchedulerRun(err == nil, outcome.DataPoints)
	}
	if err != nil {
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	s.logger.Info("manual flood data collection",
		logging.Count(outcome.DataPoints))
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"data_points": outcome.DataPoints,
		"stats":       s.sched.Stats(),
	})
}

func (s *Server) handleSchedulerStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.sched == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Scheduler not configured")
		return
	}
	s.respondJSON(w, http.StatusOK, s.sched.Stats())
}

func (s *Server) handleSchedulerTrigger(w http.ResponseWriter, r *http.Request) {
	s.handleCollectFloodData(w, r)
}

func (s *Server) geotiffStatus() GeoTIFFStatus {
	st := GeoTIFFStatus{}
	if s.engine != nil {
		st.Enabled = s.engine.RasterEnabled()
	}
	if s.orch != nil {
		sc := s.orch.Scenario()
		st.ReturnPeriod = string(sc.ReturnPeriod)
		st.TimeStep = sc.TimeStep
	}
	if s.rasters != nil {
		st.CacheHits, st.CacheMisses, st.CacheSize = s.rasters.CacheStats()
	}
	return st
}

func (s *Server) setRasterEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.engine == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Fusion engine not configured")
		return
	}
	s.engine.SetRasterEnabled(enabled)
	s.logger.Info("raster term toggled", logging.Bool("enabled", enabled))
	s.respondJSON(w, http.StatusOK, s.geotiffStatus())
}

func (s *Server) handleGeoTIFFEnable(w http.ResponseWriter, r *http.Request) {
	s.setRasterEnabled(w, r, true)
}

func (s *Server) handleGeoTIFFDisable(w http.ResponseWriter, r *http.Request) {
	s.setRasterEnabled(w, r, false)
}

func (s *Server) handleGeoTIFFStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.respondJSON(w, http.StatusOK, s.geotiffStatus())
}

func (s *Server) handleGeoTIFFSetScenario(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.orch == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Orchestrator not configured")
		return
	}

	rp := r.URL.Query().Get("return_period")
	tsStr := r.URL.Query().Get("time_step")
	ts, err := strconv.Atoi(tsStr)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid time_step")
		return
	}

	sc := raster.Scenario{ReturnPeriod: raster.ReturnPeriod(rp), TimeStep: ts}
	if err := s.orch.SetScenario(sc); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, s.geotiffStatus())
}
