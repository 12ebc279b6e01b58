package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/logging"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/raster"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/sim"
)

func (s *Server) handleSimulationStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.orch == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Orchestrator not configured")
		return
	}

	mode := sim.Mode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = sim.ModeLight
	}
	if err := s.orch.Start(mode); err != nil {
		switch {
		case errors.Is(err, sim.ErrUnknownMode):
			s.respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, sim.ErrAlreadyRunning):
			s.respondError(w, http.StatusConflict, err.Error())
		default:
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	s.logger.Info("simulation started via api", logging.String("mode", string(mode)))
	s.hub.Broadcast("system_status", s.orch.Status())
	s.respondJSON(w, http.StatusOK, s.orch.Status())
}

func (s *Server) handleSimulationStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.orch == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Orchestrator not configured")
		return
	}
	s.orch.Stop()
	s.hub.Broadcast("system_status", s.orch.Status())
	s.respondJSON(w, http.StatusOK, s.orch.Status())
}

func (s *Server) handleSimulationReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.orch == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Orchestrator not configured")
		return
	}
	s.orch.Reset()
	s.hub.Broadcast("system_status", s.orch.Status())
	s.respondJSON(w, http.StatusOK, s.orch.Status())
}

func (s *Server) handleSimulationStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.orch == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Orchestrator not configured")
		return
	}
	s.respondJSON(w, http.StatusOK, s.orch.Status())
}

// handleSimulationTick runs one tick immediately, optionally pinning the time
// step via ?time_step=N.
func (s *Server) handleSimulationTick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.orch == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Orchestrator not configured")
		return
	}

	override := 0
	if tsStr := r.URL.Query().Get("time_step"); tsStr != "" {
		ts, err := strconv.Atoi(tsStr)
		if err != nil || ts < 1 || ts > raster.MaxTimeStep {
			s.respondError(w, http.StatusBadRequest, "Invalid time_step")
			return
		}
		override = ts
	}

	res, err := s.orch.RunTick(override)
	if err != nil {
		if errors.Is(err, sim.ErrNotRunning) {
			s.respondError(w, http.StatusConflict, err.Error())
		} else {
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"edges_updated": res.EdgesUpdated,
		"average_risk":  res.AverageRisk,
		"risk_trend":    string(res.Trend),
		"status":        s.orch.Status(),
	})
}
