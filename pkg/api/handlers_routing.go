package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/geo"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/graph"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/logging"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/planner"
)

func coordOf(pair [2]float64) (geo.Coord, bool) {
	c := geo.Coord{Lat: pair[0], Lon: pair[1]}
	return c, c.Valid()
}

// routeStatus maps a planner error to the HTTP code and metric label.
func routeStatus(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, "ok"
	case errors.Is(err, graph.ErrGraphNotLoaded):
		return http.StatusServiceUnavailable, "graph_not_loaded"
	case errors.Is(err, planner.ErrNoPath):
		return http.StatusNotFound, "no_path"
	case errors.Is(err, planner.ErrNoNearbyNode):
		return http.StatusNotFound, "no_nearby_node"
	case errors.Is(err, planner.ErrNoShelterReachable):
		return http.StatusNotFound, "no_shelter"
	default:
		return http.StatusInternalServerError, "error"
	}
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	start, ok := coordOf(req.Start)
	if !ok {
		s.respondError(w, http.StatusBadRequest, "Start coordinate out of range")
		return
	}
	end, ok := coordOf(req.End)
	if !ok {
		s.respondError(w, http.StatusBadRequest, "End coordinate out of range")
		return
	}

	var prefs planner.Preferences
	if req.Preferences != nil {
		prefs = *req.Preferences
	}

	began := time.Now()
	var (
		route *planner.Route
		alts  []*planner.Route
		err   error
	)
	if prefs.Alternatives >= 2 {
		route, alts, err = s.planner.RouteWithAlternatives(start, end, prefs)
	} else {
		route, err = s.planner.Route(start, end, prefs)
	}

	code, label := routeStatus(err)
	if s.metrics != nil {
		profile := planner.ProfileByName(prefs.Profile).Name
		distance := 0.0
		if route != nil {
			distance = route.DistanceM
		}
		s.metrics.RecordRoute(profile, label, time.Since(began), distance)
	}
	if err != nil {
		s.respondError(w, code, err.Error())
		return
	}

	resp := routeToResponse(route)
	for _, alt := range alts {
		resp.Alternatives = append(resp.Alternatives, routeToResponse(alt))
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEvacuate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req EvacuateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	start, ok := coordOf(req.Start)
	if !ok {
		s.respondError(w, http.StatusBadRequest, "Start coordinate out of range")
		return
	}

	var prefs planner.Preferences
	if req.Preferences != nil {
		prefs = *req.Preferences
	}
	if req.Profile != "" {
		prefs.Profile = req.Profile
	}

	began := time.Now()
	evac, err := s.planner.Evacuate(start, s.shelters(), prefs)

	code, label := routeStatus(err)
	if s.metrics != nil {
		profile := planner.ProfileByName(prefs.Profile).Name
		distance := 0.0
		if evac != nil && evac.Route != nil {
			distance = evac.Route.DistanceM
		}
		s.metrics.RecordRoute(profile, label, time.Since(began), distance)
	}
	if err != nil {
		s.respondError(w, code, err.Error())
		return
	}

	resp := routeToResponse(evac.Route)
	resp.Shelter = shelterToResponse(evac.Shelter)
	s.logger.Info("evacuation route served",
		logging.String("shelter", evac.Shelter.Name),
		logging.Int("considered", evac.Considered))
	s.respondJSON(w, http.StatusOK, resp)
}
