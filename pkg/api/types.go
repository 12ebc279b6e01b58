package api

import (
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/planner"
)

// RouteRequest is the POST /route body. Coordinates are [lat, lon] pairs.
type RouteRequest struct {
	Start       [2]float64           `json:"start" validate:"required"`
	End         [2]float64           `json:"end" validate:"required"`
	Preferences *planner.Preferences `json:"preferences"`
}

// EvacuateRequest is the POST /evacuate body.
type EvacuateRequest struct {
	Start       [2]float64           `json:"start" validate:"required"`
	Profile     string               `json:"profile"`
	Preferences *planner.Preferences `json:"preferences"`
}

// RouteResponse is the route payload shared by /route and /evacuate.
type RouteResponse struct {
	Status           string       `json:"status"`
	Path             [][2]float64 `json:"path"`
	DistanceM        float64      `json:"distance_m"`
	EstimatedTimeMin float64      `json:"estimated_time_min"`
	AvgRisk          float64      `json:"avg_risk"`
	MaxRisk          float64      `json:"max_risk"`
	Warnings         []string     `json:"warnings"`
	Profile          string       `json:"profile"`

	Alternatives []*RouteResponse `json:"alternatives,omitempty"`
	Shelter      *ShelterResponse `json:"shelter,omitempty"`
}

// ShelterResponse describes the chosen evacuation target.
type ShelterResponse struct {
	Name     string     `json:"name"`
	Coord    [2]float64 `json:"coord"`
	Capacity int        `json:"capacity"`
	Kind     string     `json:"kind,omitempty"`
	Address  string     `json:"address,omitempty"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// GeoTIFFStatus reports the raster subsystem state.
type GeoTIFFStatus struct {
	Enabled      bool   `json:"enabled"`
	ReturnPeriod string `json:"return_period,omitempty"`
	TimeStep     int    `json:"time_step"`
	CacheHits    uint64 `json:"cache_hits"`
	CacheMisses  uint64 `json:"cache_misses"`
	CacheSize    int    `json:"cache_size"`
}

func routeToResponse(r *planner.Route) *RouteResponse {
	path := make([][2]float64, len(r.Path))
	for i, c := range r.Path {
		path[i] = [2]float64{c.Lat, c.Lon}
	}
	warnings := r.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return &RouteResponse{
		Status:           "ok",
		Path:             path,
		DistanceM:        r.DistanceM,
		EstimatedTimeMin: r.EstimatedTimeMin,
		AvgRisk:          r.AvgRisk,
		MaxRisk:          r.MaxRisk,
		Warnings:         warnings,
		Profile:          r.Profile,
	}
}

func shelterToResponse(s planner.Shelter) *ShelterResponse {
	return &ShelterResponse{
		Name:     s.Name,
		Coord:    [2]float64{s.Coord.Lat, s.Coord.Lon},
		Capacity: s.Capacity,
		Kind:     s.Kind,
		Address:  s.Address,
	}
}
