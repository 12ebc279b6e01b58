package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/fusion"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/geo"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/graph"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/planner"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/sim"
)

const (
	tLat  = 14.60
	tLon  = 121.00
	tUnit = 0.000008
)

// lineStore builds a three node west-east corridor with one meter edges.
func lineStore(t *testing.T) *graph.Store {
	t.Helper()
	nodes := []graph.Node{
		{ID: 1, Coord: geo.Coord{Lat: tLat, Lon: tLon}},
		{ID: 2, Coord: geo.Coord{Lat: tLat, Lon: tLon + tUnit}},
		{ID: 3, Coord: geo.Coord{Lat: tLat, Lon: tLon + 2*tUnit}},
	}
	var edges []graph.Edge
	for i := int64(1); i < 3; i++ {
		edges = append(edges,
			graph.Edge{ID: graph.EdgeID{U: i, V: i + 1}, LengthM: 1},
			graph.Edge{ID: graph.EdgeID{U: i + 1, V: i}, LengthM: 1},
		)
	}
	store := graph.NewStore(0.01, nil)
	if err := store.Load(nodes, edges); err != nil {
		t.Fatalf("load: %v", err)
	}
	return store
}

func testServer(t *testing.T) *Server {
	t.Helper()
	store := lineStore(t)
	engine := fusion.NewEngine(fusion.DefaultConfig(), store, nil, nil)
	orch := sim.New(sim.Config{Store: store, Engine: engine})

	shelters := []planner.Shelter{
		{Name: "East Hall", Coord: geo.Coord{Lat: tLat, Lon: tLon + 2*tUnit}, Capacity: 150},
	}
	return NewServer(Deps{
		Store:        store,
		Planner:      planner.New(store, 500, 5, nil),
		Engine:       engine,
		Orchestrator: orch,
		Shelters:     func() []planner.Shelter { return shelters },
	})
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatalf("encode: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRouteEndpoint(t *testing.T) {
	s := testServer(t)
	handler := s.Routes()

	rec := postJSON(t, handler, "/route", RouteRequest{
		Start: [2]float64{tLat, tLon},
		End:   [2]float64{tLat, tLon + 2*tUnit},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp RouteResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.DistanceM != 2 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if len(resp.Path) != 3 {
		t.Errorf("path has %d points, want 3", len(resp.Path))
	}
}

func TestRouteEndpointErrors(t *testing.T) {
	s := testServer(t)
	handler := s.Routes()

	req := httptest.NewRequest(http.MethodPost, "/route", bytes.NewBufferString("not json"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status = %d, want 400", rec.Code)
	}

	rec = postJSON(t, handler, "/route", RouteRequest{
		Start: [2]float64{200, 200},
		End:   [2]float64{tLat, tLon},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("out-of-range start: status = %d, want 400", rec.Code)
	}

	// Start far outside the snap radius.
	rec = postJSON(t, handler, "/route", RouteRequest{
		Start: [2]float64{tLat + 1, tLon},
		End:   [2]float64{tLat, tLon},
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unsnappable start: status = %d, want 404", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/route", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /route: status = %d, want 405", rec.Code)
	}
}

func TestRouteBeforeGraphLoad(t *testing.T) {
	store := graph.NewStore(0.01, nil)
	s := NewServer(Deps{
		Store:   store,
		Planner: planner.New(store, 500, 5, nil),
	})

	rec := postJSON(t, s.Routes(), "/route", RouteRequest{
		Start: [2]float64{tLat, tLon},
		End:   [2]float64{tLat, tLon + tUnit},
	})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestEvacuateEndpoint(t *testing.T) {
	s := testServer(t)

	rec := postJSON(t, s.Routes(), "/evacuate", EvacuateRequest{
		Start:   [2]float64{tLat, tLon},
		Profile: "safest",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp RouteResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Shelter == nil || resp.Shelter.Name != "East Hall" {
		t.Errorf("shelter = %+v, want East Hall", resp.Shelter)
	}
	if resp.Profile != "safest" {
		t.Errorf("profile = %q, want safest", resp.Profile)
	}
}

func TestSimulationLifecycleEndpoints(t *testing.T) {
	s := testServer(t)
	handler := s.Routes()

	rec := postJSON(t, handler, "/simulation/start?mode=typhoon", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad mode: status = %d, want 400", rec.Code)
	}

	rec = postJSON(t, handler, "/simulation/start?mode=medium", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("start: status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = postJSON(t, handler, "/simulation/start?mode=medium", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("double start: status = %d, want 409", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/simulation/status", nil)
	recGet := httptest.NewRecorder()
	handler.ServeHTTP(recGet, req)
	if recGet.Code != http.StatusOK {
		t.Fatalf("status: %d", recGet.Code)
	}
	var st sim.Status
	if err := json.NewDecoder(recGet.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !st.Running || st.ReturnPeriod != "rr02" {
		t.Errorf("status = %+v", st)
	}

	rec = postJSON(t, handler, "/simulation/tick", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("tick: status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = postJSON(t, handler, "/simulation/stop", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("stop: status = %d", rec.Code)
	}

	rec = postJSON(t, handler, "/simulation/tick", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("tick while stopped: status = %d, want 409", rec.Code)
	}
}

func TestGeoTIFFEndpoints(t *testing.T) {
	s := testServer(t)
	handler := s.Routes()

	rec := postJSON(t, handler, "/admin/geotiff/disable", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("disable: status = %d", rec.Code)
	}
	var st GeoTIFFStatus
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Enabled {
		t.Error("raster term still enabled after disable")
	}

	rec = postJSON(t, handler, "/admin/geotiff/enable", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("enable: status = %d", rec.Code)
	}

	rec = postJSON(t, handler, "/admin/geotiff/set-scenario?return_period=rr03&time_step=7", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("set-scenario: status = %d, body %s", rec.Code, rec.Body.String())
	}
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.ReturnPeriod != "rr03" || st.TimeStep != 7 {
		t.Errorf("scenario = %s/%d, want rr03/7", st.ReturnPeriod, st.TimeStep)
	}

	rec = postJSON(t, handler, "/admin/geotiff/set-scenario?return_period=rr09&time_step=1", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad return period: status = %d, want 400", rec.Code)
	}
	rec = postJSON(t, handler, fmt.Sprintf("/admin/geotiff/set-scenario?return_period=rr01&time_step=%d", 99), nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad time step: status = %d, want 400", rec.Code)
	}
}

func TestSchedulerEndpointsWithoutScheduler(t *testing.T) {
	s := testServer(t)
	handler := s.Routes()

	req := httptest.NewRequest(http.MethodGet, "/scheduler/status", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}

	rec = postJSON(t, handler, "/admin/collect-flood-data", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("collect: status = %d, want 503", rec.Code)
	}
}

func TestCORSPreflights(t *testing.T) {
	s := testServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/route", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS origin header")
	}
}
