package fusion

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/geo"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/graph"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/raster"
)

const (
	testLat = 14.60
	testLon = 121.00
)

// lonOffset converts an eastward offset in meters to degrees of longitude at
// the test latitude.
func lonOffset(meters float64) float64 {
	return meters / (geo.MetersPerDegree * math.Cos(testLat*math.Pi/180))
}

// hazardGraph builds three short disjoint north-south edges with midpoints
// roughly 400m, 900m and 5km east of the test center.
func hazardGraph(t *testing.T) (*graph.Store, [3]graph.EdgeID) {
	t.Helper()

	var nodes []graph.Node
	var edges []graph.Edge
	var ids [3]graph.EdgeID

	for i, meters := range []float64{400, 900, 5000} {
		lon := testLon + lonOffset(meters)
		u := int64(i*2 + 1)
		v := int64(i*2 + 2)
		nodes = append(nodes,
			graph.Node{ID: u, Coord: geo.Coord{Lat: testLat - 0.0001, Lon: lon}},
			graph.Node{ID: v, Coord: geo.Coord{Lat: testLat + 0.0001, Lon: lon}},
		)
		id := graph.EdgeID{U: u, V: v, Key: 0}
		edges = append(edges, graph.Edge{ID: id, LengthM: 22, Class: graph.ClassResidential})
		ids[i] = id
	}

	store := graph.NewStore(0.01, nil)
	if err := store.Load(nodes, edges); err != nil {
		t.Fatalf("load graph: %v", err)
	}
	return store, ids
}

func edgeRisk(t *testing.T, store *graph.Store, id graph.EdgeID) float64 {
	t.Helper()
	e, ok := store.Edge(id)
	if !ok {
		t.Fatalf("edge %s missing", id)
	}
	return e.RiskScore
}

func near(got, want, tol float64) bool {
	return math.Abs(got-want) <= tol
}

func floatPtr(v float64) *float64 { return &v }

func TestScoutPropagationFalloff(t *testing.T) {
	store, ids := hazardGraph(t)
	eng := NewEngine(DefaultConfig(), store, nil, nil)

	now := time.Now().UTC()
	center := geo.Coord{Lat: testLat, Lon: testLon}
	eng.IngestReports([]*ScoutReport{{
		ReportID:    "r1",
		Timestamp:   now,
		Coordinates: &center,
		Severity:    1.0,
		Confidence:  1.0,
		Kind:        KindFlood,
	}})

	res, err := eng.RunTick(now, raster.Scenario{ReturnPeriod: raster.RR01, TimeStep: 1})
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if res.EdgesUpdated != 1 {
		t.Fatalf("edges updated = %d, want 1", res.EdgesUpdated)
	}

	nearEdge, _ := store.Edge(ids[0])
	d := geo.Haversine(center, nearEdge.Midpoint)
	want := (1 - d/800) * CrowdWeight
	if got := nearEdge.RiskScore; !near(got, want, 1e-9) {
		t.Errorf("near edge risk = %v, want %v (distance %.1fm)", got, want, d)
	}
	if got := edgeRisk(t, store, ids[1]); got != 0 {
		t.Errorf("edge beyond radius got risk %v", got)
	}
	if got := edgeRisk(t, store, ids[2]); got != 0 {
		t.Errorf("distant edge got risk %v", got)
	}
}

func TestScoutRiskDecaysClosedForm(t *testing.T) {
	store, ids := hazardGraph(t)
	cfg := DefaultConfig()
	eng := NewEngine(cfg, store, nil, nil)

	t0 := time.Now().UTC()
	at := geo.Coord{Lat: testLat, Lon: testLon + lonOffset(400)}
	eng.IngestReports([]*ScoutReport{{
		ReportID:    "r1",
		Timestamp:   t0,
		Coordinates: &at,
		Severity:    0.8,
		Confidence:  1.0,
		Kind:        KindFlood,
	}})

	sc := raster.Scenario{ReturnPeriod: raster.RR01, TimeStep: 1}
	if _, err := eng.RunTick(t0, sc); err != nil {
		t.Fatalf("first tick: %v", err)
	}
	initial := edgeRisk(t, store, ids[0])
	if initial <= 0 {
		t.Fatalf("initial risk not positive: %v", initial)
	}

	// Ten silent minutes. No river is elevated, so the report decays at the
	// fast rate.
	if _, err := eng.RunTick(t0.Add(10*time.Minute), sc); err != nil {
		t.Fatalf("second tick: %v", err)
	}
	got := edgeRisk(t, store, ids[0])
	want := initial * math.Exp(-cfg.KScoutFast*10)
	if math.Abs(got-want)/want > 0.01 {
		t.Errorf("decayed risk = %v, want %v within 1%%", got, want)
	}
}

func TestFloodBlockageDecaysSlowlyWhileRiverElevated(t *testing.T) {
	store, ids := hazardGraph(t)
	cfg := DefaultConfig()
	eng := NewEngine(cfg, store, nil, nil)

	t0 := time.Now().UTC()
	at := geo.Coord{Lat: testLat, Lon: testLon + lonOffset(400)}
	eng.IngestReports([]*ScoutReport{{
		ReportID:    "r1",
		Timestamp:   t0,
		Coordinates: &at,
		Severity:    0.8,
		Confidence:  1.0,
		Kind:        KindBlockage,
	}})
	// A gauge at alarm keeps flood and blockage reports alive.
	eng.IngestReadings([]*HazardReading{{
		LocationID:  "gauge-1",
		Timestamp:   t0,
		RiverLevelM: floatPtr(15.2),
		AlertLevelM: floatPtr(14.0),
		AlarmLevelM: floatPtr(15.0),
	}})

	sc := raster.Scenario{ReturnPeriod: raster.RR01, TimeStep: 1}
	if _, err := eng.RunTick(t0.Add(20*time.Minute), sc); err != nil {
		t.Fatalf("tick: %v", err)
	}

	// Uniform official term from the alarm gauge applies everywhere; the scout
	// term stacks on top of it on the near edge.
	uniform := RiverRisk(RiverAlarm) * math.Exp(-cfg.KOfficial*20) * OfficialWeight
	scout := 0.8 * math.Exp(-cfg.KScoutSlow*20) * CrowdWeight
	if got := edgeRisk(t, store, ids[0]); !near(got, uniform+scout, 1e-9) {
		t.Errorf("near edge risk = %v, want %v", got, uniform+scout)
	}
	if got := edgeRisk(t, store, ids[2]); !near(got, uniform, 1e-9) {
		t.Errorf("distant edge risk = %v, want uniform %v", got, uniform)
	}
}

func TestStationDepthAppliesSystemWide(t *testing.T) {
	store, ids := hazardGraph(t)
	eng := NewEngine(DefaultConfig(), store, nil, nil)

	now := time.Now().UTC()
	eng.IngestReadings([]*HazardReading{{
		LocationID:  "station-7",
		Timestamp:   now,
		FloodDepthM: floatPtr(0.8),
	}})

	res, err := eng.RunTick(now, raster.Scenario{ReturnPeriod: raster.RR02, TimeStep: 3})
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if res.EdgesUpdated != store.EdgeCount() {
		t.Fatalf("edges updated = %d, want all %d", res.EdgesUpdated, store.EdgeCount())
	}

	want := DepthToRisk(0.8) * RasterWeight
	for _, id := range ids {
		if got := edgeRisk(t, store, id); !near(got, want, 1e-9) {
			t.Errorf("edge %s risk = %v, want %v", id, got, want)
		}
	}
}

func TestRasterTermSamplesGrids(t *testing.T) {
	store, ids := hazardGraph(t)

	dir := t.TempDir()
	sc := raster.Scenario{ReturnPeriod: raster.RR02, TimeStep: 5}
	g := &raster.Grid{Width: 8, Height: 8, Depths: make([]float32, 64)}
	for i := range g.Depths {
		g.Depths[i] = 0.5
	}
	path := filepath.Join(dir, "rr02", "rr02-5.tif")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := raster.WriteGridFile(path, g); err != nil {
		t.Fatalf("write grid: %v", err)
	}

	svc := raster.NewService(raster.Config{
		Dir:             dir,
		CenterLat:       testLat,
		CenterLon:       testLon + lonOffset(2500),
		BaseCoverageDeg: 0.12,
	}, nil)

	eng := NewEngine(DefaultConfig(), store, svc, nil)
	eng.SetRasterEnabled(true)

	res, err := eng.RunTick(time.Now().UTC(), sc)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if !res.RasterApplied {
		t.Fatal("raster term not applied")
	}

	want := DepthToRisk(0.5) * RasterWeight
	for _, id := range ids {
		if got := edgeRisk(t, store, id); !near(got, want, 1e-6) {
			t.Errorf("edge %s risk = %v, want %v", id, got, want)
		}
	}
}

func TestRasterFailureDegradesGracefully(t *testing.T) {
	store, _ := hazardGraph(t)
	svc := raster.NewService(raster.Config{
		Dir:             t.TempDir(),
		CenterLat:       testLat,
		CenterLon:       testLon,
		BaseCoverageDeg: 0.12,
	}, nil)

	eng := NewEngine(DefaultConfig(), store, svc, nil)
	eng.SetRasterEnabled(true)

	res, err := eng.RunTick(time.Now().UTC(), raster.Scenario{ReturnPeriod: raster.RR03, TimeStep: 1})
	if err != nil {
		t.Fatalf("tick should survive a missing grid: %v", err)
	}
	if res.RasterApplied {
		t.Error("raster reported applied despite missing grid")
	}
	if res.EdgesUpdated != 0 {
		t.Errorf("edges updated = %d, want 0", res.EdgesUpdated)
	}
}

func TestResidualRiskConvergesToFloorAndClears(t *testing.T) {
	store, ids := hazardGraph(t)
	cfg := DefaultConfig()
	eng := NewEngine(cfg, store, nil, nil)

	t0 := time.Now().UTC()
	if _, err := store.BatchUpdateEdgeRisks([]graph.RiskUpdate{
		{ID: ids[0], Risk: 0.5},
	}, t0, time.Second); err != nil {
		t.Fatalf("seed risk: %v", err)
	}

	sc := raster.Scenario{ReturnPeriod: raster.RR01, TimeStep: 1}

	// After ten minutes the residual has decayed but survives.
	if _, err := eng.RunTick(t0.Add(10*time.Minute), sc); err != nil {
		t.Fatalf("tick: %v", err)
	}
	want := 0.5 * math.Exp(-cfg.KSpatialEdge*10)
	if got := edgeRisk(t, store, ids[0]); !near(got, want, 1e-9) {
		t.Errorf("residual risk = %v, want %v", got, want)
	}

	// Another hour of silence pushes it below the floor; the edge clears
	// entirely rather than lingering near zero.
	if _, err := eng.RunTick(t0.Add(70*time.Minute), sc); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if got := edgeRisk(t, store, ids[0]); got != 0 {
		t.Errorf("risk below floor should clear to 0, got %v", got)
	}
	e, _ := store.Edge(ids[0])
	if !e.LastRiskUpdate.IsZero() {
		t.Error("cleared edge should have a zero risk timestamp")
	}
}

func TestCachesEvictByTTL(t *testing.T) {
	store, _ := hazardGraph(t)
	eng := NewEngine(DefaultConfig(), store, nil, nil)

	now := time.Now().UTC()
	at := geo.Coord{Lat: testLat, Lon: testLon}
	eng.IngestReadings([]*HazardReading{{
		LocationID:  "old-station",
		Timestamp:   now.Add(-2 * time.Hour),
		FloodDepthM: floatPtr(1.0),
	}})
	eng.IngestReports([]*ScoutReport{{
		ReportID:    "old-report",
		Timestamp:   now.Add(-time.Hour),
		Coordinates: &at,
		Severity:    1.0,
		Confidence:  1.0,
		Kind:        KindFlood,
	}})

	res, err := eng.RunTick(now, raster.Scenario{ReturnPeriod: raster.RR01, TimeStep: 1})
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if res.EdgesUpdated != 0 {
		t.Errorf("expired data updated %d edges", res.EdgesUpdated)
	}
	flood, scout := eng.CacheSizes()
	if flood != 0 || scout != 0 {
		t.Errorf("cache sizes after eviction = (%d, %d), want (0, 0)", flood, scout)
	}
}

func TestDuplicateLocationKeepsNewest(t *testing.T) {
	store, _ := hazardGraph(t)
	eng := NewEngine(DefaultConfig(), store, nil, nil)

	now := time.Now().UTC()
	eng.IngestReadings([]*HazardReading{
		{LocationID: "s1", Timestamp: now, FloodDepthM: floatPtr(0.9)},
		{LocationID: "s1", Timestamp: now.Add(-5 * time.Minute), FloodDepthM: floatPtr(0.1)},
	})

	readings := eng.Readings()
	if len(readings) != 1 {
		t.Fatalf("got %d readings, want 1", len(readings))
	}
	if *readings[0].FloodDepthM != 0.9 {
		t.Errorf("stale reading displaced newer one: depth %v", *readings[0].FloodDepthM)
	}
}

func TestTrendClassification(t *testing.T) {
	store, _ := hazardGraph(t)
	eng := NewEngine(DefaultConfig(), store, nil, nil)

	t0 := time.Now().UTC()
	sc := raster.Scenario{ReturnPeriod: raster.RR01, TimeStep: 1}

	res, err := eng.RunTick(t0, sc)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if res.Trend != TrendStable {
		t.Errorf("first tick trend = %s, want stable", res.Trend)
	}

	at := geo.Coord{Lat: testLat, Lon: testLon}
	eng.IngestReports([]*ScoutReport{{
		ReportID:    "r1",
		Timestamp:   t0.Add(time.Minute),
		Coordinates: &at,
		Severity:    1.0,
		Confidence:  1.0,
		Kind:        KindFlood,
	}})
	res, err = eng.RunTick(t0.Add(time.Minute), sc)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if res.Trend != TrendIncreasing {
		t.Errorf("trend after new hazard = %s, want increasing", res.Trend)
	}

	res, err = eng.RunTick(t0.Add(21*time.Minute), sc)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if res.Trend != TrendDecreasing {
		t.Errorf("trend during decay = %s, want decreasing", res.Trend)
	}
}

func TestCriticalReadings(t *testing.T) {
	store, _ := hazardGraph(t)
	eng := NewEngine(DefaultConfig(), store, nil, nil)

	now := time.Now().UTC()
	eng.IngestReadings([]*HazardReading{
		{
			LocationID:     "calm",
			Timestamp:      now,
			RiverLevelM:    floatPtr(10.0),
			CriticalLevelM: floatPtr(16.0),
		},
		{
			LocationID:     "overflowing",
			Timestamp:      now,
			RiverLevelM:    floatPtr(16.5),
			CriticalLevelM: floatPtr(16.0),
		},
	})

	crit := eng.CriticalReadings()
	if len(crit) != 1 || crit[0].LocationID != "overflowing" {
		t.Fatalf("critical readings = %+v, want only overflowing", crit)
	}
}

func TestResetClearsState(t *testing.T) {
	store, _ := hazardGraph(t)
	eng := NewEngine(DefaultConfig(), store, nil, nil)

	now := time.Now().UTC()
	at := geo.Coord{Lat: testLat, Lon: testLon}
	eng.IngestReadings([]*HazardReading{{LocationID: "s1", Timestamp: now}})
	eng.IngestReports([]*ScoutReport{{
		ReportID: "r1", Timestamp: now, Coordinates: &at,
		Severity: 1, Confidence: 1, Kind: KindFlood,
	}})

	eng.Reset()
	flood, scout := eng.CacheSizes()
	if flood != 0 || scout != 0 {
		t.Errorf("cache sizes after reset = (%d, %d), want (0, 0)", flood, scout)
	}
}
