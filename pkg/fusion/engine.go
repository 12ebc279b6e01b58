package fusion

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/graph"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/logging"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/raster"
)

// Config holds the fusion tunables.
type Config struct {
	ScoutTTL           time.Duration
	FloodTTL           time.Duration
	KScoutFast         float64
	KScoutSlow         float64
	KOfficial          float64
	KSpatialEdge       float64
	MinRiskFloor       float64
	PropagationRadiusM float64

	// LockTimeout bounds the graph write-lock acquisition; exceeding it is
	// fatal for the tick.
	LockTimeout time.Duration
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		ScoutTTL:           45 * time.Minute,
		FloodTTL:           90 * time.Minute,
		KScoutFast:         0.10,
		KScoutSlow:         0.03,
		KOfficial:          0.05,
		KSpatialEdge:       0.08,
		MinRiskFloor:       0.01,
		PropagationRadiusM: 800,
		LockTimeout:        time.Second,
	}
}

// Engine owns the hazard caches and computes per-edge risk each tick. It is
// the only writer of graph risk state.
type Engine struct {
	cfg     Config
	store   *graph.Store
	rasters *raster.Service

	mu            sync.Mutex
	flood         *floodCache
	scouts        *scoutCache
	history       *riskHistory
	rasterEnabled bool

	logger logging.Logger
}

// NewEngine creates a fusion engine over the given graph and raster service.
// The raster service may be nil when depth grids are not shipped.
func NewEngine(cfg Config, store *graph.Store, rasters *raster.Service, logger logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Engine{
		cfg:     cfg,
		store:   store,
		rasters: rasters,
		flood:   newFloodCache(),
		scouts:  newScoutCache(),
		history: newRiskHistory(32),
		logger:  logger.With(logging.Component("fusion")),
	}
}

// IngestReadings replaces cached readings per location_id.
func (e *Engine) IngestReadings(readings []*HazardReading) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range readings {
		e.flood.Put(r)
	}
}

// IngestReports appends scout reports to the cache.
func (e *Engine) IngestReports(reports []*ScoutReport) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range reports {
		e.scouts.Append(r)
	}
}

// SetRasterEnabled toggles the raster term.
func (e *Engine) SetRasterEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rasterEnabled = enabled
}

// RasterEnabled reports whether the raster term is active.
func (e *Engine) RasterEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rasterEnabled
}

// CacheSizes returns the current flood and scout cache lengths.
func (e *Engine) CacheSizes() (flood, scout int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flood.Len(), e.scouts.Len()
}

// Readings returns a snapshot of the cached readings, sorted by location.
func (e *Engine) Readings() []HazardReading {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]HazardReading, 0, e.flood.Len())
	for _, r := range e.flood.readings {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocationID < out[j].LocationID })
	return out
}

// CriticalReadings returns cached readings whose river status is critical.
func (e *Engine) CriticalReadings() []HazardReading {
	var out []HazardReading
	for _, r := range e.Readings() {
		if r.RiverStatus() == RiverCritical {
			out = append(out, r)
		}
	}
	return out
}

// Reset clears both caches and the trend history.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flood.Clear()
	e.scouts.Clear()
	e.history.Reset()
}

// RiskAtEdge answers risk queries for the hazard agent.
func (e *Engine) RiskAtEdge(id graph.EdgeID) (float64, bool) {
	edge, ok := e.store.Edge(id)
	if !ok {
		return 0, false
	}
	return edge.RiskScore, true
}

// officialRisk classifies a reading from its river/dam/rain signals only;
// station-reported depth is handled by the depth term.
func officialRisk(r *HazardReading) float64 {
	risk := RainSeverity(r.Rainfall1hMM)
	if r.RiverLevelM != nil {
		risk = math.Max(risk, RiverRisk(r.RiverStatus()))
	}
	if r.DamDeviationM != nil {
		risk = math.Max(risk, DamRisk(*r.DamDeviationM))
	}
	return risk
}

// RunTick executes the fusion phase: evict, decay, combine, commit. Returns
// the commit summary. A graph lock timeout is fatal and aborts the commit,
// leaving the pre-tick risk state intact.
func (e *Engine) RunTick(now time.Time, sc raster.Scenario) (TickResult, error) {
	e.mu.Lock()

	// 1. TTL eviction.
	if n := e.flood.Evict(now, e.cfg.FloodTTL); n > 0 {
		e.logger.Debug("evicted expired hazard readings", logging.Count(n))
	}
	if n := e.scouts.Evict(now, e.cfg.ScoutTTL); n > 0 {
		e.logger.Debug("evicted expired scout reports", logging.Count(n))
	}

	rasterOn := e.rasterEnabled
	readings := make([]*HazardReading, 0, e.flood.Len())
	for _, r := range e.flood.readings {
		readings = append(readings, r)
	}
	reports := make([]*ScoutReport, len(e.scouts.reports))
	copy(reports, e.scouts.reports)
	e.mu.Unlock()

	riverElevated := false
	for _, r := range readings {
		if s := r.RiverStatus(); s == RiverAlert || s == RiverAlarm || s == RiverCritical {
			riverElevated = true
			break
		}
	}

	// 2. Spatial decay of residual risk on edges untouched this tick.
	residual := make(map[graph.EdgeID]float64)
	for _, edge := range e.store.RiskyEdges() {
		if edge.LastRiskUpdate.IsZero() {
			residual[edge.ID] = edge.RiskScore
			continue
		}
		residual[edge.ID] = Decay(edge.RiskScore, e.cfg.KSpatialEdge, ageMinutes(now, edge.LastRiskUpdate))
	}

	// 3. Raster depth term.
	contrib := make(map[graph.EdgeID]float64)
	rasterApplied := false
	if rasterOn && e.rasters != nil {
		depths, err := e.rasters.DepthsForEdges(e.store.EdgesSnapshot(), sc)
		if err != nil {
			// Degrade to non-raster fusion; the term is simply zero.
			e.logger.Warn("raster sampling failed, continuing without depth term",
				logging.Scenario(string(sc.ReturnPeriod), sc.TimeStep), logging.Error(err))
		} else {
			rasterApplied = true
			for id, depth := range depths {
				contrib[id] += DepthToRisk(depth) * RasterWeight
			}
		}
	}

	// 4. Scout propagation.
	ambient := 0.0
	for _, r := range reports {
		rate := e.scoutDecayRate(r, riverElevated)
		severity := Decay(r.Severity, rate, ageMinutes(now, r.Timestamp))
		if severity*r.Confidence < e.cfg.MinRiskFloor {
			continue
		}
		if !r.Geocoded() {
			ambient = math.Max(ambient, severity*r.Confidence)
			continue
		}
		hits, err := e.store.EdgesWithinRadius(*r.Coordinates, e.cfg.PropagationRadiusM)
		if err != nil {
			e.logger.Warn("dropping scout report with invalid coordinates",
				logging.String("report_id", r.ReportID), logging.Error(err))
			continue
		}
		for _, h := range hits {
			falloff := 1 - h.DistanceM/e.cfg.PropagationRadiusM
			contrib[h.ID] += severity * r.Confidence * falloff * CrowdWeight
		}
	}

	// 5. System-wide uniform terms: official telemetry, station-reported
	// depth, and ungeocoded scout ambience.
	maxOfficial, maxDepthRisk := 0.0, 0.0
	for _, r := range readings {
		age := ageMinutes(now, r.Timestamp)
		maxOfficial = math.Max(maxOfficial, Decay(officialRisk(r), e.cfg.KOfficial, age))
		if r.FloodDepthM != nil {
			maxDepthRisk = math.Max(maxDepthRisk, Decay(DepthToRisk(*r.FloodDepthM), e.cfg.KOfficial, age))
		}
	}
	uniform := maxOfficial*OfficialWeight + maxDepthRisk*RasterWeight + ambient*AmbientWeight
	if uniform < e.cfg.MinRiskFloor {
		uniform = 0
	}

	// 6. Combine and commit in one batch. Fresh contributions replace the
	// residual outright so improving conditions lower risk; edges with no
	// fresh signal keep their decayed residual.
	snapshot := e.store.SnapshotRisk()
	updates := make([]graph.RiskUpdate, 0, len(contrib)+len(residual))

	appendUpdate := func(id graph.EdgeID, newRisk float64) {
		current := snapshot[id]
		if newRisk < e.cfg.MinRiskFloor {
			if current > 0 {
				updates = append(updates, graph.RiskUpdate{ID: id, Clear: true})
			}
			return
		}
		updates = append(updates, graph.RiskUpdate{ID: id, Risk: math.Min(newRisk, 1.0)})
	}

	if uniform > 0 {
		// The uniform term touches every edge.
		for _, edge := range e.store.EdgesSnapshot() {
			appendUpdate(edge.ID, contrib[edge.ID]+uniform)
		}
	} else {
		for id, c := range contrib {
			appendUpdate(id, c)
		}
		for id, r := range residual {
			if _, fresh := contrib[id]; fresh {
				continue
			}
			appendUpdate(id, r)
		}
	}

	applied, err := e.store.BatchUpdateEdgeRisks(updates, now, e.cfg.LockTimeout)
	if err != nil {
		return TickResult{}, err
	}

	// 7. Trend over the last two commits.
	avg := e.store.AverageRisk()
	e.mu.Lock()
	e.history.Push(now, avg)
	trend, rate := e.history.classifyTrend()
	e.mu.Unlock()

	return TickResult{
		EdgesUpdated:     applied,
		AverageRisk:      avg,
		Trend:            trend,
		ChangeRatePerMin: rate,
		RasterApplied:    rasterApplied,
	}, nil
}
