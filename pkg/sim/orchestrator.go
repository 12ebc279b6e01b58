// Package sim drives the tick loop: four strictly ordered phases per tick
// (collection, fusion, routing, advancement) over the shared agent bus, plus
// scenario playback and websocket broadcast hooks.
package sim

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/agents"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/fusion"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/graph"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/logging"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/metrics"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/raster"
)

var (
	ErrNotRunning     = errors.New("simulation not running")
	ErrAlreadyRunning = errors.New("simulation already running")
	ErrUnknownMode    = errors.New("unknown simulation mode")
)

// Mode selects the rainfall scenario and its raster return period.
type Mode string

const (
	ModeLight   Mode = "light"
	ModeMedium  Mode = "medium"
	ModeHeavy   Mode = "heavy"
	ModeExtreme Mode = "extreme"
)

// ReturnPeriod maps a mode to its raster bundle.
func (m Mode) ReturnPeriod() (raster.ReturnPeriod, bool) {
	switch m {
	case ModeLight:
		return raster.RR01, true
	case ModeMedium:
		return raster.RR02, true
	case ModeHeavy:
		return raster.RR03, true
	case ModeExtreme:
		return raster.RR04, true
	default:
		return "", false
	}
}

// Broadcaster pushes server-initiated messages to connected clients. The
// websocket hub implements it; NopBroadcaster drops everything.
type Broadcaster interface {
	Broadcast(msgType string, data any)
}

// NopBroadcaster ignores all broadcasts.
type NopBroadcaster struct{}

func (NopBroadcaster) Broadcast(string, any) {}

// RiskUpdate is the risk_update broadcast payload.
type RiskUpdate struct {
	EdgesUpdated   int     `json:"edges_updated"`
	AverageRisk    float64 `json:"average_risk"`
	RiskTrend      string  `json:"risk_trend"`
	RiskChangeRate float64 `json:"risk_change_rate"`
	TimeStep       int     `json:"time_step"`
}

// Status is a snapshot of the orchestrator state.
type Status struct {
	Running         bool              `json:"running"`
	Mode            Mode              `json:"mode,omitempty"`
	ReturnPeriod    string            `json:"return_period,omitempty"`
	TimeStep        int               `json:"time_step"`
	TickCount       uint64            `json:"tick_count"`
	StartedAt       time.Time         `json:"started_at,omitempty"`
	EventsRemaining int               `json:"events_remaining"`
	LastTick        fusion.TickResult `json:"-"`
	AverageRisk     float64           `json:"average_risk"`
	RiskTrend       string            `json:"risk_trend"`
}

// Config wires the orchestrator's collaborators.
type Config struct {
	Store   *graph.Store
	Engine  *fusion.Engine
	Player  *Player // optional scenario playback
	Metrics *metrics.Registry

	// Collection-phase agents, stepped in order.
	Collectors []agents.Agent
	// The fusion-phase mailbox drain.
	Hazard agents.Agent
	// Routing-phase agents, stepped in order; the evacuation manager must
	// precede the planner agent so forwarded requests are answered in the
	// same tick.
	Routing []agents.Agent

	Broadcaster  Broadcaster
	TickInterval time.Duration
	Logger       logging.Logger
}

// Orchestrator owns the tick loop. RunTick is serialized; state reads are
// safe from any goroutine.
type Orchestrator struct {
	cfg         Config
	broadcaster Broadcaster
	logger      logging.Logger
	nowFn       func() time.Time

	runMu sync.Mutex // serializes RunTick

	mu           sync.Mutex
	running      bool
	mode         Mode
	rp           raster.ReturnPeriod
	timeStep     int
	tickCount    uint64
	startedAt    time.Time
	lastResult   fusion.TickResult
	prevCritical map[string]bool
}

// New creates an orchestrator. The tick interval defaults to one second.
func New(cfg Config) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	if cfg.Broadcaster == nil {
		cfg.Broadcaster = NopBroadcaster{}
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	return &Orchestrator{
		cfg:          cfg,
		broadcaster:  cfg.Broadcaster,
		logger:       cfg.Logger.With(logging.Component("orchestrator")),
		nowFn:        time.Now,
		timeStep:     1,
		prevCritical: map[string]bool{},
	}
}

// Start binds a scenario mode and arms the tick loop at time_step 1.
func (o *Orchestrator) Start(mode Mode) error {
	rp, ok := mode.ReturnPeriod()
	if !ok {
		return ErrUnknownMode
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return ErrAlreadyRunning
	}
	o.running = true
	o.mode = mode
	o.rp = rp
	o.timeStep = 1
	o.tickCount = 0
	o.startedAt = o.nowFn()
	o.prevCritical = map[string]bool{}
	if o.cfg.Player != nil {
		o.cfg.Player.Rewind()
	}

	o.logger.Info("simulation started",
		logging.String("mode", string(mode)),
		logging.Scenario(string(rp), 1))
	return nil
}

// Stop pauses ticking. State is preserved; Start is required to resume.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.running {
		return
	}
	o.running = false
	o.logger.Info("simulation stopped", logging.Tick(o.tickCount))
}

// Reset clears the fusion caches, zeroes every edge risk, and rewinds the
// scenario clock.
func (o *Orchestrator) Reset() {
	o.runMu.Lock()
	defer o.runMu.Unlock()

	o.cfg.Engine.Reset()
	o.cfg.Store.ResetRisk()

	o.mu.Lock()
	o.timeStep = 1
	o.tickCount = 0
	o.lastResult = fusion.TickResult{}
	o.prevCritical = map[string]bool{}
	if o.cfg.Player != nil {
		o.cfg.Player.Rewind()
	}
	o.startedAt = o.nowFn()
	o.mu.Unlock()

	o.logger.Info("simulation reset")
}

// Running reports whether the tick loop is armed.
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Status returns a state snapshot.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	st := Status{
		Running:     o.running,
		Mode:        o.mode,
		TimeStep:    o.timeStep,
		TickCount:   o.tickCount,
		StartedAt:   o.startedAt,
		LastTick:    o.lastResult,
		AverageRisk: o.lastResult.AverageRisk,
		RiskTrend:   string(o.lastResult.Trend),
	}
	if o.rp != "" {
		st.ReturnPeriod = string(o.rp)
	}
	if o.cfg.Player != nil {
		st.EventsRemaining = o.cfg.Player.Remaining()
	}
	return st
}

// Scenario returns the active raster scenario.
func (o *Orchestrator) Scenario() raster.Scenario {
	o.mu.Lock()
	defer o.mu.Unlock()
	return raster.Scenario{ReturnPeriod: o.rp, TimeStep: o.timeStep}
}

// SetScenario pins the raster scenario directly, overriding the mode mapping
// and the natural time-step progression until the next Start.
func (o *Orchestrator) SetScenario(sc raster.Scenario) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rp = sc.ReturnPeriod
	o.timeStep = sc.TimeStep
	o.logger.Info("raster scenario pinned",
		logging.Scenario(string(sc.ReturnPeriod), sc.TimeStep))
	return nil
}

// Run drives RunTick at the configured interval until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !o.Running() {
				continue
			}
			if _, err := o.RunTick(0); err != nil && !errors.Is(err, ErrNotRunning) {
				o.logger.Error("tick failed", logging.Error(err))
			}
		}
	}
}

// RunTick executes one tick: collection, fusion, routing, advancement.
// overrideTimeStep in [1,18] replaces the current time step for this tick;
// pass 0 to keep the natural progression. A fusion lock timeout aborts the
// tick before advancement.
func (o *Orchestrator) RunTick(overrideTimeStep int) (fusion.TickResult, error) {
	o.runMu.Lock()
	defer o.runMu.Unlock()

	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return fusion.TickResult{}, ErrNotRunning
	}
	if overrideTimeStep >= 1 && overrideTimeStep <= raster.MaxTimeStep {
		o.timeStep = overrideTimeStep
	}
	ts := o.timeStep
	rp := o.rp
	startedAt := o.startedAt
	startTick := o.tickCount
	o.mu.Unlock()

	now := o.nowFn()

	// Phase 1: collection.
	phaseStart := now
	if o.cfg.Player != nil {
		o.cfg.Player.DeliverDue(now.Sub(startedAt))
	}
	for _, a := range o.cfg.Collectors {
		o.stepAgent(a, now)
	}
	o.recordPhase("collection", phaseStart)

	// Phase 2: fusion.
	phaseStart = o.nowFn()
	if o.cfg.Hazard != nil {
		o.stepAgent(o.cfg.Hazard, now)
	}
	res, err := o.cfg.Engine.RunTick(now, raster.Scenario{ReturnPeriod: rp, TimeStep: ts})
	if err != nil {
		if o.cfg.Metrics != nil {
			o.cfg.Metrics.FusionCommitFailures.Inc()
		}
		o.logger.Error("fusion commit failed", logging.Tick(startTick), logging.Error(err))
		return fusion.TickResult{}, err
	}
	o.recordPhase("fusion", phaseStart)
	o.broadcastFusion(res, ts)

	// Phase 3: routing. Requests enqueued from here on land in the next tick.
	phaseStart = o.nowFn()
	for _, a := range o.cfg.Routing {
		o.stepAgent(a, now)
	}
	o.recordPhase("routing", phaseStart)

	// Phase 4: advancement.
	o.mu.Lock()
	o.timeStep = (ts % raster.MaxTimeStep) + 1
	o.tickCount++
	o.lastResult = res
	tick := o.tickCount
	next := o.timeStep
	o.mu.Unlock()

	if o.cfg.Metrics != nil {
		o.cfg.Metrics.RecordTick(next, res.EdgesUpdated, res.AverageRisk, res.RasterApplied)
		flood, scout := o.cfg.Engine.CacheSizes()
		o.cfg.Metrics.UpdateFusionCaches(flood, scout)
		o.cfg.Metrics.UpdateGraph(o.cfg.Store.NodeCount(), o.cfg.Store.EdgeCount(), len(o.cfg.Store.RiskyEdges()))
	}

	o.logger.Debug("tick complete",
		logging.Tick(tick),
		logging.Scenario(string(rp), ts),
		logging.Int("edges_updated", res.EdgesUpdated),
		logging.Risk(res.AverageRisk))
	return res, nil
}

func (o *Orchestrator) stepAgent(a agents.Agent, now time.Time) {
	res := a.Step(now)
	if res.Err != nil {
		o.logger.Warn("agent step error",
			logging.Agent(a.Name()), logging.Error(res.Err))
	}
	if o.cfg.Metrics != nil {
		o.cfg.Metrics.RecordAgentStep(a.Name(), res.Handled, res.Err != nil)
	}
}

func (o *Orchestrator) recordPhase(phase string, start time.Time) {
	if o.cfg.Metrics != nil {
		o.cfg.Metrics.RecordTickPhase(phase, o.nowFn().Sub(start))
	}
}

// broadcastFusion emits the post-fusion websocket messages: risk_update when
// anything changed, flood_update with the cached readings, and critical_alert
// for locations that newly classified critical this tick.
func (o *Orchestrator) broadcastFusion(res fusion.TickResult, ts int) {
	if res.EdgesUpdated > 0 {
		o.broadcaster.Broadcast("risk_update", RiskUpdate{
			EdgesUpdated:   res.EdgesUpdated,
			AverageRisk:    res.AverageRisk,
			RiskTrend:      string(res.Trend),
			RiskChangeRate: res.ChangeRatePerMin,
			TimeStep:       ts,
		})
	}

	readings := o.cfg.Engine.Readings()
	if len(readings) > 0 {
		o.broadcaster.Broadcast("flood_update", readings)
	}

	nowCritical := map[string]bool{}
	for _, r := range o.cfg.Engine.CriticalReadings() {
		nowCritical[r.LocationID] = true
		if !o.prevCritical[r.LocationID] {
			o.broadcaster.Broadcast("critical_alert", r)
		}
	}
	o.mu.Lock()
	o.prevCritical = nowCritical
	o.mu.Unlock()
}
