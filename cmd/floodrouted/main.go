// Command floodrouted runs the flood-aware evacuation routing service: road
// graph, hazard fusion, agent bus, tick orchestrator and HTTP/WebSocket API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/agents"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/api"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/config"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/fusion"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/graph"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/health"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/logging"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/mail"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/metrics"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/planner"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/raster"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/scheduler"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/server"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/sim"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults apply when empty)")
	graphPath := flag.String("graph", "", "GraphML road network (overrides config)")
	sheltersPath := flag.String("shelters", "", "shelter roster CSV (overrides config)")
	scenarioPath := flag.String("scenario", "", "simulation scenario CSV (overrides config)")
	addr := flag.String("addr", "", "listen address (overrides config)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	logger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(*logLevel))

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("configuration failed", logging.Error(err))
		os.Exit(1)
	}
	if *graphPath != "" {
		cfg.GraphPath = *graphPath
	}
	if *sheltersPath != "" {
		cfg.SheltersPath = *sheltersPath
	}
	if *scenarioPath != "" {
		cfg.ScenarioPath = *scenarioPath
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", logging.Error(err))
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func run(cfg *config.Config, logger logging.Logger) error {
	// Road graph.
	store := graph.NewStore(cfg.SpatialGridDeg, logger)
	if cfg.GraphPath != "" {
		if err := store.LoadGraphMLFile(cfg.GraphPath); err != nil {
			return fmt.Errorf("load graph: %w", err)
		}
		logger.Info("road graph loaded",
			logging.String("path", cfg.GraphPath),
			logging.Int("nodes", store.NodeCount()),
			logging.Int("edges", store.EdgeCount()))
	} else {
		logger.Warn("no graph configured, routing unavailable until one is loaded")
	}

	// Flood-depth rasters.
	var rasters *raster.Service
	if cfg.Raster.Dir != "" {
		rasters = raster.NewService(raster.Config{
			Dir:             cfg.Raster.Dir,
			CenterLat:       cfg.Raster.CenterLat,
			CenterLon:       cfg.Raster.CenterLon,
			BaseCoverageDeg: cfg.Raster.BaseCoverageDeg,
			CacheSize:       cfg.Raster.CacheSize,
			LoadTimeout:     time.Duration(cfg.Raster.LoadTimeoutSec) * time.Second,
		}, logger)
	}

	// Fusion engine.
	engine := fusion.NewEngine(fusion.Config{
		ScoutTTL:           time.Duration(cfg.Fusion.ScoutTTLMin * float64(time.Minute)),
		FloodTTL:           time.Duration(cfg.Fusion.FloodTTLMin * float64(time.Minute)),
		KScoutFast:         cfg.Fusion.KScoutFast,
		KScoutSlow:         cfg.Fusion.KScoutSlow,
		KOfficial:          cfg.Fusion.KOfficial,
		KSpatialEdge:       cfg.Fusion.KSpatialEdge,
		MinRiskFloor:       cfg.Fusion.MinRiskFloor,
		PropagationRadiusM: cfg.Fusion.PropagationRadiusM,
		LockTimeout:        time.Second,
	}, store, rasters, logger)
	engine.SetRasterEnabled(cfg.Raster.Enabled && rasters != nil)

	// Shelter roster.
	var shelters []planner.Shelter
	if cfg.SheltersPath != "" {
		var err error
		shelters, err = planner.LoadShelters(cfg.SheltersPath, logger)
		if err != nil {
			return fmt.Errorf("load shelters: %w", err)
		}
		logger.Info("shelter roster loaded", logging.Count(len(shelters)))
	}
	sheltersFn := func() []planner.Shelter { return shelters }

	// Agent bus.
	router := mail.NewRouter(cfg.MailboxCapacity)
	flood := agents.NewFloodCollector(router, nil, 0, logger)
	scout := agents.NewScoutCollector(router, nil, 0, logger)
	hazard := agents.NewHazardAgent(router, engine, logger)

	plan := planner.New(store, cfg.Planner.MaxSnapM, cfg.Planner.ShelterCandidates, logger)
	plan.SetImpassabilityThreshold(cfg.Planner.ImpassabilityThreshold)
	plannerAgent := agents.NewPlannerAgent(router, plan, sheltersFn, logger)
	evacManager := agents.NewEvacuationManager(router, logger)

	// Scenario playback.
	var player *sim.Player
	if cfg.ScenarioPath != "" {
		events, err := sim.LoadScenario(cfg.ScenarioPath)
		if err != nil {
			return fmt.Errorf("load scenario: %w", err)
		}
		player = sim.NewPlayer(router, events, logger)
		logger.Info("scenario loaded",
			logging.String("path", cfg.ScenarioPath), logging.Count(len(events)))
	}

	registry := metrics.DefaultRegistry()
	hub := api.NewHub(logger)

	orch := sim.New(sim.Config{
		Store:        store,
		Engine:       engine,
		Player:       player,
		Metrics:      registry,
		Collectors:   []agents.Agent{flood, scout},
		Hazard:       hazard,
		Routing:      []agents.Agent{evacManager, plannerAgent},
		Broadcaster:  hub,
		TickInterval: time.Duration(cfg.TickIntervalMS) * time.Millisecond,
		Logger:       logger,
	})

	sched := scheduler.New(router,
		time.Duration(cfg.SchedulerIntervalS)*time.Second, logger)

	checker := health.NewChecker()
	checker.RegisterCheck("graph", health.GraphCheck(func() (bool, int, int) {
		return store.Loaded(), store.NodeCount(), store.EdgeCount()
	}))
	if cfg.Raster.Dir != "" {
		checker.RegisterCheck("raster", health.RasterCheck(cfg.Raster.Dir))
	}
	checker.RegisterCheck("simulation", health.SimulationCheck(func() (bool, uint64) {
		st := orch.Status()
		return st.Running, st.TickCount
	}))
	checker.RegisterCheck("scheduler", health.SchedulerCheck(func() (string, uint64, uint64) {
		st := sched.Stats()
		return st.LastError, st.FailedRuns, st.TotalRuns
	}))
	checker.RegisterCheck("mailboxes", health.MailboxCheck(router.MailboxDepths, cfg.MailboxCapacity))
	checker.RegisterCheck("memory", health.MemoryCheck())
	checker.RegisterReadinessCheck("graph", health.GraphCheck(func() (bool, int, int) {
		return store.Loaded(), store.NodeCount(), store.EdgeCount()
	}))
	checker.RegisterLivenessCheck("process", func() health.Check {
		return health.Check{Name: "process", Status: health.StatusHealthy}
	})

	apiServer := api.NewServer(api.Deps{
		Store:        store,
		Planner:      plan,
		Engine:       engine,
		Orchestrator: orch,
		Scheduler:    sched,
		Rasters:      rasters,
		Shelters:     sheltersFn,
		Metrics:      registry,
		Health:       checker,
		Logger:       logger,
		Hub:          hub,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go orch.Run(ctx)
	go flood.Serve(ctx)
	sched.Start(ctx)
	defer sched.Stop()
	go pollSystemMetrics(ctx, registry, router)

	srv := server.NewGracefulServer(cfg.Server.Addr, apiServer.Routes(), logger)
	return srv.Start()
}

// pollSystemMetrics refreshes process and mailbox gauges every ten seconds.
func pollSystemMetrics(ctx context.Context, registry *metrics.Registry, router *mail.Router) {
	start := time.Now()
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			registry.UpdateSystemMetrics(start)
			registry.UpdateMailboxDepths(router.MailboxDepths())
		}
	}
}
