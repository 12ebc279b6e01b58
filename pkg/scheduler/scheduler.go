// Package scheduler drives the periodic upstream refresh: at a fixed interval
// it asks the flood collector to pull fresh telemetry, and tracks run
// statistics for the status surfaces.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/agents"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/logging"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/mail"
)

const schedulerName = "refresh_scheduler"

// ErrCollectionFailed is returned when the collector answered with FAILURE.
var ErrCollectionFailed = errors.New("flood data collection failed")

// Stats is a snapshot of scheduler activity.
type Stats struct {
	TotalRuns           uint64    `json:"total_runs"`
	SuccessfulRuns      uint64    `json:"successful_runs"`
	FailedRuns          uint64    `json:"failed_runs"`
	DataPointsCollected uint64    `json:"data_points_collected"`
	LastRunTime         time.Time `json:"last_run_time"`
	LastError           string    `json:"last_error"`
	IntervalSeconds     int       `json:"interval_seconds"`
	Running             bool      `json:"running"`
}

// Scheduler periodically REQUESTs a flood data collection. A scheduled run is
// indistinguishable from a manual trigger on the collector side.
type Scheduler struct {
	router   *mail.Router
	interval time.Duration
	timeout  time.Duration
	logger   logging.Logger

	mu      sync.Mutex
	stats   Stats
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a scheduler with the given refresh interval.
func New(router *mail.Router, interval time.Duration, logger logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if interval <= 0 {
		interval = 300 * time.Second
	}
	return &Scheduler{
		router:   router,
		interval: interval,
		timeout:  mail.DefaultRequestTimeout,
		logger:   logger.With(logging.Component("scheduler")),
	}
}

// Start launches the periodic loop. Calling Start on a running scheduler is a
// no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	s.mu.Unlock()

	s.logger.Info("scheduler started",
		logging.Duration("interval", s.interval))

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.run()
			}
		}
	}()
}

// Stop halts the periodic loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.running = false
	s.mu.Unlock()

	cancel()
	<-done
	s.logger.Info("scheduler stopped")
}

// Trigger runs one collection immediately, outside the periodic cadence.
func (s *Scheduler) Trigger() (agents.CollectOutcome, error) {
	return s.run()
}

// Stats returns a snapshot of the run counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.IntervalSeconds = int(s.interval / time.Second)
	st.Running = s.running
	return st
}

func (s *Scheduler) run() (agents.CollectOutcome, error) {
	reply, err := s.router.Request(schedulerName, agents.FloodAgentName,
		mail.Content{Kind: agents.KindCollectFloodData}, s.timeout)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.TotalRuns++
	s.stats.LastRunTime = time.Now().UTC()

	if err != nil {
		s.stats.FailedRuns++
		s.stats.LastError = err.Error()
		s.logger.Error("refresh run failed", logging.Error(err))
		return agents.CollectOutcome{}, err
	}
	if reply.Performative == mail.Failure {
		s.stats.FailedRuns++
		if detail, ok := reply.Content.Data.(string); ok {
			s.stats.LastError = detail
		} else {
			s.stats.LastError = "collection failed"
		}
		s.logger.Error("collector reported failure",
			logging.String("detail", s.stats.LastError))
		return agents.CollectOutcome{}, ErrCollectionFailed
	}

	outcome, _ := reply.Content.Data.(agents.CollectOutcome)
	s.stats.SuccessfulRuns++
	s.stats.DataPointsCollected += uint64(outcome.DataPoints)
	s.stats.LastError = ""
	s.logger.Info("refresh run complete", logging.Count(outcome.DataPoints))
	return outcome, nil
}
