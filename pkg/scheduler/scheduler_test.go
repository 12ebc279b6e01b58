package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/agents"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/fusion"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/mail"
)

// stepUntil pumps an agent in the background so blocking requests get
// answered.
func stepUntil(t *testing.T, a agents.Agent) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
				a.Step(time.Now())
				time.Sleep(2 * time.Millisecond)
			}
		}
	}()
	return cancel
}

func TestTriggerRecordsSuccess(t *testing.T) {
	router := mail.NewRouter(16)
	router.Register(agents.HazardAgentName)

	depth := 0.3
	source := agents.ReadingSourceFunc(func(ctx context.Context) (map[string]fusion.ReadingPayload, error) {
		return map[string]fusion.ReadingPayload{
			"a": {FloodDepth: &depth, Timestamp: time.Now().UTC()},
			"b": {FloodDepth: &depth, Timestamp: time.Now().UTC()},
		}, nil
	})
	collector := agents.NewFloodCollector(router, source, 0, nil)
	defer stepUntil(t, collector)()

	s := New(router, time.Hour, nil)
	outcome, err := s.Trigger()
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if outcome.DataPoints != 2 {
		t.Errorf("data points = %d, want 2", outcome.DataPoints)
	}

	st := s.Stats()
	if st.TotalRuns != 1 || st.SuccessfulRuns != 1 || st.FailedRuns != 0 {
		t.Errorf("stats = %+v", st)
	}
	if st.DataPointsCollected != 2 {
		t.Errorf("data points collected = %d, want 2", st.DataPointsCollected)
	}
	if st.LastRunTime.IsZero() {
		t.Error("last run time not recorded")
	}
}

// The refresh scheduler must work with the simulation idle: the collector's
// standing receive loop, not the tick loop, answers its requests.
func TestTriggerAnsweredByServeLoop(t *testing.T) {
	router := mail.NewRouter(16)
	router.Register(agents.HazardAgentName)

	depth := 0.5
	source := agents.ReadingSourceFunc(func(ctx context.Context) (map[string]fusion.ReadingPayload, error) {
		return map[string]fusion.ReadingPayload{
			"a": {FloodDepth: &depth, Timestamp: time.Now().UTC()},
		}, nil
	})
	collector := agents.NewFloodCollector(router, source, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go collector.Serve(ctx)

	s := New(router, time.Hour, nil)
	outcome, err := s.Trigger()
	if err != nil {
		t.Fatalf("trigger with idle tick loop: %v", err)
	}
	if outcome.DataPoints != 1 {
		t.Errorf("data points = %d, want 1", outcome.DataPoints)
	}
	if st := s.Stats(); st.SuccessfulRuns != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestTriggerRecordsFailure(t *testing.T) {
	router := mail.NewRouter(16)
	router.Register(agents.HazardAgentName)

	collector := agents.NewFloodCollector(router, agents.ReadingSourceFunc(
		func(ctx context.Context) (map[string]fusion.ReadingPayload, error) {
			return nil, errors.New("upstream down")
		}), 0, nil)
	defer stepUntil(t, collector)()

	s := New(router, time.Hour, nil)
	if _, err := s.Trigger(); !errors.Is(err, ErrCollectionFailed) {
		t.Fatalf("trigger error = %v, want ErrCollectionFailed", err)
	}

	st := s.Stats()
	if st.FailedRuns != 1 || st.SuccessfulRuns != 0 {
		t.Errorf("stats = %+v", st)
	}
	if st.LastError != "upstream down" {
		t.Errorf("last error = %q", st.LastError)
	}
}

func TestPeriodicRunsAndStop(t *testing.T) {
	router := mail.NewRouter(16)
	router.Register(agents.HazardAgentName)

	collector := agents.NewFloodCollector(router, agents.ReadingSourceFunc(
		func(ctx context.Context) (map[string]fusion.ReadingPayload, error) {
			return map[string]fusion.ReadingPayload{}, nil
		}), 0, nil)
	defer stepUntil(t, collector)()

	s := New(router, 20*time.Millisecond, nil)
	s.Start(context.Background())
	if !s.Stats().Running {
		t.Error("scheduler not marked running")
	}

	deadline := time.Now().Add(2 * time.Second)
	for s.Stats().TotalRuns < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	s.Stop()

	st := s.Stats()
	if st.TotalRuns < 2 {
		t.Errorf("total runs = %d, want >= 2", st.TotalRuns)
	}
	if st.Running {
		t.Error("scheduler still marked running after stop")
	}

	// Stop is idempotent; a second call must not block or panic.
	s.Stop()
}
