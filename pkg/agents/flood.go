package agents

import (
	"context"
	"sync"
	"time"

	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/fusion"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/logging"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/mail"
)

// ReadingSource produces a batch of official hazard readings, keyed by
// location id. Live implementations call upstream telemetry; the simulation
// player bypasses the source and posts batches straight to the mailbox.
type ReadingSource interface {
	Collect(ctx context.Context) (map[string]fusion.ReadingPayload, error)
}

// ReadingSourceFunc adapts a function to ReadingSource.
type ReadingSourceFunc func(ctx context.Context) (map[string]fusion.ReadingPayload, error)

func (f ReadingSourceFunc) Collect(ctx context.Context) (map[string]fusion.ReadingPayload, error) {
	return f(ctx)
}

// CollectOutcome is the reply payload for a collect request.
type CollectOutcome struct {
	DataPoints int
}

// collectTimeout bounds one upstream fetch.
const collectTimeout = 10 * time.Second

// serveReceiveTimeout is the poll granularity of the standing receive loop.
const serveReceiveTimeout = 250 * time.Millisecond

// FloodCollector turns upstream telemetry into flood_data_batch INFORMs for
// the hazard agent. Collection runs when its own refresh interval elapses or
// when a REQUEST(collect_flood_data) arrives.
type FloodCollector struct {
	router   *mail.Router
	box      *mail.Mailbox
	source   ReadingSource
	interval time.Duration
	logger   logging.Logger

	mu      sync.Mutex
	lastRun time.Time
}

// NewFloodCollector registers the flood_agent mailbox. interval <= 0 disables
// self-timed collection; the scheduler or manual triggers still work.
func NewFloodCollector(router *mail.Router, source ReadingSource, interval time.Duration, logger logging.Logger) *FloodCollector {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &FloodCollector{
		router:   router,
		box:      router.Register(FloodAgentName),
		source:   source,
		interval: interval,
		logger:   logger.With(logging.Agent(FloodAgentName)),
	}
}

func (c *FloodCollector) Name() string { return FloodAgentName }

// Step drains the mailbox, then collects if the refresh interval elapsed.
func (c *FloodCollector) Step(now time.Time) StepResult {
	var res StepResult
	for _, msg := range c.box.Drain() {
		c.handle(msg, now, &res)
	}

	c.mu.Lock()
	due := c.source != nil && c.interval > 0 && now.Sub(c.lastRun) >= c.interval
	c.mu.Unlock()
	if due {
		if _, err := c.collect(now, &res); err != nil && res.Err == nil {
			res.Err = err
		}
	}
	return res
}

// Serve answers mailbox traffic continuously until ctx is canceled. Scheduled
// refreshes and manual triggers must work while the tick loop is idle, so this
// loop runs alongside the orchestrator rather than inside it.
func (c *FloodCollector) Serve(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		msg, ok := c.box.Receive(serveReceiveTimeout)
		if !ok {
			continue
		}
		var res StepResult
		c.handle(msg, time.Now(), &res)
	}
}

func (c *FloodCollector) handle(msg mail.Message, now time.Time, res *StepResult) {
	res.Handled++
	switch {
	case msg.Performative == mail.Request && msg.Content.Kind == KindCollectFloodData:
		outcome, err := c.collect(now, res)
		if err != nil {
			c.reply(msg, mail.Failure, mail.Content{Kind: KindError, Data: err.Error()}, res)
			return
		}
		c.reply(msg, mail.Inform, mail.Content{Kind: KindFloodCollected, Data: outcome}, res)

	case msg.Performative == mail.Inform && msg.Content.Kind == KindFloodDataBatch:
		// Simulated event stream delivers raw payload batches here.
		batch, ok := msg.Content.Data.(map[string]fusion.ReadingPayload)
		if !ok {
			c.logger.Warn("ignoring flood_data_batch with unexpected payload type")
			return
		}
		readings := fusion.ParseReadingBatch(batch, c.logger)
		c.forward(readings, res)

	default:
		c.logger.Debug("ignoring message",
			logging.String("performative", string(msg.Performative)),
			logging.String("kind", msg.Content.Kind))
	}
}

func (c *FloodCollector) collect(now time.Time, res *StepResult) (CollectOutcome, error) {
	c.mu.Lock()
	c.lastRun = now
	c.mu.Unlock()
	if c.source == nil {
		return CollectOutcome{}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	batch, err := c.source.Collect(ctx)
	if err != nil {
		c.logger.Error("upstream collection failed", logging.Error(err))
		return CollectOutcome{}, err
	}
	readings := fusion.ParseReadingBatch(batch, c.logger)
	c.forward(readings, res)
	c.logger.Info("collected flood data", logging.Count(len(readings)))
	return CollectOutcome{DataPoints: len(readings)}, nil
}

func (c *FloodCollector) forward(readings []*fusion.HazardReading, res *StepResult) {
	if len(readings) == 0 {
		return
	}
	msg := mail.NewMessage(mail.Inform, FloodAgentName, HazardAgentName,
		mail.Content{Kind: KindFloodDataBatch, Data: readings})
	if err := c.router.Send(msg, mail.DefaultSendTimeout); err != nil {
		c.logger.Error("failed to deliver flood batch", logging.Error(err))
		if res.Err == nil {
			res.Err = err
		}
		return
	}
	res.Emitted++
}

func (c *FloodCollector) reply(msg mail.Message, p mail.Performative, content mail.Content, res *StepResult) {
	if err := c.router.Send(msg.Reply(p, FloodAgentName, content), mail.DefaultSendTimeout); err != nil {
		c.logger.Warn("failed to reply", logging.Error(err))
		return
	}
	res.Emitted++
}
