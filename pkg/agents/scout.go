package agents

import (
	"context"
	"time"

	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/fusion"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/logging"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/mail"
)

// ScoutSource produces crowdsourced report batches. Nil in simulated mode.
type ScoutSource interface {
	Collect(ctx context.Context) ([]fusion.ScoutPayload, error)
}

// ScoutSourceFunc adapts a function to ScoutSource.
type ScoutSourceFunc func(ctx context.Context) ([]fusion.ScoutPayload, error)

func (f ScoutSourceFunc) Collect(ctx context.Context) ([]fusion.ScoutPayload, error) {
	return f(ctx)
}

// ScoutCollector validates and geocodes scout reports, then forwards them to
// the hazard agent as scout_report_batch INFORMs.
type ScoutCollector struct {
	router   *mail.Router
	box      *mail.Mailbox
	source   ScoutSource
	interval time.Duration
	lastRun  time.Time
	logger   logging.Logger
}

// NewScoutCollector registers the scout_agent mailbox.
func NewScoutCollector(router *mail.Router, source ScoutSource, interval time.Duration, logger logging.Logger) *ScoutCollector {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ScoutCollector{
		router:   router,
		box:      router.Register(ScoutAgentName),
		source:   source,
		interval: interval,
		logger:   logger.With(logging.Agent(ScoutAgentName)),
	}
}

func (c *ScoutCollector) Name() string { return ScoutAgentName }

// Step drains the mailbox and forwards any report batches, then polls the
// live source when due.
func (c *ScoutCollector) Step(now time.Time) StepResult {
	var res StepResult
	for _, msg := range c.box.Drain() {
		res.Handled++
		if msg.Performative != mail.Inform || msg.Content.Kind != KindScoutReportBatch {
			c.logger.Debug("ignoring message",
				logging.String("performative", string(msg.Performative)),
				logging.String("kind", msg.Content.Kind))
			continue
		}
		batch, ok := msg.Content.Data.([]fusion.ScoutPayload)
		if !ok {
			c.logger.Warn("ignoring scout_report_batch with unexpected payload type")
			continue
		}
		c.forward(fusion.ParseScoutBatch(batch, c.logger), &res)
	}

	if c.source != nil && c.interval > 0 && now.Sub(c.lastRun) >= c.interval {
		c.lastRun = now
		ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
		batch, err := c.source.Collect(ctx)
		cancel()
		if err != nil {
			c.logger.Error("scout collection failed", logging.Error(err))
			if res.Err == nil {
				res.Err = err
			}
			return res
		}
		c.forward(fusion.ParseScoutBatch(batch, c.logger), &res)
	}
	return res
}

func (c *ScoutCollector) forward(reports []*fusion.ScoutReport, res *StepResult) {
	if len(reports) == 0 {
		return
	}
	msg := mail.NewMessage(mail.Inform, ScoutAgentName, HazardAgentName,
		mail.Content{Kind: KindScoutReportBatch, Data: reports})
	if err := c.router.Send(msg, mail.DefaultSendTimeout); err != nil {
		c.logger.Error("failed to deliver scout batch", logging.Error(err))
		if res.Err == nil {
			res.Err = err
		}
		return
	}
	res.Emitted++
}
