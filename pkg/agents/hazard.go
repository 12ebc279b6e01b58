package agents

import (
	"time"

	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/fusion"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/graph"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/logging"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/mail"
)

// HazardAgent is the single entry point into the fusion caches. It dispatches
// INFORMs by info type and answers risk QUERYs; it never mutates state through
// any other path.
type HazardAgent struct {
	router *mail.Router
	box    *mail.Mailbox
	engine *fusion.Engine
	logger logging.Logger
}

// NewHazardAgent registers the hazard_agent mailbox.
func NewHazardAgent(router *mail.Router, engine *fusion.Engine, logger logging.Logger) *HazardAgent {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &HazardAgent{
		router: router,
		box:    router.Register(HazardAgentName),
		engine: engine,
		logger: logger.With(logging.Agent(HazardAgentName)),
	}
}

func (a *HazardAgent) Name() string { return HazardAgentName }

// Step drains the mailbox into the fusion caches.
func (a *HazardAgent) Step(now time.Time) StepResult {
	var res StepResult
	for _, msg := range a.box.Drain() {
		res.Handled++
		switch {
		case msg.Performative == mail.Inform && msg.Content.Kind == KindFloodDataBatch:
			readings, ok := msg.Content.Data.([]*fusion.HazardReading)
			if !ok {
				a.logger.Warn("ignoring flood_data_batch with unexpected payload type")
				continue
			}
			a.engine.IngestReadings(readings)

		case msg.Performative == mail.Inform && msg.Content.Kind == KindScoutReportBatch:
			reports, ok := msg.Content.Data.([]*fusion.ScoutReport)
			if !ok {
				a.logger.Warn("ignoring scout_report_batch with unexpected payload type")
				continue
			}
			a.engine.IngestReports(reports)

		case msg.Performative == mail.Query && msg.Content.Kind == KindRiskAtEdge:
			a.answerRiskQuery(msg, &res)

		default:
			a.logger.Debug("ignoring message",
				logging.String("performative", string(msg.Performative)),
				logging.String("kind", msg.Content.Kind))
		}
	}
	return res
}

func (a *HazardAgent) answerRiskQuery(msg mail.Message, res *StepResult) {
	id, ok := msg.Content.Data.(graph.EdgeID)
	if !ok {
		a.send(msg.Reply(mail.Refuse, HazardAgentName,
			mail.Content{Kind: KindError, Data: "risk_at_edge expects an edge id"}), res)
		return
	}
	risk, found := a.engine.RiskAtEdge(id)
	if !found {
		a.send(msg.Reply(mail.Refuse, HazardAgentName,
			mail.Content{Kind: KindError, Data: "unknown edge " + id.String()}), res)
		return
	}
	a.send(msg.Reply(mail.Inform, HazardAgentName,
		mail.Content{Kind: KindEdgeRisk, Data: risk}), res)
}

func (a *HazardAgent) send(msg mail.Message, res *StepResult) {
	if err := a.router.Send(msg, mail.DefaultSendTimeout); err != nil {
		a.logger.Warn("failed to reply", logging.Error(err))
		return
	}
	res.Emitted++
}
