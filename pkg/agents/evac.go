package agents

import (
	"time"

	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/logging"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/mail"
)

// EvacuationManager turns distress calls into planner evacuation requests.
// The forwarded request keeps the original sender, so the planner agent's
// reply lands directly in the caller's reply mailbox; the manager never
// blocks waiting for it.
type EvacuationManager struct {
	router *mail.Router
	box    *mail.Mailbox
	logger logging.Logger
}

// NewEvacuationManager registers the evac_manager mailbox.
func NewEvacuationManager(router *mail.Router, logger logging.Logger) *EvacuationManager {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &EvacuationManager{
		router: router,
		box:    router.Register(EvacManagerName),
		logger: logger.With(logging.Agent(EvacManagerName)),
	}
}

func (m *EvacuationManager) Name() string { return EvacManagerName }

// Step forwards pending distress calls to the planner agent.
func (m *EvacuationManager) Step(now time.Time) StepResult {
	var res StepResult
	for _, msg := range m.box.Drain() {
		res.Handled++
		if msg.Performative != mail.Request || msg.Content.Kind != KindDistressCall {
			m.logger.Debug("ignoring message",
				logging.String("performative", string(msg.Performative)),
				logging.String("kind", msg.Content.Kind))
			continue
		}

		fwd := msg
		fwd.Receiver = PlannerAgentName
		fwd.Content.Kind = KindFindEvacuation
		if err := m.router.Send(fwd, mail.DefaultSendTimeout); err != nil {
			m.logger.Error("failed to forward distress call", logging.Error(err))
			reply := msg.Reply(mail.Failure, EvacManagerName,
				mail.Content{Kind: KindError, Data: err})
			if sendErr := m.router.Send(reply, mail.DefaultSendTimeout); sendErr == nil {
				res.Emitted++
			}
			if res.Err == nil {
				res.Err = err
			}
			continue
		}
		res.Emitted++
	}
	return res
}
