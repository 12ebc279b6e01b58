package agents

import (
	"time"

	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/geo"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/logging"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/mail"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/planner"
)

// RouteRequest asks for a path between two coordinates.
type RouteRequest struct {
	Start geo.Coord
	End   geo.Coord
	Prefs planner.Preferences
}

// RouteResult is the reply payload for calculate_route.
type RouteResult struct {
	Route        *planner.Route
	Alternatives []*planner.Route
}

// EvacuationRequest asks for a route to the best shelter.
type EvacuationRequest struct {
	Start geo.Coord
	Prefs planner.Preferences
}

// PlannerAgent answers calculate_route and find_evacuation_route REQUESTs
// synchronously during the routing phase. Replies go straight back to the
// requester's reply mailbox.
type PlannerAgent struct {
	router   *mail.Router
	box      *mail.Mailbox
	planner  *planner.Planner
	shelters func() []planner.Shelter
	logger   logging.Logger
}

// NewPlannerAgent registers the planner_agent mailbox. shelters supplies the
// current roster per request; it may return nil when none is loaded.
func NewPlannerAgent(router *mail.Router, p *planner.Planner, shelters func() []planner.Shelter, logger logging.Logger) *PlannerAgent {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if shelters == nil {
		shelters = func() []planner.Shelter { return nil }
	}
	return &PlannerAgent{
		router:   router,
		box:      router.Register(PlannerAgentName),
		planner:  p,
		shelters: shelters,
		logger:   logger.With(logging.Agent(PlannerAgentName)),
	}
}

func (a *PlannerAgent) Name() string { return PlannerAgentName }

// Step drains and answers every pending request.
func (a *PlannerAgent) Step(now time.Time) StepResult {
	var res StepResult
	for _, msg := range a.box.Drain() {
		res.Handled++
		if msg.Performative != mail.Request {
			a.logger.Debug("ignoring non-request message",
				logging.String("performative", string(msg.Performative)))
			continue
		}
		switch msg.Content.Kind {
		case KindCalculateRoute:
			a.handleRoute(msg, &res)
		case KindFindEvacuation:
			a.handleEvacuation(msg, &res)
		default:
			a.send(msg.Reply(mail.Refuse, PlannerAgentName,
				mail.Content{Kind: KindError, Data: "unknown request " + msg.Content.Kind}), &res)
		}
	}
	return res
}

func (a *PlannerAgent) handleRoute(msg mail.Message, res *StepResult) {
	req, ok := msg.Content.Data.(RouteRequest)
	if !ok {
		a.send(msg.Reply(mail.Refuse, PlannerAgentName,
			mail.Content{Kind: KindError, Data: "calculate_route expects a RouteRequest"}), res)
		return
	}

	var result RouteResult
	var err error
	if req.Prefs.Alternatives >= 2 {
		result.Route, result.Alternatives, err = a.planner.RouteWithAlternatives(req.Start, req.End, req.Prefs)
	} else {
		result.Route, err = a.planner.Route(req.Start, req.End, req.Prefs)
	}
	if err != nil {
		a.send(msg.Reply(mail.Failure, PlannerAgentName,
			mail.Content{Kind: KindError, Data: err}), res)
		return
	}
	a.send(msg.Reply(mail.Inform, PlannerAgentName,
		mail.Content{Kind: KindRouteResult, Data: result}), res)
}

func (a *PlannerAgent) handleEvacuation(msg mail.Message, res *StepResult) {
	req, ok := msg.Content.Data.(EvacuationRequest)
	if !ok {
		a.send(msg.Reply(mail.Refuse, PlannerAgentName,
			mail.Content{Kind: KindError, Data: "find_evacuation_route expects an EvacuationRequest"}), res)
		return
	}

	ev, err := a.planner.Evacuate(req.Start, a.shelters(), req.Prefs)
	if err != nil {
		a.send(msg.Reply(mail.Failure, PlannerAgentName,
			mail.Content{Kind: KindError, Data: err}), res)
		return
	}
	a.send(msg.Reply(mail.Inform, PlannerAgentName,
		mail.Content{Kind: KindEvacuationResult, Data: ev}), res)
}

func (a *PlannerAgent) send(msg mail.Message, res *StepResult) {
	if err := a.router.Send(msg, mail.DefaultSendTimeout); err != nil {
		a.logger.Warn("failed to reply", logging.Error(err))
		return
	}
	res.Emitted++
}
