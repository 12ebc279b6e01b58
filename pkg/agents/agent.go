// Package agents holds the tick-stepped actors: collectors that produce
// hazard inputs, the hazard agent that feeds the fusion caches, and the
// planner-facing agents that answer route and evacuation requests. Agents
// communicate only through mailboxes; none calls another agent's methods.
package agents

import "time"

// Well-known mailbox names.
const (
	FloodAgentName   = "flood_agent"
	ScoutAgentName   = "scout_agent"
	HazardAgentName  = "hazard_agent"
	PlannerAgentName = "planner_agent"
	EvacManagerName  = "evac_manager"
)

// Content kinds exchanged between agents.
const (
	KindFloodDataBatch   = "flood_data_batch"
	KindScoutReportBatch = "scout_report_batch"
	KindCollectFloodData = "collect_flood_data"
	KindFloodCollected   = "flood_data_collected"
	KindRiskAtEdge       = "risk_at_edge"
	KindEdgeRisk         = "edge_risk"
	KindCalculateRoute   = "calculate_route"
	KindRouteResult      = "route_result"
	KindFindEvacuation   = "find_evacuation_route"
	KindEvacuationResult = "evacuation_result"
	KindDistressCall     = "distress_call"
	KindError            = "error"
)

// StepResult summarizes one agent step.
type StepResult struct {
	Handled int // messages consumed from the mailbox
	Emitted int // messages produced
	Err     error
}

// Agent is a tick-stepped actor with a named mailbox.
type Agent interface {
	Name() string
	Step(now time.Time) StepResult
}
