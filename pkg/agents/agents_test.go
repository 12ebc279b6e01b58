package agents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/fusion"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/geo"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/graph"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/mail"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/planner"
)

const (
	tLat = 14.60
	tLon = 121.00
	// Neighbor spacing below the declared 1 m edge length keeps the planner
	// heuristic admissible.
	tUnit = 0.000008
)

// lineGraph builds nodes 1-2-3 in a row with unit edges both ways.
func lineGraph(t *testing.T) (*graph.Store, map[int64]geo.Coord) {
	t.Helper()
	coords := map[int64]geo.Coord{
		1: {Lat: tLat, Lon: tLon},
		2: {Lat: tLat, Lon: tLon + tUnit},
		3: {Lat: tLat, Lon: tLon + 2*tUnit},
	}
	var nodes []graph.Node
	for id, c := range coords {
		nodes = append(nodes, graph.Node{ID: id, Coord: c})
	}
	edges := []graph.Edge{
		{ID: graph.EdgeID{U: 1, V: 2}, LengthM: 1},
		{ID: graph.EdgeID{U: 2, V: 1}, LengthM: 1},
		{ID: graph.EdgeID{U: 2, V: 3}, LengthM: 1},
		{ID: graph.EdgeID{U: 3, V: 2}, LengthM: 1},
	}
	store := graph.NewStore(0.01, nil)
	if err := store.Load(nodes, edges); err != nil {
		t.Fatalf("load: %v", err)
	}
	return store, coords
}

func readingPayload(depth float64) fusion.ReadingPayload {
	return fusion.ReadingPayload{
		FloodDepth: &depth,
		Timestamp:  time.Now().UTC(),
	}
}

func TestFloodCollectorForwardsSimulatedBatch(t *testing.T) {
	router := mail.NewRouter(16)
	hazardBox := router.Register(HazardAgentName)
	c := NewFloodCollector(router, nil, 0, nil)

	batch := map[string]fusion.ReadingPayload{"station-1": readingPayload(0.4)}
	msg := mail.NewMessage(mail.Inform, "sim_player", FloodAgentName,
		mail.Content{Kind: KindFloodDataBatch, Data: batch})
	if err := router.Send(msg, 0); err != nil {
		t.Fatalf("send: %v", err)
	}

	res := c.Step(time.Now())
	if res.Handled != 1 || res.Emitted != 1 {
		t.Fatalf("step = %+v, want handled 1 emitted 1", res)
	}

	out, ok := hazardBox.Poll()
	if !ok {
		t.Fatal("hazard agent received nothing")
	}
	readings, ok := out.Content.Data.([]*fusion.HazardReading)
	if !ok || len(readings) != 1 || readings[0].LocationID != "station-1" {
		t.Fatalf("forwarded payload = %#v", out.Content.Data)
	}
}

func TestFloodCollectorAnswersCollectRequest(t *testing.T) {
	router := mail.NewRouter(16)
	hazardBox := router.Register(HazardAgentName)
	callerBox := router.Register("caller")

	source := ReadingSourceFunc(func(ctx context.Context) (map[string]fusion.ReadingPayload, error) {
		return map[string]fusion.ReadingPayload{
			"a": readingPayload(0.2),
			"b": readingPayload(0.5),
		}, nil
	})
	c := NewFloodCollector(router, source, 0, nil)

	req := mail.NewMessage(mail.Request, "caller", FloodAgentName,
		mail.Content{Kind: KindCollectFloodData})
	req.ReplyWith = req.ID
	if err := router.Send(req, 0); err != nil {
		t.Fatalf("send: %v", err)
	}
	c.Step(time.Now())

	reply, ok := callerBox.Poll()
	if !ok {
		t.Fatal("no reply to collect request")
	}
	if reply.Performative != mail.Inform || reply.InReplyTo != req.ID {
		t.Fatalf("reply = %+v", reply)
	}
	outcome, ok := reply.Content.Data.(CollectOutcome)
	if !ok || outcome.DataPoints != 2 {
		t.Fatalf("outcome = %#v, want 2 data points", reply.Content.Data)
	}
	if _, ok := hazardBox.Poll(); !ok {
		t.Error("collected batch not forwarded to hazard agent")
	}
}

func TestFloodCollectorReportsSourceFailure(t *testing.T) {
	router := mail.NewRouter(16)
	router.Register(HazardAgentName)
	callerBox := router.Register("caller")

	boom := errors.New("upstream down")
	c := NewFloodCollector(router, ReadingSourceFunc(
		func(ctx context.Context) (map[string]fusion.ReadingPayload, error) {
			return nil, boom
		}), 0, nil)

	req := mail.NewMessage(mail.Request, "caller", FloodAgentName,
		mail.Content{Kind: KindCollectFloodData})
	req.ReplyWith = req.ID
	if err := router.Send(req, 0); err != nil {
		t.Fatalf("send: %v", err)
	}
	c.Step(time.Now())

	reply, ok := callerBox.Poll()
	if !ok {
		t.Fatal("no reply")
	}
	if reply.Performative != mail.Failure {
		t.Errorf("reply performative = %s, want FAILURE", reply.Performative)
	}
}

func TestScoutCollectorForwardsReports(t *testing.T) {
	router := mail.NewRouter(16)
	hazardBox := router.Register(HazardAgentName)
	c := NewScoutCollector(router, nil, 0, nil)

	at := geo.Coord{Lat: tLat, Lon: tLon}
	batch := []fusion.ScoutPayload{{
		Coordinates: &at,
		Severity:    0.7,
		Confidence:  0.8,
		ReportKind:  "flood",
		Timestamp:   time.Now().UTC(),
	}}
	msg := mail.NewMessage(mail.Inform, "sim_player", ScoutAgentName,
		mail.Content{Kind: KindScoutReportBatch, Data: batch})
	if err := router.Send(msg, 0); err != nil {
		t.Fatalf("send: %v", err)
	}
	c.Step(time.Now())

	out, ok := hazardBox.Poll()
	if !ok {
		t.Fatal("hazard agent received nothing")
	}
	reports, ok := out.Content.Data.([]*fusion.ScoutReport)
	if !ok || len(reports) != 1 || !reports[0].Geocoded() {
		t.Fatalf("forwarded payload = %#v", out.Content.Data)
	}
}

func TestHazardAgentIngestsAndAnswersQueries(t *testing.T) {
	store, _ := lineGraph(t)
	engine := fusion.NewEngine(fusion.DefaultConfig(), store, nil, nil)
	router := mail.NewRouter(16)
	callerBox := router.Register("caller")
	a := NewHazardAgent(router, engine, nil)

	readings := []*fusion.HazardReading{{LocationID: "s1", Timestamp: time.Now().UTC()}}
	informR := mail.NewMessage(mail.Inform, FloodAgentName, HazardAgentName,
		mail.Content{Kind: KindFloodDataBatch, Data: readings})

	at := geo.Coord{Lat: tLat, Lon: tLon}
	reports := []*fusion.ScoutReport{{
		ReportID: "r1", Timestamp: time.Now().UTC(), Coordinates: &at,
		Severity: 0.5, Confidence: 0.5, Kind: fusion.KindFlood,
	}}
	informS := mail.NewMessage(mail.Inform, ScoutAgentName, HazardAgentName,
		mail.Content{Kind: KindScoutReportBatch, Data: reports})

	query := mail.NewMessage(mail.Query, "caller", HazardAgentName,
		mail.Content{Kind: KindRiskAtEdge, Data: graph.EdgeID{U: 1, V: 2}})
	query.ReplyWith = query.ID

	for _, m := range []mail.Message{informR, informS, query} {
		if err := router.Send(m, 0); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	res := a.Step(time.Now())
	if res.Handled != 3 {
		t.Errorf("handled = %d, want 3", res.Handled)
	}

	flood, scout := engine.CacheSizes()
	if flood != 1 || scout != 1 {
		t.Errorf("cache sizes = (%d, %d), want (1, 1)", flood, scout)
	}

	reply, ok := callerBox.Poll()
	if !ok {
		t.Fatal("no query reply")
	}
	if reply.Performative != mail.Inform || reply.Content.Kind != KindEdgeRisk {
		t.Fatalf("reply = %+v", reply)
	}
	if risk, ok := reply.Content.Data.(float64); !ok || risk != 0 {
		t.Errorf("risk = %#v, want 0", reply.Content.Data)
	}

	// Unknown edges are refused rather than answered with a zero.
	bad := mail.NewMessage(mail.Query, "caller", HazardAgentName,
		mail.Content{Kind: KindRiskAtEdge, Data: graph.EdgeID{U: 9, V: 9}})
	if err := router.Send(bad, 0); err != nil {
		t.Fatalf("send: %v", err)
	}
	a.Step(time.Now())
	reply, ok = callerBox.Poll()
	if !ok || reply.Performative != mail.Refuse {
		t.Errorf("unknown edge reply = %+v", reply)
	}
}

func TestPlannerAgentAnswersRouteRequests(t *testing.T) {
	store, coords := lineGraph(t)
	p := planner.New(store, 500, 5, nil)
	router := mail.NewRouter(16)
	callerBox := router.Register("caller")
	a := NewPlannerAgent(router, p, nil, nil)

	req := mail.NewMessage(mail.Request, "caller", PlannerAgentName,
		mail.Content{Kind: KindCalculateRoute, Data: RouteRequest{
			Start: coords[1], End: coords[3],
		}})
	req.ReplyWith = req.ID
	if err := router.Send(req, 0); err != nil {
		t.Fatalf("send: %v", err)
	}
	a.Step(time.Now())

	reply, ok := callerBox.Poll()
	if !ok {
		t.Fatal("no route reply")
	}
	if reply.Performative != mail.Inform {
		t.Fatalf("reply = %+v", reply)
	}
	result, ok := reply.Content.Data.(RouteResult)
	if !ok || result.Route == nil {
		t.Fatalf("payload = %#v", reply.Content.Data)
	}
	if result.Route.DistanceM != 2 {
		t.Errorf("distance = %v, want 2", result.Route.DistanceM)
	}
}

func TestPlannerAgentFailsUnreachable(t *testing.T) {
	store, coords := lineGraph(t)
	p := planner.New(store, 500, 5, nil)
	router := mail.NewRouter(16)
	callerBox := router.Register("caller")
	a := NewPlannerAgent(router, p, nil, nil)

	far := geo.Coord{Lat: tLat + 1, Lon: tLon}
	req := mail.NewMessage(mail.Request, "caller", PlannerAgentName,
		mail.Content{Kind: KindCalculateRoute, Data: RouteRequest{Start: coords[1], End: far}})
	req.ReplyWith = req.ID
	if err := router.Send(req, 0); err != nil {
		t.Fatalf("send: %v", err)
	}
	a.Step(time.Now())

	reply, ok := callerBox.Poll()
	if !ok {
		t.Fatal("no reply")
	}
	if reply.Performative != mail.Failure {
		t.Fatalf("reply performative = %s, want FAILURE", reply.Performative)
	}
	err, ok := reply.Content.Data.(error)
	if !ok || !errors.Is(err, planner.ErrNoNearbyNode) {
		t.Errorf("failure payload = %#v, want ErrNoNearbyNode", reply.Content.Data)
	}
}

func TestDistressCallFlowsToShelterRoute(t *testing.T) {
	store, coords := lineGraph(t)
	p := planner.New(store, 500, 5, nil)
	router := mail.NewRouter(16)
	callerBox := router.Register("caller")

	shelters := []planner.Shelter{{Name: "East Hall", Coord: coords[3], Capacity: 50}}
	pa := NewPlannerAgent(router, p, func() []planner.Shelter { return shelters }, nil)
	em := NewEvacuationManager(router, nil)

	distress := mail.NewMessage(mail.Request, "caller", EvacManagerName,
		mail.Content{Kind: KindDistressCall, Data: EvacuationRequest{Start: coords[1]}})
	distress.ReplyWith = distress.ID
	if err := router.Send(distress, 0); err != nil {
		t.Fatalf("send: %v", err)
	}

	// Routing-phase order: the manager translates, then the planner answers.
	em.Step(time.Now())
	pa.Step(time.Now())

	reply, ok := callerBox.Poll()
	if !ok {
		t.Fatal("caller got no evacuation reply")
	}
	if reply.Performative != mail.Inform || reply.InReplyTo != distress.ID {
		t.Fatalf("reply = %+v", reply)
	}
	ev, ok := reply.Content.Data.(*planner.Evacuation)
	if !ok || ev.Shelter.Name != "East Hall" {
		t.Fatalf("payload = %#v", reply.Content.Data)
	}
}
