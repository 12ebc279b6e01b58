// Package planner computes risk-aware routes over the road graph: A* with a
// great-circle heuristic in a virtual-meters cost model, Yen's algorithm for
// alternatives, and evacuation shelter selection.
package planner

import (
	"container/heap"

	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/geo"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/graph"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/logging"
)

// walkSpeedMPerMin is the assumed urban average used for time estimates.
const walkSpeedMPerMin = 720.0

// highRiskThreshold marks edges worth a route warning.
const highRiskThreshold = 0.5

// Planner answers route and evacuation queries. Safe for concurrent use; all
// mutable state lives in the graph store.
type Planner struct {
	store             *graph.Store
	maxSnapM          float64
	shelterCandidates int
	impassability     float64
	logger            logging.Logger
}

// New creates a planner over the given graph store.
func New(store *graph.Store, maxSnapM float64, shelterCandidates int, logger logging.Logger) *Planner {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if maxSnapM <= 0 {
		maxSnapM = 500
	}
	if shelterCandidates <= 0 {
		shelterCandidates = 5
	}
	return &Planner{
		store:             store,
		maxSnapM:          maxSnapM,
		shelterCandidates: shelterCandidates,
		logger:            logger.With(logging.Component("planner")),
	}
}

// SetImpassabilityThreshold sets the balanced profile's impassability cutoff
// for routes planned by this planner. Zero keeps the built-in default. Must be
// called before the planner starts serving requests.
func (p *Planner) SetImpassabilityThreshold(v float64) {
	p.impassability = v
}

// resolve merges request preferences over the named profile, with the
// configured cutoff as the balanced profile's base threshold. Explicit
// per-request thresholds still win.
func (p *Planner) resolve(prefs Preferences) Profile {
	prof := ProfileByName(prefs.Profile)
	if p.impassability > 0 && prof.Name == "balanced" {
		prof.MaxRiskThreshold = p.impassability
	}
	return prefs.apply(prof)
}

// edgeCost prices an edge under the profile. ok is false for impassable edges.
func edgeCost(e *graph.Edge, prof Profile) (cost float64, ok bool) {
	if e.RiskScore >= prof.MaxRiskThreshold {
		return 0, false
	}
	return e.LengthM*prof.DistanceWeight + e.LengthM*e.RiskScore*prof.RiskWeight, true
}

// pqItem is one open-set entry. Ties on f break toward the lower heuristic.
type pqItem struct {
	node  int64
	g     float64
	h     float64
	index int
}

func (it *pqItem) f() float64 { return it.g + it.h }

type openSet []*pqItem

func (q openSet) Len() int { return len(q) }

func (q openSet) Less(i, j int) bool {
	if q[i].f() != q[j].f() {
		return q[i].f() < q[j].f()
	}
	return q[i].h < q[j].h
}

func (q openSet) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *openSet) Push(x any) {
	it := x.(*pqItem)
	it.index = len(*q)
	*q = append(*q, it)
}

func (q *openSet) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return it
}

// searchResult is a raw A* outcome before route metrics are attached.
type searchResult struct {
	edges   []graph.EdgeID
	cost    float64
	blocked int
}

// search runs A* from start to goal, skipping banned nodes and edges. Banned
// sets may be nil; they exist for Yen's spur searches.
func (p *Planner) search(start, goal int64, prof Profile, bannedNodes map[int64]bool, bannedEdges map[graph.EdgeID]bool) (*searchResult, error) {
	goalNode, ok := p.store.Node(goal)
	if !ok {
		return nil, opError("search", "", graph.ErrNodeNotFound)
	}

	open := &openSet{}
	heap.Init(open)

	startNode, ok := p.store.Node(start)
	if !ok {
		return nil, opError("search", "", graph.ErrNodeNotFound)
	}
	heap.Push(open, &pqItem{
		node: start,
		g:    0,
		h:    geo.Haversine(startNode.Coord, goalNode.Coord) * prof.DistanceWeight,
	})

	gScore := map[int64]float64{start: 0}
	cameFrom := map[int64]graph.EdgeID{}
	closed := map[int64]bool{}
	blocked := 0

	for open.Len() > 0 {
		cur := heap.Pop(open).(*pqItem)
		if closed[cur.node] {
			continue
		}
		if cur.node == goal {
			return &searchResult{
				edges:   reconstruct(cameFrom, start, goal),
				cost:    cur.g,
				blocked: blocked,
			}, nil
		}
		closed[cur.node] = true

		// Pick the cheapest passable parallel edge per neighbor.
		best := map[int64]struct {
			id   graph.EdgeID
			cost float64
		}{}
		for _, e := range p.store.OutgoingEdges(cur.node) {
			if bannedEdges[e.ID] || bannedNodes[e.ID.V] || closed[e.ID.V] {
				continue
			}
			c, passable := edgeCost(&e, prof)
			if !passable {
				blocked++
				continue
			}
			if prev, seen := best[e.ID.V]; !seen || c < prev.cost {
				best[e.ID.V] = struct {
					id   graph.EdgeID
					cost float64
				}{e.ID, c}
			}
		}

		for v, choice := range best {
			tentative := cur.g + choice.cost
			if g, seen := gScore[v]; seen && tentative >= g {
				continue
			}
			gScore[v] = tentative
			cameFrom[v] = choice.id
			node, ok := p.store.Node(v)
			if !ok {
				continue
			}
			heap.Push(open, &pqItem{
				node: v,
				g:    tentative,
				h:    geo.Haversine(node.Coord, goalNode.Coord) * prof.DistanceWeight,
			})
		}
	}

	return &searchResult{blocked: blocked}, opError("search", "", ErrNoPath)
}

func reconstruct(cameFrom map[int64]graph.EdgeID, start, goal int64) []graph.EdgeID {
	var rev []graph.EdgeID
	cur := goal
	for cur != start {
		id, ok := cameFrom[cur]
		if !ok {
			return nil
		}
		rev = append(rev, id)
		cur = id.U
	}
	edges := make([]graph.EdgeID, len(rev))
	for i, id := range rev {
		edges[len(rev)-1-i] = id
	}
	return edges
}

func (p *Planner) snap(c geo.Coord) (graph.Node, error) {
	n, _, err := p.store.NearestNode(c, p.maxSnapM)
	if err != nil {
		if isNotFound(err) {
			return graph.Node{}, opError("snap", c.String(), ErrNoNearbyNode)
		}
		return graph.Node{}, err
	}
	return n, nil
}
