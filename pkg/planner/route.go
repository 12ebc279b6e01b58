package planner

import (
	"errors"
	"fmt"
	"math"

	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/geo"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/graph"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/logging"
)

// Route is a planned path with its metrics.
type Route struct {
	Nodes            []int64
	Path             []geo.Coord
	Edges            []graph.Edge
	DistanceM        float64
	EstimatedTimeMin float64
	AvgRisk          float64
	MaxRisk          float64
	HighRiskSegments int
	Warnings         []string
	BlockedEdges     int
	Cost             float64
	Profile          string
}

func isNotFound(err error) bool {
	return errors.Is(err, graph.ErrNodeNotFound)
}

// Route plans a path between two coordinates. Endpoints snap to the nearest
// graph node within the snap radius.
func (p *Planner) Route(start, end geo.Coord, prefs Preferences) (*Route, error) {
	if !p.store.Loaded() {
		return nil, opError("Route", "", graph.ErrGraphNotLoaded)
	}
	startNode, err := p.snap(start)
	if err != nil {
		return nil, err
	}
	endNode, err := p.snap(end)
	if err != nil {
		return nil, err
	}

	prof := p.resolve(prefs)
	res, err := p.search(startNode.ID, endNode.ID, prof, nil, nil)
	if err != nil {
		if res != nil && res.blocked > 0 {
			p.logger.Info("route search failed with blocked edges",
				logging.Int("blocked_edges", res.blocked),
				logging.String("profile", prof.Name))
		}
		return nil, err
	}

	route := p.assemble(startNode.ID, res, prof)
	p.logger.Debug("route planned",
		logging.String("profile", prof.Name),
		logging.Float64("distance_m", route.DistanceM),
		logging.Risk(route.MaxRisk),
		logging.Int("blocked_edges", route.BlockedEdges))
	return route, nil
}

// assemble turns a search result into a Route with metrics and warnings.
func (p *Planner) assemble(start int64, res *searchResult, prof Profile) *Route {
	route := &Route{
		Nodes:        []int64{start},
		BlockedEdges: res.blocked,
		Cost:         res.cost,
		Profile:      prof.Name,
	}
	if n, ok := p.store.Node(start); ok {
		route.Path = append(route.Path, n.Coord)
	}

	var riskLength float64
	for i, id := range res.edges {
		e, ok := p.store.Edge(id)
		if !ok {
			continue
		}
		route.Edges = append(route.Edges, e)
		route.Nodes = append(route.Nodes, e.ID.V)
		if n, ok := p.store.Node(e.ID.V); ok {
			route.Path = append(route.Path, n.Coord)
		}

		route.DistanceM += e.LengthM
		riskLength += e.LengthM * e.RiskScore
		route.MaxRisk = math.Max(route.MaxRisk, e.RiskScore)
		if e.RiskScore >= highRiskThreshold {
			route.HighRiskSegments++
			route.Warnings = append(route.Warnings, segmentWarning(&e, i))
		}
	}
	if route.DistanceM > 0 {
		route.AvgRisk = riskLength / route.DistanceM
	}
	route.EstimatedTimeMin = route.DistanceM / walkSpeedMPerMin
	if res.blocked > 0 {
		route.Warnings = append(route.Warnings,
			fmt.Sprintf("%d flooded segments avoided", res.blocked))
	}
	return route
}

// segmentWarning labels a high-risk edge by its street name, falling back to
// the edge's position along the route.
func segmentWarning(e *graph.Edge, index int) string {
	name := e.Name
	if name == "" {
		name = fmt.Sprintf("segment-%d", index)
	}
	return fmt.Sprintf("%s at %.0f%% flood risk", name, e.RiskScore*100)
}
