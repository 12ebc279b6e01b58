package planner

import (
	"errors"
	"sort"

	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/geo"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/graph"
)

// jaccardDedupThreshold is the edge-set similarity above which an alternative
// is considered a duplicate of an already-returned route.
const jaccardDedupThreshold = 0.85

// RouteWithAlternatives plans the primary route plus up to
// prefs.Alternatives additional paths via Yen's algorithm, deduplicated by
// edge-set similarity. Alternatives below 2 behave like Route.
func (p *Planner) RouteWithAlternatives(start, end geo.Coord, prefs Preferences) (*Route, []*Route, error) {
	if !p.store.Loaded() {
		return nil, nil, opError("RouteWithAlternatives", "", graph.ErrGraphNotLoaded)
	}
	startNode, err := p.snap(start)
	if err != nil {
		return nil, nil, err
	}
	endNode, err := p.snap(end)
	if err != nil {
		return nil, nil, err
	}

	prof := p.resolve(prefs)
	best, err := p.search(startNode.ID, endNode.ID, prof, nil, nil)
	if err != nil {
		return nil, nil, err
	}
	primary := p.assemble(startNode.ID, best, prof)
	if prefs.Alternatives < 2 {
		return primary, nil, nil
	}

	alts := p.yen(startNode.ID, endNode.ID, prof, best, prefs.Alternatives)
	routes := make([]*Route, 0, len(alts))
	for _, res := range alts {
		routes = append(routes, p.assemble(startNode.ID, res, prof))
	}
	return primary, routes, nil
}

// yen generates up to k additional paths after best, in cost order, skipping
// candidates too similar to anything already accepted.
func (p *Planner) yen(start, goal int64, prof Profile, best *searchResult, k int) []*searchResult {
	shortest := []*searchResult{best} // spur base, includes similar paths
	var accepted []*searchResult
	var candidates []*searchResult

	// Bound total work; similarity filtering can reject many candidates.
	maxGenerated := k * 4

	for len(accepted) < k && len(shortest) <= maxGenerated {
		prev := shortest[len(shortest)-1]

		for spur := 0; spur < len(prev.edges); spur++ {
			rootEdges := prev.edges[:spur]
			spurNode := start
			if spur > 0 {
				spurNode = rootEdges[spur-1].V
			}

			bannedEdges := map[graph.EdgeID]bool{}
			for _, path := range shortest {
				if len(path.edges) > spur && sameEdges(path.edges[:spur], rootEdges) {
					bannedEdges[path.edges[spur]] = true
				}
			}
			bannedNodes := map[int64]bool{}
			node := start
			for _, id := range rootEdges {
				bannedNodes[node] = true
				node = id.V
			}

			spurRes, err := p.search(spurNode, goal, prof, bannedNodes, bannedEdges)
			if err != nil {
				if errors.Is(err, ErrNoPath) {
					continue
				}
				continue
			}

			total := &searchResult{
				edges: append(append([]graph.EdgeID{}, rootEdges...), spurRes.edges...),
				cost:  pathCost(p, rootEdges, prof) + spurRes.cost,
			}
			if containsPath(shortest, total) || containsPath(candidates, total) {
				continue
			}
			candidates = append(candidates, total)
		}

		if len(candidates) == 0 {
			break
		}
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].cost < candidates[j].cost })
		next := candidates[0]
		candidates = candidates[1:]
		shortest = append(shortest, next)

		if distinctFrom(next, best) && distinctFromAll(next, accepted) {
			accepted = append(accepted, next)
		}
	}
	return accepted
}

func pathCost(p *Planner, edges []graph.EdgeID, prof Profile) float64 {
	total := 0.0
	for _, id := range edges {
		if e, ok := p.store.Edge(id); ok {
			if c, passable := edgeCost(&e, prof); passable {
				total += c
			}
		}
	}
	return total
}

func sameEdges(a, b []graph.EdgeID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func containsPath(paths []*searchResult, candidate *searchResult) bool {
	for _, path := range paths {
		if sameEdges(path.edges, candidate.edges) {
			return true
		}
	}
	return false
}

func distinctFromAll(candidate *searchResult, accepted []*searchResult) bool {
	for _, a := range accepted {
		if !distinctFrom(candidate, a) {
			return false
		}
	}
	return true
}

func distinctFrom(a, b *searchResult) bool {
	return edgeSetJaccard(a.edges, b.edges) < jaccardDedupThreshold
}

func edgeSetJaccard(a, b []graph.EdgeID) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	set := make(map[graph.EdgeID]bool, len(a))
	for _, id := range a {
		set[id] = true
	}
	intersection := 0
	union := len(set)
	seen := make(map[graph.EdgeID]bool, len(b))
	for _, id := range b {
		if seen[id] {
			continue
		}
		seen[id] = true
		if set[id] {
			intersection++
		} else {
			union++
		}
	}
	return float64(intersection) / float64(union)
}
