package graph

import (
	"math"
	"sort"

	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/geo"
)

func (s *Store) cellFor(c geo.Coord) cell {
	return cell{
		X: int(math.Floor(c.Lon / s.gridDeg)),
		Y: int(math.Floor(c.Lat / s.gridDeg)),
	}
}

// EdgesWithinRadius returns every edge whose midpoint lies within radiusM
// meters of the given point, sorted by distance. Out-of-range coordinates
// fail with ErrInvalidCoordinate; an unloaded graph yields an empty result.
func (s *Store) EdgesWithinRadius(center geo.Coord, radiusM float64) ([]EdgeHit, error) {
	if err := center.Validate(); err != nil {
		return nil, opError("EdgesWithinRadius", "index", center.String(), ErrInvalidCoordinate)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded || radiusM <= 0 {
		return nil, nil
	}

	dLat, dLon := geo.DegreeDeltas(center.Lat, radiusM)
	spanX := int(math.Ceil(dLon / s.gridDeg))
	spanY := int(math.Ceil(dLat / s.gridDeg))
	origin := s.cellFor(center)

	var hits []EdgeHit
	for dx := -spanX; dx <= spanX; dx++ {
		for dy := -spanY; dy <= spanY; dy++ {
			c := cell{X: origin.X + dx, Y: origin.Y + dy}
			for _, id := range s.index[c] {
				e := s.edges[id]
				d := geo.Haversine(center, e.Midpoint)
				if d <= radiusM {
					hits = append(hits, EdgeHit{ID: id, DistanceM: d})
				}
			}
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].DistanceM < hits[j].DistanceM })
	return hits, nil
}

// NearestNode snaps a coordinate to the closest graph node within maxSnapM.
// Returns the node and its distance, or ErrNodeNotFound when nothing
// qualifies.
func (s *Store) NearestNode(c geo.Coord, maxSnapM float64) (Node, float64, error) {
	if err := c.Validate(); err != nil {
		return Node{}, 0, opError("NearestNode", "node", c.String(), ErrInvalidCoordinate)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		return Node{}, 0, opError("NearestNode", "node", "", ErrGraphNotLoaded)
	}

	best := Node{}
	bestDist := math.Inf(1)
	for _, n := range s.nodes {
		d := geo.Haversine(c, n.Coord)
		if d < bestDist {
			best = *n
			bestDist = d
		}
	}
	if math.IsInf(bestDist, 1) || bestDist > maxSnapM {
		return Node{}, 0, opError("NearestNode", "node", c.String(), ErrNodeNotFound)
	}
	return best, bestDist, nil
}
