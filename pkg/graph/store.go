// Package graph owns the mutable road network: a read-mostly node/edge arena,
// a grid spatial index over edge midpoints, and thread-safe risk updates.
//
// A single readers-writer lock protects all mutation. The fusion engine is the
// only writer; it must use BatchUpdateEdgeRisks when touching more than one
// edge so a tick commits as one exclusive section.
package graph

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/geo"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/logging"
)

// ErrLockTimeout is returned when the write lock cannot be acquired within the
// caller's deadline. Fatal for the tick that hits it.
var ErrLockTimeout = errors.New("graph write lock acquisition timed out")

type cell struct {
	X int // floor(lon / grid)
	Y int // floor(lat / grid)
}

// Store is the in-memory road graph.
type Store struct {
	mu sync.RWMutex

	nodes    map[int64]*Node
	edges    map[EdgeID]*Edge
	outgoing map[int64][]EdgeID

	// Spatial index over edge midpoints. Built once at load (I4).
	gridDeg float64
	index   map[cell][]EdgeID

	loaded bool
	logger logging.Logger
}

// NewStore creates an empty store with the given spatial grid size in degrees.
func NewStore(gridDeg float64, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if gridDeg <= 0 {
		gridDeg = 0.01
	}
	return &Store{
		nodes:    make(map[int64]*Node),
		edges:    make(map[EdgeID]*Edge),
		outgoing: make(map[int64][]EdgeID),
		gridDeg:  gridDeg,
		index:    make(map[cell][]EdgeID),
		logger:   logger.With(logging.Component("graph")),
	}
}

// Load replaces the graph contents with the given nodes and edges, resets
// every risk score to zero, and rebuilds the spatial index. Edges with a
// non-positive length or an endpoint that is not in nodes are fatal.
func (s *Store) Load(nodes []Node, edges []Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	newNodes := make(map[int64]*Node, len(nodes))
	for i := range nodes {
		n := nodes[i]
		if err := n.Coord.Validate(); err != nil {
			return opError("Load", "node", n.Coord.String(), ErrInvalidCoordinate)
		}
		newNodes[n.ID] = &n
	}

	newEdges := make(map[EdgeID]*Edge, len(edges))
	newOutgoing := make(map[int64][]EdgeID, len(nodes))
	newIndex := make(map[cell][]EdgeID)

	for i := range edges {
		e := edges[i]
		if e.LengthM <= 0 {
			return opError("Load", "edge", e.ID.String(), ErrMissingLength)
		}
		u, okU := newNodes[e.ID.U]
		v, okV := newNodes[e.ID.V]
		if !okU || !okV {
			return opError("Load", "edge", e.ID.String(), ErrMissingEndpoint)
		}

		e.RiskScore = 0
		e.LastRiskUpdate = time.Time{}
		e.Weight = e.LengthM
		e.Midpoint = geo.Midpoint(u.Coord, v.Coord)

		newEdges[e.ID] = &e
		newOutgoing[e.ID.U] = append(newOutgoing[e.ID.U], e.ID)

		c := s.cellFor(e.Midpoint)
		newIndex[c] = append(newIndex[c], e.ID)
	}

	s.nodes = newNodes
	s.edges = newEdges
	s.outgoing = newOutgoing
	s.index = newIndex
	s.loaded = true

	s.logger.Info("graph loaded",
		logging.Int("nodes", len(newNodes)),
		logging.Int("edges", len(newEdges)),
		logging.Int("index_cells", len(newIndex)))
	return nil
}

// Loaded reports whether a graph has been loaded.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// NodeCount returns the number of nodes.
func (s *Store) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// EdgeCount returns the number of edges.
func (s *Store) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges)
}

// Node returns a copy of the node with the given id.
func (s *Store) Node(id int64) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Edge returns a copy of the edge with the given id.
func (s *Store) Edge(id EdgeID) (Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.edges[id]
	if !ok {
		return Edge{}, false
	}
	return *e, true
}

// OutgoingEdges returns copies of every edge leaving the given node.
func (s *Store) OutgoingEdges(nodeID int64) []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.outgoing[nodeID]
	out := make([]Edge, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.edges[id])
	}
	return out
}

// EdgesSnapshot returns a copy of every edge. Used by the fusion engine to
// sample raster depths per midpoint.
func (s *Store) EdgesSnapshot() []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Edge, 0, len(s.edges))
	for _, e := range s.edges {
		out = append(out, *e)
	}
	return out
}

// RiskyEdges returns copies of every edge whose risk score is above zero.
func (s *Store) RiskyEdges() []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Edge, 0)
	for _, e := range s.edges {
		if e.RiskScore > 0 {
			out = append(out, *e)
		}
	}
	return out
}

// UpdateEdgeRisk clamps risk to [0,1] and writes it under the exclusive lock,
// recomputing the derived weight. Unknown edges return ErrEdgeNotFound.
func (s *Store) UpdateEdgeRisk(id EdgeID, risk float64, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyRisk(id, risk, ts)
}

// BatchUpdateEdgeRisks applies many risk updates under a single lock
// acquisition. The lock is acquired with the given deadline; exceeding it is
// fatal for the tick (ErrLockTimeout). Unknown edges are logged and skipped.
// Returns the number of edges actually updated.
func (s *Store) BatchUpdateEdgeRisks(updates []RiskUpdate, ts time.Time, lockTimeout time.Duration) (int, error) {
	if !s.lockWithin(lockTimeout) {
		return 0, ErrLockTimeout
	}
	defer s.mu.Unlock()

	applied := 0
	for _, u := range updates {
		if u.Clear {
			e, ok := s.edges[u.ID]
			if !ok {
				s.logger.Warn("skipping risk clear for unknown edge",
					logging.String("edge", u.ID.String()))
				continue
			}
			e.RiskScore = 0
			e.LastRiskUpdate = time.Time{}
			e.Weight = e.LengthM
			applied++
			continue
		}
		if err := s.applyRisk(u.ID, u.Risk, ts); err != nil {
			s.logger.Warn("skipping risk update for unknown edge",
				logging.String("edge", u.ID.String()))
			continue
		}
		applied++
	}
	return applied, nil
}

// ClearRisk zeroes an edge's risk and clears its last-update timestamp. Used
// when decay takes a score below the minimum risk floor.
func (s *Store) ClearRisk(id EdgeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.edges[id]
	if !ok {
		return opError("ClearRisk", "edge", id.String(), ErrEdgeNotFound)
	}
	e.RiskScore = 0
	e.LastRiskUpdate = time.Time{}
	e.Weight = e.LengthM
	return nil
}

// ResetRisk restores risk_score=0 across the whole graph.
func (s *Store) ResetRisk() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.edges {
		e.RiskScore = 0
		e.LastRiskUpdate = time.Time{}
		e.Weight = e.LengthM
	}
}

// SnapshotRisk returns an atomic copy of every edge's risk score.
func (s *Store) SnapshotRisk() map[EdgeID]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := make(map[EdgeID]float64, len(s.edges))
	for id, e := range s.edges {
		snap[id] = e.RiskScore
	}
	return snap
}

// AverageRisk returns the mean risk score across all edges.
func (s *Store) AverageRisk() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.edges) == 0 {
		return 0
	}
	sum := 0.0
	for _, e := range s.edges {
		sum += e.RiskScore
	}
	return sum / float64(len(s.edges))
}

// applyRisk mutates one edge. Caller holds the write lock.
func (s *Store) applyRisk(id EdgeID, risk float64, ts time.Time) error {
	e, ok := s.edges[id]
	if !ok {
		return opError("UpdateEdgeRisk", "edge", id.String(), ErrEdgeNotFound)
	}
	e.RiskScore = clamp01(risk)
	e.LastRiskUpdate = ts
	e.Weight = e.LengthM * (1 + e.RiskScore)
	return nil
}

// lockWithin tries to take the write lock within d. Polls TryLock so a stuck
// reader surfaces as ErrLockTimeout instead of a wedged tick.
func (s *Store) lockWithin(d time.Duration) bool {
	if d <= 0 {
		s.mu.Lock()
		return true
	}
	deadline := time.Now().Add(d)
	for {
		if s.mu.TryLock() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
