package graph

import (
	"fmt"
	"time"

	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/geo"
)

// RoadClass is the OSM-style functional class of a road segment.
type RoadClass string

const (
	ClassMotorway     RoadClass = "motorway"
	ClassTrunk        RoadClass = "trunk"
	ClassPrimary      RoadClass = "primary"
	ClassSecondary    RoadClass = "secondary"
	ClassTertiary     RoadClass = "tertiary"
	ClassResidential  RoadClass = "residential"
	ClassUnclassified RoadClass = "unclassified"
	ClassService      RoadClass = "service"
	ClassFootway      RoadClass = "footway"
	ClassPath         RoadClass = "path"
)

// ParseRoadClass normalizes a raw class string, defaulting to unclassified.
func ParseRoadClass(s string) RoadClass {
	switch RoadClass(s) {
	case ClassMotorway, ClassTrunk, ClassPrimary, ClassSecondary, ClassTertiary,
		ClassResidential, ClassUnclassified, ClassService, ClassFootway, ClassPath:
		return RoadClass(s)
	default:
		return ClassUnclassified
	}
}

// EdgeID identifies a directed edge. Parallel edges between the same node pair
// are distinguished by Key.
type EdgeID struct {
	U   int64
	V   int64
	Key int
}

// String renders the id as "u-v:key".
func (id EdgeID) String() string {
	return fmt.Sprintf("%d-%d:%d", id.U, id.V, id.Key)
}

// Node is a road intersection. Immutable after graph load.
type Node struct {
	ID    int64
	Coord geo.Coord
}

// Edge is a directed road segment. Only RiskScore, Weight and LastRiskUpdate
// mutate after load, and only through the store's update API.
type Edge struct {
	ID             EdgeID
	LengthM        float64
	Class          RoadClass
	Name           string
	RiskScore      float64
	LastRiskUpdate time.Time // zero means never updated
	Weight         float64   // LengthM * (1 + RiskScore)
	Midpoint       geo.Coord
}

// RiskUpdate is one entry of a batch risk commit. Clear zeroes the risk and
// the last-update timestamp; used when decay drops below the risk floor.
type RiskUpdate struct {
	ID    EdgeID
	Risk  float64
	Clear bool
}

// EdgeHit is an edge returned by a radial query, with the distance from the
// query point to the edge midpoint.
type EdgeHit struct {
	ID        EdgeID
	DistanceM float64
}
