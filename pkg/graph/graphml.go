package graph

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/geo"
)

// GraphML as written by the network export tooling: a <key> table mapping data
// ids to attribute names, then nodes carrying lat/lon and edges carrying
// length_m and road_class. Both the "y"/"x" and "lat"/"lon" attribute naming
// conventions are accepted.
type graphmlDoc struct {
	XMLName xml.Name     `xml:"graphml"`
	Keys    []graphmlKey `xml:"key"`
	Graph   struct {
		Nodes []graphmlNode `xml:"node"`
		Edges []graphmlEdge `xml:"edge"`
	} `xml:"graph"`
}

type graphmlKey struct {
	ID   string `xml:"id,attr"`
	For  string `xml:"for,attr"`
	Name string `xml:"attr.name,attr"`
}

type graphmlData struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

type graphmlNode struct {
	ID   string        `xml:"id,attr"`
	Data []graphmlData `xml:"data"`
}

type graphmlEdge struct {
	Source string        `xml:"source,attr"`
	Target string        `xml:"target,attr"`
	Data   []graphmlData `xml:"data"`
}

// LoadGraphMLFile parses a GraphML road network and loads it into the store.
func (s *Store) LoadGraphMLFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open graph %s: %w", path, err)
	}
	defer f.Close()
	return s.LoadGraphML(f)
}

// LoadGraphML parses GraphML from r and loads it into the store.
func (s *Store) LoadGraphML(r io.Reader) error {
	nodes, edges, err := ParseGraphML(r)
	if err != nil {
		return err
	}
	return s.Load(nodes, edges)
}

// ParseGraphML decodes a GraphML document into nodes and edges. Parallel edges
// without an explicit key attribute are numbered in document order.
func ParseGraphML(r io.Reader) ([]Node, []Edge, error) {
	var doc graphmlDoc
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("decode graphml: %w", err)
	}

	// Resolve data ids to attribute names per element kind.
	nodeAttr := make(map[string]string)
	edgeAttr := make(map[string]string)
	for _, k := range doc.Keys {
		switch k.For {
		case "node":
			nodeAttr[k.ID] = k.Name
		case "edge":
			edgeAttr[k.ID] = k.Name
		default:
			nodeAttr[k.ID] = k.Name
			edgeAttr[k.ID] = k.Name
		}
	}

	nodes := make([]Node, 0, len(doc.Graph.Nodes))
	for _, n := range doc.Graph.Nodes {
		id, err := strconv.ParseInt(n.ID, 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("node id %q: %w", n.ID, err)
		}
		var lat, lon float64
		var haveLat, haveLon bool
		for _, d := range n.Data {
			switch nodeAttr[d.Key] {
			case "y", "lat":
				lat, err = strconv.ParseFloat(d.Value, 64)
				haveLat = err == nil
			case "x", "lon":
				lon, err = strconv.ParseFloat(d.Value, 64)
				haveLon = err == nil
			}
		}
		if !haveLat || !haveLon {
			return nil, nil, fmt.Errorf("node %d: missing lat/lon", id)
		}
		nodes = append(nodes, Node{ID: id, Coord: geo.Coord{Lat: lat, Lon: lon}})
	}

	seen := make(map[[2]int64]int)
	edges := make([]Edge, 0, len(doc.Graph.Edges))
	for _, raw := range doc.Graph.Edges {
		u, err := strconv.ParseInt(raw.Source, 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("edge source %q: %w", raw.Source, err)
		}
		v, err := strconv.ParseInt(raw.Target, 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("edge target %q: %w", raw.Target, err)
		}

		e := Edge{ID: EdgeID{U: u, V: v, Key: -1}, Class: ClassUnclassified}
		for _, d := range raw.Data {
			switch edgeAttr[d.Key] {
			case "length", "length_m":
				e.LengthM, _ = strconv.ParseFloat(d.Value, 64)
			case "highway", "road_class":
				e.Class = ParseRoadClass(d.Value)
			case "name":
				e.Name = d.Value
			case "key":
				if k, err := strconv.Atoi(d.Value); err == nil {
					e.ID.Key = k
				}
			}
		}
		if e.ID.Key < 0 {
			pair := [2]int64{u, v}
			e.ID.Key = seen[pair]
			seen[pair]++
		}
		if e.LengthM <= 0 {
			return nil, nil, fmt.Errorf("edge %s: %w", e.ID.String(), ErrMissingLength)
		}
		edges = append(edges, e)
	}

	return nodes, edges, nil
}
