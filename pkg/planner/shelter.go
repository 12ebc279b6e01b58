package planner

import (
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/geo"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/logging"
)

// Shelter is one evacuation target.
type Shelter struct {
	Name     string    `json:"name"`
	Coord    geo.Coord `json:"coord"`
	Capacity int       `json:"capacity"`
	Kind     string    `json:"kind"`
	Address  string    `json:"address"`
}

// LoadShelters reads a shelter roster CSV with the header
// "name, lat, lon, capacity, kind, address". Rows that fail to parse or carry
// out-of-range coordinates are skipped with a warning.
func LoadShelters(path string, logger logging.Logger) ([]Shelter, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, opError("LoadShelters", path, err)
	}
	defer f.Close()
	return ParseShelters(f, logger)
}

// ParseShelters parses the roster CSV from a reader.
func ParseShelters(r io.Reader, logger logging.Logger) ([]Shelter, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, opError("ParseShelters", "", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	shelters := make([]Shelter, 0, len(records)-1)
	for i, rec := range records[1:] { // skip header
		s, ok := parseShelterRow(rec)
		if !ok {
			logger.Warn("skipping malformed shelter row", logging.Int("row", i+2))
			continue
		}
		if !s.Coord.Valid() {
			logger.Warn("skipping shelter with out-of-range coordinates",
				logging.String("name", s.Name))
			continue
		}
		shelters = append(shelters, s)
	}
	return shelters, nil
}

func parseShelterRow(rec []string) (Shelter, bool) {
	if len(rec) < 4 || rec[0] == "" {
		return Shelter{}, false
	}
	lat, err := strconv.ParseFloat(rec[1], 64)
	if err != nil {
		return Shelter{}, false
	}
	lon, err := strconv.ParseFloat(rec[2], 64)
	if err != nil {
		return Shelter{}, false
	}
	capacity, err := strconv.Atoi(rec[3])
	if err != nil || capacity < 0 {
		return Shelter{}, false
	}
	s := Shelter{
		Name:     rec[0],
		Coord:    geo.Coord{Lat: lat, Lon: lon},
		Capacity: capacity,
	}
	if len(rec) > 4 {
		s.Kind = rec[4]
	}
	if len(rec) > 5 {
		s.Address = rec[5]
	}
	return s, true
}

// Evacuation is the outcome of a shelter selection.
type Evacuation struct {
	Shelter Shelter
	Route   *Route

	// Considered is how many candidates were routed before choosing.
	Considered int
}

// Evacuate routes from the distress point to the nearest shelter candidates
// and picks the safest: lowest average risk, then shortest distance, then
// largest capacity. Unreachable candidates are skipped.
func (p *Planner) Evacuate(start geo.Coord, shelters []Shelter, prefs Preferences) (*Evacuation, error) {
	if len(shelters) == 0 {
		return nil, opError("Evacuate", "", ErrNoShelterReachable)
	}

	byDistance := make([]Shelter, len(shelters))
	copy(byDistance, shelters)
	sort.Slice(byDistance, func(i, j int) bool {
		return geo.Haversine(start, byDistance[i].Coord) < geo.Haversine(start, byDistance[j].Coord)
	})
	if len(byDistance) > p.shelterCandidates {
		byDistance = byDistance[:p.shelterCandidates]
	}

	var (
		bestShelter Shelter
		bestRoute   *Route
		considered  int
	)
	for _, s := range byDistance {
		route, err := p.Route(start, s.Coord, prefs)
		if err != nil {
			p.logger.Debug("shelter candidate unreachable",
				logging.String("shelter", s.Name), logging.Error(err))
			continue
		}
		considered++
		if bestRoute == nil || betterEvacuation(route, s, bestRoute, bestShelter) {
			bestRoute = route
			bestShelter = s
		}
	}
	if bestRoute == nil {
		return nil, opError("Evacuate", "", ErrNoShelterReachable)
	}

	p.logger.Info("evacuation target selected",
		logging.String("shelter", bestShelter.Name),
		logging.Float64("distance_m", bestRoute.DistanceM),
		logging.Risk(bestRoute.AvgRisk))
	return &Evacuation{Shelter: bestShelter, Route: bestRoute, Considered: considered}, nil
}

func betterEvacuation(route *Route, s Shelter, bestRoute *Route, best Shelter) bool {
	if route.AvgRisk != bestRoute.AvgRisk {
		return route.AvgRisk < bestRoute.AvgRisk
	}
	if route.DistanceM != bestRoute.DistanceM {
		return route.DistanceM < bestRoute.DistanceM
	}
	return s.Capacity > best.Capacity
}
