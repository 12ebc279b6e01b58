package raster

import (
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/geo"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/graph"
	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/logging"
)

// minDepthM is the noise floor: sampled depths at or below it read as dry.
const minDepthM = 0.01

// Config fixes the manual geo-alignment of the raster bundle.
type Config struct {
	Dir             string
	CenterLat       float64
	CenterLon       float64
	BaseCoverageDeg float64
	CacheSize       int
	LoadTimeout     time.Duration
}

// Service loads, caches and samples flood-depth grids. Files live at
// {dir}/{return_period}/{return_period}-{time_step}.tif.
type Service struct {
	cfg    Config
	cache  *gridCache
	logger logging.Logger
}

// NewService creates a raster service over the given bundle directory.
func NewService(cfg Config, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if cfg.CacheSize < 32 {
		cfg.CacheSize = 32
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = 5 * time.Second
	}
	return &Service{
		cfg:    cfg,
		cache:  newGridCache(cfg.CacheSize),
		logger: logger.With(logging.Component("raster")),
	}
}

// bounds describes the geographic extent of a grid under manual alignment.
type bounds struct {
	minLat, maxLat float64
	minLon, maxLon float64
}

// boundsFor derives the extent from the grid shape and the fixed coverage.
// Wide grids spend the base coverage east-west; tall grids stretch it 1.5x
// north-south.
func (s *Service) boundsFor(g *Grid) bounds {
	aspect := float64(g.Width) / float64(g.Height)
	var covW, covH float64
	if aspect > 1 {
		covW = s.cfg.BaseCoverageDeg
		covH = s.cfg.BaseCoverageDeg / aspect
	} else {
		covH = s.cfg.BaseCoverageDeg * 1.5
		covW = covH * aspect
	}
	return bounds{
		minLat: s.cfg.CenterLat - covH/2,
		maxLat: s.cfg.CenterLat + covH/2,
		minLon: s.cfg.CenterLon - covW/2,
		maxLon: s.cfg.CenterLon + covW/2,
	}
}

// pixelAt maps a coordinate to (row, col), or ok=false when outside bounds.
// The row axis is inverted: row 0 is the northern edge.
func pixelAt(b bounds, g *Grid, c geo.Coord) (row, col int, ok bool) {
	if c.Lat < b.minLat || c.Lat > b.maxLat || c.Lon < b.minLon || c.Lon > b.maxLon {
		return 0, 0, false
	}
	col = int(math.Floor((c.Lon - b.minLon) / (b.maxLon - b.minLon) * float64(g.Width)))
	row = int(math.Floor((1 - (c.Lat-b.minLat)/(b.maxLat-b.minLat)) * float64(g.Height)))
	if col >= g.Width {
		col = g.Width - 1
	}
	if row >= g.Height {
		row = g.Height - 1
	}
	if row < 0 || col < 0 {
		return 0, 0, false
	}
	return row, col, true
}

// latLonOfPixel returns the center coordinate of a pixel.
func latLonOfPixel(b bounds, g *Grid, row, col int) geo.Coord {
	fLon := (float64(col) + 0.5) / float64(g.Width)
	fLat := 1 - (float64(row)+0.5)/float64(g.Height)
	return geo.Coord{
		Lat: b.minLat + fLat*(b.maxLat-b.minLat),
		Lon: b.minLon + fLon*(b.maxLon-b.minLon),
	}
}

// grid returns the decoded grid for a scenario, consulting the cache first.
// Loads are bounded by the configured deadline.
func (s *Service) grid(sc Scenario) (*Grid, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	if g := s.cache.Get(sc); g != nil {
		return g, nil
	}

	path := filepath.Join(s.cfg.Dir, string(sc.ReturnPeriod),
		fmt.Sprintf("%s-%d.tif", sc.ReturnPeriod, sc.TimeStep))

	type result struct {
		grid *Grid
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		g, err := ReadGridFile(path)
		ch <- result{g, err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		s.cache.Put(sc, res.grid)
		s.logger.Debug("raster loaded",
			logging.Scenario(string(sc.ReturnPeriod), sc.TimeStep),
			logging.Int("width", res.grid.Width),
			logging.Int("height", res.grid.Height))
		return res.grid, nil
	case <-time.After(s.cfg.LoadTimeout):
		return nil, fmt.Errorf("%w: %s after %v", ErrLoadTimeout, sc, s.cfg.LoadTimeout)
	}
}

// DepthAt samples the flood depth in meters at a coordinate. ok=false means
// the point lies outside the grid bounds or the cell is dry.
func (s *Service) DepthAt(c geo.Coord, sc Scenario) (depth float64, ok bool, err error) {
	g, err := s.grid(sc)
	if err != nil {
		return 0, false, err
	}
	b := s.boundsFor(g)
	row, col, inside := pixelAt(b, g, c)
	if !inside {
		return 0, false, nil
	}
	d := float64(g.At(row, col))
	if d <= minDepthM {
		return 0, false, nil
	}
	return d, true, nil
}

// DepthsForEdges bulk-samples the depth at every edge midpoint. Dry or
// out-of-bounds edges are absent from the result.
func (s *Service) DepthsForEdges(edges []graph.Edge, sc Scenario) (map[graph.EdgeID]float64, error) {
	g, err := s.grid(sc)
	if err != nil {
		return nil, err
	}
	b := s.boundsFor(g)

	depths := make(map[graph.EdgeID]float64)
	for _, e := range edges {
		row, col, inside := pixelAt(b, g, e.Midpoint)
		if !inside {
			continue
		}
		d := float64(g.At(row, col))
		if d > minDepthM {
			depths[e.ID] = d
		}
	}
	return depths, nil
}

// CacheStats exposes cache hit/miss counters and current size.
func (s *Service) CacheStats() (hits, misses uint64, size int) {
	hits, misses = s.cache.Stats()
	return hits, misses, s.cache.Len()
}
