// Package raster serves precomputed flood-depth grids. Alignment is manual:
// grid files carry no CRS, only depths; the geographic bounds come from a
// fixed center/coverage configuration.
package raster

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrNotFound        = errors.New("raster not found")
	ErrDecodeFailed    = errors.New("raster decode failed")
	ErrInvalidScenario = errors.New("invalid scenario")
	ErrLoadTimeout     = errors.New("raster load timed out")
)

// ReturnPeriod is a flood recurrence category.
type ReturnPeriod string

const (
	RR01 ReturnPeriod = "rr01"
	RR02 ReturnPeriod = "rr02"
	RR03 ReturnPeriod = "rr03"
	RR04 ReturnPeriod = "rr04"
)

// MaxTimeStep is the number of hourly steps per return period.
const MaxTimeStep = 18

// Valid reports whether rp is a known return period.
func (rp ReturnPeriod) Valid() bool {
	switch rp {
	case RR01, RR02, RR03, RR04:
		return true
	}
	return false
}

// Scenario identifies one depth grid.
type Scenario struct {
	ReturnPeriod ReturnPeriod `json:"return_period"`
	TimeStep     int          `json:"time_step"`
}

// Validate checks the scenario against the shipped raster bundle shape.
func (s Scenario) Validate() error {
	if !s.ReturnPeriod.Valid() {
		return fmt.Errorf("%w: return period %q", ErrInvalidScenario, s.ReturnPeriod)
	}
	if s.TimeStep < 1 || s.TimeStep > MaxTimeStep {
		return fmt.Errorf("%w: time step %d", ErrInvalidScenario, s.TimeStep)
	}
	return nil
}

// String renders the scenario as "rr02/10".
func (s Scenario) String() string {
	return fmt.Sprintf("%s/%d", s.ReturnPeriod, s.TimeStep)
}

// Grid is one decoded depth raster: row-major float32 depths in meters,
// row 0 at the northern edge.
type Grid struct {
	Width  int
	Height int
	Depths []float32
}

// At returns the depth at (row, col) without bounds checking helpers applied.
func (g *Grid) At(row, col int) float32 {
	return g.Depths[row*g.Width+col]
}
