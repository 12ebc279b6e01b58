// Package fusion combines official hazard telemetry, crowdsourced scout
// reports and precomputed flood-depth rasters into per-edge risk scores, and
// commits them to the road graph once per tick.
package fusion

import (
	"time"

	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/geo"
)

// Fusion weights: each source's share of the combined risk.
const (
	RasterWeight   = 0.5             // precomputed depth grids
	CrowdWeight    = 0.3             // geocoded scout reports
	OfficialWeight = 0.2             // system-wide official telemetry
	AmbientWeight  = CrowdWeight / 2 // ungeocoded scout reports
)

// RiverStatus is the threshold classification of a river gauge.
type RiverStatus string

const (
	RiverNormal   RiverStatus = "normal"
	RiverAlert    RiverStatus = "alert"
	RiverAlarm    RiverStatus = "alarm"
	RiverCritical RiverStatus = "critical"
)

// ReportKind tags the nature of a scout report.
type ReportKind string

const (
	KindRainReport ReportKind = "rain_report"
	KindFlood      ReportKind = "flood"
	KindBlockage   ReportKind = "blockage"
	KindClear      ReportKind = "clear"
)

// HazardReading is an official per-location measurement set.
type HazardReading struct {
	LocationID    string
	Timestamp     time.Time
	Rainfall1hMM  float64
	Rainfall24hMM float64

	RiverLevelM    *float64
	AlertLevelM    *float64
	AlarmLevelM    *float64
	CriticalLevelM *float64

	// Deviation of the reservoir level from the normal high-water level.
	DamDeviationM *float64

	// Depth reported directly by the station, when present.
	FloodDepthM *float64

	// RiskScore is pre-classified from the thresholds at ingest.
	RiskScore float64
	SourceTag string
}

// RiverStatus classifies the reading's river level against its thresholds.
func (h *HazardReading) RiverStatus() RiverStatus {
	if h.RiverLevelM == nil {
		return RiverNormal
	}
	level := *h.RiverLevelM
	if h.CriticalLevelM != nil && level >= *h.CriticalLevelM {
		return RiverCritical
	}
	if h.AlarmLevelM != nil && level >= *h.AlarmLevelM {
		return RiverAlarm
	}
	if h.AlertLevelM != nil && level >= *h.AlertLevelM {
		return RiverAlert
	}
	return RiverNormal
}

// ScoutReport is a crowdsourced observation, pre-classified upstream.
type ScoutReport struct {
	ReportID     string
	Timestamp    time.Time
	Body         string
	LocationName string
	Coordinates  *geo.Coord
	Severity     float64
	Confidence   float64
	Kind         ReportKind
}

// Geocoded reports propagate spatially; the rest only feed the ambient factor.
func (r *ScoutReport) Geocoded() bool {
	return r.Coordinates != nil && r.Coordinates.Valid()
}

// Trend labels the direction of the average risk between recent commits.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// TickResult summarizes one fusion commit.
type TickResult struct {
	EdgesUpdated     int
	AverageRisk      float64
	Trend            Trend
	ChangeRatePerMin float64
	RasterApplied    bool
}
