package fusion

import "math"

// DepthToRisk converts a flood depth in meters to a risk score via the
// piecewise-linear curve. Monotone non-decreasing, clamped to [0,1].
func DepthToRisk(depthM float64) float64 {
	switch {
	case depthM <= 0:
		return 0
	case depthM <= 0.3:
		return depthM
	case depthM <= 0.6:
		return 0.3 + (depthM - 0.3)
	case depthM <= 1.0:
		return 0.6 + (depthM-0.6)*0.5
	default:
		return math.Min(0.8+(depthM-1.0)*0.2, 1.0)
	}
}

// RiverRisk maps a river status to its risk score.
func RiverRisk(status RiverStatus) float64 {
	switch status {
	case RiverCritical:
		return 1.0
	case RiverAlarm:
		return 0.8
	case RiverAlert:
		return 0.5
	default:
		return 0.2
	}
}

// DamRisk maps a reservoir deviation from normal high-water level to risk.
func DamRisk(deviationM float64) float64 {
	switch {
	case deviationM >= 2.0:
		return 1.0
	case deviationM >= 1.0:
		return 0.8
	case deviationM >= 0.5:
		return 0.5
	case deviationM >= 0:
		return 0.3
	default:
		return 0.1
	}
}

// RainIntensity is the mm/h classification band.
type RainIntensity int

const (
	RainNone RainIntensity = iota
	RainLight
	RainModerate
	RainHeavy
	RainIntense
	RainTorrential
)

// String returns the band name.
func (ri RainIntensity) String() string {
	switch ri {
	case RainLight:
		return "light"
	case RainModerate:
		return "moderate"
	case RainHeavy:
		return "heavy"
	case RainIntense:
		return "intense"
	case RainTorrential:
		return "torrential"
	default:
		return "none"
	}
}

// ClassifyRain buckets an hourly rainfall rate.
func ClassifyRain(mmPerHour float64) RainIntensity {
	switch {
	case mmPerHour <= 0:
		return RainNone
	case mmPerHour <= 2.5:
		return RainLight
	case mmPerHour <= 7.5:
		return RainModerate
	case mmPerHour <= 15:
		return RainHeavy
	case mmPerHour <= 30:
		return RainIntense
	default:
		return RainTorrential
	}
}

// RainSeverity converts rainfall intensity into a severity factor, scaled
// linearly across the bands up to 0.6 at torrential.
func RainSeverity(mmPerHour float64) float64 {
	return float64(ClassifyRain(mmPerHour)) / float64(RainTorrential) * 0.6
}

// ClassifyReading derives a reading's pre-classified risk score: the maximum
// of its river, dam, rainfall and reported-depth classifications.
func ClassifyReading(h *HazardReading) float64 {
	risk := RainSeverity(h.Rainfall1hMM)
	if h.RiverLevelM != nil {
		risk = math.Max(risk, RiverRisk(h.RiverStatus()))
	}
	if h.DamDeviationM != nil {
		risk = math.Max(risk, DamRisk(*h.DamDeviationM))
	}
	if h.FloodDepthM != nil {
		risk = math.Max(risk, DepthToRisk(*h.FloodDepthM))
	}
	return math.Min(risk, 1.0)
}
