package fusion

import (
	"math"
	"time"
)

// Decay applies exponential time decay: v * exp(-k * ageMinutes).
func Decay(v, kPerMin, ageMinutes float64) float64 {
	if ageMinutes <= 0 {
		return v
	}
	return v * math.Exp(-kPerMin*ageMinutes)
}

// ageMinutes returns the age of ts at now in minutes, never negative. Naive
// timestamps are assumed UTC upstream.
func ageMinutes(now, ts time.Time) float64 {
	age := now.Sub(ts).Minutes()
	if age < 0 {
		return 0
	}
	return age
}

// scoutDecayRate picks the adaptive decay rate for a report. Rain reports and
// quiet river conditions fade fast; flood/blockage reports while a river is at
// or above alert fade slowly; anything else takes the mean of the two.
func (e *Engine) scoutDecayRate(r *ScoutReport, riverElevated bool) float64 {
	fast, slow := e.cfg.KScoutFast, e.cfg.KScoutSlow

	if r.Kind == KindRainReport || !riverElevated {
		return fast
	}
	if r.Kind == KindFlood || r.Kind == KindBlockage {
		return slow
	}
	return (fast + slow) / 2
}
