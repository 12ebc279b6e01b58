package fusion

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestDepthToRiskCurve(t *testing.T) {
	cases := []struct {
		depth float64
		want  float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.1, 0.1},
		{0.3, 0.3},
		{0.45, 0.45},
		{0.6, 0.6},
		{0.8, 0.7},
		{1.0, 0.8},
		{1.5, 0.9},
		{2.0, 1.0},
		{5.0, 1.0},
	}
	for _, tc := range cases {
		if got := DepthToRisk(tc.depth); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("DepthToRisk(%v) = %v, want %v", tc.depth, got, tc.want)
		}
	}
}

func TestDepthToRiskMonotone(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200

	props := gopter.NewProperties(params)
	props.Property("deeper water never scores lower", prop.ForAll(
		func(a, b float64) bool {
			lo, hi := math.Min(a, b), math.Max(a, b)
			return DepthToRisk(lo) <= DepthToRisk(hi)+1e-12
		},
		gen.Float64Range(0, 5),
		gen.Float64Range(0, 5),
	))
	props.TestingRun(t)
}

func TestRiverStatusThresholds(t *testing.T) {
	mk := func(level, alert, alarm, critical float64) *HazardReading {
		return &HazardReading{
			RiverLevelM:    &level,
			AlertLevelM:    &alert,
			AlarmLevelM:    &alarm,
			CriticalLevelM: &critical,
		}
	}
	cases := []struct {
		reading *HazardReading
		want    RiverStatus
	}{
		{&HazardReading{}, RiverNormal},
		{mk(10.0, 14, 15, 16), RiverNormal},
		{mk(14.0, 14, 15, 16), RiverAlert},
		{mk(15.5, 14, 15, 16), RiverAlarm},
		{mk(16.0, 14, 15, 16), RiverCritical},
		{mk(20.0, 14, 15, 16), RiverCritical},
	}
	for _, tc := range cases {
		if got := tc.reading.RiverStatus(); got != tc.want {
			t.Errorf("RiverStatus() = %s, want %s", got, tc.want)
		}
	}
}

func TestDamRiskBands(t *testing.T) {
	cases := []struct {
		deviation float64
		want      float64
	}{
		{-1.0, 0.1},
		{0, 0.3},
		{0.4, 0.3},
		{0.5, 0.5},
		{1.0, 0.8},
		{2.0, 1.0},
		{3.5, 1.0},
	}
	for _, tc := range cases {
		if got := DamRisk(tc.deviation); got != tc.want {
			t.Errorf("DamRisk(%v) = %v, want %v", tc.deviation, got, tc.want)
		}
	}
}

func TestRainClassification(t *testing.T) {
	cases := []struct {
		mm   float64
		want RainIntensity
	}{
		{0, RainNone},
		{1, RainLight},
		{2.5, RainLight},
		{5, RainModerate},
		{10, RainHeavy},
		{20, RainIntense},
		{45, RainTorrential},
	}
	for _, tc := range cases {
		if got := ClassifyRain(tc.mm); got != tc.want {
			t.Errorf("ClassifyRain(%v) = %s, want %s", tc.mm, got, tc.want)
		}
	}
	if got := RainSeverity(45); math.Abs(got-0.6) > 1e-9 {
		t.Errorf("RainSeverity(torrential) = %v, want 0.6", got)
	}
}

func TestClassifyReadingTakesMax(t *testing.T) {
	level, alert := 15.0, 14.0
	depth := 0.2
	dam := 1.2
	r := &HazardReading{
		Rainfall1hMM:  5, // moderate, 0.24
		RiverLevelM:   &level,
		AlertLevelM:   &alert, // alert, 0.5
		FloodDepthM:   &depth, // 0.2
		DamDeviationM: &dam,   // 0.8
	}
	if got := ClassifyReading(r); got != 0.8 {
		t.Errorf("ClassifyReading = %v, want dam-driven 0.8", got)
	}
}

func TestScoutDecayRatePrecedence(t *testing.T) {
	eng := NewEngine(DefaultConfig(), nil, nil, nil)
	fast, slow := eng.cfg.KScoutFast, eng.cfg.KScoutSlow
	mean := (fast + slow) / 2

	cases := []struct {
		kind     ReportKind
		elevated bool
		want     float64
	}{
		{KindRainReport, true, fast},
		{KindRainReport, false, fast},
		{KindFlood, false, fast},
		{KindFlood, true, slow},
		{KindBlockage, true, slow},
		{KindClear, true, mean},
	}
	for _, tc := range cases {
		r := &ScoutReport{Kind: tc.kind}
		if got := eng.scoutDecayRate(r, tc.elevated); got != tc.want {
			t.Errorf("scoutDecayRate(%s, elevated=%v) = %v, want %v",
				tc.kind, tc.elevated, got, tc.want)
		}
	}
}

func TestDecayClosedForm(t *testing.T) {
	got := Decay(1.0, 0.10, 10)
	want := math.Exp(-1)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Decay(1, 0.1, 10) = %v, want %v", got, want)
	}
	if got := Decay(0.5, 0.05, 0); got != 0.5 {
		t.Errorf("zero age should not decay, got %v", got)
	}
	if got := Decay(0.5, 0.05, -3); got != 0.5 {
		t.Errorf("negative age should not decay, got %v", got)
	}
}
