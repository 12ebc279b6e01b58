package planner

// Profile fixes the virtual-meters cost model: edge cost is
// L*DistanceWeight + L*risk*RiskWeight, with edges at or above
// MaxRiskThreshold treated as impassable.
type Profile struct {
	Name             string
	DistanceWeight   float64
	RiskWeight       float64
	MaxRiskThreshold float64
}

// Built-in profiles. Balanced is the default.
var (
	ProfileFastest = Profile{
		Name:             "fastest",
		DistanceWeight:   1.0,
		RiskWeight:       0.0,
		MaxRiskThreshold: 1.0,
	}
	ProfileBalanced = Profile{
		Name:             "balanced",
		DistanceWeight:   1.0,
		RiskWeight:       2000.0,
		MaxRiskThreshold: 0.9,
	}
	ProfileSafest = Profile{
		Name:             "safest",
		DistanceWeight:   1.0,
		RiskWeight:       100000.0,
		MaxRiskThreshold: 0.7,
	}
)

// ProfileByName resolves a profile name, falling back to balanced.
func ProfileByName(name string) Profile {
	switch name {
	case "fastest":
		return ProfileFastest
	case "safest":
		return ProfileSafest
	default:
		return ProfileBalanced
	}
}

// Preferences are the per-request knobs. Nil fields keep the profile value.
type Preferences struct {
	Profile          string   `json:"profile"`
	AvoidFloods      *bool    `json:"avoid_floods"`
	DistanceWeight   *float64 `json:"distance_weight"`
	RiskWeight       *float64 `json:"risk_weight"`
	MaxRiskThreshold *float64 `json:"max_risk_threshold"`
	Alternatives     int      `json:"alternatives"`
}

// Resolve merges the preferences over the named profile.
func (p Preferences) Resolve() Profile {
	return p.apply(ProfileByName(p.Profile))
}

// apply merges the preferences over prof. Disabling flood avoidance zeroes
// the risk penalty and lifts the impassability threshold.
func (p Preferences) apply(prof Profile) Profile {
	if p.AvoidFloods != nil && !*p.AvoidFloods {
		prof.RiskWeight = 0
		prof.MaxRiskThreshold = 1.0
	}
	if p.DistanceWeight != nil {
		prof.DistanceWeight = *p.DistanceWeight
	}
	if p.RiskWeight != nil {
		prof.RiskWeight = *p.RiskWeight
	}
	if p.MaxRiskThreshold != nil {
		prof.MaxRiskThreshold = *p.MaxRiskThreshold
	}
	return prof
}
