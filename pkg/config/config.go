// Package config loads and validates the service configuration.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

// RasterConfig holds the flood-depth raster alignment and cache settings.
type RasterConfig struct {
	Enabled         bool    `yaml:"enabled"`
	Dir             string  `yaml:"dir"`
	CenterLat       float64 `yaml:"center_lat" validate:"gte=-90,lte=90"`
	CenterLon       float64 `yaml:"center_lon" validate:"gte=-180,lte=180"`
	BaseCoverageDeg float64 `yaml:"base_coverage_deg" validate:"gt=0"`
	CacheSize       int     `yaml:"cache_size" validate:"gte=32"`
	LoadTimeoutSec  int     `yaml:"load_timeout_sec" validate:"gt=0"`
}

// FusionConfig holds the decay and weighting tunables of the hazard engine.
type FusionConfig struct {
	ScoutTTLMin        float64 `yaml:"scout_ttl_min" validate:"gt=0"`
	FloodTTLMin        float64 `yaml:"flood_ttl_min" validate:"gt=0"`
	KScoutFast         float64 `yaml:"k_scout_fast" validate:"gt=0"`
	KScoutSlow         float64 `yaml:"k_scout_slow" validate:"gt=0"`
	KOfficial          float64 `yaml:"k_official" validate:"gt=0"`
	KSpatialEdge       float64 `yaml:"k_spatial_edge" validate:"gte=0"`
	MinRiskFloor       float64 `yaml:"min_risk_floor" validate:"gte=0,lte=1"`
	PropagationRadiusM float64 `yaml:"scout_propagation_radius_m" validate:"gt=0"`
}

// PlannerConfig holds routing defaults.
type PlannerConfig struct {
	MaxSnapM               float64 `yaml:"max_snap_m" validate:"gt=0"`
	ImpassabilityThreshold float64 `yaml:"impassability_threshold" validate:"gt=0,lte=1"`
	ShelterCandidates      int     `yaml:"shelter_candidates" validate:"gt=0"`
}

// Config is the root configuration aggregate.
type Config struct {
	Server ServerConfig `yaml:"server"`

	GraphPath    string `yaml:"graph_path"`
	SheltersPath string `yaml:"shelters_path"`
	ScenarioPath string `yaml:"scenario_path"`

	TickIntervalMS     int     `yaml:"tick_interval_ms" validate:"gt=0"`
	MailboxCapacity    int     `yaml:"mailbox_capacity" validate:"gt=0"`
	SchedulerIntervalS int     `yaml:"scheduler_interval_s" validate:"gt=0"`
	SpatialGridDeg     float64 `yaml:"spatial_grid_deg" validate:"gt=0"`

	Raster  RasterConfig  `yaml:"raster"`
	Fusion  FusionConfig  `yaml:"fusion"`
	Planner PlannerConfig `yaml:"planner"`
}

// Default returns a configuration populated with the documented defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},

		TickIntervalMS:     1000,
		MailboxCapacity:    1024,
		SchedulerIntervalS: 300,
		SpatialGridDeg:     0.01,

		Raster: RasterConfig{
			Enabled:         false,
			BaseCoverageDeg: 0.06,
			CacheSize:       32,
			LoadTimeoutSec:  5,
		},
		Fusion: FusionConfig{
			ScoutTTLMin:        45,
			FloodTTLMin:        90,
			KScoutFast:         0.10,
			KScoutSlow:         0.03,
			KOfficial:          0.05,
			KSpatialEdge:       0.08,
			MinRiskFloor:       0.01,
			PropagationRadiusM: 800,
		},
		Planner: PlannerConfig{
			MaxSnapM:               500,
			ImpassabilityThreshold: 0.9,
			ShelterCandidates:      5,
		},
	}
}

// Load reads a YAML config file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate range-checks the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			e := errs[0]
			return fmt.Errorf("config: %s failed %s validation", e.Namespace(), e.Tag())
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
