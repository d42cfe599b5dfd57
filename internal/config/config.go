// Package config loads daemon settings from the environment and policy
// overrides from an auditable YAML file.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/hlv-labs/phase-readiness/go-middleware/internal/readiness"
)

// #region settings

// Settings holds the daemon's runtime configuration. Policy parameters live
// in the YAML file referenced by PolicyPath, not here.
type Settings struct {
	Addr        string  `env:"READINESS_ADDR" envDefault:":8080"`
	DBPath      string  `env:"READINESS_DB" envDefault:"readiness.db"`
	HistorySize int     `env:"READINESS_HISTORY" envDefault:"100"`
	Source      string  `env:"READINESS_SOURCE" envDefault:"synthetic"`
	Scenario    string  `env:"READINESS_SCENARIO" envDefault:"stable"`
	TickSec     float64 `env:"READINESS_TICK_S" envDefault:"0.1"`
	PolicyPath  string  `env:"READINESS_POLICY"`
}

// Load parses Settings from environment variables.
func Load() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	if s.HistorySize < 1 {
		return Settings{}, fmt.Errorf("READINESS_HISTORY must be >= 1, got %d", s.HistorySize)
	}
	if s.TickSec <= 0 {
		return Settings{}, fmt.Errorf("READINESS_TICK_S must be > 0, got %g", s.TickSec)
	}
	switch s.Source {
	case "synthetic", "stdin":
	default:
		return Settings{}, fmt.Errorf("READINESS_SOURCE must be synthetic or stdin, got %q", s.Source)
	}
	return s, nil
}

// #endregion settings

// #region policy

// LoadPolicy returns the evaluation policy: the defaults overlaid with any
// fields named in the YAML file at path. An empty path means pure defaults;
// a partial file overrides only the fields it names.
func LoadPolicy(path string) (readiness.Config, error) {
	cfg := readiness.DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return readiness.Config{}, fmt.Errorf("read policy %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return readiness.Config{}, fmt.Errorf("parse policy %s: %w", path, err)
	}
	if err := validatePolicy(cfg); err != nil {
		return readiness.Config{}, fmt.Errorf("policy %s: %w", path, err)
	}
	return cfg, nil
}

func validatePolicy(cfg readiness.Config) error {
	if cfg.TempMinC >= cfg.TempMaxC {
		return fmt.Errorf("temp band is empty: [%g, %g]", cfg.TempMinC, cfg.TempMaxC)
	}
	if cfg.MaxGradientCPerS <= 0 {
		return fmt.Errorf("max_abs_dtdt_c_per_s must be > 0, got %g", cfg.MaxGradientCPerS)
	}
	if cfg.MaxTempJumpC <= 0 {
		return fmt.Errorf("max_abs_temp_jump_c must be > 0, got %g", cfg.MaxTempJumpC)
	}
	if cfg.MaxSampleGapSec <= 0 {
		return fmt.Errorf("max_dt_s must be > 0, got %g", cfg.MaxSampleGapSec)
	}
	return nil
}

// #endregion policy
