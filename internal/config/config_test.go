package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hlv-labs/phase-readiness/go-middleware/internal/readiness"
)

func TestLoadDefaults(t *testing.T) {
	s, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Addr != ":8080" || s.DBPath != "readiness.db" || s.HistorySize != 100 {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	if s.Source != "synthetic" || s.Scenario != "stable" || s.TickSec != 0.1 {
		t.Fatalf("unexpected defaults: %+v", s)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("READINESS_ADDR", ":9999")
	t.Setenv("READINESS_HISTORY", "25")
	t.Setenv("READINESS_SOURCE", "stdin")

	s, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Addr != ":9999" || s.HistorySize != 25 || s.Source != "stdin" {
		t.Fatalf("env overrides not applied: %+v", s)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("READINESS_HISTORY", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero history size")
	}

	t.Setenv("READINESS_HISTORY", "100")
	t.Setenv("READINESS_SOURCE", "carrier-pigeon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown source")
	}
}

func TestLoadPolicyEmptyPath(t *testing.T) {
	cfg, err := LoadPolicy("")
	if err != nil {
		t.Fatalf("LoadPolicy: %v", err)
	}
	if cfg != readiness.DefaultConfig() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadPolicyPartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	body := "temp_max_c: 45.0\nmax_dt_s: 2.0\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write policy: %v", err)
	}

	cfg, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("LoadPolicy: %v", err)
	}
	if cfg.TempMaxC != 45.0 || cfg.MaxSampleGapSec != 2.0 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}

	// Everything not named keeps its default.
	want := readiness.DefaultConfig()
	if cfg.TempMinC != want.TempMinC || cfg.TrendAlpha != want.TrendAlpha {
		t.Fatalf("unnamed fields changed: %+v", cfg)
	}
}

func TestLoadPolicyMissingFile(t *testing.T) {
	if _, err := LoadPolicy(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing policy file")
	}
}

func TestLoadPolicyRejectsEmptyBand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	body := "temp_min_c: 50.0\ntemp_max_c: 40.0\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	if _, err := LoadPolicy(path); err == nil {
		t.Fatal("expected error for inverted temp band")
	}
}
