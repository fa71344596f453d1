package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Tracking.SmoothingAlpha != DefaultSmoothingAlpha {
		t.Fatalf("expected alpha %v, got %v", DefaultSmoothingAlpha, cfg.Tracking.SmoothingAlpha)
	}
	if cfg.Tracking.MaxDistance != DefaultMaxDistance {
		t.Fatalf("expected max distance %v, got %v", DefaultMaxDistance, cfg.Tracking.MaxDistance)
	}
	if cfg.UI.ListRefresh != DefaultListRefresh {
		t.Fatalf("expected list refresh %v, got %v", DefaultListRefresh, cfg.UI.ListRefresh)
	}
}

func TestLoadYAMLOverridesAndKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finder.yml")
	body := []byte("tracking:\n  smoothing_alpha: 0.5\n  max_distance: 20\nscan:\n  demo: true\n  lost_after: 10s\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Tracking.SmoothingAlpha != 0.5 || cfg.Tracking.MaxDistance != 20 {
		t.Fatalf("tracking not loaded: %+v", cfg.Tracking)
	}
	if !cfg.Scan.Demo || cfg.Scan.LostAfter != 10*time.Second {
		t.Fatalf("scan not loaded: %+v", cfg.Scan)
	}
	if cfg.Scan.Adapter != "hci0" {
		t.Fatalf("expected default adapter, got %q", cfg.Scan.Adapter)
	}
	if cfg.UI.ListRefresh != DefaultListRefresh {
		t.Fatalf("expected default list refresh, got %v", cfg.UI.ListRefresh)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("BLE_FINDER_ALPHA", "0.8")
	t.Setenv("BLE_FINDER_ADAPTER", "hci1")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Tracking.SmoothingAlpha != 0.8 {
		t.Fatalf("expected env alpha 0.8, got %v", cfg.Tracking.SmoothingAlpha)
	}
	if cfg.Scan.Adapter != "hci1" {
		t.Fatalf("expected env adapter hci1, got %q", cfg.Scan.Adapter)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero alpha", func(c *Config) { c.Tracking.SmoothingAlpha = 0 }},
		{"alpha above one", func(c *Config) { c.Tracking.SmoothingAlpha = 1.5 }},
		{"negative max distance", func(c *Config) { c.Tracking.MaxDistance = -1 }},
		{"negative lost after", func(c *Config) { c.Scan.LostAfter = -time.Second }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
