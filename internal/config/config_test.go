package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"subscreen/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if resolved != path {
		t.Fatalf("expected resolved path %q, got %q", path, resolved)
	}
	if cfg.Policy.HighThreshold != 0.75 {
		t.Fatalf("expected default high threshold, got %v", cfg.Policy.HighThreshold)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[sampling]
interval_seconds = 1.5
max_frames = 6

[policy]
low_threshold = 0.3
high_threshold = 0.8

[denylist]
path = "` + filepath.Join(dir, "deny.json") + `"
ttl_hours = 1
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.Sampling.IntervalSeconds != 1.5 || cfg.Sampling.MaxFrames != 6 {
		t.Fatalf("sampling overrides not applied: %+v", cfg.Sampling)
	}
	if cfg.Policy.LowThreshold != 0.3 || cfg.Policy.HighThreshold != 0.8 {
		t.Fatalf("policy overrides not applied: %+v", cfg.Policy)
	}
	if cfg.Denylist.TTLHours != 1 {
		t.Fatalf("denylist override not applied: %+v", cfg.Denylist)
	}
}

func TestValidateRejectsInvertedThresholds(t *testing.T) {
	cfg := config.Default()
	cfg.Policy.LowThreshold = 0.9
	cfg.Policy.HighThreshold = 0.5
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "low_threshold") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsBadInterval(t *testing.T) {
	cfg := config.Default()
	cfg.Sampling.IntervalSeconds = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for zero interval")
	}
}

func TestValidateRequiresSomeDenylistBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Denylist.Path = ""
	cfg.Denylist.RedisURL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error when no denylist backend configured")
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config should validate: %v", err)
	}
}
