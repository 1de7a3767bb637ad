package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := `
monitor:
  interval: 15m
  sources: [sec]
scoring:
  jurisdiction_weight: 40
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Monitor.Interval != 15*time.Minute {
		t.Errorf("interval = %v, want 15m", cfg.Monitor.Interval)
	}
	if len(cfg.Monitor.Sources) != 1 || cfg.Monitor.Sources[0] != "sec" {
		t.Errorf("sources = %v", cfg.Monitor.Sources)
	}
	if cfg.Scoring.JurisdictionWeight != 40 {
		t.Errorf("jurisdiction weight = %d, want 40", cfg.Scoring.JurisdictionWeight)
	}
	// Untouched fields get defaults.
	if cfg.Scoring.IndustryWeight != 25 {
		t.Errorf("industry weight = %d, want default 25", cfg.Scoring.IndustryWeight)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want default 8080", cfg.Server.Port)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("top_k = %d, want default 5", cfg.Retrieval.TopK)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("monitor: ["), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Monitor.Interval != time.Hour {
		t.Errorf("interval = %v, want 1h", cfg.Monitor.Interval)
	}
	total := cfg.Scoring.JurisdictionWeight + cfg.Scoring.IndustryWeight +
		cfg.Scoring.KeywordWeight + cfg.Scoring.RecencyWeight
	if total != 100 {
		t.Errorf("default weights sum to %d, want 100", total)
	}
}
