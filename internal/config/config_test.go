package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("got %+v, want defaults", cfg)
	}
}

func TestLoadLayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voxen.yaml")
	body := "workers: 5\nfeed:\n  addr: \"0.0.0.0:9000\"\n  allow_remote: true\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Workers != 5 {
		t.Errorf("workers: got %d, want 5", cfg.Workers)
	}
	if cfg.Feed.Addr != "0.0.0.0:9000" || !cfg.Feed.AllowRemote {
		t.Errorf("feed: got %+v", cfg.Feed)
	}
	// Untouched fields keep their defaults.
	if cfg.TickHz != Default().TickHz || cfg.CoarseBatchThreshold != Default().CoarseBatchThreshold {
		t.Errorf("defaults not preserved: %+v", cfg)
	}
}

func TestLoadRejectsBadYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voxen.yaml")
	if err := os.WriteFile(path, []byte("workers: [oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), path) {
		t.Fatalf("want an error naming the file, got %v", err)
	}
}

func TestNormalizeClampsRanges(t *testing.T) {
	cfg := Config{Workers: -2, ActiveRadius: 0, RemeshBurst: 0, TickHz: -1}
	cfg.Normalize()
	if cfg.Workers != 1 || cfg.ActiveRadius != 1 || cfg.RemeshBurst != 1 || cfg.TickHz != 1 {
		t.Fatalf("clamps failed: %+v", cfg)
	}
	if cfg.RemeshPerSecond <= 0 || cfg.CoarseBatchThreshold < 1 || cfg.Feed.MaxSessions < 1 {
		t.Fatalf("floors failed: %+v", cfg)
	}
}
