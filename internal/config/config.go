package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config carries the tunables for the simulation and its feed. Zero or
// out-of-range values are repaired by Normalize, so a partial yaml file is
// fine.
type Config struct {
	// Workers is the mesh worker count.
	Workers int `yaml:"workers"`
	// ActiveRadius bounds, in chunks around the actor, how far dirty chunks
	// are remeshed; dirty chunks beyond it wait in the deferred set.
	ActiveRadius int `yaml:"active_radius"`
	// RemeshPerSecond and RemeshBurst budget remesh dispatches.
	RemeshPerSecond float64 `yaml:"remesh_per_second"`
	RemeshBurst     int     `yaml:"remesh_burst"`
	// TickHz drives Engine.Run.
	TickHz int `yaml:"tick_hz"`
	// CoarseBatchThreshold is the batch size beyond which neighbor marking
	// falls back to whole chunks plus face neighbors.
	CoarseBatchThreshold int `yaml:"coarse_batch_threshold"`

	Feed Feed `yaml:"feed"`
}

// Feed configures the websocket presentation feed.
type Feed struct {
	Addr        string `yaml:"addr"`
	AllowRemote bool   `yaml:"allow_remote"`
	MaxSessions int    `yaml:"max_sessions"`
}

func Default() Config {
	return Config{
		Workers:              3,
		ActiveRadius:         8,
		RemeshPerSecond:      240,
		RemeshBurst:          48,
		TickHz:               30,
		CoarseBatchThreshold: 10000,
		Feed: Feed{
			Addr:        "127.0.0.1:8470",
			MaxSessions: 16,
		},
	}
}

// Load reads a yaml config layered over Default. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Normalize clamps out-of-range values to workable ones.
func (c *Config) Normalize() {
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.ActiveRadius < 1 {
		c.ActiveRadius = 1
	}
	if c.RemeshPerSecond <= 0 {
		c.RemeshPerSecond = 240
	}
	if c.RemeshBurst < 1 {
		c.RemeshBurst = 1
	}
	if c.TickHz < 1 {
		c.TickHz = 1
	}
	if c.CoarseBatchThreshold < 1 {
		c.CoarseBatchThreshold = 10000
	}
	if strings.TrimSpace(c.Feed.Addr) == "" {
		c.Feed.Addr = "127.0.0.1:8470"
	}
	if c.Feed.MaxSessions < 1 {
		c.Feed.MaxSessions = 16
	}
}
