// Package config loads the dispatcher's TOML configuration: default
// precedence weights, initial registry capacity, logging, and the
// scheduler's own operational knobs.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Runtime RuntimeConfig `toml:"runtime"`
	Weights WeightsConfig `toml:"weights"`
	Logging LoggingConfig `toml:"logging"`
}

// RuntimeConfig controls the registry and frame loop an embedder drives
// via dispatcher.Dispatcher. InitialEntityCapacity is loaded but not read
// by anything in this module: registry.New takes no capacity argument.
type RuntimeConfig struct {
	InitialEntityCapacity     int           `toml:"initial_entity_capacity"`
	AccessRecentlyDeletedData bool          `toml:"access_recently_deleted_data"`
	FrameInterval             time.Duration `toml:"frame_interval"`
}

// WeightsConfig holds precedence-edge weights for the three constraint
// kinds. Higher magnitude wins ties between a constraint and its reverse;
// see graph.Graph.Add/Deny. The dispatcher does not read these values: it
// inserts constraints with its own fixed weights (10, 5 and 3), which are
// also the defaults here.
type WeightsConfig struct {
	NamedPeer         int `toml:"named_peer"`
	ComponentAnchored int `toml:"component_anchored"`
	Phase             int `toml:"phase"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			InitialEntityCapacity:     1024,
			AccessRecentlyDeletedData: false,
			FrameInterval:             16 * time.Millisecond,
		},
		Weights: WeightsConfig{
			NamedPeer:         10,
			ComponentAnchored: 5,
			Phase:             3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
