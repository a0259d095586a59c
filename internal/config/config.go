// Package config loads the viewer's YAML configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"hexarena.live/internal/hexgrid"
)

type Config struct {
	Stream  StreamConfig  `yaml:"stream"`
	Arena   ArenaConfig   `yaml:"arena"`
	Effects EffectsConfig `yaml:"effects"`
	Journal JournalConfig `yaml:"journal"`
	Archive ArchiveConfig `yaml:"archive"`
}

type StreamConfig struct {
	// URLTemplate receives the battle id via %s.
	URLTemplate        string `yaml:"url_template"`
	HandshakeTimeoutMS int    `yaml:"handshake_timeout_ms"`
	ReadTimeoutMS      int    `yaml:"read_timeout_ms"`
	BackoffBaseMS      int    `yaml:"backoff_base_ms"`
	BackoffCapMS       int    `yaml:"backoff_cap_ms"`
}

type ArenaConfig struct {
	Radius  int     `yaml:"radius"`
	HexSize float64 `yaml:"hex_size"`
	Padding float64 `yaml:"padding"`
}

type EffectsConfig struct {
	// LifetimesMS overrides the per-type effect expiry, in milliseconds.
	LifetimesMS map[string]int `yaml:"lifetimes_ms,omitempty"`
}

type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads path, fills defaults, and validates. An empty path yields
// pure defaults.
func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("client.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("client.yaml: %w", err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		Stream: StreamConfig{
			URLTemplate:        "wss://feed.hexarena.live/v1/battles/%s/ws",
			HandshakeTimeoutMS: 5000,
			ReadTimeoutMS:      60000,
			BackoffBaseMS:      200,
			BackoffCapMS:       5000,
		},
		Arena: ArenaConfig{
			Radius:  hexgrid.RadiusLarge,
			HexSize: 40,
			Padding: 16,
		},
		Journal: JournalConfig{Dir: "./data/journal"},
		Archive: ArchiveConfig{Path: "./data/battles.db"},
	}
}

func (c *Config) Normalize() {
	d := defaults()
	if strings.TrimSpace(c.Stream.URLTemplate) == "" {
		c.Stream.URLTemplate = d.Stream.URLTemplate
	}
	if c.Stream.HandshakeTimeoutMS <= 0 {
		c.Stream.HandshakeTimeoutMS = d.Stream.HandshakeTimeoutMS
	}
	if c.Stream.ReadTimeoutMS <= 0 {
		c.Stream.ReadTimeoutMS = d.Stream.ReadTimeoutMS
	}
	if c.Stream.BackoffBaseMS <= 0 {
		c.Stream.BackoffBaseMS = d.Stream.BackoffBaseMS
	}
	if c.Stream.BackoffCapMS < c.Stream.BackoffBaseMS {
		c.Stream.BackoffCapMS = d.Stream.BackoffCapMS
	}
	if c.Arena.Radius == 0 {
		c.Arena.Radius = d.Arena.Radius
	}
	if c.Arena.HexSize <= 0 {
		c.Arena.HexSize = d.Arena.HexSize
	}
	if c.Arena.Padding < 0 {
		c.Arena.Padding = d.Arena.Padding
	}
	if strings.TrimSpace(c.Journal.Dir) == "" {
		c.Journal.Dir = d.Journal.Dir
	}
	if strings.TrimSpace(c.Archive.Path) == "" {
		c.Archive.Path = d.Archive.Path
	}
}

func (c *Config) Validate() error {
	if !strings.Contains(c.Stream.URLTemplate, "%s") {
		return fmt.Errorf("stream.url_template must contain %%s for the battle id")
	}
	if c.Arena.Radius != hexgrid.RadiusSmall && c.Arena.Radius != hexgrid.RadiusLarge {
		return fmt.Errorf("arena.radius must be %d or %d, got %d",
			hexgrid.RadiusSmall, hexgrid.RadiusLarge, c.Arena.Radius)
	}
	for typ, ms := range c.Effects.LifetimesMS {
		if ms <= 0 {
			return fmt.Errorf("effects.lifetimes_ms[%s] must be positive, got %d", typ, ms)
		}
	}
	return nil
}

// EffectLifetimes converts the millisecond overrides to durations.
func (c Config) EffectLifetimes() map[string]time.Duration {
	if len(c.Effects.LifetimesMS) == 0 {
		return nil
	}
	out := make(map[string]time.Duration, len(c.Effects.LifetimesMS))
	for typ, ms := range c.Effects.LifetimesMS {
		out[typ] = time.Duration(ms) * time.Millisecond
	}
	return out
}
