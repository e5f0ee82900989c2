// Package config loads machine profiles, venue definitions and the
// observation-key alias table. Thresholds are data, not code: they differ
// per machine model and are tuned by whoever watches the floor, so they
// live in YAML with an embedded default set for unconfigured models.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ModelProfile holds per-model probability thresholds and quality gates.
type ModelProfile struct {
	Name              string  `yaml:"name"`
	GoodProb          float64 `yaml:"good_prob"` // games-per-qualifying at or under this is favorable
	BadProb           float64 `yaml:"bad_prob"`  // at or over this is unfavorable
	MinQualifying     int     `yaml:"min_qualifying"`
	DeepRunGames      int     `yaml:"deep_run_games"` // intervals at or past this count as deep runs
	MaxDeepRuns       int     `yaml:"max_deep_runs"`  // more than this demotes an otherwise-good day
	MinRunPayout      int     `yaml:"min_run_payout"` // best single-run payout under this demotes the day
	ChainThreshold    int     `yaml:"chain_threshold"`
	TypicalDailyGames int     `yaml:"typical_daily_games"`
}

// BaseEntry is one row of a venue's static base-score table.
type BaseEntry struct {
	Score float64 `yaml:"score"`
	Note  string  `yaml:"note"`
}

// Venue groups the units scored and ranked together (one cohort).
type Venue struct {
	Key        string               `yaml:"key"`
	Name       string               `yaml:"name"`
	Model      string               `yaml:"model"`
	Units      []string             `yaml:"units"`
	BaseScores map[string]BaseEntry `yaml:"base_scores"`
}

// BaseScore looks up a unit in the static table.
func (v *Venue) BaseScore(unit string) (BaseEntry, bool) {
	e, ok := v.BaseScores[unit]
	return e, ok
}

// Config is the full loaded configuration.
type Config struct {
	Models       map[string]ModelProfile `yaml:"models"`
	DefaultModel ModelProfile            `yaml:"default_model"`
	Venues       []Venue                 `yaml:"venues"`
	Aliases      map[string]string       `yaml:"aliases"` // legacy feed key -> canonical key
}

// Default returns the embedded configuration.
func Default() (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(defaultsYAML, &c); err != nil {
		return nil, fmt.Errorf("parse embedded defaults: %w", err)
	}
	return &c, nil
}

// Load reads a YAML config file on top of the embedded defaults: models and
// aliases merge key-wise, venues and the default profile replace when set.
func Load(path string) (*Config, error) {
	base, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return base, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var over Config
	if err := yaml.Unmarshal(raw, &over); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	for k, m := range over.Models {
		base.Models[k] = m
	}
	for k, v := range over.Aliases {
		base.Aliases[k] = v
	}
	if over.DefaultModel != (ModelProfile{}) {
		base.DefaultModel = over.DefaultModel
	}
	if len(over.Venues) > 0 {
		base.Venues = over.Venues
	}
	return base, nil
}

// Profile returns the model profile for a key, or the documented default
// for unknown models.
func (c *Config) Profile(modelKey string) ModelProfile {
	if p, ok := c.Models[modelKey]; ok {
		return p
	}
	return c.DefaultModel
}

// Venue finds a venue by key, or nil.
func (c *Config) Venue(key string) *Venue {
	for i := range c.Venues {
		if c.Venues[i].Key == key {
			return &c.Venues[i]
		}
	}
	return nil
}

// Canonical resolves a raw observation key through the alias table.
// Unknown keys pass through unchanged.
func (c *Config) Canonical(key string) string {
	if canon, ok := c.Aliases[key]; ok {
		return canon
	}
	return key
}
