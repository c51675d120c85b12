// Package config loads the memvault configuration from a JSON5 file and
// watches it for changes.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/titanous/json5"
)

// Config holds all tunables. Zero values are filled from DefaultConfig.
type Config struct {
	// MemoryDir holds one JSON document per active slot.
	MemoryDir string `json:"memory_dir"`
	// ArchiveDir holds archived slot documents and the archive index.
	ArchiveDir string `json:"archive_dir"`
	// StatsDB is the SQLite access-log path; empty disables stats.
	StatsDB string `json:"stats_db"`

	// CompressionThreshold is the minimum entry size in bytes worth
	// compressing.
	CompressionThreshold int `json:"compression_threshold"`

	// Sweep controls the background auto-archival of inactive slots.
	Sweep SweepConfig `json:"sweep"`

	// RateLimitPerMinute caps MCP tool calls; 0 disables limiting.
	RateLimitPerMinute int `json:"rate_limit_per_minute"`
}

// SweepConfig controls the auto-archival sweeper.
type SweepConfig struct {
	Enabled      bool   `json:"enabled"`
	Schedule     string `json:"schedule"` // cron expression
	DaysInactive int    `json:"days_inactive"`
	MinEntries   int    `json:"min_entries"`
}

// DefaultConfig returns the built-in defaults rooted under the user's home
// directory.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	base := filepath.Join(home, ".memvault")
	return &Config{
		MemoryDir:            filepath.Join(base, "memory"),
		ArchiveDir:           filepath.Join(base, "archive"),
		StatsDB:              filepath.Join(base, "stats.db"),
		CompressionThreshold: 1024,
		Sweep: SweepConfig{
			Enabled:      false,
			Schedule:     "0 3 * * *",
			DaysInactive: 90,
			MinEntries:   1,
		},
		RateLimitPerMinute: 120,
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".memvault", "config.json5")
}

// Load reads a config file and overlays it onto the defaults. A missing
// file returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.MemoryDir == "" {
		c.MemoryDir = def.MemoryDir
	}
	if c.ArchiveDir == "" {
		c.ArchiveDir = def.ArchiveDir
	}
	if c.CompressionThreshold <= 0 {
		c.CompressionThreshold = def.CompressionThreshold
	}
	if c.Sweep.Schedule == "" {
		c.Sweep.Schedule = def.Sweep.Schedule
	}
	if c.Sweep.DaysInactive <= 0 {
		c.Sweep.DaysInactive = def.Sweep.DaysInactive
	}
	if c.Sweep.MinEntries <= 0 {
		c.Sweep.MinEntries = def.Sweep.MinEntries
	}
}
