package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json5"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := DefaultConfig()
	if cfg.MemoryDir != def.MemoryDir {
		t.Errorf("memory dir = %q, want default", cfg.MemoryDir)
	}
	if cfg.CompressionThreshold != 1024 {
		t.Errorf("threshold = %d, want 1024", cfg.CompressionThreshold)
	}
	if cfg.Sweep.Schedule != "0 3 * * *" {
		t.Errorf("schedule = %q", cfg.Sweep.Schedule)
	}
}

func TestLoad_OverlaysOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json5")
	// JSON5: comments and trailing commas are fine.
	content := `{
		// custom location
		memory_dir: "/data/slots",
		compression_threshold: 2048,
		sweep: {
			enabled: true,
			days_inactive: 45,
		},
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MemoryDir != "/data/slots" {
		t.Errorf("memory dir = %q", cfg.MemoryDir)
	}
	if cfg.CompressionThreshold != 2048 {
		t.Errorf("threshold = %d, want 2048", cfg.CompressionThreshold)
	}
	if !cfg.Sweep.Enabled {
		t.Error("sweep not enabled")
	}
	if cfg.Sweep.DaysInactive != 45 {
		t.Errorf("days inactive = %d, want 45", cfg.Sweep.DaysInactive)
	}
	// Unset fields fall back to defaults.
	if cfg.Sweep.Schedule != "0 3 * * *" {
		t.Errorf("schedule = %q, want default", cfg.Sweep.Schedule)
	}
	if cfg.ArchiveDir == "" {
		t.Error("archive dir not defaulted")
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json5")
	if err := os.WriteFile(path, []byte("{{{{"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("malformed config accepted")
	}
}
