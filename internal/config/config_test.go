package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Jobs.TargetDuration != 30 {
		t.Fatalf("target_duration = %v, want 30", cfg.Jobs.TargetDuration)
	}
	if cfg.Jobs.MaxSegments != 5 {
		t.Fatalf("max_segments = %d, want 5", cfg.Jobs.MaxSegments)
	}
	if cfg.Paths.ShortsDir != filepath.Join(cfg.Paths.DataDir, "shorts") {
		t.Fatalf("shorts_dir = %q, want under data_dir %q", cfg.Paths.ShortsDir, cfg.Paths.DataDir)
	}
	if cfg.Paths.TempDir == "" {
		t.Fatalf("temp_dir should default under data_dir")
	}
}

func TestLoadFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + dir + `"

[jobs]
target_duration = 45.0
max_segments = 3
max_concurrent = 2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved != path {
		t.Fatalf("resolved = %q, want %q", resolved, path)
	}
	if cfg.Jobs.TargetDuration != 45 {
		t.Fatalf("target_duration = %v, want 45", cfg.Jobs.TargetDuration)
	}
	if cfg.Jobs.MaxSegments != 3 {
		t.Fatalf("max_segments = %d, want 3", cfg.Jobs.MaxSegments)
	}
	// Untouched sections keep defaults.
	if cfg.Server.Bind != "127.0.0.1:8080" {
		t.Fatalf("bind = %q, want default", cfg.Server.Bind)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero target", func(c *Config) { c.Jobs.TargetDuration = 0 }},
		{"zero segments", func(c *Config) { c.Jobs.MaxSegments = 0 }},
		{"inverted clip bounds", func(c *Config) { c.Jobs.MinClipSeconds = 60; c.Jobs.MaxClipSeconds = 15 }},
		{"zero concurrency", func(c *Config) { c.Jobs.MaxConcurrent = 0 }},
		{"http base url", func(c *Config) { c.Ranking.BaseURL = "http://generativelanguage.googleapis.com" }},
		{"foreign base url", func(c *Config) { c.Ranking.BaseURL = "https://evil.example.com" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			if err := cfg.normalize(); err != nil {
				t.Fatal(err)
			}
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestSampleConfigParsesToDefaults(t *testing.T) {
	var cfg Config
	if err := toml.Unmarshal([]byte(Sample()), &cfg); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	def := Default()
	if cfg.Server.Bind != def.Server.Bind {
		t.Fatalf("sample bind = %q, default = %q", cfg.Server.Bind, def.Server.Bind)
	}
	if cfg.Ranking.Model != def.Ranking.Model {
		t.Fatalf("sample model = %q, default = %q", cfg.Ranking.Model, def.Ranking.Model)
	}
	if cfg.Jobs.TargetDuration != def.Jobs.TargetDuration {
		t.Fatalf("sample target_duration = %v, default = %v", cfg.Jobs.TargetDuration, def.Jobs.TargetDuration)
	}
}

func TestExpandPathHome(t *testing.T) {
	got, err := expandPath("~/x")
	if err != nil {
		t.Fatal(err)
	}
	home, _ := os.UserHomeDir()
	if !strings.HasPrefix(got, home) {
		t.Fatalf("expandPath(~/x) = %q, want prefix %q", got, home)
	}
}
