// Package config loads the daemon configuration from a TOML file, applies
// defaults and environment overrides, and validates the result. Secrets
// (the Gemini API key) are taken from the environment, never from the file.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/boopesh07/VideoToShorts/internal/ports/adapters/gemini"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory layout and bind address configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	ShortsDir string `toml:"shorts_dir"`
	TempDir   string `toml:"temp_dir"`
	InboxDir  string `toml:"inbox_dir"`
}

// Server contains HTTP surface configuration.
type Server struct {
	Bind     string `toml:"bind"`
	UIOrigin string `toml:"ui_origin"`
}

// Ranking contains the generative ranking service connection settings. The
// API key always comes from the GEMINI_API_KEY environment variable.
type Ranking struct {
	Model          string   `toml:"model"`
	BaseURL        string   `toml:"base_url"`
	AllowedHosts   []string `toml:"allowed_hosts"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Jobs contains generation defaults and concurrency limits.
type Jobs struct {
	TargetDuration      float64 `toml:"target_duration"`
	MaxSegments         int     `toml:"max_segments"`
	MinClipSeconds      float64 `toml:"min_clip_seconds"`
	MaxClipSeconds      float64 `toml:"max_clip_seconds"`
	MaxConcurrent       int     `toml:"max_concurrent"`
	ShortTimeoutSeconds int     `toml:"short_timeout_seconds"`
	CropVertical        bool    `toml:"crop_vertical"`
	SweepMaxAgeHours    int     `toml:"sweep_max_age_hours"`
}

// Tools contains paths to the external media binaries. Bare names resolve
// through PATH.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
	YtDlp   string `toml:"yt_dlp"`
}

// Logging contains log output configuration.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Config struct {
	Paths   Paths   `toml:"paths"`
	Server  Server  `toml:"server"`
	Ranking Ranking `toml:"ranking"`
	Jobs    Jobs    `toml:"jobs"`
	Tools   Tools   `toml:"tools"`
	Logging Logging `toml:"logging"`

	// GeminiAPIKey is populated from the environment after file decode.
	GeminiAPIKey string `toml:"-"`
}

// Default returns the built-in configuration before any file or environment
// input is applied.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   "~/.local/share/videotoshorts",
			ShortsDir: "",
			TempDir:   "",
			InboxDir:  "",
		},
		Server: Server{
			Bind:     "127.0.0.1:8080",
			UIOrigin: "http://localhost:3000",
		},
		Ranking: Ranking{
			Model:          "gemini-1.5-flash",
			BaseURL:        "https://generativelanguage.googleapis.com",
			TimeoutSeconds: 90,
		},
		Jobs: Jobs{
			TargetDuration:      30,
			MaxSegments:         5,
			MinClipSeconds:      15,
			MaxClipSeconds:      60,
			MaxConcurrent:       maxConcurrentDefault(),
			ShortTimeoutSeconds: 600,
			SweepMaxAgeHours:    0, // 0 disables eviction
		},
		Tools: Tools{
			FFmpeg:  "ffmpeg",
			FFprobe: "ffprobe",
			YtDlp:   "yt-dlp",
		},
		Logging: Logging{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Sample returns the embedded sample configuration file contents.
func Sample() string { return sampleConfig }

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/videotoshorts/config.toml")
}

// Load locates, parses, and validates a configuration file. A missing file is
// not an error: defaults plus environment overrides apply. The returned path
// is where the file was (or would be) read from.
func Load(path string) (*Config, string, error) {
	cfg := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", err
	}
	if exists {
		f, err := os.Open(resolved)
		if err != nil {
			return nil, "", fmt.Errorf("open config: %w", err)
		}
		defer f.Close()
		if err := toml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, "", fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.normalize(); err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, resolved, nil
}

func (c *Config) applyEnv() {
	c.GeminiAPIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	if v := strings.TrimSpace(os.Getenv("GEMINI_MODEL")); v != "" {
		c.Ranking.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("GEMINI_BASE_URL")); v != "" {
		c.Ranking.BaseURL = v
	}
}

func (c *Config) normalize() error {
	dataDir, err := expandPath(c.Paths.DataDir)
	if err != nil {
		return err
	}
	c.Paths.DataDir = dataDir

	if c.Paths.ShortsDir == "" {
		c.Paths.ShortsDir = filepath.Join(dataDir, "shorts")
	} else if c.Paths.ShortsDir, err = expandPath(c.Paths.ShortsDir); err != nil {
		return err
	}
	if c.Paths.TempDir == "" {
		c.Paths.TempDir = filepath.Join(dataDir, "tmp")
	} else if c.Paths.TempDir, err = expandPath(c.Paths.TempDir); err != nil {
		return err
	}
	if c.Paths.InboxDir != "" {
		if c.Paths.InboxDir, err = expandPath(c.Paths.InboxDir); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Paths.DataDir == "" {
		return errors.New("config: data_dir is required")
	}
	if strings.TrimSpace(c.Server.Bind) == "" {
		return errors.New("config: server bind address is required")
	}
	if c.Jobs.TargetDuration <= 0 {
		return fmt.Errorf("config: target_duration must be > 0, got %v", c.Jobs.TargetDuration)
	}
	if c.Jobs.MaxSegments <= 0 {
		return fmt.Errorf("config: max_segments must be > 0, got %d", c.Jobs.MaxSegments)
	}
	if c.Jobs.MinClipSeconds <= 0 || c.Jobs.MaxClipSeconds <= c.Jobs.MinClipSeconds {
		return fmt.Errorf("config: clip bounds invalid: min=%v max=%v",
			c.Jobs.MinClipSeconds, c.Jobs.MaxClipSeconds)
	}
	if c.Jobs.MaxConcurrent <= 0 {
		return fmt.Errorf("config: max_concurrent must be > 0, got %d", c.Jobs.MaxConcurrent)
	}
	if c.Jobs.ShortTimeoutSeconds <= 0 {
		return fmt.Errorf("config: short_timeout_seconds must be > 0, got %d", c.Jobs.ShortTimeoutSeconds)
	}
	if c.Ranking.TimeoutSeconds <= 0 {
		return fmt.Errorf("config: ranking timeout_seconds must be > 0, got %d", c.Ranking.TimeoutSeconds)
	}
	return gemini.ValidateBaseURL(c.Ranking.BaseURL, c.Ranking.AllowedHosts)
}

// EnsureDirectories creates the directories the daemon writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.ShortsDir, c.Paths.TempDir}
	if c.Paths.InboxDir != "" {
		dirs = append(dirs, c.Paths.InboxDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func (c *Config) RankingTimeout() time.Duration {
	return time.Duration(c.Ranking.TimeoutSeconds) * time.Second
}

func (c *Config) ShortTimeout() time.Duration {
	return time.Duration(c.Jobs.ShortTimeoutSeconds) * time.Second
}

func (c *Config) SweepMaxAge() time.Duration {
	return time.Duration(c.Jobs.SweepMaxAgeHours) * time.Hour
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("videotoshorts.toml")
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}

func maxConcurrentDefault() int {
	n := runtime.NumCPU() / 2
	if n < 2 {
		n = 2
	}
	if n > 4 {
		n = 4
	}
	return n
}
