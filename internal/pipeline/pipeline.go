// Package pipeline wires the configured adapters into the running
// application: catalog store, media toolchain, source resolver, AI ranker,
// and the usecase orchestrator on top of them.
package pipeline

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/boopesh07/VideoToShorts/internal/catalog"
	"github.com/boopesh07/VideoToShorts/internal/config"
	"github.com/boopesh07/VideoToShorts/internal/ports"
	"github.com/boopesh07/VideoToShorts/internal/ports/adapters/ffmpeg"
	"github.com/boopesh07/VideoToShorts/internal/ports/adapters/gemini"
	"github.com/boopesh07/VideoToShorts/internal/ports/adapters/ytdlp"
	"github.com/boopesh07/VideoToShorts/internal/usecase"
)

// App is the assembled application. Close releases the data-dir lock and the
// catalog connection.
type App struct {
	Cfg   *config.Config
	Log   *slog.Logger
	Store *catalog.Store
	UC    *usecase.Usecase

	lock *flock.Flock
}

// Build constructs the application from a validated config. The data
// directory is guarded by a file lock so two processes never share one
// catalog and output directory.
func Build(cfg *config.Config, log *slog.Logger) (*App, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	lock := flock.New(filepath.Join(cfg.Paths.DataDir, "videotoshorts.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire data dir lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("data directory %s is in use by another process", cfg.Paths.DataDir)
	}

	store, err := catalog.Open(cfg.Paths.ShortsDir)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	video := ffmpeg.New(cfg.Tools.FFmpeg, cfg.Tools.FFprobe)
	resolver := ytdlp.New(cfg.Tools.YtDlp)
	ranker := gemini.New(gemini.Config{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.Ranking.Model,
		BaseURL: cfg.Ranking.BaseURL,
		Timeout: cfg.RankingTimeout(),
		Logger:  log,
	})

	uc := usecase.New(usecase.Deps{
		Ranker:   ranker,
		Resolver: resolver,
		Video:    video,
		Catalog:  store,
		Log:      log,
	}, usecase.Options{
		TempDir:        cfg.Paths.TempDir,
		TargetDuration: cfg.Jobs.TargetDuration,
		MaxSegments:    cfg.Jobs.MaxSegments,
		MinClip:        cfg.Jobs.MinClipSeconds,
		MaxClip:        cfg.Jobs.MaxClipSeconds,
		MaxConcurrent:  cfg.Jobs.MaxConcurrent,
		ShortTimeout:   cfg.ShortTimeout(),
		CropVertical:   cfg.Jobs.CropVertical,
	})

	return &App{
		Cfg:   cfg,
		Log:   log,
		Store: store,
		UC:    uc,
		lock:  lock,
	}, nil
}

func (a *App) Close() error {
	var first error
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			first = err
		}
	}
	if a.lock != nil {
		if err := a.lock.Unlock(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ensure adapters implement ports
var _ ports.VideoTool = (*ffmpeg.Adapter)(nil)
var _ ports.SourceResolver = (*ytdlp.Adapter)(nil)
var _ ports.AIRanker = (*gemini.Adapter)(nil)
var _ usecase.Catalog = (*catalog.Store)(nil)
