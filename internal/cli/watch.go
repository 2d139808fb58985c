package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/boopesh07/VideoToShorts/internal/pipeline"
	"github.com/boopesh07/VideoToShorts/internal/transcript"
	"github.com/boopesh07/VideoToShorts/internal/types"
	"github.com/boopesh07/VideoToShorts/internal/usecase"
)

// writeSettleDelay is how long a job file must be quiet before it is parsed;
// editors and network copies fire several write events per save.
const writeSettleDelay = 2 * time.Second

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch an inbox directory for job files and run them",
		Long: `Watch an inbox directory. Dropping a YAML or JSON job file submits a
generation job:

    source: https://www.youtube.com/watch?v=...
    max_shorts: 3
    transcript: talk.json        # path relative to the job file
    segments:                    # optional, bypasses ranking
      - {start: 10, end: 40, title: Opening}

Processed files are renamed with a .done or .failed suffix.`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
	cmd.Flags().String("dir", "", "Inbox directory (defaults to paths.inbox_dir)")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir = cfg.Paths.InboxDir
	}
	if dir == "" {
		return errors.New("no inbox directory: set --dir or paths.inbox_dir")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create inbox: %w", err)
	}

	app, err := pipeline.Build(cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("watching inbox", "dir", dir)

	settle := newSettler(writeSettleDelay, func(path string) {
		processJobFile(ctx, app, path)
	})

	for {
		select {
		case <-ctx.Done():
			log.Info("waiting for running jobs")
			settle.Drain()
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !isJobFile(event.Name) {
				continue
			}
			settle.Schedule(event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			log.Error("watcher error", "error", err)
		}
	}
}

// settler coalesces file events: a path's run fires only once it has been
// quiet for the settle delay. Drain stops every pending timer before waiting,
// so no run can start once shutdown has begun.
type settler struct {
	mu       sync.Mutex
	delay    time.Duration
	timers   map[string]*time.Timer
	wg       sync.WaitGroup
	draining bool
	run      func(path string)
}

func newSettler(delay time.Duration, run func(path string)) *settler {
	return &settler{
		delay:  delay,
		timers: make(map[string]*time.Timer),
		run:    run,
	}
}

func (s *settler) Schedule(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draining {
		return
	}
	if t, ok := s.timers[path]; ok {
		t.Reset(s.delay)
		return
	}
	s.timers[path] = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		if s.draining {
			s.mu.Unlock()
			return
		}
		delete(s.timers, path)
		s.wg.Add(1)
		s.mu.Unlock()

		defer s.wg.Done()
		s.run(path)
	})
}

// Drain cancels pending timers and blocks until in-flight runs finish.
func (s *settler) Drain() {
	s.mu.Lock()
	s.draining = true
	for path, t := range s.timers {
		t.Stop()
		delete(s.timers, path)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func isJobFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// jobFile is the inbox job format. YAML is a superset of JSON, so one
// decoder covers both extensions.
type jobFile struct {
	Source     string                `yaml:"source"`
	MaxShorts  int                   `yaml:"max_shorts"`
	Transcript string                `yaml:"transcript"`
	Segments   []types.CustomSegment `yaml:"segments"`
}

func processJobFile(ctx context.Context, app *pipeline.App, path string) {
	log := app.Log.With("job_file", filepath.Base(path))

	in, err := loadJobFile(path)
	if err != nil {
		log.Error("job file rejected", "error", err)
		markJobFile(path, ".failed", log)
		return
	}

	log.Info("job submitted", "source", in.Source)
	res, err := app.UC.GenerateShorts(ctx, in)
	for _, r := range res.Results {
		if r.Failed() {
			log.Warn("short failed", "title", r.Title, "reason", r.Reason)
		} else {
			log.Info("short generated", "title", r.Title, "filename", r.Short.Filename)
		}
	}
	if err != nil {
		log.Error("job failed", "error", err)
		markJobFile(path, ".failed", log)
		return
	}
	markJobFile(path, ".done", log)
}

func loadJobFile(path string) (usecase.GenerateInput, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return usecase.GenerateInput{}, err
	}
	var job jobFile
	if err := yaml.Unmarshal(b, &job); err != nil {
		return usecase.GenerateInput{}, fmt.Errorf("parse job: %w", err)
	}
	if job.Source == "" {
		return usecase.GenerateInput{}, errors.New("job has no source")
	}
	if job.Transcript == "" && len(job.Segments) == 0 {
		return usecase.GenerateInput{}, errors.New("job needs a transcript or segments")
	}

	in := usecase.GenerateInput{
		Source:    job.Source,
		MaxShorts: job.MaxShorts,
		Custom:    job.Segments,
	}
	if job.Transcript != "" {
		trPath := job.Transcript
		if !filepath.IsAbs(trPath) {
			trPath = filepath.Join(filepath.Dir(path), trPath)
		}
		raw, err := os.ReadFile(trPath)
		if err != nil {
			return usecase.GenerateInput{}, fmt.Errorf("read transcript: %w", err)
		}
		tr, err := transcript.Decode(raw)
		if err != nil {
			return usecase.GenerateInput{}, err
		}
		in.Transcript = tr
	}
	return in, nil
}

func markJobFile(path, suffix string, log *slog.Logger) {
	if err := os.Rename(path, path+suffix); err != nil {
		log.Error("rename job file", "error", err)
	}
}
