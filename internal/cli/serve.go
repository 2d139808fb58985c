package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/boopesh07/VideoToShorts/internal/pipeline"
	"github.com/boopesh07/VideoToShorts/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP backend",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("bind", "", "Override the configured bind address")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	if bind, _ := cmd.Flags().GetString("bind"); bind != "" {
		cfg.Server.Bind = bind
	}
	if cfg.GeminiAPIKey == "" {
		log.Warn("GEMINI_API_KEY is not set; ranking will always use the heuristic fallback")
	}

	app, err := pipeline.Build(cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(app.UC, app.Store, server.Options{
		Bind:     cfg.Server.Bind,
		UIOrigin: cfg.Server.UIOrigin,
		Logger:   log,
	})
	if err := srv.Start(ctx); err != nil {
		return err
	}

	if maxAge := cfg.SweepMaxAge(); maxAge > 0 {
		go sweepLoop(ctx, app, maxAge)
	}

	<-ctx.Done()
	log.Info("shutting down")
	// Give in-flight requests a moment; Start's shutdown goroutine owns the
	// actual drain.
	time.Sleep(100 * time.Millisecond)
	return nil
}

// sweepLoop evicts expired catalog entries periodically while the daemon
// runs.
func sweepLoop(ctx context.Context, app *pipeline.App, maxAge time.Duration) {
	interval := maxAge / 4
	if interval > time.Hour {
		interval = time.Hour
	}
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.Store.Sweep(ctx, maxAge)
			if err != nil {
				app.Log.Error("catalog sweep failed", "error", err)
				continue
			}
			if n > 0 {
				app.Log.Info("catalog sweep evicted entries", "count", n)
			}
		}
	}
}
