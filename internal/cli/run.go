package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/boopesh07/VideoToShorts/internal/config"
	"github.com/boopesh07/VideoToShorts/internal/logging"
	"github.com/boopesh07/VideoToShorts/internal/types"
)

// setup loads the configuration named by --config and builds the logger,
// honoring the log flag overrides.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, _, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.Logging.Level
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		level = v
	}
	format := cfg.Logging.Format
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		format = v
	}
	log, err := logging.New(logging.Options{Level: level, Format: format})
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func newTable(cmd *cobra.Command) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	return t
}

func renderSegments(cmd *cobra.Command, segs []types.ScoredSegment, method string) {
	t := newTable(cmd)
	t.AppendHeader(table.Row{"Rank", "Start", "End", "Dur", "Score", "Viral Potential", "Title"})
	for _, seg := range segs {
		t.AppendRow(table.Row{
			seg.Rank,
			fmt.Sprintf("%.1fs", seg.StartTime),
			fmt.Sprintf("%.1fs", seg.EndTime),
			fmt.Sprintf("%.0fs", seg.Duration),
			fmt.Sprintf("%.1f", seg.EngagementScore),
			seg.ViralPotential,
			seg.Title,
		})
	}
	t.Render()
	fmt.Fprintf(cmd.OutOrStdout(), "analysis method: %s\n", method)
}

func renderShorts(cmd *cobra.Command, shorts []types.GeneratedShort) {
	t := newTable(cmd)
	t.AppendHeader(table.Row{"Filename", "Title", "Duration", "Ranges", "Created"})
	for _, s := range shorts {
		t.AppendRow(table.Row{
			s.Filename,
			s.Title,
			fmt.Sprintf("%.1fs", s.Duration),
			s.SourceRangeCount,
			s.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	t.Render()
}

func readTranscriptFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	return b, nil
}
