package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/boopesh07/VideoToShorts/internal/pipeline"
	"github.com/boopesh07/VideoToShorts/internal/transcript"
	"github.com/boopesh07/VideoToShorts/internal/types"
	"github.com/boopesh07/VideoToShorts/internal/usecase"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <source>",
		Short: "Generate shorts from a video URL or local file",
		Args:  cobra.ExactArgs(1),
		RunE:  runGenerate,
	}
	cmd.Flags().String("transcript", "", "Transcript JSON file (required unless --segments is given)")
	cmd.Flags().String("segments", "", "YAML file of custom segments (bypasses ranking)")
	cmd.Flags().Int("max", 0, "Maximum number of shorts")
	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	transcriptPath, _ := cmd.Flags().GetString("transcript")
	segmentsPath, _ := cmd.Flags().GetString("segments")
	maxShorts, _ := cmd.Flags().GetInt("max")
	if transcriptPath == "" && segmentsPath == "" {
		return errors.New("either --transcript or --segments is required")
	}

	in := usecase.GenerateInput{Source: args[0], MaxShorts: maxShorts}
	if transcriptPath != "" {
		raw, err := readTranscriptFile(transcriptPath)
		if err != nil {
			return err
		}
		tr, err := transcript.Decode(raw)
		if err != nil {
			return err
		}
		in.Transcript = tr
	}
	if segmentsPath != "" {
		custom, err := readSegmentsFile(segmentsPath)
		if err != nil {
			return err
		}
		in.Custom = custom
	}

	app, err := pipeline.Build(cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	res, err := app.UC.GenerateShorts(cmd.Context(), in)
	if err != nil && !errors.Is(err, usecase.ErrAllShortsFailed) {
		return err
	}

	printJobReport(cmd, res)
	if err != nil {
		return err
	}
	return nil
}

func printJobReport(cmd *cobra.Command, res usecase.GenerateResult) {
	var shorts []types.GeneratedShort
	for _, r := range res.Results {
		if r.Failed() {
			fmt.Fprintf(cmd.ErrOrStderr(), "FAILED %s: %s\n", r.Title, r.Reason)
			continue
		}
		for _, warning := range r.Warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning %s: %s\n", r.Title, warning)
		}
		shorts = append(shorts, *r.Short)
	}
	if len(shorts) > 0 {
		renderShorts(cmd, shorts)
	}
	if res.AnalysisMethod != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "analysis method: %s\n", res.AnalysisMethod)
	}
}

// readSegmentsFile parses a YAML list of custom segments:
//
//   - start: 12.5
//     end: 42.5
//     title: Opening hook
func readSegmentsFile(path string) ([]types.CustomSegment, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read segments: %w", err)
	}
	var segs []types.CustomSegment
	if err := yaml.Unmarshal(b, &segs); err != nil {
		return nil, fmt.Errorf("parse segments: %w", err)
	}
	if len(segs) == 0 {
		return nil, errors.New("segments file is empty")
	}
	return segs, nil
}
