package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/boopesh07/VideoToShorts/internal/ports/adapters/gemini"
	"github.com/boopesh07/VideoToShorts/internal/transcript"
	"github.com/boopesh07/VideoToShorts/internal/usecase"
)

func newRankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank <transcript.json>",
		Short: "Rank a transcript's best segments without producing video",
		Args:  cobra.ExactArgs(1),
		RunE:  runRank,
	}
	cmd.Flags().Float64("duration", 0, "Target clip duration in seconds")
	cmd.Flags().Int("max", 0, "Maximum number of segments")
	cmd.Flags().Bool("json", false, "Print the raw segment payload instead of a table")
	return cmd
}

func runRank(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	raw, err := readTranscriptFile(args[0])
	if err != nil {
		return err
	}
	tr, err := transcript.Decode(raw)
	if err != nil {
		return err
	}

	duration, _ := cmd.Flags().GetFloat64("duration")
	maxSegments, _ := cmd.Flags().GetInt("max")

	ranker := gemini.New(gemini.Config{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.Ranking.Model,
		BaseURL: cfg.Ranking.BaseURL,
		Timeout: cfg.RankingTimeout(),
		Logger:  log,
	})
	uc := usecase.New(usecase.Deps{Ranker: ranker, Log: log}, usecase.Options{
		TargetDuration: cfg.Jobs.TargetDuration,
		MaxSegments:    cfg.Jobs.MaxSegments,
	})

	sug, err := uc.SuggestSegments(cmd.Context(), tr, duration, maxSegments)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		b, err := json.MarshalIndent(map[string]any{
			"suggested_segments": sug.Segments,
			"total_suggestions":  len(sug.Segments),
			"target_duration":    sug.TargetDuration,
			"analysis_method":    sug.AnalysisMethod,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	}

	renderSegments(cmd, sug.Segments, sug.AnalysisMethod)
	return nil
}
