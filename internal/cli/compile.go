package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/boopesh07/VideoToShorts/internal/pipeline"
	"github.com/boopesh07/VideoToShorts/internal/types"
	"github.com/boopesh07/VideoToShorts/internal/usecase"
)

func newCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile <source>",
		Short: "Stitch several time ranges of one source into a single clip",
		Args:  cobra.ExactArgs(1),
		RunE:  runCompile,
	}
	cmd.Flags().StringArray("range", nil, `Time range as "start-end" in seconds (repeatable, order preserved)`)
	cmd.Flags().String("name", "", "Output name")
	return cmd
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	rangeSpecs, _ := cmd.Flags().GetStringArray("range")
	if len(rangeSpecs) == 0 {
		return fmt.Errorf("at least one --range is required")
	}
	ranges := make([]types.TimeRange, 0, len(rangeSpecs))
	for _, spec := range rangeSpecs {
		r, err := parseRange(spec)
		if err != nil {
			return err
		}
		ranges = append(ranges, r)
	}
	name, _ := cmd.Flags().GetString("name")

	app, err := pipeline.Build(cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	res, err := app.UC.CompileSegments(cmd.Context(), usecase.CompileInput{
		Source:     args[0],
		Ranges:     ranges,
		OutputName: name,
	})
	if err != nil {
		return err
	}

	for _, warning := range res.Warnings {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", warning)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%d segments, %.1f MB)\n",
		res.Short.FilePath, res.SegmentsDownloaded, float64(res.FileSizeBytes)/(1024*1024))
	return nil
}

// parseRange reads "start-end" seconds, e.g. "10-40" or "12.5-42.5".
func parseRange(spec string) (types.TimeRange, error) {
	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return types.TimeRange{}, fmt.Errorf("invalid range %q: want start-end", spec)
	}
	start, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return types.TimeRange{}, fmt.Errorf("invalid range start %q: %w", parts[0], err)
	}
	end, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return types.TimeRange{}, fmt.Errorf("invalid range end %q: %w", parts[1], err)
	}
	if end <= start {
		return types.TimeRange{}, fmt.Errorf("invalid range %q: end must be after start", spec)
	}
	return types.TimeRange{Start: start, End: end}, nil
}
