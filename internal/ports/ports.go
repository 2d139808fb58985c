package ports

import (
	"context"

	"github.com/boopesh07/VideoToShorts/internal/types"
)

// AIRanker asks a generative model to pick and rank the best segments. The
// returned slice is already validated and re-ranked 1..N; implementations
// must treat the raw model output as untrusted.
type AIRanker interface {
	Rank(
		ctx context.Context,
		tr types.Transcript,
		cands []types.CandidateSegment,
		targetDuration float64,
		maxSegments int,
	) ([]types.ScoredSegment, error)
}

// SourceResolver turns a source locator into local media files. FetchRange
// retrieves only the requested span where the tool supports it; FetchFull
// downloads the whole asset once for local trimming.
type SourceResolver interface {
	FetchFull(ctx context.Context, locator, destDir string) (string, error)
	FetchRange(ctx context.Context, locator string, r types.TimeRange, destDir string) (string, error)
}

// VideoTool wraps the media toolchain: range trims (stream copy and precise
// re-encode), ordered concatenation, and probing.
type VideoTool interface {
	TrimCopy(ctx context.Context, in string, r types.TimeRange, out string) error
	TrimPrecise(ctx context.Context, in string, r types.TimeRange, out string, cropVertical bool) error
	Concat(ctx context.Context, parts []string, out string) error
	Probe(ctx context.Context, in string) (types.MediaInfo, error)
}
