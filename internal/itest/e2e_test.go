//go:build integration

package itest

import (
	"context"
	"math"
	"os"
	"testing"
	"time"

	"github.com/boopesh07/VideoToShorts/internal/catalog"
	"github.com/boopesh07/VideoToShorts/internal/logging"
	"github.com/boopesh07/VideoToShorts/internal/ports/adapters/ffmpeg"
	"github.com/boopesh07/VideoToShorts/internal/types"
	"github.com/boopesh07/VideoToShorts/internal/usecase"
)

// TestE2E_GenerateFromLocalSource exercises the real extraction path end to
// end: a synthetic source video, custom segments (no model call), real ffmpeg
// trims, and the catalog holding the results.
func TestE2E_GenerateFromLocalSource(t *testing.T) {
	requireTools(t, "ffmpeg", "ffprobe")

	tmp := t.TempDir()
	source := makeFixture(t, tmp, 90)

	store, err := catalog.Open(tmp + "/shorts")
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	defer store.Close()

	uc := usecase.New(usecase.Deps{
		Video:   ffmpeg.New("", ""),
		Catalog: store,
		Log:     logging.Nop(),
	}, usecase.Options{
		TempDir: tmp + "/work",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	res, err := uc.GenerateShorts(ctx, usecase.GenerateInput{
		Source: source,
		Custom: []types.CustomSegment{
			{Start: 10, End: 40, Title: "First cut"},
			{Start: 50, End: 75, Title: "Second cut"},
		},
	})
	if err != nil {
		t.Fatalf("GenerateShorts: %v", err)
	}
	if len(res.Results) != 2 {
		t.Fatalf("results = %d", len(res.Results))
	}

	wantDur := []float64{30, 25}
	for i, r := range res.Results {
		if r.Failed() {
			t.Fatalf("short %d failed: %s", i, r.Reason)
		}
		got, err := probeDurationSeconds(r.Short.FilePath)
		if err != nil {
			t.Fatalf("probe short %d: %v", i, err)
		}
		if math.Abs(got-wantDur[i]) > 1.5 {
			t.Fatalf("short %d duration = %.2fs, want %.0fs", i, got, wantDur[i])
		}
	}

	shorts, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(shorts) != 2 {
		t.Fatalf("catalog holds %d shorts, want 2", len(shorts))
	}
}

func TestE2E_CompileConcatenatesRanges(t *testing.T) {
	requireTools(t, "ffmpeg", "ffprobe")

	tmp := t.TempDir()
	source := makeFixture(t, tmp, 90)

	store, err := catalog.Open(tmp + "/shorts")
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	defer store.Close()

	uc := usecase.New(usecase.Deps{
		Video:   ffmpeg.New("", ""),
		Catalog: store,
		Log:     logging.Nop(),
	}, usecase.Options{
		TempDir: tmp + "/work",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	res, err := uc.CompileSegments(ctx, usecase.CompileInput{
		Source: source,
		Ranges: []types.TimeRange{
			{Start: 60, End: 80},
			{Start: 5, End: 20},
		},
		OutputName: "stitched",
	})
	if err != nil {
		t.Fatalf("CompileSegments: %v", err)
	}
	if res.SegmentsDownloaded != 2 {
		t.Fatalf("segments downloaded = %d", res.SegmentsDownloaded)
	}
	if _, err := os.Stat(res.Short.FilePath); err != nil {
		t.Fatalf("output missing: %v", err)
	}

	got, err := probeDurationSeconds(res.Short.FilePath)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if math.Abs(got-35) > 2 {
		t.Fatalf("compiled duration = %.2fs, want ~35s", got)
	}
}
