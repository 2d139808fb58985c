package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/boopesh07/VideoToShorts/internal/types"
)

// CompileInput describes a stitch job: several spans of one source combined
// into a single file, in the order given. Callers may order spans
// non-chronologically for narrative effect; the order is preserved.
type CompileInput struct {
	Source     string
	Ranges     []types.TimeRange
	OutputName string
}

// CompileResult reports one stitch job. SegmentFiles lists the intermediate
// span files that went into the output (they live in TempDir, which is
// removed when the job returns).
type CompileResult struct {
	Short              types.GeneratedShort
	SegmentsDownloaded int
	SegmentFiles       []string
	TempDir            string
	FileSizeBytes      int64
	Warnings           []string
}

// CompileSegments extracts every requested span and concatenates them into
// one cataloged file. A failed span is skipped with a warning; the job fails
// only when no span survives.
func (u *Usecase) CompileSegments(ctx context.Context, in CompileInput) (CompileResult, error) {
	if len(in.Ranges) == 0 {
		return CompileResult{}, errors.New("no segments to compile")
	}
	for i, r := range in.Ranges {
		if r.End <= r.Start || r.Start < 0 {
			return CompileResult{}, fmt.Errorf("segment %d: invalid range %.2f-%.2f", i, r.Start, r.End)
		}
	}

	title := in.OutputName
	if title == "" {
		title = "compilation"
	}

	tmpDir, err := os.MkdirTemp(u.opt.TempDir, "compile-*")
	if err != nil {
		return CompileResult{}, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)
	out := CompileResult{TempDir: tmpDir}

	specs := make([]shortSpec, len(in.Ranges))
	for i, r := range in.Ranges {
		specs[i] = shortSpec{Range: r}
	}
	env, err := u.resolveSource(ctx, in.Source, tmpDir, 0, specs)
	if err != nil {
		return CompileResult{}, err
	}

	reservation, err := u.d.Catalog.Reserve(ctx, title)
	if err != nil {
		return CompileResult{}, fmt.Errorf("reserve output name: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			u.release(reservation)
		}
	}()

	// Extract spans concurrently; parts keeps the caller's order, holes mark
	// failures.
	parts := make([]string, len(in.Ranges))
	warnings := make([]string, len(in.Ranges))
	var wg sync.WaitGroup
	for i, r := range in.Ranges {
		wg.Add(1)
		go func(i int, r types.TimeRange) {
			defer wg.Done()
			if err := u.sem.acquire(ctx); err != nil {
				warnings[i] = fmt.Sprintf("segment %d canceled: %v", i, err)
				return
			}
			defer u.sem.release()
			part, err := u.extractRange(ctx, env, r, tmpDir, i)
			if err != nil {
				u.d.Log.Warn("span extraction failed",
					"index", i, "start", r.Start, "end", r.End, "error", err)
				warnings[i] = fmt.Sprintf("segment %d (%.1f-%.1f): %v", i, r.Start, r.End, err)
				return
			}
			parts[i] = part
		}(i, r)
	}
	wg.Wait()

	kept := parts[:0]
	for i, p := range parts {
		if p != "" {
			kept = append(kept, p)
		} else if warnings[i] != "" {
			out.Warnings = append(out.Warnings, warnings[i])
		}
	}
	if len(kept) == 0 {
		return out, fmt.Errorf("no segments could be extracted: %s", out.Warnings[0])
	}

	if err := u.assemble(ctx, kept, reservation.Path); err != nil {
		return out, fmt.Errorf("assemble: %w", err)
	}

	duration := 0.0
	if info, probeErr := u.d.Video.Probe(ctx, reservation.Path); probeErr == nil {
		duration = info.Duration
	}
	first, last := in.Ranges[0], in.Ranges[len(in.Ranges)-1]
	short, err := u.d.Catalog.Commit(ctx, reservation, "",
		first.Start, last.End, duration, len(kept))
	if err != nil {
		return out, fmt.Errorf("register output: %w", err)
	}
	committed = true

	out.Short = short
	out.SegmentsDownloaded = len(kept)
	for _, p := range kept {
		out.SegmentFiles = append(out.SegmentFiles, filepath.Base(p))
	}
	if st, statErr := os.Stat(short.FilePath); statErr == nil {
		out.FileSizeBytes = st.Size()
	}
	u.d.Log.Info("compilation generated",
		"filename", short.Filename, "segments", len(kept), "duration", duration)
	return out, nil
}

// assemble concatenates the spans into the output path. A single span moves
// directly into place; multiple spans are normalized to shared codec
// parameters first, then stitched with stream copy.
func (u *Usecase) assemble(ctx context.Context, parts []string, outPath string) error {
	if len(parts) == 1 {
		return moveFile(parts[0], outPath)
	}
	normalized, err := u.normalizeSpans(ctx, parts)
	if err != nil {
		return err
	}
	return u.d.Video.Concat(ctx, normalized, outPath)
}

// normalizeSpans re-encodes any span whose codec or dimensions differ from
// the first span's, so the concat demuxer can stream-copy. Spans from one
// source share parameters, making this a no-op in the common case.
func (u *Usecase) normalizeSpans(ctx context.Context, parts []string) ([]string, error) {
	ref, err := u.d.Video.Probe(ctx, parts[0])
	if err != nil {
		return nil, fmt.Errorf("probe reference span: %w", err)
	}

	out := make([]string, len(parts))
	out[0] = parts[0]
	for i := 1; i < len(parts); i++ {
		info, err := u.d.Video.Probe(ctx, parts[i])
		if err != nil {
			return nil, fmt.Errorf("probe span %d: %w", i, err)
		}
		if info.Codec == ref.Codec && info.Width == ref.Width && info.Height == ref.Height {
			out[i] = parts[i]
			continue
		}
		u.d.Log.Debug("normalizing span for concat",
			"span", parts[i], "codec", info.Codec, "ref_codec", ref.Codec)
		norm := normalizedPath(parts[i])
		if err := u.d.Video.TrimPrecise(ctx, parts[i],
			types.TimeRange{Start: 0, End: info.Duration}, norm, false); err != nil {
			return nil, fmt.Errorf("normalize span %d: %w", i, err)
		}
		out[i] = norm
	}
	return out, nil
}

func normalizedPath(p string) string {
	ext := filepath.Ext(p)
	return p[:len(p)-len(ext)] + "_norm.mp4"
}
