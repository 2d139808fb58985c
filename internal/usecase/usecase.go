// Package usecase orchestrates the shorts pipeline: windowing, ranking with
// heuristic fallback, per-short extraction and assembly under a bounded
// worker pool, and catalog registration of the finished files.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/boopesh07/VideoToShorts/internal/catalog"
	"github.com/boopesh07/VideoToShorts/internal/domain/ranking"
	"github.com/boopesh07/VideoToShorts/internal/domain/windowing"
	"github.com/boopesh07/VideoToShorts/internal/logging"
	"github.com/boopesh07/VideoToShorts/internal/ports"
	"github.com/boopesh07/VideoToShorts/internal/types"
)

// ErrNoUtterances reports a generation or suggestion request whose transcript
// holds no usable speech. Nothing to window means nothing to rank; no
// fallback applies.
var ErrNoUtterances = errors.New("transcript has no utterances")

// ErrAllShortsFailed reports a job in which not one requested short could be
// produced.
var ErrAllShortsFailed = errors.New("all requested shorts failed")

// Tunables shared by the extraction paths.
const (
	// copyDriftTolerance is how far a stream-copied clip may land from the
	// requested duration before the precise re-encode path takes over
	// (keyframe drift).
	copyDriftTolerance = 1.5

	// fullDownloadFraction decides between one whole-source download and
	// per-range fetches: above this share of the source, downloading once is
	// cheaper.
	fullDownloadFraction = 0.6
)

// Catalog is the slice of the shorts registry the pipeline needs: unique
// filename reservation before assembly, commit on success, release on
// failure.
type Catalog interface {
	Reserve(ctx context.Context, title string) (catalog.Reservation, error)
	Commit(ctx context.Context, res catalog.Reservation, text string, start, end, duration float64, rangeCount int) (types.GeneratedShort, error)
	Release(ctx context.Context, res catalog.Reservation) error
}

type Deps struct {
	Ranker   ports.AIRanker
	Resolver ports.SourceResolver
	Video    ports.VideoTool
	Catalog  Catalog
	Log      *slog.Logger
}

type Options struct {
	TempDir        string
	TargetDuration float64
	MaxSegments    int
	MinClip        float64
	MaxClip        float64
	MaxConcurrent  int
	ShortTimeout   time.Duration
	CropVertical   bool
}

type Usecase struct {
	d   Deps
	opt Options
	sem *sema
}

func New(d Deps, opt Options) *Usecase {
	if d.Log == nil {
		d.Log = logging.Nop()
	}
	if opt.TargetDuration <= 0 {
		opt.TargetDuration = 30
	}
	if opt.MaxSegments <= 0 {
		opt.MaxSegments = 5
	}
	if opt.MinClip <= 0 {
		opt.MinClip = 15
	}
	if opt.MaxClip <= opt.MinClip {
		opt.MaxClip = 60
	}
	if opt.ShortTimeout <= 0 {
		opt.ShortTimeout = 10 * time.Minute
	}
	return &Usecase{
		d:   d,
		opt: opt,
		sem: newSema(opt.MaxConcurrent),
	}
}

// Suggestion is the outcome of a ranking-only request.
type Suggestion struct {
	Segments       []types.ScoredSegment
	TargetDuration float64
	AnalysisMethod string
}

// SuggestSegments windows the transcript and ranks the candidates. The AI
// ranker gets one attempt; any failure selects the heuristic fallback, so a
// non-empty transcript always yields at least one segment.
func (u *Usecase) SuggestSegments(ctx context.Context, tr types.Transcript, targetDuration float64, maxSegments int) (Suggestion, error) {
	if targetDuration <= 0 {
		targetDuration = u.opt.TargetDuration
	}
	if maxSegments <= 0 {
		maxSegments = u.opt.MaxSegments
	}
	if len(tr.Utterances) == 0 {
		return Suggestion{}, ErrNoUtterances
	}

	cands := windowing.BuildCandidates(tr, targetDuration, maxSegments)
	if len(cands) == 0 {
		return Suggestion{}, ErrNoUtterances
	}

	segs, err := u.d.Ranker.Rank(ctx, tr, cands, targetDuration, maxSegments)
	method := types.AnalysisAI
	if err != nil {
		u.d.Log.Warn("ai ranking failed, using heuristic fallback", "error", err)
		segs = ranking.Fallback(cands, targetDuration, maxSegments)
		method = types.AnalysisFallback
	}
	for i := range segs {
		segs[i].Title = fmt.Sprintf("AI Suggested Segment %d", segs[i].Rank)
	}

	return Suggestion{
		Segments:       segs,
		TargetDuration: targetDuration,
		AnalysisMethod: method,
	}, nil
}

// GenerateInput describes one shorts-generation job. Custom segments bypass
// windowing and ranking; otherwise the transcript is ranked and the top
// MaxShorts segments are produced.
type GenerateInput struct {
	Source     string
	Transcript types.Transcript
	MaxShorts  int
	Custom     []types.CustomSegment
}

// GenerateResult is the job-level report. Results preserves the caller's
// selection order and contains one entry per requested short, success or
// failure.
type GenerateResult struct {
	SourcePath       string
	Results          []types.ShortResult
	SegmentsAnalyzed int
	AnalysisMethod   string
}

// shortSpec is one short to produce: a title, its transcript text, and the
// span to extract. A non-empty Reject marks a request that failed validation;
// it still occupies its slot in the results but is never extracted.
type shortSpec struct {
	Title  string
	Text   string
	Range  types.TimeRange
	Reject string
}

// GenerateShorts runs one job: select segments (or accept the caller's),
// extract and assemble each short under the bounded worker pool, and
// register the survivors in the catalog. Sibling shorts are isolated failure
// domains; the job errors only when every requested short fails.
func (u *Usecase) GenerateShorts(ctx context.Context, in GenerateInput) (GenerateResult, error) {
	maxShorts := in.MaxShorts
	if maxShorts <= 0 {
		maxShorts = 3
	}

	var out GenerateResult
	specs, err := u.selectSpecs(ctx, in, maxShorts, &out)
	if err != nil {
		return GenerateResult{}, err
	}
	if len(specs) == 0 {
		return GenerateResult{}, errors.New("no segments to generate")
	}

	tmpDir, err := os.MkdirTemp(u.opt.TempDir, "job-*")
	if err != nil {
		return GenerateResult{}, fmt.Errorf("create job temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	env, err := u.resolveSource(ctx, in.Source, tmpDir, in.Transcript.TotalDuration, specs)
	if err != nil {
		return GenerateResult{}, err
	}
	out.SourcePath = env.localPath

	out.Results = make([]types.ShortResult, len(specs))
	var wg sync.WaitGroup
	for i, spec := range specs {
		if spec.Reject != "" {
			out.Results[i] = types.ShortResult{Title: spec.Title, Reason: spec.Reject}
			continue
		}
		wg.Add(1)
		go func(i int, spec shortSpec) {
			defer wg.Done()
			if err := u.sem.acquire(ctx); err != nil {
				out.Results[i] = types.ShortResult{Title: spec.Title, Reason: "job canceled: " + err.Error()}
				return
			}
			defer u.sem.release()
			out.Results[i] = u.buildShort(ctx, env, spec)
		}(i, spec)
	}
	wg.Wait()

	failed := 0
	for _, r := range out.Results {
		if r.Failed() {
			failed++
		}
	}
	if failed == len(out.Results) {
		return out, ErrAllShortsFailed
	}
	return out, nil
}

// selectSpecs turns the request into concrete shorts: caller-supplied custom
// segments (defaulted, then clamped like any other range), or the top ranked
// segments otherwise. Custom ranges that fail validation keep their slot as a
// rejected spec so the caller sees why the short is missing.
func (u *Usecase) selectSpecs(ctx context.Context, in GenerateInput, maxShorts int, out *GenerateResult) ([]shortSpec, error) {
	total := in.Transcript.TotalDuration

	if len(in.Custom) > 0 {
		specs := make([]shortSpec, 0, len(in.Custom))
		for i, c := range in.Custom {
			r := types.TimeRange{Start: c.Start, End: c.End}
			if r.End <= r.Start {
				r.End = r.Start + u.opt.TargetDuration
			}
			title := c.Title
			if title == "" {
				title = fmt.Sprintf("Short_%d", i+1)
			}
			text := c.Text
			if text == "" {
				text = fmt.Sprintf("Short %d", i+1)
			}
			spec := shortSpec{Title: title, Text: text}
			if clamped, ok := u.clampRange(r, total); ok {
				spec.Range = clamped
			} else {
				u.d.Log.Warn("skipping custom segment outside source duration",
					"start", r.Start, "end", r.End, "total", total)
				spec.Reject = fmt.Sprintf("segment %.1f-%.1f lies outside the %.1fs source", r.Start, r.End, total)
			}
			specs = append(specs, spec)
		}
		out.SegmentsAnalyzed = len(in.Custom)
		return specs, nil
	}

	sug, err := u.SuggestSegments(ctx, in.Transcript, u.opt.TargetDuration, maxShorts)
	if err != nil {
		return nil, err
	}
	out.SegmentsAnalyzed = len(in.Transcript.Utterances)
	out.AnalysisMethod = sug.AnalysisMethod

	specs := make([]shortSpec, 0, len(sug.Segments))
	for _, seg := range sug.Segments {
		r, ok := u.clampRange(types.TimeRange{Start: seg.StartTime, End: seg.EndTime}, total)
		if !ok {
			u.d.Log.Warn("skipping segment outside source duration",
				"start", seg.StartTime, "end", seg.EndTime, "total", total)
			continue
		}
		specs = append(specs, shortSpec{Title: seg.Title, Text: seg.Text, Range: r})
	}
	return specs, nil
}

// clampRange bounds a requested range to the clip length limits and the
// source duration. Ranges starting past the end of the source are unusable.
func (u *Usecase) clampRange(r types.TimeRange, total float64) (types.TimeRange, bool) {
	if total > 0 && r.Start >= total {
		return types.TimeRange{}, false
	}
	if r.Start < 0 {
		r.Start = 0
	}
	if d := r.Duration(); d < u.opt.MinClip {
		r.End = r.Start + u.opt.MinClip
	} else if d > u.opt.MaxClip {
		r.End = r.Start + u.opt.MaxClip
	}
	if total > 0 && r.End > total {
		r.End = total
	}
	if r.End <= r.Start {
		return types.TimeRange{}, false
	}
	return r, true
}

// jobEnv is the per-job extraction context shared read-only by the
// sub-tasks.
type jobEnv struct {
	source    string
	localPath string // non-empty when the whole source is on disk
	tmpDir    string
}

// resolveSource decides between the whole-source and per-range fetch
// strategies. A local file skips resolution; a remote source is downloaded
// once when the requested footage approaches the full length, and fetched
// per-range otherwise.
func (u *Usecase) resolveSource(ctx context.Context, source, tmpDir string, totalDur float64, specs []shortSpec) (jobEnv, error) {
	env := jobEnv{source: source, tmpDir: tmpDir}

	if info, err := os.Stat(source); err == nil && !info.IsDir() {
		abs, err := filepath.Abs(source)
		if err != nil {
			return jobEnv{}, err
		}
		env.localPath = abs
		return env, nil
	}

	requested := 0.0
	for _, s := range specs {
		requested += s.Range.Duration()
	}
	if totalDur > 0 && requested > fullDownloadFraction*totalDur {
		u.d.Log.Info("downloading whole source",
			"requested_seconds", requested, "total_seconds", totalDur)
		local, err := u.d.Resolver.FetchFull(ctx, source, tmpDir)
		if err != nil {
			return jobEnv{}, fmt.Errorf("download source: %w", err)
		}
		env.localPath = local
	}
	return env, nil
}

// buildShort produces one short end to end: reserve a filename, extract the
// span, move it into place, commit. Every failure path releases the
// reservation so the name can be reused.
func (u *Usecase) buildShort(ctx context.Context, env jobEnv, spec shortSpec) types.ShortResult {
	ctx, cancel := context.WithTimeout(ctx, u.opt.ShortTimeout)
	defer cancel()

	res := types.ShortResult{Title: spec.Title}
	log := u.d.Log.With("short", spec.Title)

	reservation, err := u.d.Catalog.Reserve(ctx, spec.Title)
	if err != nil {
		res.Reason = fmt.Sprintf("reserve output name: %v", err)
		return res
	}
	committed := false
	defer func() {
		if !committed {
			u.release(reservation)
		}
	}()

	shortTmp, err := os.MkdirTemp(env.tmpDir, "short-*")
	if err != nil {
		res.Reason = fmt.Sprintf("create work dir: %v", err)
		return res
	}
	defer os.RemoveAll(shortTmp)

	part, err := u.extractRange(ctx, env, spec.Range, shortTmp, 0)
	if err != nil {
		log.Warn("extraction failed", "start", spec.Range.Start, "end", spec.Range.End, "error", err)
		res.Reason = fmt.Sprintf("extract %.1f-%.1f: %v", spec.Range.Start, spec.Range.End, err)
		return res
	}

	if err := moveFile(part, reservation.Path); err != nil {
		res.Reason = fmt.Sprintf("place output: %v", err)
		return res
	}

	duration := spec.Range.Duration()
	if info, probeErr := u.d.Video.Probe(ctx, reservation.Path); probeErr == nil {
		duration = info.Duration
	}

	short, err := u.d.Catalog.Commit(ctx, reservation, spec.Text,
		spec.Range.Start, spec.Range.End, duration, 1)
	if err != nil {
		res.Reason = fmt.Sprintf("register short: %v", err)
		return res
	}
	committed = true
	log.Info("short generated", "filename", short.Filename, "duration", duration)
	res.Short = &short
	return res
}

// extractRange produces one local span file for the range: a trim of the
// local source when the job holds one, a section-limited fetch otherwise.
// Fetched spans still go through the re-encode when cropping is on, so both
// paths deliver the same aspect ratio.
func (u *Usecase) extractRange(ctx context.Context, env jobEnv, r types.TimeRange, dir string, idx int) (string, error) {
	if env.localPath != "" {
		out := filepath.Join(dir, fmt.Sprintf("span_%02d.mp4", idx))
		if err := u.trimLocal(ctx, env.localPath, r, out); err != nil {
			return "", err
		}
		return out, nil
	}
	fetched, err := u.d.Resolver.FetchRange(ctx, env.source, r, dir)
	if err != nil || !u.opt.CropVertical {
		return fetched, err
	}
	out := filepath.Join(dir, fmt.Sprintf("span_%02d.mp4", idx))
	if err := u.d.Video.TrimPrecise(ctx, fetched, types.TimeRange{Start: 0, End: r.Duration()}, out, true); err != nil {
		return "", err
	}
	return out, nil
}

// trimLocal cuts a range from a local file. Stream copy is tried first and
// kept when the result lands within tolerance of the requested duration;
// otherwise (or when cropping, which needs a re-encode anyway) the precise
// path runs.
func (u *Usecase) trimLocal(ctx context.Context, in string, r types.TimeRange, out string) error {
	if !u.opt.CropVertical {
		if err := u.d.Video.TrimCopy(ctx, in, r, out); err == nil {
			info, probeErr := u.d.Video.Probe(ctx, out)
			if probeErr == nil && math.Abs(info.Duration-r.Duration()) <= copyDriftTolerance {
				return nil
			}
			u.d.Log.Debug("stream copy drifted, re-encoding",
				"want", r.Duration(), "got", info.Duration)
		}
	}
	return u.d.Video.TrimPrecise(ctx, in, r, out, u.opt.CropVertical)
}

// release drops a reservation outside the (possibly expired) job context.
func (u *Usecase) release(res catalog.Reservation) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := u.d.Catalog.Release(ctx, res); err != nil {
		u.d.Log.Error("release reservation failed", "id", res.ID, "error", err)
	}
}

// moveFile renames when possible and falls back to a copy across
// filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := out.ReadFrom(in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return os.Remove(src)
}
