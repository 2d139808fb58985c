package windowing

import (
	"strings"

	"github.com/boopesh07/VideoToShorts/internal/types"
)

// Window bounds relative to the target duration, plus generation caps that
// keep runtime predictable on long transcripts without sacrificing timeline
// coverage.
const (
	maxDurationFactor = 1.5
	minDurationFactor = 0.3

	maxStartCount    = 200
	capPerSegment    = 20
	minCandidateCap  = 40
	candidateCeiling = 200
)

// BuildCandidates slides a window over the utterances: one candidate starts
// at each (possibly stride-sampled) utterance and grows by whole utterances,
// stopping greedily once it reaches targetDuration and refusing growth past
// 1.5x. Utterances are never split. Candidates may overlap; overlap is
// resolved by ranking, not here.
//
// A transcript shorter than the target yields exactly one candidate spanning
// the whole transcript. An empty utterance list yields nil.
func BuildCandidates(tr types.Transcript, targetDuration float64, maxSegments int) []types.CandidateSegment {
	utts := tr.Utterances
	if targetDuration <= 0 || len(utts) == 0 {
		return nil
	}

	contentDur := utts[len(utts)-1].End - utts[0].Start
	if contentDur < targetDuration {
		return []types.CandidateSegment{wholeTranscript(utts)}
	}

	maxCandidates := capPerSegment * maxSegments
	if maxCandidates < minCandidateCap {
		maxCandidates = minCandidateCap
	}
	if maxCandidates > candidateCeiling {
		maxCandidates = candidateCeiling
	}

	out := make([]types.CandidateSegment, 0, maxCandidates)
	for _, i := range sampleStarts(len(utts)) {
		c, ok := grow(utts, i, targetDuration)
		if !ok {
			continue
		}
		out = append(out, c)
		if len(out) >= maxCandidates {
			break
		}
	}

	// Degenerate distributions (a single huge utterance, all-tail starts) can
	// reject every window; the whole transcript is then the only usable
	// candidate.
	if len(out) == 0 {
		return []types.CandidateSegment{wholeTranscript(utts)}
	}
	return out
}

// grow builds the single window anchored at utterance i. It returns false
// when the window lands outside the usable duration bounds.
func grow(utts []types.Utterance, i int, target float64) (types.CandidateSegment, bool) {
	start := utts[i].Start
	end := start

	indices := make([]int, 0, 8)
	parts := make([]string, 0, 8)
	confSum := 0.0

	for j := i; j < len(utts); j++ {
		if j > i && utts[j].End-start > target*maxDurationFactor {
			break
		}
		end = utts[j].End
		indices = append(indices, j)
		confSum += utts[j].Confidence
		if t := strings.TrimSpace(utts[j].Text); t != "" {
			parts = append(parts, t)
		}
		if end-start >= target {
			break
		}
	}

	dur := end - start
	if dur <= 0 || dur < target*minDurationFactor || dur > target*maxDurationFactor {
		return types.CandidateSegment{}, false
	}

	return types.CandidateSegment{
		StartTime:        start,
		EndTime:          end,
		Duration:         dur,
		Text:             strings.Join(parts, " "),
		UtteranceIndices: indices,
		MeanConfidence:   confSum / float64(len(indices)),
	}, true
}

func wholeTranscript(utts []types.Utterance) types.CandidateSegment {
	indices := make([]int, 0, len(utts))
	parts := make([]string, 0, len(utts))
	confSum := 0.0
	for i, u := range utts {
		indices = append(indices, i)
		confSum += u.Confidence
		if t := strings.TrimSpace(u.Text); t != "" {
			parts = append(parts, t)
		}
	}
	start := utts[0].Start
	end := utts[len(utts)-1].End
	return types.CandidateSegment{
		StartTime:        start,
		EndTime:          end,
		Duration:         end - start,
		Text:             strings.Join(parts, " "),
		UtteranceIndices: indices,
		MeanConfidence:   confSum / float64(len(utts)),
	}
}

// sampleStarts downsamples start indices on long transcripts. The final
// index is always included so late content still contributes candidates.
func sampleStarts(n int) []int {
	stride := 1
	if n > maxStartCount {
		stride = (n + maxStartCount - 1) / maxStartCount
	}
	idxs := make([]int, 0, n/stride+2)
	for i := 0; i < n; i += stride {
		idxs = append(idxs, i)
	}
	if last := n - 1; idxs[len(idxs)-1] != last {
		idxs = append(idxs, last)
	}
	return idxs
}
