package windowing

import (
	"testing"

	"github.com/boopesh07/VideoToShorts/internal/types"
)

func transcript(n int, step float64) types.Transcript {
	utts := make([]types.Utterance, n)
	for i := range utts {
		utts[i] = types.Utterance{
			Start:      float64(i) * step,
			End:        float64(i+1) * step,
			Text:       "utterance",
			Confidence: 0.9,
		}
	}
	return types.Transcript{Utterances: utts}
}

func TestBuildCandidates_WindowBounds(t *testing.T) {
	target := 30.0
	cands := BuildCandidates(transcript(40, 6), target, 5)
	if len(cands) == 0 {
		t.Fatalf("expected candidates")
	}
	for _, c := range cands {
		if c.Duration < target*minDurationFactor || c.Duration > target*maxDurationFactor {
			t.Fatalf("candidate duration %.1f outside [%.1f, %.1f]",
				c.Duration, target*minDurationFactor, target*maxDurationFactor)
		}
		if c.EndTime <= c.StartTime {
			t.Fatalf("inverted candidate: %.1f..%.1f", c.StartTime, c.EndTime)
		}
	}
}

func TestBuildCandidates_NeverSplitsUtterances(t *testing.T) {
	tr := transcript(40, 6)
	for _, c := range BuildCandidates(tr, 30, 5) {
		if len(c.UtteranceIndices) == 0 {
			t.Fatalf("candidate without utterances")
		}
		first := c.UtteranceIndices[0]
		last := c.UtteranceIndices[len(c.UtteranceIndices)-1]
		if c.StartTime != tr.Utterances[first].Start || c.EndTime != tr.Utterances[last].End {
			t.Fatalf("candidate [%.1f, %.1f] does not align with utterance edges", c.StartTime, c.EndTime)
		}
	}
}

func TestBuildCandidates_ShortTranscriptYieldsWhole(t *testing.T) {
	tr := transcript(3, 4) // 12s of content, target 30s
	cands := BuildCandidates(tr, 30, 5)
	if len(cands) != 1 {
		t.Fatalf("expected exactly one candidate, got %d", len(cands))
	}
	c := cands[0]
	if c.StartTime != 0 || c.EndTime != 12 {
		t.Fatalf("whole-transcript candidate got [%.1f, %.1f]", c.StartTime, c.EndTime)
	}
}

func TestBuildCandidates_Empty(t *testing.T) {
	if got := BuildCandidates(types.Transcript{}, 30, 5); got != nil {
		t.Fatalf("expected nil for empty transcript, got %d candidates", len(got))
	}
	if got := BuildCandidates(transcript(5, 6), 0, 5); got != nil {
		t.Fatalf("expected nil for zero target, got %d candidates", len(got))
	}
}

func TestBuildCandidates_CappedOnLongTranscripts(t *testing.T) {
	cands := BuildCandidates(transcript(5000, 6), 30, 10)
	if len(cands) == 0 {
		t.Fatalf("expected candidates")
	}
	if len(cands) > candidateCeiling {
		t.Fatalf("candidate count %d exceeds ceiling %d", len(cands), candidateCeiling)
	}
}

func TestBuildCandidates_MeanConfidence(t *testing.T) {
	tr := types.Transcript{Utterances: []types.Utterance{
		{Start: 0, End: 15, Text: "a", Confidence: 0.8},
		{Start: 15, End: 30, Text: "b", Confidence: 0.6},
	}}
	cands := BuildCandidates(tr, 30, 1)
	if len(cands) == 0 {
		t.Fatalf("expected candidates")
	}
	want := 0.7
	if got := cands[0].MeanConfidence; got < want-1e-9 || got > want+1e-9 {
		t.Fatalf("mean confidence = %v, want %v", got, want)
	}
}

func TestSampleStarts(t *testing.T) {
	idxs := sampleStarts(10)
	if len(idxs) != 10 {
		t.Fatalf("small n should not be sampled, got %d starts", len(idxs))
	}

	idxs = sampleStarts(1000)
	if len(idxs) > maxStartCount+1 {
		t.Fatalf("sampled starts %d exceed cap", len(idxs))
	}
	if idxs[len(idxs)-1] != 999 {
		t.Fatalf("last index missing, tail = %d", idxs[len(idxs)-1])
	}
}
