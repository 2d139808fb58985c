package ranking

import (
	"testing"

	"github.com/boopesh07/VideoToShorts/internal/types"
)

func cand(start, end float64, text string, uttCount int, conf float64) types.CandidateSegment {
	idx := make([]int, uttCount)
	for i := range idx {
		idx[i] = i
	}
	return types.CandidateSegment{
		StartTime:        start,
		EndTime:          end,
		Duration:         end - start,
		Text:             text,
		UtteranceIndices: idx,
		MeanConfidence:   conf,
	}
}

func TestLocalScore_Bounds(t *testing.T) {
	c := cand(0, 30, "What is the secret? This is amazing! Never do this.", 8, 1.0)
	s := LocalScore(c, 30)
	if s <= 0 || s > 10 {
		t.Fatalf("score %v outside (0,10]", s)
	}
}

func TestLocalScore_DurationFitDominates(t *testing.T) {
	text := "plain filler text with no hooks at all"
	exact := cand(0, 30, text, 8, 0.9)
	far := cand(0, 12, text, 8, 0.9)
	if LocalScore(exact, 30) <= LocalScore(far, 30) {
		t.Fatalf("exact-duration candidate should outscore a 12s one at a 30s target")
	}
}

func TestLocalScore_HookTextScoresHigher(t *testing.T) {
	hooked := cand(0, 30, "What is the one secret nobody tells you? It's incredible!", 8, 0.9)
	flat := cand(0, 30, "and then we continued along the same lines as before", 8, 0.9)
	if LocalScore(hooked, 30) <= LocalScore(flat, 30) {
		t.Fatalf("hook-opening candidate should outscore flat text")
	}
}

func TestLocalScore_DegenerateInputs(t *testing.T) {
	if got := LocalScore(cand(0, 30, "x", 1, 0.9), 0); got != 0 {
		t.Fatalf("zero target should score 0, got %v", got)
	}
	if got := LocalScore(types.CandidateSegment{}, 30); got != 0 {
		t.Fatalf("zero-duration candidate should score 0, got %v", got)
	}
}

func TestHookSignal(t *testing.T) {
	if got := hookSignal(""); got != 0 {
		t.Fatalf("empty text signal = %v", got)
	}
	q := hookSignal("Why does this work? Nobody knows!")
	plain := hookSignal("the meeting continued for another hour")
	if q <= plain {
		t.Fatalf("question opener %v should beat plain text %v", q, plain)
	}
	if got := hookSignal("What?! Why?! How?! Amazing! Secret! Incredible!"); got > 1 {
		t.Fatalf("signal %v exceeds 1", got)
	}
}

func TestLeadingSentences(t *testing.T) {
	got := leadingSentences("First one. Second here! Third never seen?", 2)
	if len(got) != 2 || got[0] != "First one" || got[1] != "Second here" {
		t.Fatalf("got %q", got)
	}
	got = leadingSentences("no terminal punctuation", 2)
	if len(got) != 1 || got[0] != "no terminal punctuation" {
		t.Fatalf("got %q", got)
	}
}
