package ranking

import (
	"testing"

	"github.com/boopesh07/VideoToShorts/internal/types"
)

func TestFallback_RanksDescending(t *testing.T) {
	cands := []types.CandidateSegment{
		cand(0, 12, "short filler", 2, 0.5),
		cand(100, 130, "What is the secret to this? Amazing!", 8, 0.95),
		cand(200, 228, "more ordinary conversation follows here", 6, 0.8),
	}
	segs := Fallback(cands, 30, 3)
	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segs))
	}
	for i, s := range segs {
		if s.Rank != i+1 {
			t.Fatalf("rank at %d = %d", i, s.Rank)
		}
		if i > 0 && segs[i-1].EngagementScore < s.EngagementScore {
			t.Fatalf("scores not descending: %.2f then %.2f", segs[i-1].EngagementScore, s.EngagementScore)
		}
		if s.ViralPotential != types.ViralFallback {
			t.Fatalf("viral potential = %q", s.ViralPotential)
		}
		if s.KeyMoment == nil {
			t.Fatalf("fallback segment missing key moment")
		}
	}
	if segs[0].StartTime != 100 {
		t.Fatalf("best candidate should be the hooked 30s window, got start %.1f", segs[0].StartTime)
	}
}

func TestFallback_SkipsOverlappingPicks(t *testing.T) {
	// Three near-identical windows around the same passage plus one far away.
	cands := []types.CandidateSegment{
		cand(100, 130, "What is the secret? Amazing!", 8, 0.9),
		cand(101, 131, "What is the secret? Amazing!", 8, 0.9),
		cand(102, 132, "What is the secret? Amazing!", 8, 0.9),
		cand(300, 330, "ordinary but distinct content here", 8, 0.9),
	}
	segs := Fallback(cands, 30, 3)
	if len(segs) != 2 {
		t.Fatalf("expected 2 distinct picks, got %d", len(segs))
	}
	starts := map[float64]bool{segs[0].StartTime: true, segs[1].StartTime: true}
	if !starts[300] {
		t.Fatalf("distant candidate was not picked: starts %v", starts)
	}
}

func TestFallback_NeverEmptyForNonEmptyInput(t *testing.T) {
	// All candidates overlap each other; distinctness must relax.
	cands := []types.CandidateSegment{
		cand(0, 30, "a", 4, 0.9),
		cand(1, 31, "b", 4, 0.9),
	}
	if segs := Fallback(cands, 30, 1); len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if segs := Fallback(nil, 30, 3); segs != nil {
		t.Fatalf("expected nil for empty candidates")
	}
}

func TestRerank(t *testing.T) {
	segs := []types.ScoredSegment{
		{Rank: 7, StartTime: 50, EngagementScore: 5},
		{Rank: 1, StartTime: 10, EngagementScore: 9},
		{Rank: 3, StartTime: 20, EngagementScore: 5},
	}
	out := Rerank(segs)
	if out[0].EngagementScore != 9 || out[0].Rank != 1 {
		t.Fatalf("top entry: score %.1f rank %d", out[0].EngagementScore, out[0].Rank)
	}
	// Tie keeps earlier start first.
	if out[1].StartTime != 20 || out[2].StartTime != 50 {
		t.Fatalf("tie order: %.1f then %.1f", out[1].StartTime, out[2].StartTime)
	}
	for i, s := range out {
		if s.Rank != i+1 {
			t.Fatalf("rank at %d = %d", i, s.Rank)
		}
	}
}
