package ranking

import (
	"fmt"
	"sort"

	"github.com/boopesh07/VideoToShorts/internal/types"
)

// minStartGap pads the overlap check between accepted fallback picks so the
// selection spreads across the timeline instead of clustering around one hot
// passage (seconds).
const minStartGap = 2.0

// Fallback deterministically ranks candidates by LocalScore when the model
// path is unavailable. It always returns at least one segment for a non-empty
// candidate list, which is what keeps the pipeline live under model outages.
func Fallback(cands []types.CandidateSegment, targetDuration float64, maxSegments int) []types.ScoredSegment {
	if len(cands) == 0 || maxSegments <= 0 {
		return nil
	}

	best := make([]types.CandidateSegment, len(cands))
	copy(best, cands)
	sort.SliceStable(best, func(i, j int) bool {
		s1 := LocalScore(best[i], targetDuration)
		s2 := LocalScore(best[j], targetDuration)
		if s1 == s2 {
			return best[i].StartTime < best[j].StartTime
		}
		return s1 > s2
	})

	picked := make([]types.CandidateSegment, 0, maxSegments)
	for _, c := range best {
		if len(picked) >= maxSegments {
			break
		}
		if !isDistinct(picked, c.StartTime, c.EndTime, minStartGap) {
			continue
		}
		picked = append(picked, c)
	}
	// Relax distinctness rather than return nothing: heavily overlapping
	// candidates are still better than an empty ranking.
	if len(picked) == 0 {
		picked = append(picked, best[0])
	}

	out := make([]types.ScoredSegment, 0, len(picked))
	for i, c := range picked {
		score := LocalScore(c, targetDuration)
		mid := c.StartTime + c.Duration/2
		out = append(out, types.ScoredSegment{
			Rank:             i + 1,
			StartTime:        c.StartTime,
			EndTime:          c.EndTime,
			Duration:         c.Duration,
			Text:             c.Text,
			SegmentsIncluded: c.UtteranceIndices,
			Reasoning: fmt.Sprintf(
				"Heuristic fallback: %.0fs window vs %.0fs target, %d utterances, hook %.1f",
				c.Duration, targetDuration, len(c.UtteranceIndices), hookSignal(c.Text)*weightHook,
			),
			EngagementScore: score,
			ViralPotential:  types.ViralFallback,
			KeyMoment:       &types.KeyMoment{Timestamp: mid, Description: "Mid-segment"},
		})
	}
	return Rerank(out)
}

// Rerank restores the ordering invariant on a validated batch: sorted by
// engagement score descending (ties keep earlier start first), ranks
// reassigned as a contiguous 1..N.
func Rerank(segs []types.ScoredSegment) []types.ScoredSegment {
	sort.SliceStable(segs, func(i, j int) bool {
		if segs[i].EngagementScore == segs[j].EngagementScore {
			return segs[i].StartTime < segs[j].StartTime
		}
		return segs[i].EngagementScore > segs[j].EngagementScore
	})
	for i := range segs {
		segs[i].Rank = i + 1
	}
	return segs
}

func isDistinct(existing []types.CandidateSegment, start, end, minGap float64) bool {
	for _, e := range existing {
		if start < e.EndTime+minGap && end > e.StartTime-minGap {
			return false
		}
	}
	return true
}
