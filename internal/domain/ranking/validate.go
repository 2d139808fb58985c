package ranking

import (
	"fmt"
	"strings"

	"github.com/boopesh07/VideoToShorts/internal/types"
)

// Validation is the verdict on one untrusted model entry: either the accepted
// segment or the reason it was rejected. Invalid entries are dropped
// individually; they never poison the batch.
type Validation struct {
	Segment types.ScoredSegment
	Reason  string
}

func (v Validation) Valid() bool { return v.Reason == "" }

func invalid(format string, args ...any) Validation {
	return Validation{Reason: fmt.Sprintf(format, args...)}
}

// ValidateSegment checks one decoded model entry against the schema's
// semantic constraints. Structural problems (missing fields, wrong types) are
// caught earlier, at decode time; this layer owns ranges and enums. The
// segment's duration and rank are normalized here: duration is recomputed
// from the time range and rank is reassigned later by Rerank, so whatever the
// model claimed for either is ignored.
func ValidateSegment(seg types.ScoredSegment, totalDuration float64) Validation {
	if seg.EndTime <= seg.StartTime {
		return invalid("end_time %.2f not after start_time %.2f", seg.EndTime, seg.StartTime)
	}
	if seg.StartTime < 0 {
		return invalid("start_time %.2f before 0", seg.StartTime)
	}
	if totalDuration > 0 && seg.EndTime > totalDuration {
		return invalid("end_time %.2f beyond transcript duration %.2f", seg.EndTime, totalDuration)
	}
	if seg.EngagementScore < 0 || seg.EngagementScore > 10 {
		return invalid("engagement_score %.2f outside [0,10]", seg.EngagementScore)
	}
	if strings.TrimSpace(seg.Text) == "" {
		return invalid("empty text")
	}
	if strings.TrimSpace(seg.Reasoning) == "" {
		return invalid("empty reasoning")
	}
	if !viralPotentialOK(seg.ViralPotential) {
		return invalid("viral_potential %q does not begin with a known label", seg.ViralPotential)
	}
	if km := seg.KeyMoment; km != nil {
		if km.Timestamp < 0 || (totalDuration > 0 && km.Timestamp > totalDuration) {
			return invalid("key_moment timestamp %.2f outside [0,%.2f]", km.Timestamp, totalDuration)
		}
		if strings.TrimSpace(km.Description) == "" {
			return invalid("key_moment missing description")
		}
	}

	seg.Duration = seg.EndTime - seg.StartTime
	return Validation{Segment: seg}
}

// viralPotentialOK accepts the bare enum labels and the qualified forms the
// model habitually produces ("High - strong emotional hook").
func viralPotentialOK(s string) bool {
	s = strings.TrimSpace(s)
	for _, label := range []string{types.ViralMediumHigh, types.ViralHigh, types.ViralMedium, types.ViralLow} {
		if s == label || strings.HasPrefix(s, label+" ") {
			return true
		}
	}
	return false
}
