package ranking

import (
	"math"
	"regexp"
	"strings"

	"github.com/boopesh07/VideoToShorts/internal/types"
)

// Heuristic weights for the fallback ranker. Tunable constants, not inferred
// intent: duration fit dominates because a clip far from the requested length
// is useless regardless of content, the rest split evenly between coverage,
// transcription confidence, and the lexical hook signal. Weights sum to 10 so
// LocalScore doubles as a synthetic engagement score.
const (
	weightDurationFit = 4.0
	weightCoverage    = 2.0
	weightConfidence  = 2.0
	weightHook        = 2.0

	// Utterance count at which the coverage term saturates.
	coverageSaturation = 8
)

var (
	reQuestionOpen = regexp.MustCompile(`(?i)^\s*(what|why|how|when|who|which|did|do|does|have|has|can|could|would|will|is|are|here's|this is)\b`)
	reHookWord     = regexp.MustCompile(`(?i)\b(secret|amazing|incredible|important|surprising|shocking|mistake|never|always|unbelievable|crazy|insane|tip|trick|hack|must|need to know|game changer)\b`)
)

// LocalScore rates a candidate on [0,10] without the model: how close its
// duration lands to the target, how many utterances it covers, how confident
// the transcription is, and whether its opening reads like a hook.
func LocalScore(c types.CandidateSegment, targetDuration float64) float64 {
	if targetDuration <= 0 || c.Duration <= 0 {
		return 0
	}

	fit := 1 - math.Abs(c.Duration-targetDuration)/targetDuration
	if fit < 0 {
		fit = 0
	}

	coverage := float64(len(c.UtteranceIndices)) / coverageSaturation
	if coverage > 1 {
		coverage = 1
	}

	confidence := clamp(c.MeanConfidence, 0, 1)

	score := fit*weightDurationFit +
		coverage*weightCoverage +
		confidence*weightConfidence +
		hookSignal(c.Text)*weightHook
	return clamp(score, 0, 10)
}

// hookSignal returns [0,1]: question marks and exclamations anywhere, plus a
// bonus when one of the first two sentences opens like a question or carries
// a hook word.
func hookSignal(text string) float64 {
	t := strings.TrimSpace(text)
	if t == "" {
		return 0
	}

	s := 0.0
	s += math.Min(float64(strings.Count(t, "?"))*0.25, 0.5)
	s += math.Min(float64(strings.Count(t, "!"))*0.15, 0.3)

	for _, sentence := range leadingSentences(t, 2) {
		if reQuestionOpen.MatchString(sentence) {
			s += 0.3
			break
		}
	}
	if reHookWord.MatchString(t) {
		s += 0.2
	}
	return clamp(s, 0, 1)
}

// leadingSentences naively splits on terminal punctuation and returns up to n
// sentences. Good enough for a lexical signal.
func leadingSentences(text string, n int) []string {
	out := make([]string, 0, n)
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(text[start:i]); s != "" {
				out = append(out, s)
			}
			start = i + 1
			if len(out) >= n {
				return out
			}
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" && len(out) < n {
		out = append(out, s)
	}
	return out
}

func clamp(x, a, b float64) float64 {
	if x < a {
		return a
	}
	if x > b {
		return b
	}
	return x
}
