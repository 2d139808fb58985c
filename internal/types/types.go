package types

import "time"

// Utterance is one timestamped speech unit from the transcript source.
// Times are absolute seconds from the start of the source video.
type Utterance struct {
	Text       string  `json:"text"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Speaker    int     `json:"speaker"`
	Confidence float64 `json:"confidence"`
}

func (u Utterance) Duration() float64 { return u.End - u.Start }

// Transcript is the decoded, time-ordered utterance list plus the total
// duration reported by the transcription service (or derived from the last
// utterance when the service omits it). Summary is the service's optional
// video summary, carried into the ranking prompt when present.
type Transcript struct {
	Utterances    []Utterance
	TotalDuration float64
	Summary       string
}

// TimeRange is a half-open span of the source video in seconds.
type TimeRange struct {
	Start float64
	End   float64
}

func (r TimeRange) Duration() float64 { return r.End - r.Start }

// CandidateSegment is a mechanically generated window over consecutive
// utterances, produced by the windower and consumed by the ranker. It never
// splits an utterance.
type CandidateSegment struct {
	StartTime        float64
	EndTime          float64
	Duration         float64
	Text             string
	UtteranceIndices []int

	// Aggregates carried along so the heuristic ranker does not need to
	// re-walk the transcript.
	MeanConfidence float64
}

func (c CandidateSegment) Range() TimeRange { return TimeRange{Start: c.StartTime, End: c.EndTime} }

// KeyMoment points at the most shareable instant inside a scored segment.
type KeyMoment struct {
	Timestamp   float64 `json:"timestamp"`
	Description string  `json:"description"`
}

// ScoredSegment is a ranked, AI- or heuristic-scored segment ready for
// extraction. Field names are part of the wire contract with the UI.
type ScoredSegment struct {
	Rank             int        `json:"rank"`
	StartTime        float64    `json:"start_time"`
	EndTime          float64    `json:"end_time"`
	Duration         float64    `json:"duration"`
	Text             string     `json:"text"`
	SegmentsIncluded []int      `json:"segments_included"`
	Reasoning        string     `json:"reasoning"`
	EngagementScore  float64    `json:"engagement_score"`
	ViralPotential   string     `json:"viral_potential"`
	KeyMoment        *KeyMoment `json:"key_moment,omitempty"`
	Title            string     `json:"title"`
}

// Viral potential labels the model is asked to choose from. The heuristic
// fallback appends a qualifier so callers can tell the paths apart.
const (
	ViralLow        = "Low"
	ViralMedium     = "Medium"
	ViralMediumHigh = "Medium-High"
	ViralHigh       = "High"

	ViralFallback = "Medium - fallback selection"
)

// Analysis methods reported to the caller.
const (
	AnalysisAI       = "ai_powered"
	AnalysisFallback = "fallback"
)

// CustomSegment is a caller-supplied range that bypasses windowing and
// ranking entirely. Wire names follow the UI contract.
type CustomSegment struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
	Title string  `json:"title,omitempty" yaml:"title,omitempty"`
	Text  string  `json:"text,omitempty" yaml:"text,omitempty"`
}

// MediaInfo is what the media toolchain reports about a file.
type MediaInfo struct {
	Duration float64
	Codec    string
	Width    int
	Height   int
}

// GeneratedShort is a finished clip registered in the catalog.
type GeneratedShort struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Text             string    `json:"text"`
	StartTime        float64   `json:"start_time"`
	EndTime          float64   `json:"end_time"`
	Duration         float64   `json:"duration"`
	FilePath         string    `json:"file_path"`
	Filename         string    `json:"filename"`
	SourceRangeCount int       `json:"source_range_count"`
	CreatedAt        time.Time `json:"created_at"`
}

// ShortResult is the per-short outcome inside a job report: either a
// GeneratedShort or a failure reason. Warnings carry partial extraction
// failures that did not sink the short. A job never silently drops a
// requested short.
type ShortResult struct {
	Title    string
	Short    *GeneratedShort
	Reason   string
	Warnings []string
}

func (r ShortResult) Failed() bool { return r.Short == nil }
