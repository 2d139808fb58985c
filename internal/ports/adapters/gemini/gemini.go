package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/boopesh07/VideoToShorts/internal/domain/ranking"
	"github.com/boopesh07/VideoToShorts/internal/logging"
	"github.com/boopesh07/VideoToShorts/internal/types"
)

const (
	defaultModel   = "gemini-1.5-flash"
	defaultTimeout = 90 * time.Second

	// Prompt size cap: the model sees at most this many utterance rows, the
	// same window the rubric was tuned against.
	maxPromptUtterances = 50

	maxOutputTokens = 8192
	temperature     = 0.3
	topP            = 0.8
)

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Adapter ranks transcript windows through the Gemini generateContent API.
// One attempt per call: failures and unusable payloads surface as errors so
// the caller can select the heuristic fallback.
type Adapter struct {
	key     string
	model   string
	baseURL string
	timeout time.Duration
	client  *http.Client
	log     *slog.Logger
}

func New(cfg Config) *Adapter {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	return &Adapter{
		key:     cfg.APIKey,
		model:   cfg.Model,
		baseURL: normalizeBaseURL(cfg.BaseURL),
		timeout: cfg.Timeout,
		client:  &http.Client{Timeout: 5 * time.Minute},
		log:     cfg.Logger.With("component", "gemini"),
	}
}

// Gemini wire shapes.
type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"topP"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Rank sends the transcript context to the model and returns the validated,
// re-ranked segments. The model output is untrusted: entries that fail
// structural or semantic validation are dropped individually, and zero
// surviving entries is an error, never an empty success.
func (a *Adapter) Rank(
	ctx context.Context,
	tr types.Transcript,
	cands []types.CandidateSegment,
	targetDuration float64,
	maxSegments int,
) ([]types.ScoredSegment, error) {
	_ = cands // ranked holistically from the transcript; candidates drive the fallback path

	if maxSegments <= 0 {
		return nil, errors.New("gemini: max segments must be positive")
	}
	if len(tr.Utterances) == 0 {
		return nil, errors.New("gemini: transcript has no utterances")
	}

	prompt, err := buildPrompt(tr, targetDuration, maxSegments)
	if err != nil {
		return nil, fmt.Errorf("gemini: build prompt: %w", err)
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:      temperature,
			TopP:             topP,
			MaxOutputTokens:  maxOutputTokens,
			ResponseMimeType: "application/json",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: marshal request: %w", err)
	}

	url := a.baseURL + "/v1beta/models/" + a.model + ":generateContent"

	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", a.key)

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("gemini: timeout after %s (model=%s)", a.timeout, a.model)
		}
		return nil, fmt.Errorf("gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("gemini: status %d and read body failed: %v", resp.StatusCode, readErr)
		}
		return nil, fmt.Errorf("gemini: status %d: %s", resp.StatusCode, truncate(redactSecrets(string(rb), a.key), 400))
	}

	var raw generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("gemini: decode response: %w", err)
	}
	text := joinParts(raw)
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("gemini: empty completion")
	}

	clean, err := extractJSONObject(text)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	var envelope struct {
		ViralSegments []json.RawMessage `json:"viral_segments"`
	}
	if err := json.Unmarshal([]byte(clean), &envelope); err != nil {
		return nil, fmt.Errorf("gemini: unmarshal viral_segments: %w", err)
	}
	if len(envelope.ViralSegments) == 0 {
		return nil, errors.New("gemini: response contains no viral_segments")
	}

	valid := make([]types.ScoredSegment, 0, len(envelope.ViralSegments))
	for i, rawSeg := range envelope.ViralSegments {
		v := decodeEntry(rawSeg, tr.TotalDuration)
		if !v.Valid() {
			a.log.Warn("dropping invalid model segment", "index", i, "reason", v.Reason)
			continue
		}
		valid = append(valid, v.Segment)
	}
	if len(valid) == 0 {
		return nil, errors.New("gemini: no valid segments after validation")
	}

	valid = ranking.Rerank(valid)
	if len(valid) > maxSegments {
		valid = valid[:maxSegments]
	}
	return valid, nil
}

// wireSegment mirrors one viral_segments entry with pointer fields so that
// absent keys are distinguishable from zero values.
type wireSegment struct {
	Rank             *int           `json:"rank"`
	StartTime        *float64       `json:"start_time"`
	EndTime          *float64       `json:"end_time"`
	Duration         *float64       `json:"duration"`
	Text             *string        `json:"text"`
	SegmentsIncluded []int          `json:"segments_included"`
	Reasoning        *string        `json:"reasoning"`
	EngagementScore  *float64       `json:"engagement_score"`
	ViralPotential   *string        `json:"viral_potential"`
	KeyMoment        *wireKeyMoment `json:"key_moment"`
}

type wireKeyMoment struct {
	Timestamp   *float64 `json:"timestamp"`
	Description *string  `json:"description"`
}

// decodeEntry validates one untrusted entry: structural checks here, range
// and enum checks in the ranking domain. A failed entry carries its reason so
// the drop can be logged; it never aborts the batch.
func decodeEntry(raw json.RawMessage, totalDuration float64) ranking.Validation {
	var w wireSegment
	if err := json.Unmarshal(raw, &w); err != nil {
		return ranking.Validation{Reason: fmt.Sprintf("malformed entry: %v", err)}
	}

	missing := func(field string) ranking.Validation {
		return ranking.Validation{Reason: "missing required field " + field}
	}
	switch {
	case w.StartTime == nil:
		return missing("start_time")
	case w.EndTime == nil:
		return missing("end_time")
	case w.Text == nil:
		return missing("text")
	case w.Reasoning == nil:
		return missing("reasoning")
	case w.EngagementScore == nil:
		return missing("engagement_score")
	case w.ViralPotential == nil:
		return missing("viral_potential")
	}

	seg := types.ScoredSegment{
		StartTime:        *w.StartTime,
		EndTime:          *w.EndTime,
		Text:             *w.Text,
		SegmentsIncluded: w.SegmentsIncluded,
		Reasoning:        *w.Reasoning,
		EngagementScore:  *w.EngagementScore,
		ViralPotential:   *w.ViralPotential,
	}
	if w.Rank != nil {
		seg.Rank = *w.Rank
	}
	if w.KeyMoment != nil {
		if w.KeyMoment.Timestamp == nil || w.KeyMoment.Description == nil {
			return ranking.Validation{Reason: "key_moment missing timestamp or description"}
		}
		seg.KeyMoment = &types.KeyMoment{
			Timestamp:   *w.KeyMoment.Timestamp,
			Description: *w.KeyMoment.Description,
		}
	}
	return ranking.ValidateSegment(seg, totalDuration)
}

// promptRow is the condensed utterance view embedded in the prompt.
type promptRow struct {
	Index    int     `json:"index"`
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
	Speaker  int     `json:"speaker"`
}

func buildPrompt(tr types.Transcript, targetDuration float64, maxSegments int) (string, error) {
	shown := len(tr.Utterances)
	if shown > maxPromptUtterances {
		shown = maxPromptUtterances
	}
	rows := make([]promptRow, 0, shown)
	for i := 0; i < shown; i++ {
		u := tr.Utterances[i]
		rows = append(rows, promptRow{
			Index:    i,
			Text:     u.Text,
			Start:    u.Start,
			End:      u.End,
			Duration: u.End - u.Start,
			Speaker:  u.Speaker,
		})
	}
	rowsJSON, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert content strategist specializing in identifying the most engaging segments from video transcripts for short-form content creation.\n\n")
	fmt.Fprintf(&b, "Original video duration: %.1f seconds. ", tr.TotalDuration)
	if tr.Summary != "" {
		fmt.Fprintf(&b, "Video summary: %s. ", tr.Summary)
	}
	fmt.Fprintf(&b, "The video has been transcribed into %d utterances with precise start/end timestamps; speakers are identified by number.\n\n", len(tr.Utterances))
	fmt.Fprintf(&b, "TRANSCRIPT SEGMENTS TO ANALYZE:\n%s\n", rowsJSON)
	if len(tr.Utterances) > shown {
		fmt.Fprintf(&b, "...(showing first %d segments - there are %d total segments)\n", shown, len(tr.Utterances))
	}
	fmt.Fprintf(&b, "\nYOUR MISSION:\nFind the TOP %d best %.0f-second continuous windows from this transcript that would make the most engaging standalone short videos. You are extracting existing content, not creating new content. Segments must be distinct and non-overlapping.\n\n", maxSegments, targetDuration)
	b.WriteString(`EVALUATION CRITERIA:
1. HOOK STRENGTH: attention-grabbing openings, questions that spark curiosity, surprising or counterintuitive claims, strong emotional moments.
2. CONTENT COMPLETENESS: the segment tells a complete mini-story or makes a complete point, never cutting off mid-thought, understandable without earlier context.
3. ENGAGEMENT POTENTIAL: moments viewers would comment on or share, practical advice, quotable phrases.
4. TECHNICAL REQUIREMENTS: continuous timeline with no gaps, duration `)
	fmt.Fprintf(&b, "%.0f seconds (plus or minus 3 seconds is acceptable), combine adjacent utterances to reach the target, respect natural speech pauses.\n\n", targetDuration)
	b.WriteString(`REQUIRED JSON RESPONSE FORMAT:
{
  "viral_segments": [
    {
      "rank": 1,
      "start_time": 123.45,
      "end_time": 153.45,
      "duration": 30.0,
      "text": "The complete, exact transcript text from all included segments combined",
      "segments_included": [5, 6, 7, 8, 9],
      "reasoning": "Why this segment was chosen - mention the hook, content quality, and engagement factors",
      "engagement_score": 8.7,
      "viral_potential": "High - contains surprising insight that challenges common assumptions",
      "key_moment": {
        "timestamp": 135.2,
        "description": "The most impactful moment in this segment"
      }
    }
  ]
}

CRITICAL REMINDERS:
- The text must be exactly what was said in the video, taken from the transcript.
- Timestamps must correspond to the actual video timeline.
- engagement_score is a number from 0 to 10; viral_potential starts with one of: Low, Medium, Medium-High, High.
`)
	fmt.Fprintf(&b, "- Return EXACTLY %d segments, ranked by engagement potential, as strictly valid JSON with no markdown fences.\n", maxSegments)
	return b.String(), nil
}

func joinParts(r generateResponse) string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

func extractJSONObject(s string) (string, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return "", errors.New("empty content")
	}

	// Strip markdown code fences.
	if strings.HasPrefix(t, "```") {
		if i := strings.Index(t, "\n"); i >= 0 {
			t = t[i+1:]
		}
		if j := strings.LastIndex(t, "```"); j >= 0 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}

	// Best-effort: take the first JSON object found.
	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start >= 0 && end > start {
		return t[start : end+1], nil
	}
	return "", fmt.Errorf("could not locate JSON object in: %q", truncate(t, 200))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	apiKeyQueryRE  = regexp.MustCompile(`(?i)\bkey=[^&\s"]+`)
	apiKeyHeaderRE = regexp.MustCompile(`(?i)(x-goog-api-key\s*[:=]\s*)([^\n\r,;]+)`)
	apiKeyFieldRE  = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`)
)

func redactSecrets(s, apiKey string) string {
	if s == "" {
		return s
	}
	out := s
	if apiKey != "" {
		out = strings.ReplaceAll(out, apiKey, "[REDACTED]")
	}
	out = apiKeyQueryRE.ReplaceAllString(out, "key=[REDACTED]")
	out = apiKeyHeaderRE.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}
