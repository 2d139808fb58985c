// Package transcript decodes the transcription service's response payload
// into the internal transcript shape. The payload is collaborator input and
// is treated defensively: out-of-order utterances are re-sorted, degenerate
// spans are dropped, confidences are clamped.
package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/boopesh07/VideoToShorts/internal/types"
)

// ErrNoUtterances reports a payload that decoded but contained no usable
// speech. Callers treat it as an input error, not a degradation.
var ErrNoUtterances = errors.New("transcript has no usable utterances")

// Wire shape of the transcription service result. Only the fields the
// pipeline consumes are mapped; everything else is ignored.
type payload struct {
	Result struct {
		Transcription struct {
			Utterances []wireUtterance `json:"utterances"`
		} `json:"transcription"`
		Metadata struct {
			AudioDuration float64 `json:"audio_duration"`
		} `json:"metadata"`
		Summarization struct {
			Results json.RawMessage `json:"results"`
		} `json:"summarization"`
	} `json:"result"`
}

type wireUtterance struct {
	Text       string  `json:"text"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Speaker    int     `json:"speaker"`
	Confidence float64 `json:"confidence"`
}

// Decode parses a raw transcript payload. It returns ErrNoUtterances when the
// payload is structurally fine but holds no usable speech.
func Decode(raw []byte) (types.Transcript, error) {
	if len(raw) == 0 {
		return types.Transcript{}, fmt.Errorf("decode transcript: empty payload: %w", ErrNoUtterances)
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return types.Transcript{}, fmt.Errorf("decode transcript: %w", err)
	}

	utts := make([]types.Utterance, 0, len(p.Result.Transcription.Utterances))
	for _, w := range p.Result.Transcription.Utterances {
		text := strings.TrimSpace(w.Text)
		if text == "" || w.End <= w.Start || w.Start < 0 {
			continue
		}
		utts = append(utts, types.Utterance{
			Text:       text,
			Start:      w.Start,
			End:        w.End,
			Speaker:    w.Speaker,
			Confidence: clamp01(w.Confidence),
		})
	}
	if len(utts) == 0 {
		return types.Transcript{}, ErrNoUtterances
	}

	if !sort.SliceIsSorted(utts, byStart(utts)) {
		sort.SliceStable(utts, byStart(utts))
	}

	total := p.Result.Metadata.AudioDuration
	if last := utts[len(utts)-1].End; total < last {
		total = last
	}

	return types.Transcript{
		Utterances:    utts,
		TotalDuration: total,
		Summary:       summaryString(p.Result.Summarization.Results),
	}, nil
}

func byStart(utts []types.Utterance) func(i, j int) bool {
	return func(i, j int) bool { return utts[i].Start < utts[j].Start }
}

// summaryString tolerates the summarization result being absent or a
// non-string shape; the summary only enriches the ranking prompt.
func summaryString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
