package transcript

import (
	"errors"
	"testing"
)

func TestDecode(t *testing.T) {
	raw := []byte(`{
		"result": {
			"transcription": {
				"utterances": [
					{"text": "hello there", "start": 0, "end": 4.5, "speaker": 0, "confidence": 0.93},
					{"text": "and welcome back", "start": 4.5, "end": 9.0, "speaker": 1, "confidence": 0.88}
				]
			},
			"metadata": {"audio_duration": 120.0},
			"summarization": {"results": "A warm welcome."}
		}
	}`)
	tr, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(tr.Utterances) != 2 {
		t.Fatalf("utterances = %d", len(tr.Utterances))
	}
	if tr.TotalDuration != 120 {
		t.Fatalf("total duration = %v", tr.TotalDuration)
	}
	if tr.Summary != "A warm welcome." {
		t.Fatalf("summary = %q", tr.Summary)
	}
	if tr.Utterances[1].Speaker != 1 {
		t.Fatalf("speaker = %d", tr.Utterances[1].Speaker)
	}
}

func TestDecode_DropsDegenerateUtterances(t *testing.T) {
	raw := []byte(`{"result": {"transcription": {"utterances": [
		{"text": "  ", "start": 0, "end": 3},
		{"text": "inverted", "start": 10, "end": 8},
		{"text": "negative start", "start": -2, "end": 5},
		{"text": "keep me", "start": 5, "end": 9, "confidence": 1.7}
	]}}}`)
	tr, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(tr.Utterances) != 1 || tr.Utterances[0].Text != "keep me" {
		t.Fatalf("got %+v", tr.Utterances)
	}
	if tr.Utterances[0].Confidence != 1 {
		t.Fatalf("confidence not clamped: %v", tr.Utterances[0].Confidence)
	}
}

func TestDecode_SortsOutOfOrder(t *testing.T) {
	raw := []byte(`{"result": {"transcription": {"utterances": [
		{"text": "second", "start": 10, "end": 14},
		{"text": "first", "start": 2, "end": 6}
	]}}}`)
	tr, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if tr.Utterances[0].Text != "first" {
		t.Fatalf("not sorted by start: %+v", tr.Utterances)
	}
}

func TestDecode_TotalDurationNeverBeforeLastUtterance(t *testing.T) {
	raw := []byte(`{"result": {
		"transcription": {"utterances": [{"text": "tail", "start": 90, "end": 100}]},
		"metadata": {"audio_duration": 50}
	}}`)
	tr, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if tr.TotalDuration != 100 {
		t.Fatalf("total duration = %v, want 100", tr.TotalDuration)
	}
}

func TestDecode_NoUtterances(t *testing.T) {
	for _, raw := range [][]byte{
		nil,
		[]byte(`{}`),
		[]byte(`{"result": {"transcription": {"utterances": []}}}`),
		[]byte(`{"result": {"transcription": {"utterances": [{"text": "", "start": 0, "end": 1}]}}}`),
	} {
		if _, err := Decode(raw); !errors.Is(err, ErrNoUtterances) {
			t.Fatalf("payload %s: err = %v, want ErrNoUtterances", raw, err)
		}
	}
}

func TestDecode_Malformed(t *testing.T) {
	if _, err := Decode([]byte(`{"result": `)); err == nil {
		t.Fatalf("expected error for truncated JSON")
	}
	// Non-string summarization result is tolerated, not fatal.
	raw := []byte(`{"result": {
		"transcription": {"utterances": [{"text": "ok", "start": 0, "end": 2}]},
		"summarization": {"results": {"nested": true}}
	}}`)
	tr, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if tr.Summary != "" {
		t.Fatalf("summary should be empty, got %q", tr.Summary)
	}
}
