package cli

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestSettlerCoalescesBursts(t *testing.T) {
	t.Parallel()
	var (
		mu   sync.Mutex
		runs []string
	)
	s := newSettler(20*time.Millisecond, func(path string) {
		mu.Lock()
		runs = append(runs, path)
		mu.Unlock()
	})

	// A save that fires several write events must run once.
	for i := 0; i < 5; i++ {
		s.Schedule("job.yaml")
	}
	time.Sleep(100 * time.Millisecond)
	s.Drain()

	mu.Lock()
	defer mu.Unlock()
	if len(runs) != 1 || runs[0] != "job.yaml" {
		t.Fatalf("runs = %v, want one run for job.yaml", runs)
	}
}

func TestSettlerDrainStopsPendingTimers(t *testing.T) {
	t.Parallel()
	var (
		mu   sync.Mutex
		runs int
	)
	s := newSettler(30*time.Millisecond, func(string) {
		mu.Lock()
		runs++
		mu.Unlock()
	})

	s.Schedule("late.yaml")
	s.Drain() // before the timer fires

	// Nothing may start after drain, even once the delay elapses.
	time.Sleep(80 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if runs != 0 {
		t.Fatalf("runs = %d after drain, want 0", runs)
	}
	s.Schedule("rejected.yaml")
	time.Sleep(80 * time.Millisecond)
	if runs != 0 {
		t.Fatalf("schedule after drain started a run")
	}
}

func TestIsJobFile(t *testing.T) {
	t.Parallel()
	tests := []struct {
		path string
		want bool
	}{
		{"job.yaml", true},
		{"job.YML", true},
		{"job.json", true},
		{"job.json.done", false},
		{"notes.txt", false},
		{"job", false},
	}
	for _, tt := range tests {
		if got := isJobFile(tt.path); got != tt.want {
			t.Errorf("isJobFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestLoadJobFileResolvesRelativeTranscript(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	trPath := filepath.Join(dir, "talk.json")
	trJSON := `{"result":{"transcription":{"utterances":[{"text":"hello","start":0,"end":5,"confidence":0.9}]},"metadata":{"audio_duration":5}}}`
	if err := os.WriteFile(trPath, []byte(trJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	jobPath := filepath.Join(dir, "job.yaml")
	job := "source: https://example.com/v\nmax_shorts: 2\ntranscript: talk.json\n"
	if err := os.WriteFile(jobPath, []byte(job), 0o644); err != nil {
		t.Fatal(err)
	}

	in, err := loadJobFile(jobPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if in.Source != "https://example.com/v" || in.MaxShorts != 2 {
		t.Fatalf("input = %+v", in)
	}
	if len(in.Transcript.Utterances) != 1 {
		t.Fatalf("transcript not loaded: %+v", in.Transcript)
	}
}

func TestLoadJobFileRejectsEmptyJobs(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "job.yaml")
	if err := os.WriteFile(path, []byte("source: https://example.com/v\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadJobFile(path); err == nil {
		t.Fatalf("job without transcript or segments accepted")
	}
}
