package ytdlp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/boopesh07/VideoToShorts/internal/types"
)

func TestSectionSpec(t *testing.T) {
	tests := []struct {
		name string
		r    types.TimeRange
		want string
	}{
		{"short", types.TimeRange{Start: 10, End: 40}, "*00:00:10-00:00:40"},
		{"minutes", types.TimeRange{Start: 90, End: 155}, "*00:01:30-00:02:35"},
		{"hours", types.TimeRange{Start: 3700, End: 3760.7}, "*01:01:40-01:02:40"},
		{"negative start clamps", types.TimeRange{Start: -5, End: 10}, "*00:00:00-00:00:10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sectionSpec(tt.r); got != tt.want {
				t.Fatalf("sectionSpec(%v) = %q, want %q", tt.r, got, tt.want)
			}
		})
	}
}

func TestLocateOutput(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"source.mp4.part", "source.mp4", "other.webm"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := locateOutput(dir, "source")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(got) != "source.mp4" {
		t.Fatalf("locateOutput = %q, want source.mp4 (not the .part file)", got)
	}

	if _, err := locateOutput(dir, "missing"); err == nil {
		t.Fatalf("expected error for missing stem")
	}
}
