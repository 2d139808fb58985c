package ffmpeg

import (
	"os"
	"strings"
	"testing"
)

func TestFmtSeconds(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.000"},
		{12.5, "12.500"},
		{123.4567, "123.457"},
		{3600, "3600.000"},
	}
	for _, tt := range tests {
		if got := fmtSeconds(tt.in); got != tt.want {
			t.Fatalf("fmtSeconds(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEscapeConcatPath(t *testing.T) {
	if got := escapeConcatPath("/tmp/plain.mp4"); got != "/tmp/plain.mp4" {
		t.Fatalf("got %q", got)
	}
	got := escapeConcatPath("/tmp/it's here.mp4")
	if got != `/tmp/it'\''s here.mp4` {
		t.Fatalf("got %q", got)
	}
}

func TestWriteConcatList(t *testing.T) {
	dir := t.TempDir()
	list, err := writeConcatList(dir, []string{"/a/one.mp4", "/b/two's.mp4"})
	if err != nil {
		t.Fatalf("writeConcatList: %v", err)
	}
	defer os.Remove(list)

	b, err := os.ReadFile(list)
	if err != nil {
		t.Fatalf("read list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	if lines[0] != "file '/a/one.mp4'" {
		t.Fatalf("first line = %q", lines[0])
	}
	if !strings.Contains(lines[1], `two'\''s.mp4`) {
		t.Fatalf("second line unescaped: %q", lines[1])
	}
}

func TestNew_Defaults(t *testing.T) {
	a := New("", "")
	if a.ffmpeg != "ffmpeg" || a.ffprobe != "ffprobe" {
		t.Fatalf("defaults = %q %q", a.ffmpeg, a.ffprobe)
	}
	a = New("/opt/bin/ffmpeg", "/opt/bin/ffprobe")
	if a.ffmpeg != "/opt/bin/ffmpeg" {
		t.Fatalf("ffmpeg = %q", a.ffmpeg)
	}
}
