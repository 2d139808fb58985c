package logging

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"testing"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	t.Parallel()
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestConsoleHandlerFoldsComponent(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log, err := New(Options{Level: "info", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}
	log.With("component", "catalog").Info("row committed", "id", 7)

	line := buf.String()
	if !strings.Contains(line, "catalog: row committed") {
		t.Fatalf("component not folded into prefix: %q", line)
	}
	if !strings.Contains(line, "id=7") {
		t.Fatalf("attr missing: %q", line)
	}
}

func TestConsoleHandlerDebugAddsCallSite(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log, err := New(Options{Level: "debug", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}
	log.Debug("probing stream copy")

	// The call site is this test file, resolved from the record's PC.
	want := regexp.MustCompile(`\[logging_test\.go:\d+\]`)
	if !want.MatchString(buf.String()) {
		t.Fatalf("no call site in debug line: %q", buf.String())
	}
}

func TestConsoleHandlerSuppressesBelowLevel(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log, err := New(Options{Level: "warn", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}
	log.Info("should not appear")
	if buf.Len() != 0 {
		t.Fatalf("info line emitted at warn level: %q", buf.String())
	}
}

func TestJSONHandlerShortensSource(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log, err := New(Options{Level: "debug", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}
	log.Debug("hello")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("not json: %v: %q", err, buf.String())
	}
	src, _ := rec["source"].(string)
	if !strings.HasPrefix(src, "logging_test.go:") {
		t.Fatalf("source = %q, want logging_test.go:<line>", src)
	}
	if rec["msg"] != "hello" {
		t.Fatalf("msg = %v", rec["msg"])
	}
}
