// Package ytdlp resolves remote video locators into local media files by
// shelling out to yt-dlp. It supports whole-asset downloads and
// section-limited fetches so short jobs do not pull a full-length source.
package ytdlp

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/boopesh07/VideoToShorts/internal/types"
)

// Download format selectors. Whole-asset fetches favor quality because the
// file is trimmed locally afterwards; section fetches favor size because the
// bytes are already scoped to the clip.
const (
	fullFormat    = "best[height<=1080][ext=mp4]/best[ext=mp4]/best"
	sectionFormat = "best[height<=720][ext=mp4]/best[height<=720]/best"
)

type Adapter struct {
	bin string
}

func New(binPath string) *Adapter {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	return &Adapter{bin: binPath}
}

// FetchFull downloads the whole asset into destDir and returns the local
// path.
func (a *Adapter) FetchFull(ctx context.Context, locator, destDir string) (string, error) {
	out := filepath.Join(destDir, "source.%(ext)s")
	cmd := exec.CommandContext(ctx, a.bin,
		"-f", fullFormat,
		"--no-playlist",
		"-o", out,
		locator,
	)
	if b, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("yt-dlp download: %w\n%s", err, string(b))
	}
	return locateOutput(destDir, "source")
}

// FetchRange downloads only the requested span. yt-dlp re-seeks to the
// nearest keyframes unless forced, so cuts are forced at the section bounds
// to keep the clip time-accurate.
func (a *Adapter) FetchRange(ctx context.Context, locator string, r types.TimeRange, destDir string) (string, error) {
	stem := fmt.Sprintf("range_%05.0f-%05.0f", r.Start, r.End)
	out := filepath.Join(destDir, stem+".%(ext)s")
	cmd := exec.CommandContext(ctx, a.bin,
		"--download-sections", sectionSpec(r),
		"--force-keyframes-at-cuts",
		"-f", sectionFormat,
		"--no-playlist",
		"-o", out,
		locator,
	)
	if b, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("yt-dlp section %s: %w\n%s", sectionSpec(r), err, string(b))
	}
	return locateOutput(destDir, stem)
}

// sectionSpec renders a time range as yt-dlp's "*start-end" section syntax.
func sectionSpec(r types.TimeRange) string {
	return fmt.Sprintf("*%s-%s", clockTime(r.Start), clockTime(r.End))
}

// clockTime formats seconds as HH:MM:SS for yt-dlp section bounds. Fractional
// seconds are dropped; the ffmpeg trim downstream owns sub-second accuracy.
func clockTime(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	s := int(sec)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}

// locateOutput finds the file yt-dlp wrote for the given template stem. The
// extension is chosen by the downloader, so the match is by glob.
func locateOutput(destDir, stem string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(destDir, stem+".*"))
	if err != nil {
		return "", err
	}
	for _, m := range matches {
		// yt-dlp leaves .part files behind on interrupted downloads.
		if filepath.Ext(m) != ".part" {
			return m, nil
		}
	}
	return "", fmt.Errorf("yt-dlp: no output file for %q in %s", stem, destDir)
}
