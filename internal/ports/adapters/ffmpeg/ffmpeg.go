package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/boopesh07/VideoToShorts/internal/types"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

// TrimCopy cuts the range without re-encoding. Seeking before the input snaps
// to the nearest keyframe, so the result can land seconds away from the
// requested start; callers probe the output and fall back to TrimPrecise when
// the drift is unacceptable.
func (a *Adapter) TrimCopy(ctx context.Context, in string, r types.TimeRange, out string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-ss", fmtSeconds(r.Start),
		"-i", in,
		"-t", fmtSeconds(r.Duration()),
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
		out,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg trim copy: %w\n%s", err, string(b))
	}
	return nil
}

// TrimPrecise re-encodes the range for frame-accurate boundaries. Sources
// with sparse keyframes (or codecs a short container cannot carry) always go
// through here. cropVertical applies the 9:16 center crop used for
// portrait-format shorts.
func (a *Adapter) TrimPrecise(ctx context.Context, in string, r types.TimeRange, out string, cropVertical bool) error {
	args := []string{
		"-y",
		"-ss", fmtSeconds(r.Start),
		"-i", in,
		"-t", fmtSeconds(r.Duration()),
	}
	if cropVertical {
		args = append(args, "-vf", "crop=ih*9/16:ih")
	}
	args = append(args,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-c:a", "aac",
		"-avoid_negative_ts", "make_zero",
		out,
	)
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg trim precise: %w\n%s", err, string(b))
	}
	return nil
}

// Concat stitches the parts in the given order via the concat demuxer with
// stream copy. Parts must share codec parameters; callers normalize
// mismatched spans before concatenation.
func (a *Adapter) Concat(ctx context.Context, parts []string, out string) error {
	if len(parts) == 0 {
		return fmt.Errorf("ffmpeg concat: no input parts")
	}

	list, err := writeConcatList(filepath.Dir(out), parts)
	if err != nil {
		return err
	}
	defer os.Remove(list)

	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", list,
		"-c", "copy",
		out,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg concat: %w\n%s", err, string(b))
	}
	return nil
}

// Probe reports container duration and the first video stream's codec and
// dimensions.
func (a *Adapter) Probe(ctx context.Context, in string) (types.MediaInfo, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		in,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.MediaInfo{}, fmt.Errorf("ffprobe: %w\n%s", err, string(b))
	}

	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
		Streams []struct {
			CodecType string `json:"codec_type"`
			CodecName string `json:"codec_name"`
			Width     int    `json:"width"`
			Height    int    `json:"height"`
			Duration  string `json:"duration"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return types.MediaInfo{}, fmt.Errorf("ffprobe parse: %w", err)
	}

	info := types.MediaInfo{}
	if d, err := strconv.ParseFloat(strings.TrimSpace(probe.Format.Duration), 64); err == nil {
		info.Duration = d
	}
	for _, s := range probe.Streams {
		if s.CodecType != "video" {
			continue
		}
		info.Codec = s.CodecName
		info.Width = s.Width
		info.Height = s.Height
		// Stream duration backfills containers that omit format duration.
		if info.Duration == 0 {
			if d, err := strconv.ParseFloat(strings.TrimSpace(s.Duration), 64); err == nil {
				info.Duration = d
			}
		}
		break
	}
	if info.Duration == 0 {
		return types.MediaInfo{}, fmt.Errorf("ffprobe: could not determine duration of %s", in)
	}
	return info, nil
}

func writeConcatList(dir string, parts []string) (string, error) {
	f, err := os.CreateTemp(dir, "concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("create concat list: %w", err)
	}
	for _, p := range parts {
		if _, err := fmt.Fprintf(f, "file '%s'\n", escapeConcatPath(p)); err != nil {
			f.Close()
			os.Remove(f.Name())
			return "", fmt.Errorf("write concat list: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// escapeConcatPath quotes a path for the concat demuxer's single-quoted file
// directive.
func escapeConcatPath(p string) string {
	return strings.ReplaceAll(p, "'", `'\''`)
}

func fmtSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
