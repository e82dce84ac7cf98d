package clipmodule

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/clipforge/clipforge/internal/database"
)

// aspectFilters maps output aspect ratios to ffmpeg filter chains. Each
// chain scales the source up to cover the target frame, then center-crops
// to the exact dimensions, so output never letterboxes.
var aspectFilters = map[database.AspectRatio]string{
	database.AspectLandscape: "scale=1920:1080:force_original_aspect_ratio=increase,crop=1920:1080",
	database.AspectPortrait:  "scale=1080:1920:force_original_aspect_ratio=increase,crop=1080:1920",
	database.AspectSquare:    "scale=1080:1080:force_original_aspect_ratio=increase,crop=1080:1080",
}

// ClipSpec describes one clip to cut from a source video.
type ClipSpec struct {
	SourcePath  string
	OutputPath  string
	StartTime   float64
	Duration    float64
	AspectRatio database.AspectRatio
}

// Transcoder cuts a single clip. The ffmpeg implementation is swapped for
// a fake in tests.
type Transcoder interface {
	Transcode(ctx context.Context, spec ClipSpec) error
}

// FFmpegTranscoder shells out to ffmpeg.
type FFmpegTranscoder struct {
	Binary  string
	Timeout time.Duration
	logger  hclog.Logger
}

// NewFFmpegTranscoder creates a transcoder using the given ffmpeg binary.
func NewFFmpegTranscoder(binary string, timeout time.Duration, logger hclog.Logger) *FFmpegTranscoder {
	if binary == "" {
		binary = "ffmpeg"
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &FFmpegTranscoder{Binary: binary, Timeout: timeout, logger: logger.Named("ffmpeg")}
}

// Transcode cuts one clip, re-encoding video through the aspect filter and
// audio to AAC. The output is written atomically: ffmpeg targets a temp
// name that is renamed into place only on success.
func (t *FFmpegTranscoder) Transcode(ctx context.Context, spec ClipSpec) error {
	filter, ok := aspectFilters[spec.AspectRatio]
	if !ok {
		return fmt.Errorf("unsupported aspect ratio %q", spec.AspectRatio)
	}

	if err := os.MkdirAll(filepath.Dir(spec.OutputPath), 0o755); err != nil {
		return fmt.Errorf("creating clip directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	tmpPath := spec.OutputPath + ".part.mp4"
	args := buildClipArgs(spec, filter, tmpPath)

	t.logger.Debug("running ffmpeg", "args", strings.Join(args, " "))
	start := time.Now()

	cmd := exec.CommandContext(ctx, t.Binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		os.Remove(tmpPath)
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("ffmpeg failed: %w: %s", err, tail(string(output), 512))
	}

	if err := os.Rename(tmpPath, spec.OutputPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("finalising clip: %w", err)
	}

	t.logger.Info("clip transcoded",
		"output", filepath.Base(spec.OutputPath),
		"start", spec.StartTime,
		"duration", spec.Duration,
		"took", time.Since(start).Round(time.Millisecond))
	return nil
}

// buildClipArgs assembles the ffmpeg argument list. -ss before -i seeks on
// the demuxer, which is fast and accurate enough post-re-encode.
func buildClipArgs(spec ClipSpec, filter string, outputPath string) []string {
	return []string{
		"-y",
		"-ss", formatSeconds(spec.StartTime),
		"-i", spec.SourcePath,
		"-t", formatSeconds(spec.Duration),
		"-vf", filter,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		outputPath,
	}
}

// formatSeconds prints seconds with millisecond precision for -ss and -t.
func formatSeconds(s float64) string {
	return fmt.Sprintf("%.3f", s)
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
