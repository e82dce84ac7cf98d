package uploadmodule

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/clipforge/clipforge/internal/logger"
)

const probeTimeout = 30 * time.Second

// DurationProber reads the duration of a media file in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// FFprobeProber shells out to ffprobe.
type FFprobeProber struct {
	// Binary overrides the ffprobe executable name, mainly for tests.
	Binary string
}

func (p *FFprobeProber) binary() string {
	if p.Binary != "" {
		return p.Binary
	}
	return "ffprobe"
}

// Duration runs ffprobe and parses the container duration.
func (p *FFprobeProber) Duration(ctx context.Context, path string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.binary(),
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w: %s", err, strings.TrimSpace(string(output)))
	}

	raw := strings.TrimSpace(string(output))
	duration, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing ffprobe duration %q: %w", raw, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("ffprobe reported non-positive duration %f", duration)
	}
	return duration, nil
}

// probeDuration returns the media duration in seconds. When the probe
// fails the configured fallback is assumed so uploads never bounce on
// broken container metadata alone; downstream cost estimates and clip
// placement work off the assumed value.
func probeDuration(ctx context.Context, prober DurationProber, path string, fallback float64) float64 {
	duration, err := prober.Duration(ctx, path)
	if err != nil {
		logger.Warn("duration probe failed, assuming default", "path", path, "fallback", fallback, "error", err)
		return fallback
	}
	return duration
}
