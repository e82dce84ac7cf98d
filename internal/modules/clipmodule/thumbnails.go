package clipmodule

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/chai2010/webp"
	"github.com/hashicorp/go-hclog"
)

const thumbnailTimeout = 30 * time.Second

// Thumbnailer extracts a frame from the middle of a clip and stores it as
// a WebP preview next to the clip artifacts.
type Thumbnailer struct {
	ffmpegBin string
	thumbDir  string
	quality   float32
	logger    hclog.Logger
}

// NewThumbnailer creates a thumbnailer writing previews under thumbDir.
func NewThumbnailer(ffmpegBin, thumbDir string, quality float32, logger hclog.Logger) *Thumbnailer {
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	return &Thumbnailer{
		ffmpegBin: ffmpegBin,
		thumbDir:  thumbDir,
		quality:   quality,
		logger:    logger.Named("thumbnails"),
	}
}

// Generate extracts the midpoint frame of the clip at clipPath and writes
// it as <clipID>.webp, returning the on-disk path.
func (t *Thumbnailer) Generate(ctx context.Context, clipPath string, clipDuration float64, clipID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, thumbnailTimeout)
	defer cancel()

	frame, err := t.extractFrame(ctx, clipPath, clipDuration/2)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(t.thumbDir, 0o755); err != nil {
		return "", fmt.Errorf("creating thumbnail directory: %w", err)
	}

	outPath := filepath.Join(t.thumbDir, clipID+".webp")
	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("creating thumbnail file: %w", err)
	}
	defer out.Close()

	if err := webp.Encode(out, frame, &webp.Options{Quality: t.quality}); err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("encoding thumbnail: %w", err)
	}

	t.logger.Debug("thumbnail written", "clip_id", clipID)
	return outPath, nil
}

// extractFrame asks ffmpeg for a single PNG frame on stdout and decodes it.
func (t *Thumbnailer) extractFrame(ctx context.Context, clipPath string, at float64) (image.Image, error) {
	cmd := exec.CommandContext(ctx, t.ffmpegBin,
		"-ss", formatSeconds(at),
		"-i", clipPath,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("extracting frame: %w: %s", err, tail(stderr.String(), 256))
	}

	frame, _, err := image.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("decoding frame: %w", err)
	}
	return frame, nil
}
