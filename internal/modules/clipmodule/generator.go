package clipmodule

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/clipforge/clipforge/internal/database"
)

// GenerateRequest describes one clip generation batch.
type GenerateRequest struct {
	Job           *database.Job
	NumberOfClips int
	ClipDurations []float64
	AspectRatio   database.AspectRatio
	AddSubtitles  bool
}

// GenerateResult reports the outcome of a batch. A batch with some failed
// clips still completes; every failure carries its index and reason.
type GenerateResult struct {
	Succeeded []database.Clip
	Failed    []database.ClipFailure
}

// ProgressFunc receives progress as clips finish, in percent.
type ProgressFunc func(percent int)

// Generator cuts batches of clips from source videos. A single Generator
// is shared by concurrent batches.
type Generator struct {
	transcoder Transcoder
	thumbs     *Thumbnailer
	clipDir    string
	logger     hclog.Logger
}

// NewGenerator creates a generator writing clips under clipDir.
func NewGenerator(transcoder Transcoder, thumbs *Thumbnailer, clipDir string, logger hclog.Logger) *Generator {
	return &Generator{
		transcoder: transcoder,
		thumbs:     thumbs,
		clipDir:    clipDir,
		logger:     logger.Named("generator"),
	}
}

// Generate cuts the requested clips sequentially. Durations cycle through
// the requested list, each clip starts at a uniformly random offset that
// keeps it inside the source, and individual failures are recorded rather
// than aborting the batch. Cancellation via ctx stops between clips; the
// clip in flight is interrupted by the transcoder's own context handling.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest, progress ProgressFunc) (*GenerateResult, error) {
	if req.NumberOfClips <= 0 {
		return nil, fmt.Errorf("number of clips must be positive, got %d", req.NumberOfClips)
	}
	if len(req.ClipDurations) == 0 {
		return nil, fmt.Errorf("at least one clip duration is required")
	}

	result := &GenerateResult{}
	job := req.Job

	for i := 0; i < req.NumberOfClips; i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		clipDuration := req.ClipDurations[i%len(req.ClipDurations)]
		start, duration := g.placeClip(job.Duration, clipDuration)

		clipID := uuid.New().String()
		spec := ClipSpec{
			SourcePath:  job.Path,
			OutputPath:  g.clipPath(clipID),
			StartTime:   start,
			Duration:    duration,
			AspectRatio: req.AspectRatio,
		}

		if err := g.transcoder.Transcode(ctx, spec); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			g.logger.Warn("clip failed", "job_id", job.ID, "index", i, "error", err)
			result.Failed = append(result.Failed, database.ClipFailure{
				Index:  i,
				Reason: err.Error(),
			})
			g.report(progress, i+1, req.NumberOfClips)
			continue
		}

		clip := database.Clip{
			ID:           clipID,
			JobID:        job.ID,
			Filename:     clipID + ".mp4",
			Path:         spec.OutputPath,
			Duration:     duration,
			StartTime:    start,
			AspectRatio:  req.AspectRatio,
			HasSubtitles: req.AddSubtitles,
		}

		if g.thumbs != nil {
			// Best effort: a clip without a thumbnail is still a clip.
			if thumbPath, err := g.thumbs.Generate(ctx, spec.OutputPath, duration, clipID); err != nil {
				g.logger.Warn("thumbnail failed", "clip_id", clipID, "error", err)
			} else {
				clip.ThumbnailPath = thumbPath
			}
		}

		result.Succeeded = append(result.Succeeded, clip)
		g.report(progress, i+1, req.NumberOfClips)
	}

	return result, nil
}

// placeClip picks a uniformly random start offset so the clip fits inside
// the source. A clip longer than the source is truncated to the source and
// starts at zero.
func (g *Generator) placeClip(videoDuration, clipDuration float64) (start, duration float64) {
	duration = clipDuration
	if duration > videoDuration {
		duration = videoDuration
	}
	window := videoDuration - duration
	if window <= 0 {
		return 0, duration
	}
	// The top-level rand functions are safe for concurrent batches.
	return rand.Float64() * window, duration
}

func (g *Generator) clipPath(clipID string) string {
	return filepath.Join(g.clipDir, clipID+".mp4")
}

func (g *Generator) report(progress ProgressFunc, done, total int) {
	if progress != nil {
		progress(done * 100 / total)
	}
}
