package clipmodule

import (
	"context"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/clipforge/clipforge/internal/events"
)

// CleanupService removes clips whose retention window has closed, both the
// database rows and the files behind them.
type CleanupService struct {
	clips    *ClipStore
	eventBus events.EventBus
	interval time.Duration
	logger   hclog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewCleanupService creates a cleanup service sweeping every interval.
func NewCleanupService(clips *ClipStore, eventBus events.EventBus, interval time.Duration, logger hclog.Logger) *CleanupService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &CleanupService{
		clips:    clips,
		eventBus: eventBus,
		interval: interval,
		logger:   logger.Named("cleanup"),
	}
}

// Start launches the background sweep loop.
func (s *CleanupService) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()

	s.logger.Info("cleanup service started", "interval", s.interval)
}

// Stop halts the sweep loop and waits for a running sweep to finish.
func (s *CleanupService) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.logger.Info("cleanup service stopped")
}

// sweep deletes all expired clips. Errors on individual clips are logged
// and skipped so one bad row cannot wedge retention.
func (s *CleanupService) sweep() {
	expired, err := s.clips.ExpiredBefore(time.Now().UTC())
	if err != nil {
		s.logger.Error("expired clip query failed", "error", err)
		return
	}
	if len(expired) == 0 {
		return
	}

	removed := 0
	for _, clip := range expired {
		if err := s.clips.Delete(clip.ID); err != nil {
			s.logger.Warn("deleting expired clip record failed", "clip_id", clip.ID, "error", err)
			continue
		}
		removeFile(clip.Path, s.logger)
		if clip.ThumbnailPath != "" {
			removeFile(clip.ThumbnailPath, s.logger)
		}
		removed++

		if s.eventBus != nil {
			s.eventBus.PublishAsync(events.NewEventWithData(
				events.EventClipExpired, ModuleName,
				"Clip expired", clip.Filename,
				map[string]interface{}{"clip_id": clip.ID, "job_id": clip.JobID},
			))
		}
	}

	s.logger.Info("retention sweep finished", "expired", len(expired), "removed", removed)
}

func removeFile(path string, logger hclog.Logger) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("removing file failed", "path", path, "error", err)
	}
}
