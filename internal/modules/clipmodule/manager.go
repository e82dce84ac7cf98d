package clipmodule

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"

	"github.com/clipforge/clipforge/internal/database"
	cferrors "github.com/clipforge/clipforge/internal/errors"
	"github.com/clipforge/clipforge/internal/events"
	"github.com/clipforge/clipforge/internal/modules/billingmodule"
	"github.com/clipforge/clipforge/internal/modules/uploadmodule"
	"github.com/clipforge/clipforge/internal/storage"
)

// session tracks one in-flight generation batch.
type session struct {
	jobID     string
	userID    string
	cancel    context.CancelFunc
	startedAt time.Time
}

// Manager owns the generation pipeline: it gates requests through billing,
// debits credits, runs the generator asynchronously and records results.
type Manager struct {
	db        *gorm.DB
	jobs      *uploadmodule.JobStore
	clips     *ClipStore
	accounts  *billingmodule.AccountRepository
	generator *Generator
	artifacts storage.ArtifactStore
	thumbs    storage.ArtifactStore
	eventBus  events.EventBus
	retention time.Duration
	logger    hclog.Logger

	mu       sync.RWMutex
	sessions map[string]*session
	wg       sync.WaitGroup
}

// NewManager wires the generation pipeline together.
func NewManager(
	db *gorm.DB,
	jobs *uploadmodule.JobStore,
	clips *ClipStore,
	accounts *billingmodule.AccountRepository,
	generator *Generator,
	artifacts storage.ArtifactStore,
	thumbs storage.ArtifactStore,
	eventBus events.EventBus,
	retention time.Duration,
	logger hclog.Logger,
) *Manager {
	return &Manager{
		db:        db,
		jobs:      jobs,
		clips:     clips,
		accounts:  accounts,
		generator: generator,
		artifacts: artifacts,
		thumbs:    thumbs,
		eventBus:  eventBus,
		retention: retention,
		logger:    logger.Named("manager"),
		sessions:  make(map[string]*session),
	}
}

// StartGeneration validates the request, charges the user and launches the
// batch in the background. It returns once the job is committed to
// processing; results arrive via job status and the event stream.
func (m *Manager) StartGeneration(userID string, req GenerateRequest) error {
	job := req.Job

	sub, err := m.accounts.GetSubscription(userID)
	if err != nil {
		return cferrors.NewDatabaseError("load subscription", err)
	}
	credits, err := m.accounts.GetCredits(userID)
	if err != nil {
		return cferrors.NewDatabaseError("load credits", err)
	}

	decision := billingmodule.CanProcess(sub, credits, job.Duration, req.NumberOfClips)
	if !decision.Allowed {
		m.publish(events.EventCreditsDenied, "Generation denied", decision.Reason, map[string]interface{}{
			"job_id": job.ID,
			"cost":   decision.Cost.Total,
		})
		if credits.RemainingCredits < decision.Cost.Total {
			return cferrors.NewInsufficientCreditsError(decision.Cost.Total, credits.RemainingCredits)
		}
		return cferrors.NewPlanLimitError(decision.Reason)
	}

	// Charge and claim the job in one transaction. The guarded status
	// update stops a second request from double-charging the same job.
	err = m.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&database.Job{}).
			Where("id = ? AND status IN ?", job.ID, []database.JobStatus{database.JobStatusUploaded, database.JobStatusFailed}).
			Updates(map[string]interface{}{"status": database.JobStatusPending, "progress": 0, "error_message": ""})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return uploadmodule.ErrInvalidTransition
		}
		return m.accounts.Deduct(tx, userID, decision.Cost.Total)
	})
	if errors.Is(err, uploadmodule.ErrInvalidTransition) {
		return cferrors.NewConflictError(fmt.Sprintf("job %s is already %s", job.ID, job.Status))
	}
	if errors.Is(err, billingmodule.ErrInsufficientCredits) {
		return cferrors.NewInsufficientCreditsError(decision.Cost.Total, credits.RemainingCredits)
	}
	if err != nil {
		return cferrors.NewDatabaseError("claim job", err)
	}

	m.publish(events.EventCreditsDeducted, "Credits deducted",
		fmt.Sprintf("%.1f credits charged for %d clips", decision.Cost.Total, req.NumberOfClips),
		map[string]interface{}{"job_id": job.ID, "amount": decision.Cost.Total})

	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.sessions[job.ID] = &session{jobID: job.ID, userID: userID, cancel: cancel, startedAt: time.Now()}
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run(ctx, req)
	return nil
}

// run drives one batch to completion. It owns the session entry and the
// job's terminal state.
func (m *Manager) run(ctx context.Context, req GenerateRequest) {
	defer m.wg.Done()
	job := req.Job

	defer func() {
		m.mu.Lock()
		delete(m.sessions, job.ID)
		m.mu.Unlock()
	}()

	if err := m.jobs.Transition(job.ID, []database.JobStatus{database.JobStatusPending}, database.JobStatusProcessing); err != nil {
		m.logger.Error("could not move job to processing", "job_id", job.ID, "error", err)
		// The caller was already charged; a job stuck in pending would
		// poll forever, so it fails instead.
		if ferr := m.jobs.Fail(job.ID, "could not start generation: "+err.Error()); ferr != nil {
			m.logger.Error("fail transition failed", "job_id", job.ID, "error", ferr)
		}
		m.publish(events.EventJobFailed, "Generation failed", "could not start generation",
			map[string]interface{}{"job_id": job.ID})
		return
	}
	m.publish(events.EventJobProcessing, "Generation started",
		fmt.Sprintf("Cutting %d clips", req.NumberOfClips),
		map[string]interface{}{"job_id": job.ID})

	result, err := m.generator.Generate(ctx, req, func(percent int) {
		if perr := m.jobs.SetProgress(job.ID, percent); perr != nil {
			m.logger.Warn("progress update failed", "job_id", job.ID, "error", perr)
		}
		m.publish(events.EventJobProgress, "Progress",
			fmt.Sprintf("%d%%", percent),
			map[string]interface{}{"job_id": job.ID, "progress": percent})
	})

	if err != nil {
		if errors.Is(err, context.Canceled) {
			if terr := m.jobs.Transition(job.ID,
				[]database.JobStatus{database.JobStatusProcessing},
				database.JobStatusCancelled); terr != nil {
				m.logger.Warn("cancel transition failed", "job_id", job.ID, "error", terr)
			}
			m.persistClips(job.ID, result.Succeeded)
			m.publish(events.EventJobCancelled, "Generation cancelled",
				fmt.Sprintf("%d clips finished before cancellation", len(result.Succeeded)),
				map[string]interface{}{"job_id": job.ID})
			return
		}
		if ferr := m.jobs.Fail(job.ID, err.Error()); ferr != nil {
			m.logger.Error("fail transition failed", "job_id", job.ID, "error", ferr)
		}
		m.publish(events.EventJobFailed, "Generation failed", err.Error(),
			map[string]interface{}{"job_id": job.ID})
		return
	}

	// A batch where every clip failed is a failed job, not a completed
	// one with zero results.
	if len(result.Succeeded) == 0 && len(result.Failed) > 0 {
		reason := fmt.Sprintf("all %d clips failed: %s", len(result.Failed), result.Failed[0].Reason)
		if ferr := m.jobs.Fail(job.ID, reason); ferr != nil {
			m.logger.Error("fail transition failed", "job_id", job.ID, "error", ferr)
		}
		m.publish(events.EventJobFailed, "Generation failed", reason,
			map[string]interface{}{"job_id": job.ID})
		return
	}

	m.persistClips(job.ID, result.Succeeded)

	if err := m.jobs.Complete(job.ID, result.Failed); err != nil {
		m.logger.Error("complete transition failed", "job_id", job.ID, "error", err)
		return
	}
	m.publish(events.EventJobCompleted, "Generation completed",
		fmt.Sprintf("%d clips ready, %d failed", len(result.Succeeded), len(result.Failed)),
		map[string]interface{}{
			"job_id":    job.ID,
			"succeeded": len(result.Succeeded),
			"failed":    len(result.Failed),
		})
}

// persistClips publishes finished artifacts and records the clip rows.
func (m *Manager) persistClips(jobID string, clips []database.Clip) {
	if len(clips) == 0 {
		return
	}

	ctx := context.Background()
	expires := time.Now().UTC().Add(m.retention)

	for i := range clips {
		clip := &clips[i]
		if m.retention > 0 {
			clip.ExpiresAt = &expires
		}

		url, err := m.artifacts.SaveFile(ctx, clip.Filename, clip.Path)
		if err != nil {
			m.logger.Error("publishing clip failed", "clip_id", clip.ID, "error", err)
			clip.DownloadURL = "/clips/" + clip.Filename
		} else {
			clip.DownloadURL = url
		}

		if clip.ThumbnailPath != "" {
			thumbKey := filepath.Base(clip.ThumbnailPath)
			if url, err := m.thumbs.SaveFile(ctx, thumbKey, clip.ThumbnailPath); err == nil {
				clip.ThumbnailURL = url
			}
		}
	}

	if err := m.clips.SaveBatch(clips); err != nil {
		m.logger.Error("recording clips failed", "job_id", jobID, "error", err)
		return
	}
	for i := range clips {
		m.publish(events.EventClipCreated, "Clip ready", clips[i].Filename,
			map[string]interface{}{"job_id": jobID, "clip_id": clips[i].ID})
	}
}

// Cancel stops an in-flight batch. Finished clips survive; the job lands
// in cancelled state once the worker winds down.
func (m *Manager) Cancel(jobID string) error {
	m.mu.RLock()
	sess, ok := m.sessions[jobID]
	m.mu.RUnlock()
	if !ok {
		return cferrors.NewConflictError(fmt.Sprintf("job %s has no generation in flight", jobID))
	}
	sess.cancel()
	m.logger.Info("cancellation requested", "job_id", jobID)
	return nil
}

// ActiveSessions reports how many batches are currently running.
func (m *Manager) ActiveSessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown cancels all in-flight batches and waits for workers to exit.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.RLock()
	for _, sess := range m.sessions {
		sess.cancel()
	}
	m.mu.RUnlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) publish(eventType events.EventType, title, message string, data map[string]interface{}) {
	if m.eventBus == nil {
		return
	}
	if err := m.eventBus.PublishAsync(events.NewEventWithData(eventType, ModuleName, title, message, data)); err != nil {
		m.logger.Debug("event publish failed", "type", string(eventType), "error", err)
	}
}
