package uploadmodule

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"

	"github.com/clipforge/clipforge/internal/database"
)

// ErrJobNotFound is returned for unknown job identifiers.
var ErrJobNotFound = errors.New("job not found")

// ErrInvalidTransition is returned when a status change is not legal from
// the job's current state.
var ErrInvalidTransition = errors.New("invalid job status transition")

// JobStore persists jobs. All mutations run inside transactions so that
// concurrent requests against the same job serialize instead of racing.
type JobStore struct {
	db     *gorm.DB
	logger hclog.Logger
}

// NewJobStore creates a job store.
func NewJobStore(db *gorm.DB, logger hclog.Logger) *JobStore {
	return &JobStore{db: db, logger: logger.Named("job-store")}
}

// Create inserts a new job record in uploaded status.
func (s *JobStore) Create(userID, filename, path string, duration float64) (*database.Job, error) {
	job := &database.Job{
		ID:       uuid.New().String(),
		UserID:   userID,
		Filename: filename,
		Path:     path,
		Duration: duration,
		Status:   database.JobStatusUploaded,
	}
	if err := s.db.Create(job).Error; err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}

	s.logger.Info("job created", "job_id", job.ID, "filename", filename, "duration", duration)
	return job, nil
}

// Get loads a job with its clips.
func (s *JobStore) Get(id string) (*database.Job, error) {
	var job database.Job
	err := s.db.Preload("Clips").Where("id = ?", id).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading job: %w", err)
	}
	return &job, nil
}

// List returns all jobs, newest first.
func (s *JobStore) List() ([]database.Job, error) {
	var jobs []database.Job
	if err := s.db.Preload("Clips").Order("created_at DESC").Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	return jobs, nil
}

// Transition moves a job from one of the given states to the target state.
// The guarded UPDATE makes the read-check-write atomic, so two concurrent
// generation requests for the same job cannot both win.
func (s *JobStore) Transition(id string, from []database.JobStatus, to database.JobStatus) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&database.Job{}).
			Where("id = ? AND status IN ?", id, from).
			Update("status", to)
		if result.Error != nil {
			return fmt.Errorf("transitioning job: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			var count int64
			tx.Model(&database.Job{}).Where("id = ?", id).Count(&count)
			if count == 0 {
				return ErrJobNotFound
			}
			return ErrInvalidTransition
		}
		return nil
	})
}

// SetProgress records progress for a processing job. Progress is clamped
// monotonic: a stale writer can never move the bar backwards.
func (s *JobStore) SetProgress(id string, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	err := s.db.Model(&database.Job{}).
		Where("id = ? AND progress < ?", id, progress).
		Update("progress", progress).Error
	if err != nil {
		return fmt.Errorf("updating progress: %w", err)
	}
	return nil
}

// Complete marks a job finished and records the per-clip failures.
func (s *JobStore) Complete(id string, failures []database.ClipFailure) error {
	now := time.Now().UTC()
	err := s.db.Model(&database.Job{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":       database.JobStatusCompleted,
		"progress":     100,
		"failures":     failures,
		"completed_at": &now,
	}).Error
	if err != nil {
		return fmt.Errorf("completing job: %w", err)
	}

	s.logger.Info("job completed", "job_id", id, "failed_clips", len(failures))
	return nil
}

// Fail marks a job failed with a reason.
func (s *JobStore) Fail(id string, reason string) error {
	now := time.Now().UTC()
	err := s.db.Model(&database.Job{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":        database.JobStatusFailed,
		"error_message": reason,
		"completed_at":  &now,
	}).Error
	if err != nil {
		return fmt.Errorf("failing job: %w", err)
	}

	s.logger.Warn("job failed", "job_id", id, "reason", reason)
	return nil
}

// Delete removes a job and its clip records. Callers are responsible for
// removing files; the database rows go atomically.
func (s *JobStore) Delete(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("job_id = ?", id).Delete(&database.Clip{}).Error; err != nil {
			return fmt.Errorf("deleting job clips: %w", err)
		}
		result := tx.Where("id = ?", id).Delete(&database.Job{})
		if result.Error != nil {
			return fmt.Errorf("deleting job: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrJobNotFound
		}
		return nil
	})
}
