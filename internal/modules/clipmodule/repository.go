package clipmodule

import (
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"

	"github.com/clipforge/clipforge/internal/database"
)

// ErrClipNotFound is returned for unknown clip identifiers.
var ErrClipNotFound = errors.New("clip not found")

// ClipStore persists clip records.
type ClipStore struct {
	db     *gorm.DB
	logger hclog.Logger
}

// NewClipStore creates a clip store.
func NewClipStore(db *gorm.DB, logger hclog.Logger) *ClipStore {
	return &ClipStore{db: db, logger: logger.Named("clip-store")}
}

// SaveBatch inserts a batch of clips atomically. Either the whole batch is
// recorded or none of it is.
func (s *ClipStore) SaveBatch(clips []database.Clip) error {
	if len(clips) == 0 {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&clips).Error; err != nil {
			return fmt.Errorf("saving clips: %w", err)
		}
		return nil
	})
}

// Get loads one clip.
func (s *ClipStore) Get(id string) (*database.Clip, error) {
	var clip database.Clip
	err := s.db.Where("id = ?", id).First(&clip).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrClipNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading clip: %w", err)
	}
	return &clip, nil
}

// ListByJob returns all clips for a job, oldest first.
func (s *ClipStore) ListByJob(jobID string) ([]database.Clip, error) {
	var clips []database.Clip
	if err := s.db.Where("job_id = ?", jobID).Order("created_at ASC").Find(&clips).Error; err != nil {
		return nil, fmt.Errorf("listing clips: %w", err)
	}
	return clips, nil
}

// Delete removes one clip record.
func (s *ClipStore) Delete(id string) error {
	result := s.db.Where("id = ?", id).Delete(&database.Clip{})
	if result.Error != nil {
		return fmt.Errorf("deleting clip: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrClipNotFound
	}
	return nil
}

// ExpiredBefore returns clips whose retention window closed before cutoff.
func (s *ClipStore) ExpiredBefore(cutoff time.Time) ([]database.Clip, error) {
	var clips []database.Clip
	err := s.db.Where("expires_at IS NOT NULL AND expires_at < ?", cutoff).Find(&clips).Error
	if err != nil {
		return nil, fmt.Errorf("finding expired clips: %w", err)
	}
	return clips, nil
}
