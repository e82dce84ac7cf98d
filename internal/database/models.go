package database

import (
	"time"
)

// JobStatus represents the lifecycle stage of a processing job
type JobStatus string

const (
	JobStatusUploaded   JobStatus = "uploaded"
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// AspectRatio is the target output frame shape for generated clips
type AspectRatio string

const (
	AspectLandscape AspectRatio = "16:9"
	AspectPortrait  AspectRatio = "9:16"
	AspectSquare    AspectRatio = "1:1"
)

// ValidAspectRatio reports whether s names a supported aspect ratio.
func ValidAspectRatio(s string) bool {
	switch AspectRatio(s) {
	case AspectLandscape, AspectPortrait, AspectSquare:
		return true
	}
	return false
}

// Job represents one uploaded source video and its processing lifecycle
type Job struct {
	ID           string        `gorm:"primaryKey;type:varchar(64)" json:"id"`
	UserID       string        `gorm:"index;type:varchar(64)" json:"userId"`
	Filename     string        `gorm:"type:varchar(512);not null" json:"filename"`
	Path         string        `gorm:"type:varchar(1024);not null" json:"-"`
	Duration     float64       `gorm:"not null" json:"duration"`
	Status       JobStatus     `gorm:"type:varchar(32);not null;index" json:"status"`
	Progress     int           `gorm:"not null;default:0" json:"progress"`
	ErrorMessage string        `gorm:"type:text" json:"errorMessage,omitempty"`
	Failures     []ClipFailure `gorm:"serializer:json;type:text" json:"failures,omitempty"`
	Clips        []Clip        `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE" json:"clips,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
	CompletedAt  *time.Time    `json:"completedAt,omitempty"`
}

// IsTerminal reports whether the job reached a final state.
func (j *Job) IsTerminal() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// ClipFailure records one failed generation attempt within a batch.
// Surfacing these explicitly replaces the silently shortened clip lists the
// original prototype produced.
type ClipFailure struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// Clip represents one generated output segment derived from a Job
type Clip struct {
	ID            string      `gorm:"primaryKey;type:varchar(64)" json:"id"`
	JobID         string      `gorm:"index;type:varchar(64);not null" json:"jobId"`
	Filename      string      `gorm:"type:varchar(512);not null" json:"filename"`
	Path          string      `gorm:"type:varchar(1024);not null" json:"-"`
	DownloadURL   string      `gorm:"type:varchar(1024)" json:"downloadUrl"`
	ThumbnailURL  string      `gorm:"type:varchar(1024)" json:"thumbnailUrl,omitempty"`
	ThumbnailPath string      `gorm:"type:varchar(1024)" json:"-"`
	Duration      float64     `gorm:"not null" json:"duration"`
	StartTime     float64     `gorm:"not null" json:"startTime"`
	AspectRatio   AspectRatio `gorm:"type:varchar(16);not null" json:"aspectRatio"`
	HasSubtitles  bool        `gorm:"not null;default:false" json:"hasSubtitles"`
	CreatedAt     time.Time   `json:"createdAt"`
	ExpiresAt     *time.Time  `gorm:"index" json:"expiresAt,omitempty"`
}

// UserSubscription carries the plan-derived limits consulted by the cost gate
type UserSubscription struct {
	UserID           string    `gorm:"primaryKey;type:varchar(64)" json:"userId"`
	Plan             string    `gorm:"type:varchar(32);not null" json:"plan"`
	MaxVideoDuration int       `gorm:"not null" json:"maxVideoDuration"` // seconds, 0 = unlimited
	MaxClipsPerVideo int       `gorm:"not null" json:"maxClipsPerVideo"` // 0 = unlimited
	Active           bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// UserCredits tracks the billing balance for one user
type UserCredits struct {
	UserID           string    `gorm:"primaryKey;type:varchar(64)" json:"userId"`
	RemainingCredits float64   `gorm:"not null;default:0" json:"remainingCredits"`
	TotalCredits     float64   `gorm:"not null;default:0" json:"totalCredits"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// TableName overrides keep the table names stable across driver defaults.
func (Job) TableName() string              { return "jobs" }
func (Clip) TableName() string             { return "clips" }
func (UserSubscription) TableName() string { return "user_subscriptions" }
func (UserCredits) TableName() string      { return "user_credits" }
