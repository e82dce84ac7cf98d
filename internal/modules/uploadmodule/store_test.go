package uploadmodule

import (
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/clipforge/clipforge/internal/database"
)

func setupJobStore(t *testing.T) *JobStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&database.Job{}, &database.Clip{}))

	return NewJobStore(db, hclog.NewNullLogger())
}

func TestJobStoreCreateAndGet(t *testing.T) {
	store := setupJobStore(t)

	created, err := store.Create("u1", "demo.mp4", "/data/uploads/x.mp4", 120)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, database.JobStatusUploaded, created.Status)

	loaded, err := store.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "demo.mp4", loaded.Filename)
	assert.Equal(t, 120.0, loaded.Duration)
	assert.Empty(t, loaded.Clips)
}

func TestJobStoreGetUnknown(t *testing.T) {
	store := setupJobStore(t)

	_, err := store.Get("nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestJobStoreListNewestFirst(t *testing.T) {
	store := setupJobStore(t)

	first, err := store.Create("u1", "first.mp4", "/p/1.mp4", 10)
	require.NoError(t, err)
	second, err := store.Create("u1", "second.mp4", "/p/2.mp4", 20)
	require.NoError(t, err)

	// created_at has second resolution on some backends; force an order
	require.NoError(t, store.db.Model(first).Update("created_at", first.CreatedAt.Add(-time.Minute)).Error)

	jobs, err := store.List()
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, second.ID, jobs[0].ID)
	assert.Equal(t, first.ID, jobs[1].ID)
}

func TestJobStoreTransition(t *testing.T) {
	store := setupJobStore(t)

	job, err := store.Create("u1", "a.mp4", "/p/a.mp4", 60)
	require.NoError(t, err)

	err = store.Transition(job.ID, []database.JobStatus{database.JobStatusUploaded}, database.JobStatusPending)
	require.NoError(t, err)

	loaded, err := store.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, database.JobStatusPending, loaded.Status)
}

func TestJobStoreTransitionGuards(t *testing.T) {
	store := setupJobStore(t)

	job, err := store.Create("u1", "a.mp4", "/p/a.mp4", 60)
	require.NoError(t, err)

	// Wrong source state
	err = store.Transition(job.ID, []database.JobStatus{database.JobStatusProcessing}, database.JobStatusCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// Unknown job
	err = store.Transition("ghost", []database.JobStatus{database.JobStatusUploaded}, database.JobStatusPending)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestJobStoreProgressIsMonotonic(t *testing.T) {
	store := setupJobStore(t)

	job, err := store.Create("u1", "a.mp4", "/p/a.mp4", 60)
	require.NoError(t, err)

	require.NoError(t, store.SetProgress(job.ID, 40))
	require.NoError(t, store.SetProgress(job.ID, 20)) // stale writer

	loaded, err := store.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, loaded.Progress)

	require.NoError(t, store.SetProgress(job.ID, 150))
	loaded, err = store.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, loaded.Progress, "progress clamps to 100")
}

func TestJobStoreCompleteRecordsFailures(t *testing.T) {
	store := setupJobStore(t)

	job, err := store.Create("u1", "a.mp4", "/p/a.mp4", 60)
	require.NoError(t, err)

	failures := []database.ClipFailure{{Index: 2, Reason: "ffmpeg exited 1"}}
	require.NoError(t, store.Complete(job.ID, failures))

	loaded, err := store.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, database.JobStatusCompleted, loaded.Status)
	assert.Equal(t, 100, loaded.Progress)
	require.Len(t, loaded.Failures, 1)
	assert.Equal(t, 2, loaded.Failures[0].Index)
	assert.NotNil(t, loaded.CompletedAt)
	assert.True(t, loaded.IsTerminal())
}

func TestJobStoreFail(t *testing.T) {
	store := setupJobStore(t)

	job, err := store.Create("u1", "a.mp4", "/p/a.mp4", 60)
	require.NoError(t, err)

	require.NoError(t, store.Fail(job.ID, "source unreadable"))

	loaded, err := store.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, database.JobStatusFailed, loaded.Status)
	assert.Equal(t, "source unreadable", loaded.ErrorMessage)
}

func TestJobStoreDeleteRemovesClips(t *testing.T) {
	store := setupJobStore(t)

	job, err := store.Create("u1", "a.mp4", "/p/a.mp4", 60)
	require.NoError(t, err)

	clip := database.Clip{ID: "c1", JobID: job.ID, Filename: "c1.mp4", Path: "/p/c1.mp4", Duration: 30, AspectRatio: database.AspectLandscape}
	require.NoError(t, store.db.Create(&clip).Error)

	require.NoError(t, store.Delete(job.ID))

	_, err = store.Get(job.ID)
	assert.ErrorIs(t, err, ErrJobNotFound)

	var count int64
	store.db.Model(&database.Clip{}).Where("job_id = ?", job.ID).Count(&count)
	assert.Zero(t, count)

	assert.ErrorIs(t, store.Delete(job.ID), ErrJobNotFound)
}
