package clipmodule

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/clipforge/internal/database"
)

func TestCleanupSweepRemovesExpiredClips(t *testing.T) {
	store := setupClipStore(t)
	dir := t.TempDir()

	past := time.Now().UTC().Add(-time.Minute)
	expired := makeClip("expired", "job-1", &past)
	expired.Path = filepath.Join(dir, "expired.mp4")
	expired.ThumbnailPath = filepath.Join(dir, "expired.webp")

	future := time.Now().UTC().Add(time.Hour)
	fresh := makeClip("fresh", "job-1", &future)
	fresh.Path = filepath.Join(dir, "fresh.mp4")

	for _, path := range []string{expired.Path, expired.ThumbnailPath, fresh.Path} {
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}
	require.NoError(t, store.SaveBatch([]database.Clip{expired, fresh}))

	svc := NewCleanupService(store, nil, time.Hour, hclog.NewNullLogger())
	svc.sweep()

	_, err := store.Get("expired")
	assert.ErrorIs(t, err, ErrClipNotFound)
	assert.NoFileExists(t, expired.Path)
	assert.NoFileExists(t, expired.ThumbnailPath)

	_, err = store.Get("fresh")
	assert.NoError(t, err)
	assert.FileExists(t, fresh.Path)
}

func TestCleanupStartStop(t *testing.T) {
	store := setupClipStore(t)

	svc := NewCleanupService(store, nil, 10*time.Millisecond, hclog.NewNullLogger())
	svc.Start()
	time.Sleep(30 * time.Millisecond)
	svc.Stop()
}
