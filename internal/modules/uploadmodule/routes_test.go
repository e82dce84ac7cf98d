package uploadmodule

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/clipforge/clipforge/internal/database"
	"github.com/clipforge/clipforge/internal/storage"
)

// fixedProber returns a constant duration or an error.
type fixedProber struct {
	duration float64
	err      error
}

func (p *fixedProber) Duration(ctx context.Context, path string) (float64, error) {
	return p.duration, p.err
}

func setupUploadRouter(t *testing.T, prober DurationProber) (*gin.Engine, *Module) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&database.Job{}, &database.Clip{}))

	m := &Module{
		db:        db,
		store:     NewJobStore(db, hclog.NewNullLogger()),
		validator: newUploadValidator(nil, 1<<20),
		prober:    prober,
		uploads:   storage.NewLocalStore(t.TempDir(), "/uploads"),
		fallback:  60,
	}

	r := gin.New()
	m.RegisterRoutes(r)
	return r, m
}

func multipartVideo(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func TestUploadRegistersJob(t *testing.T) {
	r, m := setupUploadRouter(t, &fixedProber{duration: 120})

	body, contentType := multipartVideo(t, "video", "demo.mp4", []byte("fake video bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		JobID    string  `json:"jobId"`
		Duration float64 `json:"duration"`
		Status   string  `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.JobID)
	assert.Equal(t, 120.0, resp.Duration)
	assert.Equal(t, "uploaded", resp.Status)

	job, err := m.store.Get(resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, "demo.mp4", job.Filename)
	assert.FileExists(t, job.Path)
}

func TestUploadMissingFile(t *testing.T) {
	r, _ := setupUploadRouter(t, &fixedProber{duration: 60})

	req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadUnsupportedType(t *testing.T) {
	r, _ := setupUploadRouter(t, &fixedProber{duration: 60})

	body, contentType := multipartVideo(t, "video", "notes.txt", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestUploadBodyOverLimitIsCutOff(t *testing.T) {
	r, _ := setupUploadRouter(t, &fixedProber{duration: 60})

	// Validator limit is 1 MiB; push well past it so the capped body
	// reader trips during multipart parsing.
	body, contentType := multipartVideo(t, "video", "huge.mp4", bytes.Repeat([]byte("x"), 2<<20))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestUploadFallsBackWhenProbeFails(t *testing.T) {
	r, m := setupUploadRouter(t, &fixedProber{err: errors.New("moov atom not found")})

	body, contentType := multipartVideo(t, "video", "broken.mp4", []byte("not really mp4"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, "metadata problems alone never bounce an upload")

	var resp struct {
		JobID    string  `json:"jobId"`
		Duration float64 `json:"duration"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 60.0, resp.Duration)

	job, err := m.store.Get(resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, 60.0, job.Duration)
}
