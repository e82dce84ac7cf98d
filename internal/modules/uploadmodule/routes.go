package uploadmodule

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clipforge/clipforge/internal/apiroutes"
	cferrors "github.com/clipforge/clipforge/internal/errors"
	"github.com/clipforge/clipforge/internal/events"
	"github.com/clipforge/clipforge/internal/middleware"
)

// RegisterRoutes mounts the upload endpoints.
func (m *Module) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.POST("/upload", m.handleUpload)
	}

	apiroutes.Register("/api/upload", "POST", "Upload a source video and register a clip generation job.")
}

// multipartOverhead leaves room for the form boundary and headers around
// a maximally sized file.
const multipartOverhead = 10 << 10

// handleUpload accepts a multipart video, validates it, stores it under a
// fresh job ID and probes its duration.
func (m *Module) handleUpload(c *gin.Context) {
	// Cap the body before parsing so an oversized upload is cut off on
	// the wire instead of being received in full and then rejected.
	if m.validator.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, m.validator.maxBytes+multipartOverhead)
	}

	header, err := c.FormFile("video")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			cferrors.NewFileTooLargeError(m.validator.maxBytes).ToGinResponse(c)
			return
		}
		cferrors.NewValidationError("no video file provided", "video").ToGinResponse(c)
		return
	}

	if err := m.validator.Validate(header); err != nil {
		var clipErr *cferrors.ClipError
		if errors.As(err, &clipErr) {
			clipErr.ToGinResponse(c)
		} else {
			cferrors.NewValidationError(err.Error(), "video").ToGinResponse(c)
		}
		return
	}

	jobID := uuid.New().String()
	ext := strings.ToLower(filepath.Ext(header.Filename))
	key := jobID + ext
	dst := m.uploads.Path(key)

	if err := c.SaveUploadedFile(header, dst); err != nil {
		cferrors.NewInternalError("failed to store uploaded file", err).ToGinResponse(c)
		return
	}

	duration := probeDuration(c.Request.Context(), m.prober, dst, m.fallback)

	userID := middleware.UserID(c)
	job, err := m.store.Create(userID, header.Filename, dst, duration)
	if err != nil {
		cferrors.NewDatabaseError("create job", err).ToGinResponse(c)
		return
	}

	if m.eventBus != nil {
		m.eventBus.PublishAsync(events.NewEventWithData(
			events.EventJobCreated, ModuleName,
			"Job created", "Video uploaded and registered for clip generation",
			map[string]interface{}{
				"job_id":   job.ID,
				"filename": job.Filename,
				"duration": job.Duration,
			},
		))
	}

	c.JSON(http.StatusOK, gin.H{
		"jobId":            job.ID,
		"filename":         job.Filename,
		"duration":         job.Duration,
		"status":           job.Status,
		"maxClipsEstimate": maxClipsEstimate(job.Duration),
	})
}

// maxClipsEstimate is a UI hint: roughly one clip per 30 seconds of
// source, at least one.
func maxClipsEstimate(duration float64) int {
	n := int(duration / 30)
	if n < 1 {
		n = 1
	}
	return n
}
