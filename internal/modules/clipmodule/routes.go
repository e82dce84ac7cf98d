package clipmodule

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/clipforge/clipforge/internal/apiroutes"
	"github.com/clipforge/clipforge/internal/database"
	cferrors "github.com/clipforge/clipforge/internal/errors"
	"github.com/clipforge/clipforge/internal/events"
	"github.com/clipforge/clipforge/internal/logger"
	"github.com/clipforge/clipforge/internal/middleware"
	"github.com/clipforge/clipforge/internal/modules/uploadmodule"
)

// generateRequest is the body for POST /api/generate-clips.
type generateRequest struct {
	JobID         string    `json:"jobId" binding:"required"`
	NumberOfClips int       `json:"numberOfClips" binding:"required,gt=0"`
	ClipDurations []float64 `json:"clipDurations" binding:"required,min=1,dive,gt=0"`
	AspectRatio   string    `json:"aspectRatio" binding:"required"`
	AddSubtitles  bool      `json:"addSubtitles"`
}

// RegisterRoutes mounts the clip generation and job endpoints.
func (m *Module) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.POST("/generate-clips", m.handleGenerate)
		api.GET("/jobs", m.handleListJobs)
		api.GET("/job/:id", m.handleGetJob)
		api.GET("/job/:id/clips", m.handleJobClips)
		api.DELETE("/job/:id", m.handleDeleteJob)
		api.POST("/job/:id/cancel", m.handleCancelJob)
		api.DELETE("/clip/:id", m.handleDeleteClip)
	}

	apiroutes.Register("/api/generate-clips", "POST", "Start clip generation for an uploaded job.")
	apiroutes.Register("/api/jobs", "GET", "List all jobs, newest first.")
	apiroutes.Register("/api/job/:id", "GET", "Job status, progress and failure details.")
	apiroutes.Register("/api/job/:id/clips", "GET", "Finished clips for a job.")
	apiroutes.Register("/api/job/:id", "DELETE", "Delete a job, its clips and their files.")
	apiroutes.Register("/api/job/:id/cancel", "POST", "Cancel an in-flight generation.")
	apiroutes.Register("/api/clip/:id", "DELETE", "Delete a single clip and its files.")
}

// handleGenerate validates the request, charges the caller and starts the
// batch in the background.
func (m *Module) handleGenerate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		cferrors.NewValidationError("invalid generation request: "+err.Error(), "body").ToGinResponse(c)
		return
	}
	if !database.ValidAspectRatio(req.AspectRatio) {
		cferrors.NewValidationError("aspect ratio must be one of 16:9, 9:16, 1:1", "aspectRatio").ToGinResponse(c)
		return
	}

	jobs := uploadmodule.GetModule().Jobs()
	job, err := jobs.Get(req.JobID)
	if errors.Is(err, uploadmodule.ErrJobNotFound) {
		cferrors.NewNotFoundError("job", req.JobID).ToGinResponse(c)
		return
	}
	if err != nil {
		cferrors.NewDatabaseError("load job", err).ToGinResponse(c)
		return
	}
	if job.Status == database.JobStatusPending || job.Status == database.JobStatusProcessing {
		cferrors.NewConflictError("job is already generating clips").ToGinResponse(c)
		return
	}

	userID := middleware.UserID(c)
	genReq := GenerateRequest{
		Job:           job,
		NumberOfClips: req.NumberOfClips,
		ClipDurations: req.ClipDurations,
		AspectRatio:   database.AspectRatio(req.AspectRatio),
		AddSubtitles:  req.AddSubtitles,
	}
	if err := m.Manager().StartGeneration(userID, genReq); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"jobId":  job.ID,
		"status": database.JobStatusPending,
	})
}

// handleListJobs returns every job, newest first.
func (m *Module) handleListJobs(c *gin.Context) {
	jobs, err := uploadmodule.GetModule().Jobs().List()
	if err != nil {
		cferrors.NewDatabaseError("list jobs", err).ToGinResponse(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "total": len(jobs)})
}

// handleGetJob reports job status, progress and any per-clip failures.
func (m *Module) handleGetJob(c *gin.Context) {
	job, ok := m.loadJob(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, job)
}

// handleJobClips lists the finished clips for a job.
func (m *Module) handleJobClips(c *gin.Context) {
	job, ok := m.loadJob(c)
	if !ok {
		return
	}
	clips, err := m.store.ListByJob(job.ID)
	if err != nil {
		cferrors.NewDatabaseError("list clips", err).ToGinResponse(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobId": job.ID, "clips": clips, "total": len(clips)})
}

// handleDeleteJob removes the job, its clips and all files behind them.
func (m *Module) handleDeleteJob(c *gin.Context) {
	job, ok := m.loadJob(c)
	if !ok {
		return
	}
	if job.Status == database.JobStatusProcessing || job.Status == database.JobStatusPending {
		cferrors.NewConflictError("cancel the generation before deleting the job").ToGinResponse(c)
		return
	}

	clips, err := m.store.ListByJob(job.ID)
	if err != nil {
		cferrors.NewDatabaseError("list clips", err).ToGinResponse(c)
		return
	}

	if err := uploadmodule.GetModule().Jobs().Delete(job.ID); err != nil {
		cferrors.NewDatabaseError("delete job", err).ToGinResponse(c)
		return
	}

	// Rows are gone; file removal is best effort.
	for _, clip := range clips {
		removeFileQuiet(clip.Path)
		if clip.ThumbnailPath != "" {
			removeFileQuiet(clip.ThumbnailPath)
		}
	}
	removeFileQuiet(job.Path)

	m.publishJobEvent(events.EventJobDeleted, job.ID, "Job deleted")
	c.JSON(http.StatusOK, gin.H{"deleted": job.ID, "clipsRemoved": len(clips)})
}

// handleCancelJob stops an in-flight generation.
func (m *Module) handleCancelJob(c *gin.Context) {
	job, ok := m.loadJob(c)
	if !ok {
		return
	}
	if err := m.Manager().Cancel(job.ID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"jobId": job.ID, "cancelling": true})
}

// handleDeleteClip removes one clip record and its files.
func (m *Module) handleDeleteClip(c *gin.Context) {
	id := c.Param("id")
	clip, err := m.store.Get(id)
	if errors.Is(err, ErrClipNotFound) {
		cferrors.NewNotFoundError("clip", id).ToGinResponse(c)
		return
	}
	if err != nil {
		cferrors.NewDatabaseError("load clip", err).ToGinResponse(c)
		return
	}

	if err := m.store.Delete(clip.ID); err != nil {
		cferrors.NewDatabaseError("delete clip", err).ToGinResponse(c)
		return
	}
	removeFileQuiet(clip.Path)
	if clip.ThumbnailPath != "" {
		removeFileQuiet(clip.ThumbnailPath)
	}

	if m.eventBus != nil {
		m.eventBus.PublishAsync(events.NewEventWithData(
			events.EventClipDeleted, ModuleName,
			"Clip deleted", clip.Filename,
			map[string]interface{}{"clip_id": clip.ID, "job_id": clip.JobID},
		))
	}
	c.JSON(http.StatusOK, gin.H{"deleted": clip.ID})
}

// loadJob resolves the :id parameter, writing the error response itself.
func (m *Module) loadJob(c *gin.Context) (*database.Job, bool) {
	id := c.Param("id")
	job, err := uploadmodule.GetModule().Jobs().Get(id)
	if errors.Is(err, uploadmodule.ErrJobNotFound) {
		cferrors.NewNotFoundError("job", id).ToGinResponse(c)
		return nil, false
	}
	if err != nil {
		cferrors.NewDatabaseError("load job", err).ToGinResponse(c)
		return nil, false
	}
	return job, true
}

func (m *Module) publishJobEvent(eventType events.EventType, jobID, title string) {
	if m.eventBus == nil {
		return
	}
	m.eventBus.PublishAsync(events.NewEventWithData(eventType, ModuleName, title, jobID,
		map[string]interface{}{"job_id": jobID}))
}

// respondError maps a pipeline error onto the right HTTP response.
func respondError(c *gin.Context, err error) {
	var clipErr *cferrors.ClipError
	if errors.As(err, &clipErr) {
		clipErr.ToGinResponse(c)
		return
	}
	cferrors.NewInternalError("request failed", err).ToGinResponse(c)
}

func removeFileQuiet(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("removing file failed", "path", path, "error", err)
	}
}
