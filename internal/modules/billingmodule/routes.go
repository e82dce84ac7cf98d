package billingmodule

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clipforge/clipforge/internal/apiroutes"
	cferrors "github.com/clipforge/clipforge/internal/errors"
	"github.com/clipforge/clipforge/internal/middleware"
)

// estimateRequest is the body for POST /api/estimate.
type estimateRequest struct {
	DurationSeconds float64 `json:"durationSeconds" binding:"required,gt=0"`
	NumberOfClips   int     `json:"numberOfClips" binding:"required,gt=0"`
}

// RegisterRoutes mounts the billing endpoints.
func (m *Module) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.POST("/estimate", m.handleEstimate)
		api.GET("/credits", m.handleCredits)
	}

	apiroutes.Register("/api/estimate", "POST", "Estimate credit cost and plan eligibility for a generation request.")
	apiroutes.Register("/api/credits", "GET", "Current user's credit balance and plan limits.")
}

// handleEstimate runs the cost gate without side effects.
func (m *Module) handleEstimate(c *gin.Context) {
	var req estimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		cferrors.NewValidationError("invalid estimate request: "+err.Error(), "body").ToGinResponse(c)
		return
	}

	userID := middleware.UserID(c)
	sub, err := m.accounts.GetSubscription(userID)
	if err != nil {
		cferrors.NewDatabaseError("load subscription", err).ToGinResponse(c)
		return
	}
	credits, err := m.accounts.GetCredits(userID)
	if err != nil {
		cferrors.NewDatabaseError("load credits", err).ToGinResponse(c)
		return
	}

	decision := CanProcess(sub, credits, req.DurationSeconds, req.NumberOfClips)
	c.JSON(http.StatusOK, decision)
}

// handleCredits reports the caller's balance and plan.
func (m *Module) handleCredits(c *gin.Context) {
	userID := middleware.UserID(c)
	sub, err := m.accounts.GetSubscription(userID)
	if err != nil {
		cferrors.NewDatabaseError("load subscription", err).ToGinResponse(c)
		return
	}
	credits, err := m.accounts.GetCredits(userID)
	if err != nil {
		cferrors.NewDatabaseError("load credits", err).ToGinResponse(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"plan":             sub.Plan,
		"maxVideoDuration": sub.MaxVideoDuration,
		"maxClipsPerVideo": sub.MaxClipsPerVideo,
		"remainingCredits": credits.RemainingCredits,
		"totalCredits":     credits.TotalCredits,
	})
}
