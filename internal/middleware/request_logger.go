package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clipforge/clipforge/internal/logger"
)

// RequestLogger logs HTTP requests with timing and status.
// Health checks are skipped to keep probe traffic out of the logs.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/api/health" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		logger.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", duration.String(),
			"size", c.Writer.Size(),
			"ip", c.ClientIP(),
		)
	}
}

// ErrorLogger logs errors accumulated by handlers during the request.
func ErrorLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		for _, err := range c.Errors {
			logger.Error("Request error",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"error", err.Error(),
			)
		}
	}
}
