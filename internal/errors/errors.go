package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clipforge/clipforge/internal/logger"
)

// Severity drives how the client surfaces an error: low/medium errors are
// auto-dismissed notifications, high/critical require acknowledgment.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ClipError represents a structured error with HTTP context
type ClipError struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Severity   Severity               `json:"severity"`
	Context    map[string]interface{} `json:"context,omitempty"`
	Cause      error                  `json:"-"`
	HTTPStatus int                    `json:"-"`
}

func (e *ClipError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClipError) Unwrap() error {
	return e.Cause
}

// ToGinResponse sends the error as a standardized JSON response
func (e *ClipError) ToGinResponse(c *gin.Context) {
	statusCode := e.HTTPStatus
	if statusCode == 0 {
		statusCode = http.StatusInternalServerError
	}

	response := gin.H{
		"error":    e.Message,
		"code":     e.Code,
		"severity": e.Severity,
	}
	if len(e.Context) > 0 {
		response["details"] = e.Context
	}

	logger.Error("HTTP error response",
		"status", statusCode,
		"code", e.Code,
		"message", e.Message,
		"path", c.Request.URL.Path,
		"method", c.Request.Method)

	c.JSON(statusCode, response)
}

// Common error constructors

func NewValidationError(message string, field string) *ClipError {
	return &ClipError{
		Code:       "VALIDATION_ERROR",
		Message:    message,
		Severity:   SeverityLow,
		HTTPStatus: http.StatusBadRequest,
		Context:    map[string]interface{}{"field": field},
	}
}

func NewUnsupportedMediaError(extension string) *ClipError {
	return &ClipError{
		Code:       "UNSUPPORTED_MEDIA",
		Message:    "unsupported video format",
		Severity:   SeverityMedium,
		HTTPStatus: http.StatusUnsupportedMediaType,
		Context:    map[string]interface{}{"extension": extension},
	}
}

func NewFileTooLargeError(maxBytes int64) *ClipError {
	return &ClipError{
		Code:       "FILE_TOO_LARGE",
		Message:    "uploaded file exceeds the size limit",
		Severity:   SeverityMedium,
		HTTPStatus: http.StatusRequestEntityTooLarge,
		Context:    map[string]interface{}{"max_bytes": maxBytes},
	}
}

func NewNotFoundError(resource string, id string) *ClipError {
	return &ClipError{
		Code:       "NOT_FOUND",
		Message:    resource + " not found",
		Severity:   SeverityLow,
		HTTPStatus: http.StatusNotFound,
		Context:    map[string]interface{}{"resource": resource, "id": id},
	}
}

func NewProcessingError(operation string, cause error) *ClipError {
	return &ClipError{
		Code:       "PROCESSING_ERROR",
		Message:    "video processing failed",
		Severity:   SeverityHigh,
		HTTPStatus: http.StatusInternalServerError,
		Context:    map[string]interface{}{"operation": operation},
		Cause:      cause,
	}
}

func NewInsufficientCreditsError(required, remaining float64) *ClipError {
	return &ClipError{
		Code:       "INSUFFICIENT_CREDITS",
		Message:    "not enough credits for this request",
		Severity:   SeverityHigh,
		HTTPStatus: http.StatusPaymentRequired,
		Context:    map[string]interface{}{"required": required, "remaining": remaining},
	}
}

func NewPlanLimitError(reason string) *ClipError {
	return &ClipError{
		Code:       "LIMIT_EXCEEDED",
		Message:    reason,
		Severity:   SeverityMedium,
		HTTPStatus: http.StatusForbidden,
	}
}

func NewConflictError(message string) *ClipError {
	return &ClipError{
		Code:       "CONFLICT",
		Message:    message,
		Severity:   SeverityMedium,
		HTTPStatus: http.StatusConflict,
	}
}

func NewInternalError(message string, cause error) *ClipError {
	return &ClipError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Severity:   SeverityCritical,
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewDatabaseError(operation string, cause error) *ClipError {
	return &ClipError{
		Code:       "DATABASE_ERROR",
		Message:    "Database operation failed",
		Severity:   SeverityCritical,
		HTTPStatus: http.StatusInternalServerError,
		Context:    map[string]interface{}{"operation": operation},
		Cause:      cause,
	}
}
