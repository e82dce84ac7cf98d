package uploadmodule

import (
	"mime/multipart"
	"path/filepath"
	"strings"

	cferrors "github.com/clipforge/clipforge/internal/errors"
)

var defaultExtensions = []string{".mp4", ".mov", ".avi", ".mkv", ".webm"}

var allowedMIMETypes = map[string]bool{
	"video/mp4":        true,
	"video/quicktime":  true,
	"video/x-msvideo":  true,
	"video/x-matroska": true,
	"video/webm":       true,
	// Browsers sometimes send a generic type for large files; the
	// extension check still applies.
	"application/octet-stream": true,
	"": true,
}

// uploadValidator checks uploads against the configured limits before any
// bytes hit disk.
type uploadValidator struct {
	extensions map[string]bool
	maxBytes   int64
}

func newUploadValidator(extensions []string, maxBytes int64) *uploadValidator {
	if len(extensions) == 0 {
		extensions = defaultExtensions
	}
	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = true
	}
	return &uploadValidator{extensions: allowed, maxBytes: maxBytes}
}

func (v *uploadValidator) Validate(header *multipart.FileHeader) error {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !v.extensions[ext] {
		return cferrors.NewUnsupportedMediaError(ext)
	}

	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	if !allowedMIMETypes[contentType] {
		return cferrors.NewUnsupportedMediaError(contentType)
	}

	if v.maxBytes > 0 && header.Size > v.maxBytes {
		return cferrors.NewFileTooLargeError(v.maxBytes)
	}
	return nil
}
