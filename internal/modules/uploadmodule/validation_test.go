package uploadmodule

import (
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"

	cferrors "github.com/clipforge/clipforge/internal/errors"
)

func fileHeader(name, contentType string, size int64) *multipart.FileHeader {
	header := &multipart.FileHeader{
		Filename: name,
		Size:     size,
		Header:   textproto.MIMEHeader{},
	}
	if contentType != "" {
		header.Header.Set("Content-Type", contentType)
	}
	return header
}

func TestValidateAcceptsSupportedFormats(t *testing.T) {
	v := newUploadValidator(nil, 1<<30)

	for _, name := range []string{"a.mp4", "b.MOV", "c.avi", "d.mkv", "e.webm"} {
		assert.NoError(t, v.Validate(fileHeader(name, "video/mp4", 1024)), name)
	}
}

func TestValidateRejectsUnsupportedExtension(t *testing.T) {
	v := newUploadValidator(nil, 1<<30)

	err := v.Validate(fileHeader("talk.mp3", "audio/mpeg", 1024))

	var clipErr *cferrors.ClipError
	assert.ErrorAs(t, err, &clipErr)
	assert.Equal(t, 415, clipErr.HTTPStatus)
}

func TestValidateRejectsExtensionlessFile(t *testing.T) {
	v := newUploadValidator(nil, 1<<30)

	assert.Error(t, v.Validate(fileHeader("video", "video/mp4", 1024)))
}

func TestValidateRejectsMismatchedContentType(t *testing.T) {
	v := newUploadValidator(nil, 1<<30)

	err := v.Validate(fileHeader("page.mp4", "text/html", 1024))
	assert.Error(t, err)
}

func TestValidateAllowsGenericContentType(t *testing.T) {
	// Browsers send application/octet-stream for large files.
	v := newUploadValidator(nil, 1<<30)

	assert.NoError(t, v.Validate(fileHeader("big.mp4", "application/octet-stream", 1024)))
	assert.NoError(t, v.Validate(fileHeader("raw.mp4", "", 1024)))
}

func TestValidateRejectsOversizedFile(t *testing.T) {
	v := newUploadValidator(nil, 100)

	err := v.Validate(fileHeader("huge.mp4", "video/mp4", 101))

	var clipErr *cferrors.ClipError
	assert.ErrorAs(t, err, &clipErr)
	assert.Equal(t, 413, clipErr.HTTPStatus)

	assert.NoError(t, v.Validate(fileHeader("fits.mp4", "video/mp4", 100)))
}

func TestValidateCustomExtensionList(t *testing.T) {
	v := newUploadValidator([]string{"mp4", ".m4v"}, 1<<30)

	assert.NoError(t, v.Validate(fileHeader("a.mp4", "video/mp4", 1)))
	assert.NoError(t, v.Validate(fileHeader("b.m4v", "video/mp4", 1)))
	assert.Error(t, v.Validate(fileHeader("c.webm", "video/webm", 1)))
}
