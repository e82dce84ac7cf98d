// Package storage abstracts where finished clip artifacts are kept.
// Source uploads always land on local disk because ffmpeg reads them in
// place; the configured backend decides where finished clips are published.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ArtifactStore publishes and removes finished artifacts.
type ArtifactStore interface {
	// SaveFile publishes the file at localPath under key and returns the
	// URL clients can download it from.
	SaveFile(ctx context.Context, key string, localPath string) (string, error)
	// Save streams content under key.
	Save(ctx context.Context, key string, r io.Reader) (string, error)
	// Delete removes the artifact stored under key.
	Delete(ctx context.Context, key string) error
}

// LocalStore keeps artifacts on local disk, served by the HTTP server's
// static file routes.
type LocalStore struct {
	baseDir   string
	urlPrefix string
}

// NewLocalStore creates a store rooted at baseDir. urlPrefix is the static
// route the server mounts for that directory (for example "/clips").
func NewLocalStore(baseDir, urlPrefix string) *LocalStore {
	return &LocalStore{baseDir: baseDir, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}
}

func (l *LocalStore) SaveFile(ctx context.Context, key string, localPath string) (string, error) {
	dst := filepath.Join(l.baseDir, key)
	if filepath.Clean(localPath) == filepath.Clean(dst) {
		// ffmpeg already wrote the artifact in place
		return l.url(key), nil
	}

	in, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("opening artifact: %w", err)
	}
	defer in.Close()
	return l.Save(ctx, key, in)
}

func (l *LocalStore) Save(_ context.Context, key string, r io.Reader) (string, error) {
	dst := filepath.Join(l.baseDir, key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("creating artifact directory: %w", err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("creating artifact file: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(dst)
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("finalising artifact: %w", err)
	}

	return l.url(key), nil
}

func (l *LocalStore) Delete(_ context.Context, key string) error {
	err := os.Remove(filepath.Join(l.baseDir, key))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// Path resolves the on-disk location for key.
func (l *LocalStore) Path(key string) string {
	return filepath.Join(l.baseDir, key)
}

func (l *LocalStore) url(key string) string {
	return l.urlPrefix + "/" + filepath.ToSlash(key)
}
