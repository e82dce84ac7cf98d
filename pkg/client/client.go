// Package client is a small Go client for the ClipForge HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Client talks to a ClipForge server.
type Client struct {
	baseURL    string
	userID     string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithUserID sets the identity sent on every request.
func WithUserID(userID string) Option {
	return func(c *Client) { c.userID = userID }
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Job mirrors the server's job resource.
type Job struct {
	ID           string        `json:"id"`
	Filename     string        `json:"filename"`
	Duration     float64       `json:"duration"`
	Status       string        `json:"status"`
	Progress     int           `json:"progress"`
	ErrorMessage string        `json:"errorMessage,omitempty"`
	Failures     []ClipFailure `json:"failures,omitempty"`
	Clips        []Clip        `json:"clips,omitempty"`
}

// ClipFailure is one failed clip within a batch.
type ClipFailure struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// Clip mirrors the server's clip resource.
type Clip struct {
	ID           string  `json:"id"`
	JobID        string  `json:"jobId"`
	Filename     string  `json:"filename"`
	DownloadURL  string  `json:"downloadUrl"`
	ThumbnailURL string  `json:"thumbnailUrl,omitempty"`
	Duration     float64 `json:"duration"`
	StartTime    float64 `json:"startTime"`
	AspectRatio  string  `json:"aspectRatio"`
}

// UploadResult is the response to a successful upload.
type UploadResult struct {
	JobID    string  `json:"jobId"`
	Filename string  `json:"filename"`
	Duration float64 `json:"duration"`
	Status   string  `json:"status"`
}

// GenerateOptions configures a generation batch.
type GenerateOptions struct {
	NumberOfClips int       `json:"numberOfClips"`
	ClipDurations []float64 `json:"clipDurations"`
	AspectRatio   string    `json:"aspectRatio"`
	AddSubtitles  bool      `json:"addSubtitles"`
}

type generateBody struct {
	JobID string `json:"jobId"`
	GenerateOptions
}

// Upload sends a video file and returns the registered job.
func (c *Client) Upload(ctx context.Context, path string) (*UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening video: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("video", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("building upload: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("reading video: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalising upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result UploadResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GenerateClips starts a generation batch for an uploaded job.
func (c *Client) GenerateClips(ctx context.Context, jobID string, opts GenerateOptions) error {
	return c.postJSON(ctx, "/api/generate-clips", generateBody{JobID: jobID, GenerateOptions: opts}, nil)
}

// GetJob fetches current job status.
func (c *Client) GetJob(ctx context.Context, jobID string) (*Job, error) {
	var job Job
	if err := c.getJSON(ctx, "/api/job/"+jobID, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// GetClips fetches the finished clips for a job.
func (c *Client) GetClips(ctx context.Context, jobID string) ([]Clip, error) {
	var resp struct {
		Clips []Clip `json:"clips"`
	}
	if err := c.getJSON(ctx, "/api/job/"+jobID+"/clips", &resp); err != nil {
		return nil, err
	}
	return resp.Clips, nil
}

// CancelJob asks the server to stop an in-flight generation.
func (c *Client) CancelJob(ctx context.Context, jobID string) error {
	return c.postJSON(ctx, "/api/job/"+jobID+"/cancel", nil, nil)
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	if c.userID != "" {
		req.Header.Set("X-User-ID", c.userID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if jsonErr := json.Unmarshal(data, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
