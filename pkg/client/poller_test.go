package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jobServer serves a scripted sequence of job states, sticking on the last.
func jobServer(t *testing.T, states []Job) (*httptest.Server, *atomic.Int64) {
	t.Helper()

	var polls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := polls.Add(1)
		idx := int(n) - 1
		if idx >= len(states) {
			idx = len(states) - 1
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(states[idx])
	}))
	t.Cleanup(srv.Close)
	return srv, &polls
}

func fastPoll() *PollOptions {
	return &PollOptions{Interval: time.Millisecond, MaxAttempts: 50}
}

func TestWaitForJobCompletes(t *testing.T) {
	srv, polls := jobServer(t, []Job{
		{ID: "j1", Status: "pending"},
		{ID: "j1", Status: "processing", Progress: 10},
		{ID: "j1", Status: "processing", Progress: 40},
		{ID: "j1", Status: "processing", Progress: 80},
		{ID: "j1", Status: "completed", Progress: 100},
	})

	c := New(srv.URL)
	var phases []string
	opts := fastPoll()
	opts.OnProgress = func(p PollProgress) { phases = append(phases, p.Phase) }

	job, err := c.WaitForJob(context.Background(), "j1", opts)
	require.NoError(t, err)

	assert.Equal(t, "completed", job.Status)
	assert.Equal(t, int64(5), polls.Load())
	assert.Equal(t, []string{"Queued", "Starting generation", "Generating clips", "Finalizing clips", "Done"}, phases)
}

func TestPhaseLabelFollowsProgress(t *testing.T) {
	cases := []struct {
		status   string
		progress int
		want     string
	}{
		{"uploaded", 0, "Waiting to start"},
		{"pending", 0, "Queued"},
		{"processing", 0, "Starting generation"},
		{"processing", 24, "Starting generation"},
		{"processing", 25, "Generating clips"},
		{"processing", 74, "Generating clips"},
		{"processing", 75, "Finalizing clips"},
		{"processing", 99, "Finalizing clips"},
		{"completed", 100, "Done"},
		{"failed", 50, "Failed"},
		{"cancelled", 50, "Cancelled"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, phaseLabel(tc.status, tc.progress), "%s at %d%%", tc.status, tc.progress)
	}
}

func TestWaitForJobFailure(t *testing.T) {
	srv, _ := jobServer(t, []Job{
		{ID: "j1", Status: "processing"},
		{ID: "j1", Status: "failed", ErrorMessage: "all 3 clips failed"},
	})

	c := New(srv.URL)
	job, err := c.WaitForJob(context.Background(), "j1", fastPoll())

	var failed *ErrJobFailed
	require.ErrorAs(t, err, &failed)
	assert.Contains(t, failed.Reason, "clips failed")
	require.NotNil(t, job, "the terminal job is returned alongside the error")
	assert.Equal(t, "failed", job.Status)
}

func TestWaitForJobCancelled(t *testing.T) {
	srv, _ := jobServer(t, []Job{{ID: "j1", Status: "cancelled"}})

	c := New(srv.URL)
	_, err := c.WaitForJob(context.Background(), "j1", fastPoll())

	var cancelled *ErrJobCancelled
	assert.ErrorAs(t, err, &cancelled)
}

func TestWaitForJobTimesOut(t *testing.T) {
	srv, polls := jobServer(t, []Job{{ID: "j1", Status: "processing"}})

	c := New(srv.URL)
	opts := &PollOptions{Interval: time.Millisecond, MaxAttempts: 5}
	_, err := c.WaitForJob(context.Background(), "j1", opts)

	var timeout *ErrPollTimeout
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, 5, timeout.Attempts)
	assert.Equal(t, int64(5), polls.Load())
}

func TestWaitForJobContextCancellation(t *testing.T) {
	srv, _ := jobServer(t, []Job{{ID: "j1", Status: "processing"}})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	c := New(srv.URL)
	opts := &PollOptions{Interval: 5 * time.Millisecond, MaxAttempts: 1000}
	_, err := c.WaitForJob(ctx, "j1", opts)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestWaitForJobUnknownJobAbortsImmediately(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "job not found", "code": "NOT_FOUND"})
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL)
	_, err := c.WaitForJob(context.Background(), "ghost", fastPoll())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestWaitForJobSurvivesTransientErrors(t *testing.T) {
	var polls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := polls.Add(1)
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Job{ID: "j1", Status: "completed"})
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL)
	opts := &PollOptions{Interval: time.Millisecond, MaxAttempts: 10, Backoff: 2, MaxInterval: 10 * time.Millisecond}
	job, err := c.WaitForJob(context.Background(), "j1", opts)

	require.NoError(t, err)
	assert.Equal(t, "completed", job.Status)
}

func TestClientSendsUserIDHeader(t *testing.T) {
	var gotUser string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = r.Header.Get("X-User-ID")
		json.NewEncoder(w).Encode(Job{ID: "j1", Status: "completed"})
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, WithUserID("alice"))
	_, err := c.GetJob(context.Background(), "j1")

	require.NoError(t, err)
	assert.Equal(t, "alice", gotUser)
}
