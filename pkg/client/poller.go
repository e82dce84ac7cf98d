package client

import (
	"context"
	"fmt"
	"time"
)

// Poller defaults.
const (
	defaultPollInterval = 2 * time.Second
	defaultMaxAttempts  = 300
)

// ErrPollTimeout is returned when a job fails to reach a terminal state
// within the configured number of attempts.
type ErrPollTimeout struct {
	JobID    string
	Attempts int
}

func (e *ErrPollTimeout) Error() string {
	return fmt.Sprintf("job %s did not finish after %d polls", e.JobID, e.Attempts)
}

// ErrJobFailed is returned when the polled job ends in failed state.
type ErrJobFailed struct {
	JobID  string
	Reason string
}

func (e *ErrJobFailed) Error() string {
	return fmt.Sprintf("job %s failed: %s", e.JobID, e.Reason)
}

// ErrJobCancelled is returned when the polled job ends cancelled.
type ErrJobCancelled struct {
	JobID string
}

func (e *ErrJobCancelled) Error() string {
	return fmt.Sprintf("job %s was cancelled", e.JobID)
}

// PollProgress reports progress to the caller on each poll.
type PollProgress struct {
	Attempt  int
	Phase    string
	Progress int
}

// PollOptions tunes WaitForJob.
type PollOptions struct {
	// Interval between polls. Defaults to 2 seconds.
	Interval time.Duration
	// MaxAttempts before giving up. Defaults to 300.
	MaxAttempts int
	// Backoff grows the interval by this factor after each transient
	// request error, up to MaxInterval. Zero disables backoff.
	Backoff     float64
	MaxInterval time.Duration
	// OnProgress is called after every successful poll.
	OnProgress func(PollProgress)
}

func (o *PollOptions) withDefaults() PollOptions {
	opts := PollOptions{}
	if o != nil {
		opts = *o
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultPollInterval
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = 30 * time.Second
	}
	return opts
}

// WaitForJob polls until the job reaches a terminal state or the context
// is cancelled. Transient request errors do not abort the wait; they back
// off when a backoff factor is configured.
func (c *Client) WaitForJob(ctx context.Context, jobID string, opts *PollOptions) (*Job, error) {
	o := opts.withDefaults()
	interval := o.Interval

	timer := time.NewTimer(0)
	defer timer.Stop()

	for attempt := 1; attempt <= o.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}

		job, err := c.GetJob(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode == 404 {
				return nil, err
			}
			// Transient failure: widen the interval and keep polling.
			if o.Backoff > 1 {
				interval = time.Duration(float64(interval) * o.Backoff)
				if interval > o.MaxInterval {
					interval = o.MaxInterval
				}
			}
			timer.Reset(interval)
			continue
		}

		interval = o.Interval

		if o.OnProgress != nil {
			o.OnProgress(PollProgress{
				Attempt:  attempt,
				Phase:    phaseLabel(job.Status, job.Progress),
				Progress: job.Progress,
			})
		}

		switch job.Status {
		case "completed":
			return job, nil
		case "failed":
			return job, &ErrJobFailed{JobID: jobID, Reason: job.ErrorMessage}
		case "cancelled":
			return job, &ErrJobCancelled{JobID: jobID}
		}

		timer.Reset(interval)
	}

	return nil, &ErrPollTimeout{JobID: jobID, Attempts: o.MaxAttempts}
}

// phaseLabel maps job state to a human-readable phase for progress UIs.
// While the job is processing the label follows the progress percentage.
func phaseLabel(status string, progress int) string {
	switch status {
	case "uploaded":
		return "Waiting to start"
	case "pending":
		return "Queued"
	case "processing":
		switch {
		case progress < 25:
			return "Starting generation"
		case progress < 75:
			return "Generating clips"
		default:
			return "Finalizing clips"
		}
	case "completed":
		return "Done"
	case "failed":
		return "Failed"
	case "cancelled":
		return "Cancelled"
	default:
		return status
	}
}
