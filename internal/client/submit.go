package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mkweon/searchlayer/internal/jobs"
)

// Schedule controls the wake-up probe and the bounded submission
// retry. Delays are applied between attempts, never after the last.
type Schedule struct {
	WakeDelays     []time.Duration
	SubmitAttempts int
	RetryDelay     time.Duration
}

// DefaultSchedule returns the production timing: eight health probes
// with stretching delays to ride out a backend cold start, then three
// upload attempts spaced ten seconds apart.
func DefaultSchedule() Schedule {
	return Schedule{
		WakeDelays: []time.Duration{
			3 * time.Second,
			5 * time.Second,
			5 * time.Second,
			8 * time.Second,
			8 * time.Second,
			10 * time.Second,
			10 * time.Second,
			10 * time.Second,
		},
		SubmitAttempts: 3,
		RetryDelay:     10 * time.Second,
	}
}

// Submitter drives queued jobs through wake-up, upload and completion.
// At most one job is in flight at any time.
type Submitter struct {
	api      *Client
	queue    *jobs.Queue
	schedule Schedule
	limits   LimitsConfig

	// sleep is replaceable in tests.
	sleep func(time.Duration)
	// notify is invoked after every observable job change.
	notify func(*jobs.Job)

	sem  chan struct{}
	wake chan struct{}
}

// NewSubmitter creates a submitter over the given queue.
func NewSubmitter(api *Client, queue *jobs.Queue, schedule Schedule, limits LimitsConfig) *Submitter {
	return &Submitter{
		api:      api,
		queue:    queue,
		schedule: schedule,
		limits:   limits,
		sleep:    time.Sleep,
		notify:   func(*jobs.Job) {},
		sem:      make(chan struct{}, 1),
		wake:     make(chan struct{}, 1),
	}
}

// SetNotify registers a callback fired on job state changes, used by
// the TUI to refresh its view.
func (s *Submitter) SetNotify(fn func(*jobs.Job)) {
	if fn != nil {
		s.notify = fn
	}
}

// Enqueue validates and queues a document for submission.
func (s *Submitter) Enqueue(name string, data []byte) (*jobs.Job, error) {
	if len(data) == 0 {
		return nil, errors.New("empty document")
	}
	if s.limits.MaxFileBytes > 0 && int64(len(data)) > s.limits.MaxFileBytes {
		return nil, fmt.Errorf("file exceeds %d byte limit", s.limits.MaxFileBytes)
	}
	if s.limits.MaxQueuedFiles > 0 && s.queue.Len() >= s.limits.MaxQueuedFiles {
		return nil, fmt.Errorf("queue full (%d files)", s.limits.MaxQueuedFiles)
	}

	job := jobs.NewJob(name, data)
	if err := s.queue.Add(job); err != nil {
		return nil, err
	}
	s.notify(job)
	s.kick()
	return job, nil
}

// Retry re-enqueues an errored job.
func (s *Submitter) Retry(id string) error {
	if err := s.queue.Retry(id); err != nil {
		return err
	}
	if job, ok := s.queue.Get(id); ok {
		s.notify(job)
	}
	s.kick()
	return nil
}

// Run dispatches queued jobs until the context ends.
func (s *Submitter) Run(ctx context.Context) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		case <-ticker.C:
		}
		s.dispatch(ctx)
	}
}

// Drain processes queued jobs one after another until the queue has
// no pending work. Used by the one-shot CLI path.
func (s *Submitter) Drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		job := s.queue.Next()
		if job == nil {
			return
		}
		s.process(ctx, job)
	}
}

func (s *Submitter) kick() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Submitter) dispatch(ctx context.Context) {
	job := s.queue.Next()
	if job == nil {
		return
	}
	s.process(ctx, job)
}

// process runs one job to a terminal state. The semaphore guarantees
// single-flight even if dispatch paths ever overlap.
func (s *Submitter) process(ctx context.Context, job *jobs.Job) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		s.queue.Release(job.ID)
		return
	}
	defer func() {
		<-s.sem
		s.queue.Release(job.ID)
	}()

	job.SetStatus(jobs.StatusProcessing)
	job.SetProgress(0, "waking backend")
	s.notify(job)

	if !s.wakeBackend(ctx) {
		job.Fail("backend unreachable after wake-up attempts")
		s.notify(job)
		return
	}

	res, err := s.submitWithRetry(ctx, job)
	if err != nil {
		job.Fail(err.Error())
		s.notify(job)
		return
	}

	job.Complete(&jobs.Result{
		PDF:         res.PDF,
		Filename:    res.Filename,
		TextPreview: fmt.Sprintf("%d characters recognized", res.ExtractedChars),
	})
	s.notify(job)
}

// wakeBackend probes health until the backend answers or the probe
// budget is spent. The document is never uploaded on exhaustion.
func (s *Submitter) wakeBackend(ctx context.Context) bool {
	for i := range s.schedule.WakeDelays {
		if ctx.Err() != nil {
			return false
		}
		if err := s.api.Health(ctx); err == nil {
			return true
		} else {
			slog.Debug("wake probe failed", "attempt", i+1, "error", err)
		}
		if i < len(s.schedule.WakeDelays)-1 {
			s.sleep(s.schedule.WakeDelays[i])
		}
	}
	return false
}

// submitWithRetry uploads with a bounded retry. Only transport errors
// and transient server statuses are retried; anything else fails the
// job immediately.
func (s *Submitter) submitWithRetry(ctx context.Context, job *jobs.Job) (*SubmitResult, error) {
	attempts := s.schedule.SubmitAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		job.SetProgress(0, fmt.Sprintf("uploading (attempt %d/%d)", attempt, attempts))
		s.notify(job)

		res, err := s.api.SubmitDocument(ctx, job.OriginalName, job.Data())
		if err == nil {
			return res, nil
		}
		lastErr = err

		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Transient() {
			return nil, err
		}

		if attempt < attempts {
			slog.Debug("submission failed, retrying",
				"attempt", attempt, "error", err)
			s.sleep(s.schedule.RetryDelay)
		}
	}
	return nil, fmt.Errorf("submission failed after %d attempts: %w", attempts, lastErr)
}
