package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an OCR job.
//
//	pending -> processing -> completed | error
//	error   -> pending (explicit retry)
//
// Pending and terminal jobs may also be removed from the queue.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Result holds the payload of a completed job.
type Result struct {
	// PDF is the searchable output document.
	PDF []byte `json:"-"`
	// Filename is the derived output name.
	Filename string `json:"filename"`
	// TextPreview is a short prefix of the extracted text.
	TextPreview string `json:"text_preview,omitempty"`
}

// Job is one document submission, created when a file is selected and
// mutated only through state transitions.
type Job struct {
	ID            string    `json:"id"`
	OriginalName  string    `json:"original_name"`
	Size          int64     `json:"size"`
	Status        Status    `json:"status"`
	Progress      int       `json:"progress"`
	StatusMessage string    `json:"status_message,omitempty"`
	Result        *Result   `json:"result,omitempty"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	mu   sync.RWMutex
	data []byte
}

// NewJob creates a pending job holding the document bytes.
func NewJob(originalName string, data []byte) *Job {
	now := time.Now()
	return &Job{
		ID:           uuid.New().String(),
		OriginalName: originalName,
		Size:         int64(len(data)),
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
		data:         data,
	}
}

// Data returns the document bytes for submission.
func (j *Job) Data() []byte {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.data
}

// SetStatus updates the job status.
func (j *Job) SetStatus(status Status) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.UpdatedAt = time.Now()
}

// CurrentStatus reads the job status.
func (j *Job) CurrentStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// SetProgress updates progress (0-100) and the user-facing message.
func (j *Job) SetProgress(progress int, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	j.Progress = progress
	j.StatusMessage = message
	j.UpdatedAt = time.Now()
}

// Complete stores the result and moves the job to completed.
func (j *Job) Complete(res *Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = StatusCompleted
	j.Progress = 100
	j.StatusMessage = ""
	j.Result = res
	j.Error = ""
	j.UpdatedAt = time.Now()
}

// Fail stores the error message and moves the job to error. The job
// stays inspectable and retriable.
func (j *Job) Fail(message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = StatusError
	j.StatusMessage = ""
	j.Error = message
	j.UpdatedAt = time.Now()
}

// ResetForRetry moves an errored job back to pending, discarding any
// previous error and progress. The pipeline re-runs from scratch; no
// partial work is resumed.
func (j *Job) ResetForRetry() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status != StatusError {
		return false
	}
	j.Status = StatusPending
	j.Progress = 0
	j.StatusMessage = ""
	j.Error = ""
	j.Result = nil
	j.UpdatedAt = time.Now()
	return true
}
