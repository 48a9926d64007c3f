package jobs

import (
	"fmt"
	"sync"
)

// Queue holds submitted jobs and hands them out strictly one at a
// time: Next returns nil while a job is active, and Release must be
// called when the active job reaches a terminal state. This is the
// system's backpressure mechanism; queued jobs simply wait in pending.
type Queue struct {
	mu      sync.Mutex
	jobs    map[string]*Job
	order   []string
	pending []string
	active  string
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{jobs: make(map[string]*Job)}
}

// Add registers a new pending job.
func (q *Queue) Add(job *Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already queued", job.ID)
	}
	q.jobs[job.ID] = job
	q.order = append(q.order, job.ID)
	q.pending = append(q.pending, job.ID)
	return nil
}

// Next pops the oldest pending job and marks it active, or returns
// nil when a job is already active or nothing is pending.
func (q *Queue) Next() *Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.active != "" {
		return nil
	}
	for len(q.pending) > 0 {
		id := q.pending[0]
		q.pending = q.pending[1:]
		job, ok := q.jobs[id]
		if !ok {
			// Removed while waiting.
			continue
		}
		q.active = id
		return job
	}
	return nil
}

// Release clears the active slot. It must be called on every exit
// path of job processing, including failures.
func (q *Queue) Release(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.active == id {
		q.active = ""
	}
}

// Retry re-enqueues an errored job from scratch.
func (q *Queue) Retry(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	if !job.ResetForRetry() {
		return fmt.Errorf("job %s is not in error state", id)
	}
	q.pending = append(q.pending, id)
	return nil
}

// Remove deletes a job that is not currently being processed.
func (q *Queue) Remove(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	if q.active == id || job.CurrentStatus() == StatusProcessing {
		return fmt.Errorf("job %s is being processed", id)
	}
	delete(q.jobs, id)
	for i, oid := range q.order {
		if oid == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns a job by ID.
func (q *Queue) Get(id string) (*Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	return job, ok
}

// List returns all jobs in submission order.
func (q *Queue) List() []*Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	result := make([]*Job, 0, len(q.order))
	for _, id := range q.order {
		if job, ok := q.jobs[id]; ok {
			result = append(result, job)
		}
	}
	return result
}

// PendingCount returns the number of jobs waiting to run.
func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Len returns the number of jobs in the queue, any state.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}
