package config

import (
	"fmt"
	"sync"
	"time"
)

// JobStatus represents the current state of a background import job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job represents a bulk unit import into a workflow session.
type Job struct {
	ID        string
	SessionID string
	// Source is the uploaded file name
	Source    string
	Status    JobStatus
	CreatedAt time.Time
	UpdatedAt time.Time
	// TotalRows is the count of rows read from the file
	TotalRows int
	// SuccessfulRows were accepted into the session
	SuccessfulRows int
	// FailedRows were rejected locally or by the backend
	FailedRows int
	// NotProcessedRows were skipped because the job stopped early
	NotProcessedRows int
	Failures         []FailedRow
	Message          string
}

// JobStore manages in-memory job tracking
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewJobStore creates a new job store instance
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
	}
}

// CreateJob creates a new job with pending status
func (js *JobStore) CreateJob(id, sessionID, source string, totalRows int) *Job {
	js.mu.Lock()
	defer js.mu.Unlock()

	now := time.Now()
	job := &Job{
		ID:               id,
		SessionID:        sessionID,
		Source:           source,
		Status:           JobStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
		TotalRows:        totalRows,
		NotProcessedRows: totalRows,
		Failures:         make([]FailedRow, 0),
		Message:          "Job queued",
	}
	js.jobs[id] = job
	return job
}

// GetJob returns a snapshot of a job by ID
func (js *JobStore) GetJob(id string) (*Job, bool) {
	js.mu.RLock()
	defer js.mu.RUnlock()
	job, exists := js.jobs[id]
	if !exists {
		return nil, false
	}
	snapshot := *job
	snapshot.Failures = append([]FailedRow(nil), job.Failures...)
	return &snapshot, true
}

// UpdateJob updates a job's status and data
func (js *JobStore) UpdateJob(id string, updateFn func(*Job)) error {
	js.mu.Lock()
	defer js.mu.Unlock()

	job, exists := js.jobs[id]
	if !exists {
		return fmt.Errorf("job %s not found", id)
	}
	updateFn(job)
	job.UpdatedAt = time.Now()
	return nil
}

// DeleteSessionJobs forgets the jobs of a closed session.
func (js *JobStore) DeleteSessionJobs(sessionID string) int {
	js.mu.Lock()
	defer js.mu.Unlock()

	removed := 0
	for id, job := range js.jobs {
		if job.SessionID == sessionID {
			delete(js.jobs, id)
			removed++
		}
	}
	return removed
}
