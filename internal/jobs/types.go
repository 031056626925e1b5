// Package jobs runs background work off the request path. The only job
// today records the audit trail of a pipeline run.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/monomind/internal/domain"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeRecordRun persists the audit record of a pipeline run.
	JobTypeRecordRun JobType = "record_run"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is waiting for another attempt.
	JobStatusRetrying JobStatus = "retrying"
)

// DefaultMaxRetries is used when a job is published without MaxRetries.
const DefaultMaxRetries = 3

// ErrJobNotFound is returned by JobStore lookups.
var ErrJobNotFound = errors.New("job not found")

// ErrQueueClosed is returned when publishing to a stopped queue.
var ErrQueueClosed = errors.New("queue is closed")

// RecordRunJob carries one run's audit record. JobID equals the run id so
// the run can be looked up by either.
type RecordRunJob struct {
	JobID  string           `json:"job_id"`
	Record domain.RunRecord `json:"record"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the last attempt failed.
	Error      string `json:"error,omitempty"`
	RetryCount int    `json:"retry_count"`
	MaxRetries int    `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *RecordRunJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *RecordRunJob) GetType() JobType {
	return JobTypeRecordRun
}

// GetStatus implements the Job interface.
func (j *RecordRunJob) GetStatus() JobStatus {
	return j.Status
}

// Clone returns a copy that shares no slices with j.
func (j *RecordRunJob) Clone() *RecordRunJob {
	cp := *j
	cp.Record.Stages = append([]string(nil), j.Record.Stages...)
	cp.Record.Degraded = append([]string(nil), j.Record.Degraded...)
	if j.StartedAt != nil {
		t := *j.StartedAt
		cp.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	PublishRecordRun(ctx context.Context, job *RecordRunJob) error
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs. The handler is called for each job received.
	Start(ctx context.Context, handler JobHandler) error
	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. A returned error makes the job eligible for retry.
type JobHandler func(ctx context.Context, job Job) error

// JobStore stores and retrieves job status.
type JobStore interface {
	SaveJob(ctx context.Context, job *RecordRunJob) error
	GetJob(ctx context.Context, jobID string) (*RecordRunJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*RecordRunJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	UserID int64
	Status JobStatus
	Limit  int
	Offset int
}
