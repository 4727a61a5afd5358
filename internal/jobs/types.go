// Package jobs runs text-parse requests asynchronously behind a queue.
package jobs

import (
	"context"
	"time"

	"github.com/dvloznov/vehicle-tracker/internal/domain"
	"github.com/dvloznov/vehicle-tracker/internal/pipeline"
)

// DefaultMaxRetries applies when a job is published without a retry budget.
const DefaultMaxRetries = 3

// JobStatus is the lifecycle state of a parse job.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusRetrying   JobStatus = "retrying"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether no further transitions happen from s.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ParseTextJob asks for free text to be parsed into transactions for a user.
// When AutoSave is set and VehicleID is non-empty the parsed transactions are
// also stored.
type ParseTextJob struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Text      string `json:"text"`
	VehicleID string `json:"vehicleId,omitempty"`
	AutoSave  bool   `json:"autoSave"`

	Status JobStatus `json:"status"`
	// Results holds the normalized transactions once the job completes.
	Results []domain.ParsedTransaction `json:"results,omitempty"`
	// Bulk reports the save outcome for auto-saved jobs.
	Bulk  *pipeline.BulkResult `json:"bulk,omitempty"`
	Error string               `json:"error,omitempty"`

	RetryCount int `json:"retryCount"`
	MaxRetries int `json:"maxRetries"`

	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Clone returns a copy that shares no slices with j.
func (j *ParseTextJob) Clone() *ParseTextJob {
	c := *j
	if j.Results != nil {
		c.Results = append([]domain.ParsedTransaction(nil), j.Results...)
	}
	if j.Bulk != nil {
		b := *j.Bulk
		b.Items = append([]pipeline.BulkItemResult(nil), j.Bulk.Items...)
		c.Bulk = &b
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// Publisher enqueues parse jobs.
type Publisher interface {
	// PublishParseText assigns defaults (id, status, timestamps) and enqueues job.
	PublishParseText(ctx context.Context, job *ParseTextJob) error
	Close() error
}

// Consumer delivers queued jobs to a handler.
type Consumer interface {
	// Start begins consuming. It returns once consumption is running.
	Start(ctx context.Context, handler JobHandler) error
	// Stop stops consuming and waits for in-flight jobs.
	Stop(ctx context.Context) error
}

// JobHandler processes one job. A returned error marks the attempt failed;
// it is retried unless IsPermanent reports true or the budget is spent.
type JobHandler func(ctx context.Context, job *ParseTextJob) error

// JobStore records job state so clients can poll for results.
type JobStore interface {
	SaveJob(ctx context.Context, job *ParseTextJob) error
	// GetJob returns domain.ErrNotFound for unknown ids.
	GetJob(ctx context.Context, jobID string) (*ParseTextJob, error)
	// ListJobs returns matching jobs, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ParseTextJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter narrows ListJobs.
type JobFilter struct {
	UserID string
	Status JobStatus
	Limit  int
	Offset int
}
