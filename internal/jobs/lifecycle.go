package jobs

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/vehicle-tracker/internal/domain"
)

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether retrying err cannot succeed: errors wrapped by
// Permanent and the domain errors caused by the request itself.
func IsPermanent(err error) bool {
	var pe *permanentError
	if errors.As(err, &pe) {
		return true
	}
	return errors.Is(err, domain.ErrNotAuthenticated) ||
		errors.Is(err, domain.ErrAPIKeyMissing) ||
		errors.Is(err, domain.ErrInvalidResponseShape) ||
		errors.Is(err, domain.ErrInvalidInput)
}

// Prepare fills in the defaults of a newly published job.
func (j *ParseTextJob) Prepare(now time.Time) {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.Status == "" {
		j.Status = JobStatusQueued
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	if j.MaxRetries == 0 {
		j.MaxRetries = DefaultMaxRetries
	}
}

// Begin moves the job to processing.
func (j *ParseTextJob) Begin(now time.Time) {
	j.Status = JobStatusProcessing
	j.StartedAt = &now
	j.CompletedAt = nil
}

// Finish records the outcome of an attempt and reports whether the job
// should be attempted again.
func (j *ParseTextJob) Finish(err error, now time.Time) (retry bool) {
	if err == nil {
		j.Status = JobStatusCompleted
		j.Error = ""
		j.CompletedAt = &now
		return false
	}

	j.Error = err.Error()
	if !IsPermanent(err) && j.RetryCount < j.MaxRetries {
		j.RetryCount++
		j.Status = JobStatusRetrying
		return true
	}
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	return false
}

// Backoff is the delay before retry attempt n (1-based).
func Backoff(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	return time.Duration(n) * time.Second
}
