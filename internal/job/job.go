// Package job provides the Job aggregate for a single composition request.
// A Job moves through a fixed state machine and owns every temporary file
// created on its behalf; cleanup is scoped to the job and runs on both the
// success and the failure path.
package job

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status represents the current state of a Job.
type Status string

const (
	// StatusPending indicates the job has been created but not started.
	StatusPending Status = "PENDING"
	// StatusFetching indicates remote assets are being downloaded.
	StatusFetching Status = "FETCHING"
	// StatusBuilding indicates the effect graph is being constructed.
	StatusBuilding Status = "BUILDING"
	// StatusEncoding indicates the external encoder is running.
	StatusEncoding Status = "ENCODING"
	// StatusSucceeded indicates the job produced a published artifact.
	StatusSucceeded Status = "SUCCEEDED"
	// StatusFailed indicates the job terminated without publishing anything.
	StatusFailed Status = "FAILED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
// Failure is reachable from every non-terminal state.
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusFetching, StatusFailed},
	StatusFetching:  {StatusBuilding, StatusFailed},
	StatusBuilding:  {StatusEncoding, StatusFailed},
	StatusEncoding:  {StatusSucceeded, StatusFailed},
	StatusSucceeded: {},
	StatusFailed:    {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Job represents one end-to-end composition request. The ID doubles as the
// temporary-storage namespace, so two concurrent jobs can never collide on
// disk without any locking.
type Job struct {
	mu sync.Mutex

	// ID is the unique identifier for this job.
	ID string
	// Status is the current job state.
	Status Status
	// TempPaths lists every temporary file registered for this job,
	// in creation order.
	TempPaths []string
	// Error contains the error message if the job failed.
	Error string
	// CreatedAt is when the job was created.
	CreatedAt time.Time
	// CompletedAt is when the job reached a terminal state.
	CompletedAt time.Time
}

// New creates a new Job in PENDING state with a generated ID.
func New() *Job {
	return &Job{
		ID:        uuid.NewString(),
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	if status == StatusSucceeded || status == StatusFailed {
		j.CompletedAt = time.Now()
	}
	return nil
}

// Fail transitions the job to FAILED with an error message.
func (j *Job) Fail(errMsg string) error {
	j.mu.Lock()
	j.Error = errMsg
	j.mu.Unlock()
	return j.TransitionTo(StatusFailed)
}

// Track registers a temporary path owned by this job.
func (j *Job) Track(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.TempPaths = append(j.TempPaths, path)
}

// Tracked returns a copy of the registered temporary paths.
func (j *Job) Tracked() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.TempPaths))
	copy(out, j.TempPaths)
	return out
}

// IsTerminal returns true if the job reached SUCCEEDED or FAILED.
func (j *Job) IsTerminal() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Status == StatusSucceeded || j.Status == StatusFailed
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Status
}
