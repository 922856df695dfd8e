// Package storage provides ephemeral file storage for in-flight jobs.
// Every file lives under a per-job namespace so that concurrent jobs never
// share paths and cleanup can be scoped to a single job.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for temporary file storage used while a job
// is in flight. Finished artifacts are handed off to the artifact package and
// are not managed here.
type Storage interface {
	// SaveTemp streams data into a new temporary file under the given job
	// namespace and returns the file path. The name parameter is used as a
	// hint for the filename.
	SaveTemp(ctx context.Context, jobID, name string, data io.Reader) (path string, err error)

	// TempPath reserves a path for a file that an external process (the
	// encoder) will write into the job namespace. The file is not created.
	TempPath(jobID, name string) (string, error)

	// CleanupJob removes the whole namespace of a job, including any files
	// the encoder left behind. Safe to call more than once.
	CleanupJob(ctx context.Context, jobID string) error
}
