// Package fetch downloads remote job assets into local temporary storage.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kunkakamikasa/ffmpeg-service/internal/storage"
)

// Static errors for asset fetching.
var (
	// ErrBadStatus is returned when the remote responds with a non-2xx status.
	ErrBadStatus = errors.New("remote returned non-success status")
	// ErrTooManyRedirects is returned when the redirect limit is exceeded.
	ErrTooManyRedirects = errors.New("too many redirects")
)

// Role tags a downloaded asset with its logical purpose within a job.
// It only influences the temporary filename hint.
type Role string

const (
	// RoleImage is the still image the video is built from.
	RoleImage Role = "image"
	// RoleAudio is one audio segment of the job.
	RoleAudio Role = "audio"
	// RoleSubtitle is an external subtitle file.
	RoleSubtitle Role = "subtitle"
)

// Fetcher retrieves remote resources into job-scoped temporary storage.
// It never follows more than maxRedirects redirects and aborts after the
// configured timeout, so a stuck origin cannot wedge a job forever.
type Fetcher struct {
	client *http.Client
	store  storage.Storage
}

// NewFetcher creates a Fetcher backed by the given storage.
// A timeout of zero falls back to 30 seconds; a redirect limit of zero
// falls back to 5.
func NewFetcher(store storage.Storage, timeout time.Duration, maxRedirects int) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxRedirects <= 0 {
		maxRedirects = 5
	}

	client := &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return ErrTooManyRedirects
			}
			return nil
		},
	}

	return &Fetcher{client: client, store: store}
}

// Fetch downloads url into the job's temporary namespace and returns the
// local path. The role is used as the filename hint.
func (f *Fetcher) Fetch(ctx context.Context, jobID, url string, role Role) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request for %s: %w", url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %s returned %d", ErrBadStatus, url, resp.StatusCode)
	}

	path, err := f.store.SaveTemp(ctx, jobID, string(role), resp.Body)
	if err != nil {
		return "", fmt.Errorf("persist %s: %w", url, err)
	}

	return path, nil
}

// FetchAll downloads all URLs concurrently into the job namespace, with the
// given role hint, and returns the local paths in input order. If any fetch
// fails, the first error is returned; paths that did download remain in the
// job namespace and are removed by job cleanup.
func (f *Fetcher) FetchAll(ctx context.Context, jobID string, urls []string, role Role) ([]string, error) {
	paths := make([]string, len(urls))
	errs := make([]error, len(urls))

	done := make(chan struct{})
	var pending int
	for i := range urls {
		pending++
		go func(i int) {
			paths[i], errs[i] = f.Fetch(ctx, jobID, urls[i], role)
			done <- struct{}{}
		}(i)
	}
	for ; pending > 0; pending-- {
		<-done
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return paths, nil
}
