// Package artifact manages finished outputs: collision-resistant naming,
// publication into the served directory, and externally addressable URLs.
package artifact

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Uploader pushes a published artifact to remote object storage.
// Implementations return the externally addressable URL of the object.
type Uploader interface {
	Upload(ctx context.Context, key string, data io.Reader) (url string, err error)
}

// Store publishes encoder outputs into the artifact directory and computes
// their addresses. The directory is append-only from the perspective of any
// single job: every job writes only its own uniquely named file, so no
// locking is needed.
type Store struct {
	outputDir  string
	baseURL    string
	pathPrefix string
	uploader   Uploader // optional
}

// Option configures a Store.
type Option func(*Store)

// WithUploader attaches remote object storage. When set, published files are
// also uploaded and the remote URL becomes the artifact address.
func WithUploader(u Uploader) Option {
	return func(s *Store) {
		s.uploader = u
	}
}

// NewStore creates a Store rooted at outputDir, creating it if needed.
// baseURL may be empty, in which case addresses are relative paths.
func NewStore(outputDir, baseURL, pathPrefix string, opts ...Option) (*Store, error) {
	if outputDir == "" {
		outputDir = filepath.Join(os.TempDir(), "ffmpeg-service-out")
	}
	if pathPrefix == "" {
		pathPrefix = "files"
	}

	if err := os.MkdirAll(outputDir, 0750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	s := &Store{
		outputDir:  outputDir,
		baseURL:    strings.TrimRight(baseURL, "/"),
		pathPrefix: strings.Trim(pathPrefix, "/"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// OutputDir returns the published artifact directory.
func (s *Store) OutputDir() string {
	return s.outputDir
}

// PathPrefix returns the URL path prefix artifacts are served under.
func (s *Store) PathPrefix() string {
	return s.pathPrefix
}

// AllocateName returns a collision-resistant output filename built from a
// sanitized hint, a UTC time component and a random suffix.
func (s *Store) AllocateName(hint, ext string) string {
	base := sanitize(hint)
	if base == "" {
		base = "video"
	}
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		// Timestamp-only name if crypto/rand fails.
		return fmt.Sprintf("%s_%s%s", base, time.Now().UTC().Format("20060102T150405"), ext)
	}
	return fmt.Sprintf("%s_%s_%s%s",
		base,
		time.Now().UTC().Format("20060102T150405"),
		hex.EncodeToString(suffix),
		ext,
	)
}

// AllocateSequencedName is AllocateName with a zero-padded sequence suffix,
// used when one request publishes several ordered artifacts.
func (s *Store) AllocateSequencedName(hint, ext string, seq int) string {
	name := s.AllocateName(hint, "")
	return fmt.Sprintf("%s_%02d%s", name, seq, ext)
}

// Publish moves the encoder output into the artifact directory under the
// given name and returns the artifact address. When an uploader is attached,
// the file is also pushed to object storage and the remote URL is returned.
func (s *Store) Publish(ctx context.Context, srcPath, name string) (string, error) {
	dst := filepath.Join(s.outputDir, name)

	if err := os.Rename(srcPath, dst); err != nil {
		// Rename fails across filesystems; fall back to copy.
		if copyErr := copyFile(srcPath, dst); copyErr != nil {
			return "", fmt.Errorf("publish %s: %w", name, copyErr)
		}
		_ = os.Remove(srcPath)
	}

	if s.uploader != nil {
		f, err := os.Open(dst) // #nosec G304 - dst is built from our own directory and name
		if err != nil {
			return "", fmt.Errorf("open published artifact: %w", err)
		}
		defer func() { _ = f.Close() }()

		url, err := s.uploader.Upload(ctx, s.pathPrefix+"/"+name, f)
		if err != nil {
			return "", fmt.Errorf("upload artifact: %w", err)
		}
		return url, nil
	}

	return s.Address(name), nil
}

// Address computes the externally addressable URL for a published filename:
// base + "/" + prefix + "/" + name, or a relative path when no base is
// configured.
func (s *Store) Address(name string) string {
	if s.baseURL == "" {
		return "/" + s.pathPrefix + "/" + name
	}
	return s.baseURL + "/" + s.pathPrefix + "/" + name
}

// sanitize reduces a naming hint to a safe character set.
func sanitize(hint string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(hint) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteByte('_')
		}
	}
	const maxHint = 48
	out := b.String()
	if len(out) > maxHint {
		out = out[:maxHint]
	}
	return out
}

// copyFile copies src to dst, used when rename crosses filesystems.
func copyFile(src, dst string) error {
	in, err := os.Open(src) // #nosec G304 - src is provided by trusted internal code
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0640) // #nosec G304
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("copy artifact: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("close destination: %w", err)
	}
	return nil
}
