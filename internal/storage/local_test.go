package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocalStorage(t *testing.T) {
	t.Run("creates the directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "tmp")
		s, err := NewLocalStorage(dir)
		require.NoError(t, err)
		assert.Equal(t, dir, s.TempDir())
		assert.DirExists(t, dir)
	})

	t.Run("empty dir falls back to os.TempDir", func(t *testing.T) {
		s, err := NewLocalStorage("")
		require.NoError(t, err)
		assert.Contains(t, s.TempDir(), os.TempDir())
	})
}

func TestSaveTemp(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	t.Run("writes data under the job namespace", func(t *testing.T) {
		path, err := s.SaveTemp(ctx, "job-a", "audio", strings.NewReader("payload"))
		require.NoError(t, err)

		assert.Contains(t, path, filepath.Join(s.TempDir(), "job-a"))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "payload", string(data))
	})

	t.Run("different jobs never share a directory", func(t *testing.T) {
		p1, err := s.SaveTemp(ctx, "job-b", "audio", strings.NewReader("1"))
		require.NoError(t, err)
		p2, err := s.SaveTemp(ctx, "job-c", "audio", strings.NewReader("2"))
		require.NoError(t, err)
		assert.NotEqual(t, filepath.Dir(p1), filepath.Dir(p2))
	})

	t.Run("cancelled context fails", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := s.SaveTemp(cancelled, "job-d", "audio", strings.NewReader("x"))
		assert.Error(t, err)
	})
}

func TestTempPath(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	path, err := s.TempPath("job-a", "output.mp4")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(s.TempDir(), "job-a", "output.mp4"), path)
	// Path is reserved, not created.
	assert.NoFileExists(t, path)
	// But the namespace exists for the encoder to write into.
	assert.DirExists(t, filepath.Dir(path))
}

func TestCleanupJob(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	t.Run("removes everything in the namespace", func(t *testing.T) {
		p, err := s.SaveTemp(ctx, "job-a", "audio", strings.NewReader("x"))
		require.NoError(t, err)

		require.NoError(t, s.CleanupJob(ctx, "job-a"))
		assert.NoFileExists(t, p)
		assert.NoDirExists(t, filepath.Join(s.TempDir(), "job-a"))
	})

	t.Run("is idempotent", func(t *testing.T) {
		_, err := s.SaveTemp(ctx, "job-b", "audio", strings.NewReader("x"))
		require.NoError(t, err)

		require.NoError(t, s.CleanupJob(ctx, "job-b"))
		require.NoError(t, s.CleanupJob(ctx, "job-b"))
	})

	t.Run("unknown job is not an error", func(t *testing.T) {
		assert.NoError(t, s.CleanupJob(ctx, "never-existed"))
	})

	t.Run("does not touch other jobs", func(t *testing.T) {
		keep, err := s.SaveTemp(ctx, "job-keep", "audio", strings.NewReader("x"))
		require.NoError(t, err)
		_, err = s.SaveTemp(ctx, "job-drop", "audio", strings.NewReader("y"))
		require.NoError(t, err)

		require.NoError(t, s.CleanupJob(ctx, "job-drop"))
		assert.FileExists(t, keep)
	})
}
