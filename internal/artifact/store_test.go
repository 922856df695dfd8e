package artifact

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, baseURL string, opts ...Option) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), baseURL, "files", opts...)
	require.NoError(t, err)
	return s
}

func TestAllocateName(t *testing.T) {
	s := newStore(t, "")

	t.Run("keeps safe characters and appends time and randomness", func(t *testing.T) {
		name := s.AllocateName("my-video", ".mp4")
		assert.Regexp(t, regexp.MustCompile(`^my-video_\d{8}T\d{6}_[0-9a-f]{8}\.mp4$`), name)
	})

	t.Run("sanitizes hostile hints", func(t *testing.T) {
		name := s.AllocateName("../../etc/passwd; rm -rf /", ".mp4")
		assert.NotContains(t, name, "/")
		assert.NotContains(t, name, ";")
		assert.NotContains(t, name, " ")
	})

	t.Run("empty hint gets a default base", func(t *testing.T) {
		name := s.AllocateName("", ".mp4")
		assert.True(t, strings.HasPrefix(name, "video_"), name)
	})

	t.Run("names do not collide", func(t *testing.T) {
		seen := map[string]bool{}
		for i := 0; i < 100; i++ {
			name := s.AllocateName("clip", ".mp4")
			assert.False(t, seen[name], "duplicate name %s", name)
			seen[name] = true
		}
	})
}

func TestAllocateSequencedName(t *testing.T) {
	s := newStore(t, "")

	var prev string
	for i := 1; i <= 12; i++ {
		name := s.AllocateSequencedName("story", ".mp4", i)
		assert.Regexp(t, fmt.Sprintf(`_%02d\.mp4$`, i), name)
		if prev != "" {
			// Zero padding keeps suffixes strictly increasing as strings.
			assert.Greater(t, name[len(name)-7:], prev[len(prev)-7:])
		}
		prev = name
	}
}

func TestAddress(t *testing.T) {
	t.Run("with base URL", func(t *testing.T) {
		s := newStore(t, "https://cdn.example.com")
		assert.Equal(t, "https://cdn.example.com/files/a.mp4", s.Address("a.mp4"))
	})

	t.Run("trailing slash on base is normalized", func(t *testing.T) {
		s := newStore(t, "https://cdn.example.com/")
		assert.Equal(t, "https://cdn.example.com/files/a.mp4", s.Address("a.mp4"))
	})

	t.Run("without base URL falls back to a relative path", func(t *testing.T) {
		s := newStore(t, "")
		assert.Equal(t, "/files/a.mp4", s.Address("a.mp4"))
	})
}

func TestPublish(t *testing.T) {
	ctx := context.Background()

	t.Run("moves the file and returns its address", func(t *testing.T) {
		s := newStore(t, "https://cdn.example.com")

		src := filepath.Join(t.TempDir(), "encoded.mp4")
		require.NoError(t, os.WriteFile(src, []byte("video"), 0640))

		addr, err := s.Publish(ctx, src, "out.mp4")
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/files/out.mp4", addr)

		data, err := os.ReadFile(filepath.Join(s.OutputDir(), "out.mp4"))
		require.NoError(t, err)
		assert.Equal(t, "video", string(data))
		assert.NoFileExists(t, src)
	})

	t.Run("uploader address wins when configured", func(t *testing.T) {
		up := &fakeUploader{url: "https://bucket.s3.eu-west-1.amazonaws.com/files/out.mp4"}
		s := newStore(t, "", WithUploader(up))

		src := filepath.Join(t.TempDir(), "encoded.mp4")
		require.NoError(t, os.WriteFile(src, []byte("video"), 0640))

		addr, err := s.Publish(ctx, src, "out.mp4")
		require.NoError(t, err)
		assert.Equal(t, up.url, addr)
		assert.Equal(t, "files/out.mp4", up.key)
		assert.Equal(t, "video", up.body)
	})
}

// fakeUploader records the upload and returns a canned URL.
type fakeUploader struct {
	url  string
	key  string
	body string
}

func (f *fakeUploader) Upload(_ context.Context, key string, data io.Reader) (string, error) {
	f.key = key
	b, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	f.body = string(b)
	return f.url, nil
}
