package encode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingWriter(t *testing.T) {
	t.Run("short writes kept fully", func(t *testing.T) {
		r := newRingWriter(16)
		n, err := r.Write([]byte("hello"))
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, "hello", r.String())
	})

	t.Run("keeps only the tail when capacity is exceeded", func(t *testing.T) {
		r := newRingWriter(8)
		_, _ = r.Write([]byte("0123456789abcdef"))
		assert.Equal(t, "89abcdef", r.String())
	})

	t.Run("wraps across multiple writes", func(t *testing.T) {
		r := newRingWriter(8)
		for _, s := range []string{"aaa", "bbb", "ccc", "ddd"} {
			_, _ = r.Write([]byte(s))
		}
		assert.Equal(t, "bbcccddd", r.String())
	})

	t.Run("single write larger than capacity keeps its tail", func(t *testing.T) {
		r := newRingWriter(4)
		n, err := r.Write([]byte(strings.Repeat("x", 100) + "tail"))
		require.NoError(t, err)
		assert.Equal(t, 104, n)
		assert.Equal(t, "tail", r.String())
	})

	t.Run("memory stays bounded over long output", func(t *testing.T) {
		r := newRingWriter(1024)
		line := []byte("frame= 1000 fps=30 time=00:00:33.36 bitrate= 410.2kbits/s\n")
		for i := 0; i < 10000; i++ {
			_, _ = r.Write(line)
		}
		assert.LessOrEqual(t, len(r.String()), 1024)
	})
}
