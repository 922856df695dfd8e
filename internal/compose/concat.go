package compose

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// writeConcatList writes the segment paths to path in the format required by
// ffmpeg's concat demuxer, in playback order.
func writeConcatList(path string, segments []string) error {
	var b strings.Builder
	for _, seg := range segments {
		// Absolute paths with -safe 0; single quotes escaped for the demuxer.
		absPath, err := filepath.Abs(seg)
		if err != nil {
			return fmt.Errorf("get absolute path for %s: %w", seg, err)
		}
		escaped := strings.ReplaceAll(absPath, "'", "'\\''")
		fmt.Fprintf(&b, "file '%s'\n", escaped)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0640); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	return nil
}
