// Package encode invokes the external ffmpeg engine as a child process.
// It owns the only side-effecting boundary of the composition pipeline:
// graph construction elsewhere is pure, execution happens here.
package encode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Static errors for encoder execution.
var (
	// ErrEngineNotFound is returned when the ffmpeg binary cannot be located.
	// This is a deployment defect, checked once at startup rather than per job.
	ErrEngineNotFound = errors.New("ffmpeg binary not found")
	// ErrEmptyOutput is returned when the engine exited zero but produced no
	// usable output file.
	ErrEmptyOutput = errors.New("encoder produced no output")
	// ErrProbeExecution is returned when ffprobe fails.
	ErrProbeExecution = errors.New("ffprobe execution failed")
)

// EncodeError reports a failed engine invocation with a bounded stderr tail.
type EncodeError struct {
	ExitCode int
	Tail     string
	Err      error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("ffmpeg exited with code %d: %v\nstderr tail: %s", e.ExitCode, e.Err, e.Tail)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// Executor runs the external encoder with a constructed argument list,
// captures a bounded stderr tail, and classifies the outcome.
type Executor struct {
	ffmpegPath  string
	probePath   string
	maxLogBytes int
}

// NewExecutor creates an Executor and verifies both engine binaries exist.
// Empty paths default to "ffmpeg"/"ffprobe" (resolved via PATH); maxLogBytes
// of zero defaults to 8 KiB. Returns ErrEngineNotFound when either binary is
// missing, so a misdeployed service fails at startup instead of per request.
func NewExecutor(ffmpegPath, probePath string, maxLogBytes int) (*Executor, error) {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if probePath == "" {
		probePath = "ffprobe"
	}
	if maxLogBytes <= 0 {
		maxLogBytes = 8 * 1024
	}

	if _, err := exec.LookPath(ffmpegPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEngineNotFound, ffmpegPath)
	}
	if _, err := exec.LookPath(probePath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEngineNotFound, probePath)
	}

	return &Executor{
		ffmpegPath:  ffmpegPath,
		probePath:   probePath,
		maxLogBytes: maxLogBytes,
	}, nil
}

// Run executes ffmpeg with the given arguments. stdin is unused and stdout
// is discarded; stderr is captured into a fixed-size ring keeping the tail.
// Success requires a zero exit code and a non-empty file at outputPath.
func (e *Executor) Run(ctx context.Context, args []string, outputPath string) error {
	// #nosec G204 - ffmpegPath and args are built by the application, not user input
	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	cmd.Stdin = nil

	tail := newRingWriter(e.maxLogBytes)
	cmd.Stderr = tail

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return &EncodeError{ExitCode: exitCode, Tail: tail.String(), Err: err}
	}

	info, err := os.Stat(outputPath)
	if err != nil || info.Size() == 0 {
		return &EncodeError{ExitCode: 0, Tail: tail.String(), Err: ErrEmptyOutput}
	}

	return nil
}

// Duration returns the duration in seconds of a media file via ffprobe.
func (e *Executor) Duration(ctx context.Context, path string) (float64, error) {
	// #nosec G204 - probePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, e.probePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return 0, fmt.Errorf("%w: %w, stderr: %s", ErrProbeExecution, err, stderr.String())
	}

	var duration float64
	if _, err := fmt.Sscanf(strings.TrimSpace(stdout.String()), "%f", &duration); err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}

	return duration, nil
}
