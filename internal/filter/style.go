package filter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrBadResolution is returned when a resolution string does not parse to
// two positive integers.
var ErrBadResolution = errors.New("resolution must be WxH with positive integers")

// Motion selects the camera-motion variant applied to the still image.
// Variants are mutually exclusive and every one is a pure function of the
// elapsed playback time t, never of the frame index, so output geometry is
// independent of frame rate.
type Motion string

const (
	// MotionNone is a static centered crop.
	MotionNone Motion = "none"
	// MotionShake applies small-amplitude periodic positional jitter.
	MotionShake Motion = "shake"
	// MotionPan applies a slow periodic horizontal offset.
	MotionPan Motion = "pan"
	// MotionZoom applies a monotonically increasing, clamped scale factor.
	MotionZoom Motion = "zoom"
)

// ParseMotion maps a request string to a Motion. Unrecognized values fall
// back to MotionNone rather than failing; permissive by documented policy.
func ParseMotion(s string) Motion {
	switch Motion(strings.ToLower(strings.TrimSpace(s))) {
	case MotionShake:
		return MotionShake
	case MotionPan:
		return MotionPan
	case MotionZoom:
		return MotionZoom
	default:
		return MotionNone
	}
}

// validPresets are the x264 speed presets the service accepts.
var validPresets = map[string]bool{
	"ultrafast": true, "superfast": true, "veryfast": true, "faster": true,
	"fast": true, "medium": true, "slow": true, "slower": true, "veryslow": true,
}

// RawStyle carries the style knobs exactly as the caller sent them.
// Zero values mean "not set".
type RawStyle struct {
	Motion      string
	FPS         int
	CRF         int
	Preset      string
	Contrast    float64
	Brightness  float64
	Saturation  float64
	Grain       float64
	ChromaShift int
	Vignette    bool
	Overscan    float64
}

// Style is a fully resolved style configuration. Every field holds a value
// inside the safe range for its stage; out-of-range inputs are clamped, not
// rejected, so cosmetic over-ranges never fail a job.
type Style struct {
	Motion      Motion
	FPS         int
	CRF         int
	Preset      string
	Contrast    float64
	Brightness  float64
	Saturation  float64
	Grain       float64
	ChromaShift int
	Vignette    bool
	Overscan    float64
}

// ResolveStyle applies defaults and clamps raw style parameters into a Style.
// This is the single defaulting step for every variant of the request shape.
func ResolveStyle(raw RawStyle) Style {
	s := Style{
		Motion:      ParseMotion(raw.Motion),
		FPS:         raw.FPS,
		CRF:         raw.CRF,
		Preset:      strings.ToLower(strings.TrimSpace(raw.Preset)),
		Contrast:    raw.Contrast,
		Brightness:  raw.Brightness,
		Saturation:  raw.Saturation,
		Grain:       raw.Grain,
		ChromaShift: raw.ChromaShift,
		Vignette:    raw.Vignette,
		Overscan:    raw.Overscan,
	}

	if s.FPS == 0 {
		s.FPS = 30
	}
	s.FPS = clampInt(s.FPS, 1, 60)

	if s.CRF == 0 {
		s.CRF = 21
	}
	s.CRF = clampInt(s.CRF, 0, 51)

	if !validPresets[s.Preset] {
		s.Preset = "veryfast"
	}

	if s.Contrast == 0 {
		s.Contrast = 1.0
	}
	s.Contrast = clampFloat(s.Contrast, 0.5, 2.0)

	s.Brightness = clampFloat(s.Brightness, -0.5, 0.5)

	if s.Saturation == 0 {
		s.Saturation = 1.0
	}
	s.Saturation = clampFloat(s.Saturation, 0.0, 3.0)

	s.Grain = clampFloat(s.Grain, 0, 50)
	s.ChromaShift = clampInt(s.ChromaShift, 0, 10)

	if s.Overscan == 0 {
		s.Overscan = 1.1
	}
	// Motion crops move inside the overscan margin; without one they would
	// flatten against the canvas edge, so the floor rises when motion is on.
	minOverscan := 1.0
	if s.Motion != MotionNone {
		minOverscan = 1.05
	}
	s.Overscan = clampFloat(s.Overscan, minOverscan, 1.5)

	return s
}

// hasColorGrade reports whether the eq stage is needed at all.
func (s Style) hasColorGrade() bool {
	return s.Contrast != 1.0 || s.Brightness != 0 || s.Saturation != 1.0
}

// ParseResolution parses "WxH" into two positive integers.
// An empty string yields the 1920x1080 default.
func ParseResolution(s string) (int, int, error) {
	if s == "" {
		return 1920, 1080, nil
	}
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadResolution, s)
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadResolution, s)
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadResolution, s)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadResolution, s)
	}
	return w, h, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
