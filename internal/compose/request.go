package compose

import "github.com/kunkakamikasa/ffmpeg-service/internal/filter"

// Request is the unit of work: one image, an ordered list of audio tracks,
// optional subtitles and style, and an output-naming hint.
type Request struct {
	// ImageURL is the still image the video is built from.
	ImageURL string
	// AudioURLs are the audio tracks in playback order. At least one is
	// required; order is a caller-visible contract.
	AudioURLs []string
	// Resolution is the target size as "WxH". Empty selects 1920x1080.
	Resolution string
	// FrameRate overrides the style frame rate when positive.
	FrameRate int
	// Style carries the raw style knobs; defaults and clamping are applied
	// in one resolution step.
	Style filter.RawStyle
	// SubtitleURL points at a subtitle file to fetch. Mutually exclusive
	// with SubtitleText; when both are set the URL wins.
	SubtitleURL string
	// SubtitleText is inline subtitle content written to a temporary file.
	SubtitleText string
	// OutputName is a hint for the published filename; it is sanitized and
	// suffixed for collision resistance.
	OutputName string
	// Story selects per-segment encoding: each audio track becomes an
	// independently encoded segment and the segments are stitched losslessly
	// in order. Without it, multiple tracks are concatenated in the audio
	// chain of a single encode.
	Story bool
	// PaddingSec inserts that much silence (over the still image) strictly
	// between story segments, never before the first or after the last.
	// Implies the story path.
	PaddingSec float64
}

// storyMode reports whether the request takes the segment-encode path.
func (r Request) storyMode() bool {
	return r.Story || r.PaddingSec > 0
}
