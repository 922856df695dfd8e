// Package server provides the HTTP layer of the service: handlers,
// middleware, routes, and DTOs separated from domain types.
package server

// StyleRequest carries the optional style knobs. Out-of-range numeric values
// are clamped by the pipeline rather than rejected here, so none of the
// numeric fields carry range validation.
type StyleRequest struct {
	// Motion selects the camera motion: "none", "shake", "pan" or "zoom".
	// Unrecognized values fall back to "none".
	Motion string `json:"motion,omitempty"`
	// CRF is the x264 quality factor; zero selects the default.
	CRF int `json:"crf,omitempty"`
	// Preset is the x264 speed preset; empty selects the default.
	Preset string `json:"preset,omitempty"`
	// Contrast, Brightness and Saturation tune the color grade.
	Contrast   float64 `json:"contrast,omitempty"`
	Brightness float64 `json:"brightness,omitempty"`
	Saturation float64 `json:"saturation,omitempty"`
	// Grain adds synthetic noise when positive.
	Grain float64 `json:"grain,omitempty"`
	// ChromaShift offsets the red/blue channels horizontally by N pixels.
	ChromaShift int `json:"chroma_shift,omitempty"`
	// Vignette darkens the frame corners.
	Vignette bool `json:"vignette,omitempty"`
	// Overscan is the oversize factor reserved for motion margin.
	Overscan float64 `json:"overscan,omitempty"`
}

// SubtitlesRequest selects a subtitle source, by URL or inline text.
type SubtitlesRequest struct {
	URL  string `json:"url,omitempty" validate:"omitempty,url"`
	Text string `json:"text,omitempty"`
}

// CreateVideoRequest is the HTTP request body for producing one video.
type CreateVideoRequest struct {
	// ImageURL is the still image the video is built from.
	ImageURL string `json:"image_url" validate:"required,url"`
	// AudioURLs are the audio tracks in playback order.
	AudioURLs []string `json:"audio_urls" validate:"required,min=1,dive,url"`
	// Resolution is the target size as "WxH"; empty selects 1920x1080.
	Resolution string `json:"resolution,omitempty"`
	// FrameRate overrides the default frame rate when positive.
	FrameRate int `json:"frame_rate,omitempty" validate:"omitempty,min=1,max=60"`
	// Style holds the optional effect configuration.
	Style *StyleRequest `json:"style,omitempty"`
	// Subtitles selects an optional subtitle source.
	Subtitles *SubtitlesRequest `json:"subtitles,omitempty"`
	// OutputName is a hint for the published filename.
	OutputName string `json:"output_name,omitempty"`
	// Story encodes each audio track as its own segment before stitching.
	Story bool `json:"story,omitempty"`
	// PaddingSec inserts silence between story segments.
	PaddingSec float64 `json:"padding_sec,omitempty" validate:"omitempty,min=0,max=60"`
}

// VideoResponse is the success payload for one produced artifact.
type VideoResponse struct {
	OK              bool   `json:"ok"`
	ArtifactAddress string `json:"artifact_address"`
}

// BatchVideoResponse is the success payload for per-segment mode: one
// artifact per audio reference, in input order.
type BatchVideoResponse struct {
	OK                bool     `json:"ok"`
	ArtifactAddresses []string `json:"artifact_addresses"`
}

// ErrorResponse is the standard failure payload.
type ErrorResponse struct {
	OK        bool   `json:"ok"`
	ErrorKind string `json:"error_kind"`
	Detail    string `json:"detail"`
}

// HealthResponse is the HTTP response for the health check endpoint.
// It reports process liveness only.
type HealthResponse struct {
	Status string `json:"status"`
}
