package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/kunkakamikasa/ffmpeg-service/internal/compose"
	"github.com/kunkakamikasa/ffmpeg-service/internal/filter"
)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	composer  *compose.Composer
	validator *validator.Validate
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(composer *compose.Composer, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		composer:  composer,
		validator: validator.New(),
		logger:    logger,
	}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateVideo handles POST /videos. The call blocks until the job reaches a
// terminal state; there is no polling protocol.
func (h *Handlers) CreateVideo(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	address, err := h.composer.Compose(r.Context(), toComposeRequest(req))
	if err != nil {
		h.writeComposeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, VideoResponse{OK: true, ArtifactAddress: address})
}

// CreateVideoBatch handles POST /videos/batch: one independent artifact per
// audio reference instead of a single concatenated timeline.
func (h *Handlers) CreateVideoBatch(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	addresses, err := h.composer.ComposeEach(r.Context(), toComposeRequest(req))
	if err != nil {
		h.writeComposeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, BatchVideoResponse{OK: true, ArtifactAddresses: addresses})
}

// decodeRequest parses and validates the shared request body.
func (h *Handlers) decodeRequest(w http.ResponseWriter, r *http.Request) (CreateVideoRequest, bool) {
	var req CreateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, string(compose.KindConfig), "invalid JSON body")
		return req, false
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, string(compose.KindConfig), err.Error())
		return req, false
	}

	return req, true
}

// writeComposeError maps a pipeline failure to the wire format.
func (h *Handlers) writeComposeError(w http.ResponseWriter, err error) {
	var compErr *compose.Error
	if errors.As(err, &compErr) {
		writeError(w, statusFor(compErr.Kind), string(compErr.Kind), compErr.Detail)
		return
	}

	h.logger.Error("unclassified composition failure",
		slog.String("error", err.Error()),
	)
	writeError(w, http.StatusInternalServerError, string(compose.KindEncode), "internal error")
}

// statusFor maps an error kind to an HTTP status code.
func statusFor(kind compose.Kind) int {
	switch kind {
	case compose.KindConfig:
		return http.StatusBadRequest
	case compose.KindFetch:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// toComposeRequest maps the DTO onto the pipeline request.
func toComposeRequest(req CreateVideoRequest) compose.Request {
	out := compose.Request{
		ImageURL:   req.ImageURL,
		AudioURLs:  req.AudioURLs,
		Resolution: req.Resolution,
		FrameRate:  req.FrameRate,
		OutputName: req.OutputName,
		Story:      req.Story,
		PaddingSec: req.PaddingSec,
	}
	if req.Style != nil {
		out.Style = filter.RawStyle{
			Motion:      req.Style.Motion,
			CRF:         req.Style.CRF,
			Preset:      req.Style.Preset,
			Contrast:    req.Style.Contrast,
			Brightness:  req.Style.Brightness,
			Saturation:  req.Style.Saturation,
			Grain:       req.Style.Grain,
			ChromaShift: req.Style.ChromaShift,
			Vignette:    req.Style.Vignette,
			Overscan:    req.Style.Overscan,
		}
	}
	if req.Subtitles != nil {
		out.SubtitleURL = req.Subtitles.URL
		out.SubtitleText = req.Subtitles.Text
	}
	return out
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes a failure response in the standard format.
func writeError(w http.ResponseWriter, status int, kind, detail string) {
	writeJSON(w, status, ErrorResponse{
		OK:        false,
		ErrorKind: kind,
		Detail:    detail,
	})
}
