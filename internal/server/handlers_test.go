package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kunkakamikasa/ffmpeg-service/internal/artifact"
	"github.com/kunkakamikasa/ffmpeg-service/internal/compose"
	"github.com/kunkakamikasa/ffmpeg-service/internal/encode"
	"github.com/kunkakamikasa/ffmpeg-service/internal/fetch"
	"github.com/kunkakamikasa/ffmpeg-service/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newStubComposer builds a real pipeline over fake engine binaries and a
// local asset server, so handler tests exercise the full request path.
func newStubComposer(t *testing.T) (*compose.Composer, *httptest.Server, string) {
	t.Helper()

	binDir := t.TempDir()
	writeScript := func(name, script string) string {
		path := filepath.Join(binDir, name)
		require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0755))
		return path
	}
	ffmpeg := writeScript("ffmpeg", `for a in "$@"; do out="$a"; done
printf 'encoded' > "$out"`)
	ffprobe := writeScript("ffprobe", `echo "2.0"`)

	temp, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	executor, err := encode.NewExecutor(ffmpeg, ffprobe, 0)
	require.NoError(t, err)
	outputDir := t.TempDir()
	store, err := artifact.NewStore(outputDir, "", "files")
	require.NoError(t, err)
	fetcher := fetch.NewFetcher(temp, 5*time.Second, 3)

	assets := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "asset")
	}))
	t.Cleanup(assets.Close)

	return compose.NewComposer(fetcher, executor, store, temp, discardLogger()), assets, outputDir
}

func postJSON(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/videos", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := NewHandlers(nil, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestCreateVideo_InvalidBody(t *testing.T) {
	// Requests rejected before the pipeline never touch the composer.
	h := NewHandlers(nil, discardLogger())

	tests := []struct {
		name string
		body string
	}{
		{"malformed JSON", `{"image_url": `},
		{"missing image", `{"audio_urls": ["https://example.com/a.mp3"]}`},
		{"empty audio list", `{"image_url": "https://example.com/i.png", "audio_urls": []}`},
		{"non-url audio entry", `{"image_url": "https://example.com/i.png", "audio_urls": ["not a url"]}`},
		{"frame rate above cap", `{"image_url": "https://example.com/i.png", "audio_urls": ["https://example.com/a.mp3"], "frame_rate": 120}`},
		{"negative padding", `{"image_url": "https://example.com/i.png", "audio_urls": ["https://example.com/a.mp3"], "padding_sec": -1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h.CreateVideo, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.OK)
			assert.Equal(t, string(compose.KindConfig), resp.ErrorKind)
		})
	}
}

func TestDecodeRequest_StyleWithoutRangeValidation(t *testing.T) {
	// Out-of-range style knobs are clamped downstream, not rejected here.
	h := NewHandlers(nil, discardLogger())

	body := `{"image_url": "https://example.com/i.png", "audio_urls": ["https://example.com/a.mp3"], "style": {"crf": 99, "contrast": 50, "motion": "wobble"}}`
	req := httptest.NewRequest(http.MethodPost, "/videos", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	decoded, ok := h.decodeRequest(rec, req)
	require.True(t, ok, rec.Body.String())
	require.NotNil(t, decoded.Style)
	assert.Equal(t, 99, decoded.Style.CRF)
	assert.Equal(t, "wobble", decoded.Style.Motion)
}

func TestCreateVideo_Success(t *testing.T) {
	composer, assets, outputDir := newStubComposer(t)
	h := NewHandlers(composer, discardLogger())

	body := fmt.Sprintf(`{"image_url": %q, "audio_urls": [%q, %q], "output_name": "clip"}`,
		assets.URL+"/img.png", assets.URL+"/a.mp3", assets.URL+"/b.mp3")
	rec := postJSON(t, h.CreateVideo, body)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp VideoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.True(t, strings.HasPrefix(resp.ArtifactAddress, "/files/clip_"), resp.ArtifactAddress)

	entries, err := os.ReadDir(outputDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCreateVideoBatch_Success(t *testing.T) {
	composer, assets, outputDir := newStubComposer(t)
	h := NewHandlers(composer, discardLogger())

	body := fmt.Sprintf(`{"image_url": %q, "audio_urls": [%q, %q]}`,
		assets.URL+"/img.png", assets.URL+"/a.mp3", assets.URL+"/b.mp3")

	req := httptest.NewRequest(http.MethodPost, "/videos/batch", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.CreateVideoBatch(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp BatchVideoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	require.Len(t, resp.ArtifactAddresses, 2)
	assert.Contains(t, resp.ArtifactAddresses[0], "_01.mp4")
	assert.Contains(t, resp.ArtifactAddresses[1], "_02.mp4")

	entries, err := os.ReadDir(outputDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestCreateVideo_FetchError(t *testing.T) {
	composer, assets, _ := newStubComposer(t)
	h := NewHandlers(composer, discardLogger())

	missing := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(missing.Close)

	body := fmt.Sprintf(`{"image_url": %q, "audio_urls": [%q]}`,
		missing.URL+"/img.png", assets.URL+"/a.mp3")
	rec := postJSON(t, h.CreateVideo, body)

	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.OK)
	assert.Equal(t, string(compose.KindFetch), resp.ErrorKind)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(compose.KindConfig))
	assert.Equal(t, http.StatusBadGateway, statusFor(compose.KindFetch))
	assert.Equal(t, http.StatusInternalServerError, statusFor(compose.KindConcat))
	assert.Equal(t, http.StatusInternalServerError, statusFor(compose.KindEncode))
}

func TestRouter(t *testing.T) {
	filesDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(filesDir, "out.mp4"), []byte("video"), 0644))

	h := NewHandlers(nil, discardLogger())
	cfg := DefaultConfig()
	cfg.FilesDir = filesDir
	router := NewRouter(h, discardLogger(), cfg)

	t.Run("health route", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/videos", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("published artifacts are served", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/out.mp4", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "video", rec.Body.String())
	})

	t.Run("cors preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/videos", nil)
		req.Header.Set("Origin", "https://example.com")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("panic is recovered", func(t *testing.T) {
		// A nil composer makes the handler dereference nil; the recovery
		// middleware must turn that into a 500 instead of tearing the
		// connection down.
		body := `{"image_url": "https://example.com/i.png", "audio_urls": ["https://example.com/a.mp3"]}`
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/videos", bytes.NewBufferString(body)))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
