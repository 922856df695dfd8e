// Package compose orchestrates one job end to end: fetch assets, build the
// effect graph, run the encoder, publish the artifact, and clean up. Each
// job owns a private temp namespace, so independent jobs are fully parallel
// without locks.
package compose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/kunkakamikasa/ffmpeg-service/internal/artifact"
	"github.com/kunkakamikasa/ffmpeg-service/internal/encode"
	"github.com/kunkakamikasa/ffmpeg-service/internal/fetch"
	"github.com/kunkakamikasa/ffmpeg-service/internal/filter"
	"github.com/kunkakamikasa/ffmpeg-service/internal/job"
	"github.com/kunkakamikasa/ffmpeg-service/internal/storage"
)

// Composer coordinates the fetch, build, encode and publish stages.
// It is safe for concurrent use; all per-job state lives in the Job.
type Composer struct {
	fetcher *fetch.Fetcher
	exec    *encode.Executor
	store   *artifact.Store
	temp    storage.Storage
	logger  *slog.Logger
}

// NewComposer creates a Composer from its collaborators.
func NewComposer(fetcher *fetch.Fetcher, exec *encode.Executor, store *artifact.Store, temp storage.Storage, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{
		fetcher: fetcher,
		exec:    exec,
		store:   store,
		temp:    temp,
		logger:  logger,
	}
}

// assets are the resolved local paths of a job's inputs.
type assets struct {
	image     string
	audio     []string
	subtitle  string
	durations []float64
}

// totalDuration is the sum of the audio track durations.
func (a assets) totalDuration() float64 {
	var sum float64
	for _, d := range a.durations {
		sum += d
	}
	return sum
}

// Compose runs one job to its terminal state and returns the published
// artifact address. The call blocks until the job finishes; a started encode
// always runs to completion before cleanup.
func (c *Composer) Compose(ctx context.Context, req Request) (string, error) {
	name := c.store.AllocateName(req.OutputName, ".mp4")
	return c.compose(ctx, req, name)
}

// ComposeEach produces one independent artifact per audio reference, named
// with zero-padded sequence suffixes in input order. The first failing
// segment fails the whole call; artifacts already published stay published,
// each being complete on its own.
func (c *Composer) ComposeEach(ctx context.Context, req Request) ([]string, error) {
	if len(req.AudioURLs) == 0 {
		return nil, newError(KindConfig, "at least one audio reference is required", nil)
	}

	addresses := make([]string, 0, len(req.AudioURLs))
	for i, audioURL := range req.AudioURLs {
		sub := req
		sub.AudioURLs = []string{audioURL}
		sub.Story = false
		sub.PaddingSec = 0

		name := c.store.AllocateSequencedName(req.OutputName, ".mp4", i+1)
		addr, err := c.compose(ctx, sub, name)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i+1, err)
		}
		addresses = append(addresses, addr)
	}
	return addresses, nil
}

// compose is the shared job pipeline behind both modes.
func (c *Composer) compose(ctx context.Context, req Request, name string) (string, error) {
	if len(req.AudioURLs) == 0 {
		return "", newError(KindConfig, "at least one audio reference is required", nil)
	}
	width, height, err := filter.ParseResolution(req.Resolution)
	if err != nil {
		return "", newError(KindConfig, err.Error(), err)
	}

	jb := job.New()
	log := c.logger.With(slog.String("job_id", jb.ID))
	log.Info("job accepted",
		slog.Int("audio_tracks", len(req.AudioURLs)),
		slog.String("resolution", fmt.Sprintf("%dx%d", width, height)),
		slog.Bool("story", req.storyMode()),
	)

	// Temporary files are removed on every terminal path; only the published
	// artifact survives the job.
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)
		if err := c.temp.CleanupJob(cleanupCtx, jb.ID); err != nil {
			log.Warn("temp cleanup failed", slog.String("error", err.Error()))
		}
	}()

	addr, err := c.run(ctx, jb, req, name, width, height)
	if err != nil {
		_ = jb.Fail(err.Error())
		log.Error("job failed", slog.String("error", err.Error()))
		return "", err
	}

	_ = jb.TransitionTo(job.StatusSucceeded)
	log.Info("job succeeded", slog.String("artifact", addr))
	return addr, nil
}

// run drives the non-terminal stages of the job.
func (c *Composer) run(ctx context.Context, jb *job.Job, req Request, name string, width, height int) (string, error) {
	if err := jb.TransitionTo(job.StatusFetching); err != nil {
		return "", newError(KindConfig, "job already started", err)
	}
	a, err := c.fetchAssets(ctx, jb, req)
	if err != nil {
		return "", err
	}

	if err := jb.TransitionTo(job.StatusBuilding); err != nil {
		return "", newError(KindConfig, "job state", err)
	}
	// The frame-rate override joins the raw style before resolution, so it
	// goes through the same defaulting and clamping as every other knob.
	rawStyle := req.Style
	if req.FrameRate > 0 {
		rawStyle.FPS = req.FrameRate
	}
	style := filter.ResolveStyle(rawStyle)
	for _, path := range a.audio {
		d, err := c.exec.Duration(ctx, path)
		if err != nil {
			return "", newError(KindEncode, "probe audio duration", err)
		}
		a.durations = append(a.durations, d)
	}

	if err := jb.TransitionTo(job.StatusEncoding); err != nil {
		return "", newError(KindConfig, "job state", err)
	}

	var outPath string
	if req.storyMode() && len(a.audio) > 1 {
		outPath, err = c.encodeStory(ctx, jb, a, style, width, height, req.PaddingSec)
	} else {
		outPath, err = c.encodeSingle(ctx, jb, a, style, width, height)
	}
	if err != nil {
		return "", err
	}

	addr, err := c.store.Publish(ctx, outPath, name)
	if err != nil {
		return "", newError(KindEncode, "publish artifact", err)
	}
	return addr, nil
}

// fetchAssets downloads the image, the audio tracks (concurrently) and the
// subtitle source into the job namespace.
func (c *Composer) fetchAssets(ctx context.Context, jb *job.Job, req Request) (assets, error) {
	var a assets

	imagePath, err := c.fetcher.Fetch(ctx, jb.ID, req.ImageURL, fetch.RoleImage)
	if err != nil {
		return a, newError(KindFetch, "image: "+err.Error(), err)
	}
	a.image = imagePath
	jb.Track(imagePath)

	audioPaths, err := c.fetcher.FetchAll(ctx, jb.ID, req.AudioURLs, fetch.RoleAudio)
	if err != nil {
		return a, newError(KindFetch, "audio: "+err.Error(), err)
	}
	a.audio = audioPaths
	for _, p := range audioPaths {
		jb.Track(p)
	}

	switch {
	case req.SubtitleURL != "":
		subPath, err := c.fetcher.Fetch(ctx, jb.ID, req.SubtitleURL, fetch.RoleSubtitle)
		if err != nil {
			return a, newError(KindFetch, "subtitle: "+err.Error(), err)
		}
		a.subtitle = subPath
		jb.Track(subPath)
	case req.SubtitleText != "":
		subPath, err := c.temp.TempPath(jb.ID, "inline.srt")
		if err != nil {
			return a, newError(KindFetch, "subtitle: "+err.Error(), err)
		}
		if err := os.WriteFile(subPath, []byte(req.SubtitleText), 0640); err != nil {
			return a, newError(KindFetch, "subtitle: "+err.Error(), err)
		}
		a.subtitle = subPath
		jb.Track(subPath)
	}

	return a, nil
}

// encodeSingle produces the whole video in one engine invocation. Multiple
// audio tracks are concatenated in the graph's audio chain.
func (c *Composer) encodeSingle(ctx context.Context, jb *job.Job, a assets, style filter.Style, width, height int) (string, error) {
	audioInputs := make([]string, len(a.audio))
	for i := range a.audio {
		audioInputs[i] = fmt.Sprintf("%d:a", i+1)
	}

	build, err := filter.BuildGraph(filter.BuildInput{
		Style:        style,
		Width:        width,
		Height:       height,
		ImageInput:   "0:v",
		AudioInputs:  audioInputs,
		SubtitlePath: a.subtitle,
	})
	if err != nil {
		return "", newError(KindConfig, err.Error(), err)
	}

	outPath, err := c.temp.TempPath(jb.ID, "output.mp4")
	if err != nil {
		return "", newError(KindEncode, "allocate output path", err)
	}
	jb.Track(outPath)

	args := encodeArgs(a.image, a.audio, 0, build, style, a.totalDuration(), outPath)
	if err := c.exec.Run(ctx, args, outPath); err != nil {
		return "", classifyEncode(err, KindEncode)
	}
	return outPath, nil
}

// encodeStory encodes each audio track as its own segment, inserts silence
// padding strictly between segments, and stitches everything losslessly with
// one concatenation pass.
func (c *Composer) encodeStory(ctx context.Context, jb *job.Job, a assets, style filter.Style, width, height int, paddingSec float64) (string, error) {
	expected := len(a.audio)
	if paddingSec > 0 {
		expected += len(a.audio) - 1
	}

	var segments []string
	for i := range a.audio {
		segPath, err := c.encodeSegment(ctx, jb, a, style, width, height, i)
		if err != nil {
			return "", classifyEncode(err, KindConcat)
		}
		segments = append(segments, segPath)

		if paddingSec > 0 && i < len(a.audio)-1 {
			padPath, err := c.encodePadding(ctx, jb, a.image, a.subtitle, style, width, height, paddingSec, i)
			if err != nil {
				return "", classifyEncode(err, KindConcat)
			}
			segments = append(segments, padPath)
		}
	}

	// Internal consistency check, not a recoverable condition.
	if len(segments) != expected {
		return "", newError(KindConcat,
			fmt.Sprintf("segment count mismatch: have %d, want %d", len(segments), expected), nil)
	}

	listPath, err := c.temp.TempPath(jb.ID, "concat.txt")
	if err != nil {
		return "", newError(KindConcat, "allocate concat list", err)
	}
	if err := writeConcatList(listPath, segments); err != nil {
		return "", newError(KindConcat, "write concat list", err)
	}
	jb.Track(listPath)

	outPath, err := c.temp.TempPath(jb.ID, "output.mp4")
	if err != nil {
		return "", newError(KindConcat, "allocate output path", err)
	}
	jb.Track(outPath)

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-movflags", "+faststart",
		outPath,
	}
	if err := c.exec.Run(ctx, args, outPath); err != nil {
		return "", classifyEncode(err, KindConcat)
	}
	return outPath, nil
}

// encodeSegment encodes the still image paired with one audio track.
func (c *Composer) encodeSegment(ctx context.Context, jb *job.Job, a assets, style filter.Style, width, height, idx int) (string, error) {
	build, err := filter.BuildGraph(filter.BuildInput{
		Style:        style,
		Width:        width,
		Height:       height,
		ImageInput:   "0:v",
		AudioInputs:  []string{"1:a"},
		SubtitlePath: a.subtitle,
	})
	if err != nil {
		return "", newError(KindConfig, err.Error(), err)
	}

	segPath, err := c.temp.TempPath(jb.ID, fmt.Sprintf("segment_%03d.mp4", idx))
	if err != nil {
		return "", err
	}
	jb.Track(segPath)

	args := encodeArgs(a.image, []string{a.audio[idx]}, 0, build, style, a.durations[idx], segPath)
	if err := c.exec.Run(ctx, args, segPath); err != nil {
		return "", err
	}
	return segPath, nil
}

// encodePadding encodes a silent segment over the still image.
func (c *Composer) encodePadding(ctx context.Context, jb *job.Job, imagePath, subtitlePath string, style filter.Style, width, height int, paddingSec float64, idx int) (string, error) {
	build, err := filter.BuildGraph(filter.BuildInput{
		Style:        style,
		Width:        width,
		Height:       height,
		ImageInput:   "0:v",
		AudioInputs:  []string{"1:a"},
		SubtitlePath: subtitlePath,
	})
	if err != nil {
		return "", newError(KindConfig, err.Error(), err)
	}

	padPath, err := c.temp.TempPath(jb.ID, fmt.Sprintf("padding_%03d.mp4", idx))
	if err != nil {
		return "", err
	}
	jb.Track(padPath)

	args := encodeArgs(imagePath, nil, paddingSec, build, style, paddingSec, padPath)
	if err := c.exec.Run(ctx, args, padPath); err != nil {
		return "", err
	}
	return padPath, nil
}

// encodeArgs assembles the engine argument list for one encode: the looped
// image, the audio inputs (or a generated silence source), the serialized
// graph, the output mapping and the codec parameters.
func encodeArgs(imagePath string, audioPaths []string, silenceSec float64, build *filter.Build, style filter.Style, durationSec float64, outPath string) []string {
	args := []string{"-y", "-loop", "1", "-i", imagePath}
	for _, p := range audioPaths {
		args = append(args, "-i", p)
	}
	if silenceSec > 0 {
		args = append(args,
			"-f", "lavfi",
			"-t", fmt.Sprintf("%.3f", silenceSec),
			"-i", "anullsrc=r=44100:cl=stereo",
		)
	}
	args = append(args,
		"-filter_complex", build.Graph.String(),
		"-map", "["+build.VideoOut+"]",
		"-map", "["+build.AudioOut+"]",
		"-t", fmt.Sprintf("%.3f", durationSec),
		"-c:v", "libx264",
		"-preset", style.Preset,
		"-crf", strconv.Itoa(style.CRF),
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		outPath,
	)
	return args
}

// classifyEncode wraps an executor failure with the given kind, lifting the
// bounded stderr tail into the detail excerpt.
func classifyEncode(err error, kind Kind) error {
	var compErr *Error
	if errors.As(err, &compErr) {
		return compErr
	}
	var encErr *encode.EncodeError
	if errors.As(err, &encErr) {
		return newError(kind, encErr.Tail, err)
	}
	return newError(kind, err.Error(), err)
}
