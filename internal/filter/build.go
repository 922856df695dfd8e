package filter

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Static errors for graph construction.
var (
	// ErrInvalidDimensions is returned when target dimensions are not positive.
	ErrInvalidDimensions = errors.New("invalid dimensions: width and height must be positive")
	// ErrNoAudioInputs is returned when a graph is requested without audio.
	ErrNoAudioInputs = errors.New("at least one audio input is required")
)

// BuildInput holds everything the graph builder needs. The builder is a pure
// function of this value.
type BuildInput struct {
	// Style is the resolved style configuration.
	Style Style
	// Width and Height are the exact target dimensions.
	Width  int
	Height int
	// ImageInput is the stream specifier of the looped image, e.g. "0:v".
	ImageInput string
	// AudioInputs are the audio stream specifiers in playback order,
	// e.g. ["1:a", "2:a"]. Order is a caller-visible contract.
	AudioInputs []string
	// SubtitlePath, when non-empty, is a local subtitle file rendered as the
	// last visual stage before format normalization. A single field instead
	// of a list keeps a second subtitle pass unrepresentable.
	SubtitlePath string
}

// Build is the constructed graph plus the labels of its two sinks.
// Video and audio are single-source single-sink chains merged only by the
// output mapping of the encode command.
type Build struct {
	Graph    *Graph
	VideoOut string
	AudioOut string
}

// BuildGraph constructs the full effect graph for one segment.
//
// Visual chain: cover-scale (oversized when motion needs overscan margin),
// motion crop as a function of elapsed time t, then the fixed color/texture
// order (eq, noise, rgbashift, vignette), subtitles, and finally fps plus
// pixel format normalization. Audio chain: per-input normalization, then
// concatenation in input order when there is more than one track.
func BuildGraph(in BuildInput) (*Build, error) {
	if in.Width <= 0 || in.Height <= 0 {
		return nil, fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, in.Width, in.Height)
	}
	if len(in.AudioInputs) == 0 {
		return nil, ErrNoAudioInputs
	}

	g := NewGraph()
	vOut := buildVideoChain(g, in)
	aOut := buildAudioChain(g, in.AudioInputs)

	return &Build{Graph: g, VideoOut: vOut, AudioOut: aOut}, nil
}

// buildVideoChain appends the visual stages and returns the sink label.
func buildVideoChain(g *Graph, in BuildInput) string {
	st := in.Style

	// Base scale covers the target; motion variants get extra margin so the
	// moving crop never exposes the canvas edge.
	scaleW, scaleH := in.Width, in.Height
	if st.Motion != MotionNone {
		scaleW = evenCeil(float64(in.Width) * st.Overscan)
		scaleH = evenCeil(float64(in.Height) * st.Overscan)
	}

	cur := g.Chain(in.ImageInput, Node{Kind: "scale", Params: []Param{
		{Value: itoa(scaleW)},
		{Value: itoa(scaleH)},
		{Key: "force_original_aspect_ratio", Value: "increase"},
	}})

	cur = appendMotion(g, cur, st.Motion, in.Width, in.Height)

	if st.hasColorGrade() {
		cur = g.Chain(cur, Node{Kind: "eq", Params: []Param{
			{Key: "contrast", Value: ftoa(st.Contrast)},
			{Key: "brightness", Value: ftoa(st.Brightness)},
			{Key: "saturation", Value: ftoa(st.Saturation)},
		}})
	}

	if st.Grain > 0 {
		cur = g.Chain(cur, Node{Kind: "noise", Params: []Param{
			{Key: "alls", Value: ftoa(st.Grain)},
			{Key: "allf", Value: "t+u"},
		}})
	}

	if st.ChromaShift > 0 {
		cur = g.Chain(cur, Node{Kind: "rgbashift", Params: []Param{
			{Key: "rh", Value: itoa(st.ChromaShift)},
			{Key: "bh", Value: itoa(-st.ChromaShift)},
		}})
	}

	if st.Vignette {
		cur = g.Chain(cur, Node{Kind: "vignette"})
	}

	// Subtitles render on top of every prior effect, so they come last
	// before normalization.
	if in.SubtitlePath != "" {
		cur = g.Chain(cur, Node{Kind: "subtitles", Params: []Param{
			{Key: "filename", Value: "'" + escapeFilterPath(in.SubtitlePath) + "'"},
		}})
	}

	cur = g.Chain(cur, Node{Kind: "fps", Params: []Param{{Value: itoa(st.FPS)}}})
	cur = g.Chain(cur, Node{Kind: "format", Params: []Param{{Value: "yuv420p"}}})
	return cur
}

// appendMotion adds the motion crop stages for the selected variant.
// Every offset and zoom expression depends on t only.
func appendMotion(g *Graph, cur string, m Motion, w, h int) string {
	switch m {
	case MotionShake:
		return g.Chain(cur, Node{Kind: "crop", Params: []Param{
			{Value: itoa(w)},
			{Value: itoa(h)},
			{Key: "x", Value: "'(iw-ow)/2+8*sin(t*7)'"},
			{Key: "y", Value: "'(ih-oh)/2+6*cos(t*9)'"},
		}})
	case MotionPan:
		return g.Chain(cur, Node{Kind: "crop", Params: []Param{
			{Value: itoa(w)},
			{Value: itoa(h)},
			{Key: "x", Value: "'(iw-ow)/2+(iw-ow)/2*sin(t*0.2)'"},
			{Key: "y", Value: "'(ih-oh)/2'"},
		}})
	case MotionZoom:
		// Ramp to the upper bound, then keep a slight oscillation. The bound
		// stays below the overscan margin so edges never show. The dynamic
		// crop changes frame size, so an exact scale follows.
		const zoom = `min(1+0.02*t\,1.2)+0.004*sin(t*2)`
		cur = g.Chain(cur, Node{Kind: "crop", Params: []Param{
			{Key: "w", Value: "'iw/(" + zoom + ")'"},
			{Key: "h", Value: "'ih/(" + zoom + ")'"},
		}})
		return g.Chain(cur, Node{Kind: "scale", Params: []Param{
			{Value: itoa(w)},
			{Value: itoa(h)},
		}})
	default:
		return g.Chain(cur, Node{Kind: "crop", Params: []Param{
			{Value: itoa(w)},
			{Value: itoa(h)},
		}})
	}
}

// buildAudioChain normalizes each input and concatenates them in order.
func buildAudioChain(g *Graph, inputs []string) string {
	outs := make([]string, 0, len(inputs))
	for _, in := range inputs {
		cur := g.Chain(in, Node{Kind: "aresample", Params: []Param{{Value: "44100"}}})
		cur = g.Chain(cur, Node{Kind: "aformat", Params: []Param{
			{Key: "sample_fmts", Value: "fltp"},
			{Key: "channel_layouts", Value: "stereo"},
		}})
		outs = append(outs, cur)
	}

	if len(outs) == 1 {
		return outs[0]
	}

	return g.Add(outs, Node{Kind: "concat", Params: []Param{
		{Key: "n", Value: itoa(len(outs))},
		{Key: "v", Value: "0"},
		{Key: "a", Value: "1"},
	}})
}

// escapeFilterPath escapes a path for use inside a quoted filter argument.
func escapeFilterPath(p string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`, `,`, `\,`)
	return r.Replace(p)
}

// evenCeil rounds up to the nearest even integer; encoders reject odd
// dimensions for yuv420p. The epsilon absorbs float artifacts like
// 1920*1.1 = 2112.0000000000005.
func evenCeil(v float64) int {
	n := int(math.Ceil(v - 1e-6))
	if n%2 != 0 {
		n++
	}
	return n
}

func itoa(v int) string {
	return fmt.Sprintf("%d", v)
}

func ftoa(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
