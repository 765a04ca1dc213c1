// Package transcode turns a set of photos into a slideshow video by
// running ffmpeg as a subprocess.
package transcode

import (
	"slidecast/internal/models"
)

// Plan is everything ffmpeg needs for one render.
type Plan struct {
	Photos []string
	Audio  string
	Output string

	Width  int
	Height int
	FPS    int
	CRF    int

	SecondsPerImage   float64
	TransitionSeconds float64
	// Transitions holds one xfade name per adjacent photo pair.
	Transitions []string
}

// NewPlan resolves opts into a concrete Plan for the given local files.
func NewPlan(photos []string, audio, output string, opts models.RenderOptions) Plan {
	preset := models.PresetFor(opts.Quality)
	return Plan{
		Photos:            photos,
		Audio:             audio,
		Output:            output,
		Width:             preset.Width,
		Height:            preset.Height,
		FPS:               preset.FPS,
		CRF:               preset.CRF,
		SecondsPerImage:   opts.SecondsPerImage,
		TransitionSeconds: opts.TransitionSeconds,
		Transitions:       TransitionsFor(opts.Transition, len(photos)),
	}
}

// Duration is the length of the rendered video in seconds. Each transition
// overlaps two photos, so n photos shown d seconds with n-1 transitions of
// t seconds last n*d - (n-1)*t.
func (p Plan) Duration() float64 {
	n := float64(len(p.Photos))
	if n == 0 {
		return 0
	}
	return n*p.SecondsPerImage - (n-1)*p.TransitionSeconds
}

// TransitionsFor returns the n-1 transitions between n photos. The mixed
// style walks the catalogue in order, so the same upload always renders
// the same way.
func TransitionsFor(style string, n int) []string {
	if n < 2 {
		return nil
	}
	out := make([]string, n-1)
	for i := range out {
		if style == models.TransitionMixed {
			out[i] = models.Transitions[i%len(models.Transitions)]
		} else {
			out[i] = style
		}
	}
	return out
}
