package models

import (
	"fmt"
	"net/url"
	"strings"
)

// Transition styles understood by the renderer. Except for mixed, each
// maps one-to-one onto an ffmpeg xfade transition.
const (
	TransitionFade       = "fade"
	TransitionDissolve   = "dissolve"
	TransitionWipeLeft   = "wipeleft"
	TransitionWipeRight  = "wiperight"
	TransitionSlideLeft  = "slideleft"
	TransitionSlideRight = "slideright"
	TransitionCircleOpen = "circleopen"
	TransitionRadial     = "radial"
	TransitionMixed      = "mixed"
)

// Transitions is the catalogue of concrete transitions, in the order
// mixed cycles through them.
var Transitions = []string{
	TransitionFade,
	TransitionDissolve,
	TransitionWipeLeft,
	TransitionWipeRight,
	TransitionSlideLeft,
	TransitionSlideRight,
	TransitionCircleOpen,
	TransitionRadial,
}

// Default timings, in seconds, for renders that leave them unset.
const (
	DefaultSecondsPerImage   = 3.0
	DefaultTransitionSeconds = 1.0
)

// Quality presets.
const (
	QualityLow    = "low"
	QualityMedium = "medium"
	QualityHigh   = "high"
)

// Preset is the encoder setting behind a quality name.
type Preset struct {
	Width  int
	Height int
	CRF    int
	FPS    int
}

var presets = map[string]Preset{
	QualityLow:    {Width: 854, Height: 480, CRF: 30, FPS: 25},
	QualityMedium: {Width: 1280, Height: 720, CRF: 26, FPS: 30},
	QualityHigh:   {Width: 1920, Height: 1080, CRF: 22, FPS: 30},
}

// PresetFor returns the preset for quality, falling back to medium.
func PresetFor(quality string) Preset {
	if p, ok := presets[quality]; ok {
		return p
	}
	return presets[QualityMedium]
}

// RenderOptions is the client supplied configuration of a render.
type RenderOptions struct {
	Transition        string  `json:"transition"`
	Quality           string  `json:"quality"`
	SecondsPerImage   float64 `json:"seconds_per_image,omitempty"`
	TransitionSeconds float64 `json:"transition_seconds,omitempty"`
	WebhookURL        string  `json:"webhook_url,omitempty"`
}

// Normalize lower-cases names and fills unset values from the defaults.
func (o *RenderOptions) Normalize(secondsPerImage, transitionSeconds float64) {
	o.Transition = strings.ToLower(strings.TrimSpace(o.Transition))
	o.Quality = strings.ToLower(strings.TrimSpace(o.Quality))
	o.WebhookURL = strings.TrimSpace(o.WebhookURL)
	if o.Transition == "" {
		o.Transition = TransitionFade
	}
	if o.Quality == "" {
		o.Quality = QualityMedium
	}
	if o.SecondsPerImage == 0 {
		o.SecondsPerImage = secondsPerImage
	}
	if o.TransitionSeconds == 0 {
		o.TransitionSeconds = transitionSeconds
	}
	if o.TransitionSeconds >= o.SecondsPerImage {
		o.TransitionSeconds = o.SecondsPerImage / 2
	}
}

// Validate rejects unknown names and out of range timings.
func (o RenderOptions) Validate() error {
	if !validTransition(o.Transition) {
		return fmt.Errorf("unknown transition %q", o.Transition)
	}
	if _, ok := presets[o.Quality]; !ok {
		return fmt.Errorf("unknown quality %q", o.Quality)
	}
	if o.SecondsPerImage < 1 || o.SecondsPerImage > 10 {
		return fmt.Errorf("seconds_per_image must be between 1 and 10")
	}
	if o.TransitionSeconds < 0 || o.TransitionSeconds >= o.SecondsPerImage {
		return fmt.Errorf("transition_seconds must be shorter than seconds_per_image")
	}
	if o.WebhookURL != "" {
		u, err := url.Parse(o.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("webhook_url must be an absolute http(s) URL")
		}
	}
	return nil
}

func validTransition(name string) bool {
	if name == TransitionMixed {
		return true
	}
	for _, t := range Transitions {
		if t == name {
			return true
		}
	}
	return false
}
