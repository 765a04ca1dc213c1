package processor

import "slidecast/internal/models"

// ParsedJob is a stored job whose options have been re-validated and
// resolved against the worker defaults.
type ParsedJob struct {
	ID        string
	PhotoKeys []string
	AudioKey  string
	Options   models.RenderOptions
}

// HasAudio reports whether a background track was uploaded.
func (p *ParsedJob) HasAudio() bool { return p.AudioKey != "" }

// Inputs are the job files copied into the work directory.
type Inputs struct {
	Photos []string
	Audio  string
}
