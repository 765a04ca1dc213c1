package processor

import (
	"strings"

	"slidecast/internal/models"
	"slidecast/internal/pkg/errors"
)

// JobParser resolves a stored job into something renderable. The API
// validated the options already; parsing again protects against rows
// written by older versions or by hand.
type JobParser struct {
	secondsPerImage   float64
	transitionSeconds float64
}

func NewJobParser(secondsPerImage, transitionSeconds float64) *JobParser {
	if secondsPerImage <= 0 {
		secondsPerImage, transitionSeconds = models.DefaultSecondsPerImage, models.DefaultTransitionSeconds
	}
	return &JobParser{secondsPerImage: secondsPerImage, transitionSeconds: transitionSeconds}
}

func (jp *JobParser) Parse(job *models.RenderJob) (*ParsedJob, error) {
	const op = "processor.parse"

	keys := make([]string, 0, len(job.PhotoKeys))
	for _, k := range job.PhotoKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, errors.New(errors.CodeInputFailed, "job has no photos").WithField("id", job.ID)
	}

	opts := job.Options
	opts.Normalize(jp.secondsPerImage, jp.transitionSeconds)
	if err := opts.Validate(); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeInputFailed, op, "invalid render options")
	}

	return &ParsedJob{
		ID:        job.ID,
		PhotoKeys: keys,
		AudioKey:  strings.TrimSpace(job.AudioKey),
		Options:   opts,
	}, nil
}
