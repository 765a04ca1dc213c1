package processor

import (
	"context"

	"slidecast/internal/pkg/errors"
	"slidecast/internal/transcode"
)

// Renderer runs one render plan. *transcode.FFmpeg implements it.
type Renderer interface {
	Render(ctx context.Context, p transcode.Plan, onProgress func(pct int)) error
}

// RendererAdapter turns a parsed job into a transcode plan and reports
// progress on the 0-90 scale; the last 10% belong to the upload.
type RendererAdapter struct {
	renderer Renderer
}

func NewRendererAdapter(r Renderer) *RendererAdapter {
	return &RendererAdapter{renderer: r}
}

type RenderRequest struct {
	Job        *ParsedJob
	Inputs     *Inputs
	OutputPath string
	OnProgress func(pct int)
}

const renderProgressShare = 90

func (ra *RendererAdapter) Render(ctx context.Context, req RenderRequest) error {
	plan := transcode.NewPlan(req.Inputs.Photos, req.Inputs.Audio, req.OutputPath, req.Job.Options)

	err := ra.renderer.Render(ctx, plan, func(pct int) {
		if req.OnProgress != nil {
			req.OnProgress(pct * renderProgressShare / 100)
		}
	})
	if err == nil {
		return nil
	}
	if errors.IsJobFailure(errors.GetCode(err)) {
		return err
	}
	return errors.WrapWithCode(err, errors.CodeTranscodeFailed, "processor.render", "render failed")
}
