package processor

import (
	"context"
	"path/filepath"
	"time"

	"slidecast/internal/models"
	"slidecast/internal/notify"
	"slidecast/internal/pkg/errors"
	"slidecast/internal/pkg/logger"
	"slidecast/internal/ports"
)

const (
	maxErrorMessage = 2000
	// finalizeTimeout bounds the writes made after the job context ended.
	finalizeTimeout = 10 * time.Second
)

type Deps struct {
	Store         ports.JobStore
	SP            ports.StorageProvider
	Host          ports.VideoHost
	Renderer      Renderer
	Notifier      notify.Notifier
	WorkDir       string
	KeepWorkDir   bool
	UploadTimeout time.Duration

	SecondsPerImage   float64
	TransitionSeconds float64

	Log *logger.Logger
}

type Processor struct {
	store    ports.JobStore
	notifier notify.Notifier
	workDir  string
	log      *logger.Logger

	jobParser       *JobParser
	inputHandler    *InputHandler
	outputHandler   *OutputHandler
	rendererAdapter *RendererAdapter
	cleanup         *Cleanup
}

func New(d Deps) *Processor {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithComponent("processor")

	n := d.Notifier
	if n == nil {
		n = notify.Noop{}
	}

	return &Processor{
		store:           d.Store,
		notifier:        n,
		workDir:         d.WorkDir,
		log:             log,
		jobParser:       NewJobParser(d.SecondsPerImage, d.TransitionSeconds),
		inputHandler:    NewInputHandler(d.SP),
		outputHandler:   NewOutputHandler(d.Host, d.UploadTimeout),
		rendererAdapter: NewRendererAdapter(d.Renderer),
		cleanup:         NewCleanup(d.KeepWorkDir, d.SP, log),
	}
}

// Cleanup exposes the storage cleanup used by the janitor.
func (p *Processor) Cleanup() *Cleanup { return p.cleanup }

// ProcessJob runs one job from queued to done or failed. A job that is no
// longer queued was already taken by another worker and is skipped.
func (p *Processor) ProcessJob(ctx context.Context, jobID string) error {
	log := p.log.FromContext(ctx).WithJobID(jobID)

	job, err := p.store.Get(ctx, jobID)
	if err != nil {
		if errors.IsNotFound(err) {
			log.Warn("dequeued unknown job, dropping")
			return nil
		}
		return errors.Wrap(err, "processor.fetch", "failed to load job")
	}
	if job.Status != models.StatusQueued {
		log.WithStatus(string(job.Status)).Info("job already taken, skipping")
		return nil
	}

	if _, err := p.advance(ctx, log, jobID, ports.Transition{To: models.StatusProcessing}); err != nil {
		if errors.IsCode(err, errors.CodeFailedPrecond) {
			log.Info("lost race for job, skipping")
			return nil
		}
		return errors.Wrap(err, "processor.status", "failed to mark job processing")
	}

	parsed, err := p.jobParser.Parse(job)
	if err != nil {
		return p.failJob(ctx, jobID, err)
	}

	dir := filepath.Join(p.workDir, "jobs", jobID)
	defer p.cleanup.CleanupJob(ctx, dir)

	log.Debug("materializing inputs", "photos", len(parsed.PhotoKeys), "audio", parsed.HasAudio())
	inputs, err := p.inputHandler.Materialize(ctx, dir, parsed)
	if err != nil {
		return p.failJob(ctx, jobID, err)
	}

	log.Info("starting render",
		"transition", parsed.Options.Transition,
		"quality", parsed.Options.Quality,
	)
	output := filepath.Join(dir, "output.mp4")
	err = p.rendererAdapter.Render(ctx, RenderRequest{
		Job:        parsed,
		Inputs:     inputs,
		OutputPath: output,
		OnProgress: func(pct int) {
			if err := p.store.SetProgress(ctx, jobID, pct); err != nil {
				log.Debug("progress update failed", "error", err.Error())
			}
		},
	})
	if err != nil {
		return p.failJob(ctx, jobID, err)
	}

	if _, err := p.advance(ctx, log, jobID, ports.Transition{To: models.StatusUploading, Progress: renderProgressShare}); err != nil {
		return p.failJob(ctx, jobID, errors.Wrap(err, "processor.status", "failed to mark job uploading"))
	}

	hosted, err := p.outputHandler.Publish(ctx, jobID, output)
	if err != nil {
		return p.failJob(ctx, jobID, err)
	}
	log.Debug("video published", "host_id", hosted.ID, "url", hosted.URL)

	done, err := p.advance(ctx, log, jobID, ports.Transition{
		To:            models.StatusDone,
		Progress:      100,
		VideoURL:      hosted.URL,
		HostedVideoID: hosted.ID,
	})
	if err != nil {
		return p.failJob(ctx, jobID, errors.Wrap(err, "processor.status", "failed to mark job done"))
	}

	p.notify(ctx, done)
	return nil
}

// failJob records cause on the job. The writes use a context detached
// from ctx so a job killed at its deadline, or during shutdown, still ends
// up failed instead of stuck in processing.
func (p *Processor) failJob(ctx context.Context, jobID string, cause error) error {
	log := p.log.FromContext(ctx).WithJobID(jobID)

	code := errors.GetCode(cause)
	if !errors.IsJobFailure(code) {
		code = errors.CodeTranscodeFailed
	}
	msg := truncate(cause.Error(), maxErrorMessage)

	var appErr *errors.Error
	if errors.As(cause, &appErr) {
		log.Error("job failed",
			"code", string(code),
			"op", appErr.Op,
			"message", appErr.Message,
			"error", msg,
		)
	} else {
		log.Error("job failed", "code", string(code), "error", msg)
	}

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	failed, err := p.advance(fctx, log, jobID, ports.Transition{
		To:           models.StatusFailed,
		ErrorCode:    string(code),
		ErrorMessage: msg,
	})
	if err != nil {
		log.Error("failed to record job failure", "error", err.Error())
		return cause
	}
	p.notify(fctx, failed)
	return cause
}

// advance applies t and logs the new status.
func (p *Processor) advance(ctx context.Context, log *logger.Logger, jobID string, t ports.Transition) (*models.RenderJob, error) {
	job, err := p.store.Advance(ctx, jobID, t)
	if err != nil {
		return nil, err
	}
	log.WithStatus(string(job.Status)).Info("job status changed", "progress", job.Progress)
	return job, nil
}

func (p *Processor) notify(ctx context.Context, job *models.RenderJob) {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout*3)
	defer cancel()
	if err := p.notifier.JobFinished(nctx, job); err != nil {
		p.log.FromContext(ctx).WithJobID(job.ID).Warn("webhook failed", "error", err.Error())
	}
}
