package worker

import (
	"time"

	"slidecast/internal/notify"
	"slidecast/internal/pkg/logger"
	"slidecast/internal/ports"
	"slidecast/internal/worker/processor"
)

type Deps struct {
	Store    ports.JobStore
	Queue    ports.Queue
	SP       ports.StorageProvider
	Host     ports.VideoHost
	Renderer processor.Renderer
	Notifier notify.Notifier

	Concurrency   int
	WorkDir       string
	KeepWorkDir   bool
	UploadTimeout time.Duration

	SecondsPerImage   float64
	TransitionSeconds float64

	// JanitorInterval <= 0 disables the expiry sweep.
	JanitorInterval time.Duration
	// VideosOnStorage is set when finished videos live in SP, so the
	// janitor removes them together with the job.
	VideosOnStorage bool

	Log *logger.Logger
}
