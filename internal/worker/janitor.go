package worker

import (
	"context"
	"time"

	"slidecast/internal/adapters/hosting/storagehost"
	"slidecast/internal/pkg/errors"
	"slidecast/internal/pkg/logger"
	"slidecast/internal/ports"
	"slidecast/internal/worker/processor"
)

// Janitor deletes finished jobs past their expiry along with their
// uploaded inputs.
type Janitor struct {
	store        ports.JobStore
	sp           ports.StorageProvider
	cleanup      *processor.Cleanup
	deleteVideos bool
	log          *logger.Logger
	now          func() time.Time
}

func NewJanitor(store ports.JobStore, sp ports.StorageProvider, cleanup *processor.Cleanup, deleteVideos bool, log *logger.Logger) *Janitor {
	return &Janitor{
		store:        store,
		sp:           sp,
		cleanup:      cleanup,
		deleteVideos: deleteVideos,
		log:          log.WithComponent("janitor"),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (j *Janitor) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if _, err := j.Sweep(ctx); err != nil && ctx.Err() == nil {
				j.log.Warn("expiry sweep failed", "error", err.Error())
			}
		}
	}
}

// Sweep purges expired jobs once and returns how many were removed.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	purged, err := j.store.PurgeExpired(ctx, j.now())
	if err != nil {
		return 0, err
	}
	for _, job := range purged {
		j.cleanup.DeleteInputs(ctx, job)
		if j.deleteVideos && job.HostedVideoID != "" {
			if err := j.sp.DeleteObject(ctx, storagehost.ObjectKey(job.ID)); err != nil && !errors.IsNotFound(err) {
				j.log.Warn("video cleanup failed", "job_id", job.ID, "error", err.Error())
			}
		}
	}
	if len(purged) > 0 {
		j.log.Info("expired jobs purged", "count", len(purged))
	}
	return len(purged), nil
}
