package processor

import (
	"context"
	"os"

	"slidecast/internal/models"
	"slidecast/internal/pkg/errors"
	"slidecast/internal/pkg/logger"
	"slidecast/internal/ports"
)

type Cleanup struct {
	keepWorkDir bool
	sp          ports.StorageProvider
	log         *logger.Logger
}

func NewCleanup(keepWorkDir bool, sp ports.StorageProvider, log *logger.Logger) *Cleanup {
	return &Cleanup{keepWorkDir: keepWorkDir, sp: sp, log: log}
}

// CleanupJob removes the job's work directory unless KEEP_WORK_DIR is set.
func (c *Cleanup) CleanupJob(ctx context.Context, dir string) {
	if c.keepWorkDir || dir == "" {
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		c.log.FromContext(ctx).Warn("work dir cleanup failed", "dir", dir, "error", err.Error())
	}
}

// DeleteInputs removes a job's uploaded photos and audio from storage.
// Missing objects are not an error.
func (c *Cleanup) DeleteInputs(ctx context.Context, job *models.RenderJob) {
	keys := append([]string(nil), job.PhotoKeys...)
	if job.AudioKey != "" {
		keys = append(keys, job.AudioKey)
	}
	for _, k := range keys {
		if err := c.sp.DeleteObject(ctx, k); err != nil && !errors.IsNotFound(err) {
			c.log.FromContext(ctx).Warn("input cleanup failed", "job_id", job.ID, "object_key", k, "error", err.Error())
		}
	}
}
