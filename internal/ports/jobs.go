package ports

import (
	"context"
	"time"

	"slidecast/internal/models"
)

// Transition describes a status change and the fields it records.
// Zero values leave the stored field untouched.
type Transition struct {
	To            models.Status
	Progress      int
	VideoURL      string
	HostedVideoID string
	ErrorCode     string
	ErrorMessage  string
}

// ListFilter narrows JobStore.List.
type ListFilter struct {
	Status models.Status
	Limit  int
}

// JobStore persists render jobs.
//
// Get returns a NOT_FOUND coded error for unknown ids. Advance refuses any
// transition the current status does not allow with FAILED_PRECONDITION,
// which keeps the status monotonic even with competing writers.
type JobStore interface {
	Create(ctx context.Context, job *models.RenderJob) error
	Get(ctx context.Context, id string) (*models.RenderJob, error)
	List(ctx context.Context, f ListFilter) ([]*models.RenderJob, error)
	Advance(ctx context.Context, id string, t Transition) (*models.RenderJob, error)
	// SetProgress raises progress; lower values are ignored.
	SetProgress(ctx context.Context, id string, pct int) error
	// PurgeExpired deletes terminal jobs whose expiry is before now and
	// returns them so callers can drop their stored inputs.
	PurgeExpired(ctx context.Context, now time.Time) ([]*models.RenderJob, error)
	Ping(ctx context.Context) error
}
