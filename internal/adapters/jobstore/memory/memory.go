// Package memory is an in-process JobStore for single binary deployments
// and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"slidecast/internal/adapters/jobstore"
	"slidecast/internal/models"
	"slidecast/internal/pkg/errors"
	"slidecast/internal/ports"
)

// Store keeps jobs in a map guarded by a RWMutex. Reads return copies so
// callers never observe a record mid-update.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*models.RenderJob
	ttl  time.Duration
	now  func() time.Time
}

func New(ttl time.Duration) *Store {
	return &Store{
		jobs: make(map[string]*models.RenderJob),
		ttl:  ttl,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Create(ctx context.Context, job *models.RenderJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; ok {
		return errors.New(errors.CodeConflict, "render job already exists").WithField("id", job.ID)
	}
	now := s.now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = models.StatusQueued
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*models.RenderJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, errors.NotFound("render job", id)
	}
	return j.Clone(), nil
}

func (s *Store) List(ctx context.Context, f ports.ListFilter) ([]*models.RenderJob, error) {
	s.mu.RLock()
	out := make([]*models.RenderJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		if f.Status != "" && j.Status != f.Status {
			continue
		}
		out = append(out, j.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool {
		if out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].ID > out[b].ID
		}
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) Advance(ctx context.Context, id string, t ports.Transition) (*models.RenderJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, errors.NotFound("render job", id)
	}
	if err := jobstore.Apply(j, t, s.now(), s.ttl); err != nil {
		return nil, err
	}
	return j.Clone(), nil
}

func (s *Store) SetProgress(ctx context.Context, id string, pct int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return errors.NotFound("render job", id)
	}
	if j.Status != models.StatusProcessing && j.Status != models.StatusUploading {
		return nil
	}
	if pct > 100 {
		pct = 100
	}
	if pct > j.Progress {
		j.Progress = pct
		j.UpdatedAt = s.now()
	}
	return nil
}

func (s *Store) PurgeExpired(ctx context.Context, now time.Time) ([]*models.RenderJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purged []*models.RenderJob
	for id, j := range s.jobs {
		if j.Status.IsTerminal() && j.ExpiresAt != nil && j.ExpiresAt.Before(now) {
			purged = append(purged, j)
			delete(s.jobs, id)
		}
	}
	return purged, nil
}

func (s *Store) Ping(ctx context.Context) error { return nil }
