// Package postgres is the JobStore used when the API and workers run as
// separate processes.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"slidecast/internal/adapters/jobstore"
	"slidecast/internal/httpkit"
	"slidecast/internal/models"
	"slidecast/internal/pkg/errors"
	"slidecast/internal/ports"
	"slidecast/migrations"
)

const columns = `id, status, progress, photo_keys, audio_key, options, video_url, hosted_video_id,
	error_code, error_message, created_at, updated_at, started_at, finished_at, expires_at`

type Store struct {
	db  *pgxpool.Pool
	ttl time.Duration
}

func New(db *pgxpool.Pool, ttl time.Duration) *Store {
	return &Store{db: db, ttl: ttl}
}

// EnsureSchema applies the embedded migrations. Every script is idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	scripts, err := migrations.All()
	if err != nil {
		return err
	}
	for _, sql := range scripts {
		if _, err := s.db.Exec(ctx, sql); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}

func (s *Store) Create(ctx context.Context, job *models.RenderJob) error {
	if job.Status == "" {
		job.Status = models.StatusQueued
	}
	err := s.db.QueryRow(ctx, `
		INSERT INTO render_jobs (id, status, progress, photo_keys, audio_key, options)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at
	`, job.ID, string(job.Status), job.Progress, job.PhotoKeys, job.AudioKey, job.Options).
		Scan(&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if httpkit.IsUniqueViolation(err) {
			return errors.New(errors.CodeConflict, "render job already exists").WithField("id", job.ID)
		}
		return errors.Wrap(err, "jobstore.create", "insert render job failed")
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*models.RenderJob, error) {
	row := s.db.QueryRow(ctx, `SELECT `+columns+` FROM render_jobs WHERE id=$1`, id)
	j, err := scanJob(row)
	if err != nil {
		if httpkit.IsNoRows(err) {
			return nil, errors.NotFound("render job", id)
		}
		return nil, errors.Wrap(err, "jobstore.get", "load render job failed")
	}
	return j, nil
}

func (s *Store) List(ctx context.Context, f ports.ListFilter) ([]*models.RenderJob, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	var (
		rows pgx.Rows
		err  error
	)
	if f.Status != "" {
		rows, err = s.db.Query(ctx,
			`SELECT `+columns+` FROM render_jobs WHERE status=$1 ORDER BY created_at DESC, id DESC LIMIT $2`,
			string(f.Status), limit)
	} else {
		rows, err = s.db.Query(ctx,
			`SELECT `+columns+` FROM render_jobs ORDER BY created_at DESC, id DESC LIMIT $1`,
			limit)
	}
	if err != nil {
		return nil, errors.Wrap(err, "jobstore.list", "query render jobs failed")
	}
	return collect(rows)
}

// Advance locks the row, checks the transition with the shared rules and
// writes the result in one transaction.
func (s *Store) Advance(ctx context.Context, id string, t ports.Transition) (*models.RenderJob, error) {
	var out *models.RenderJob
	err := pgx.BeginTxFunc(ctx, s.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		j, err := scanJob(tx.QueryRow(ctx, `SELECT `+columns+` FROM render_jobs WHERE id=$1 FOR UPDATE`, id))
		if err != nil {
			if httpkit.IsNoRows(err) {
				return errors.NotFound("render job", id)
			}
			return err
		}

		var now time.Time
		if err := tx.QueryRow(ctx, `SELECT now()`).Scan(&now); err != nil {
			return err
		}
		if err := jobstore.Apply(j, t, now, s.ttl); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
			UPDATE render_jobs SET
				status=$2, progress=$3, video_url=$4, hosted_video_id=$5,
				error_code=$6, error_message=$7, updated_at=$8,
				started_at=$9, finished_at=$10, expires_at=$11
			WHERE id=$1 AND status = ANY($12)
		`, j.ID, string(j.Status), j.Progress, j.VideoURL, j.HostedVideoID,
			j.ErrorCode, j.ErrorMessage, j.UpdatedAt,
			j.StartedAt, j.FinishedAt, j.ExpiresAt, previous(t.To))
		if err != nil {
			return err
		}
		if tag.RowsAffected() != 1 {
			return errors.FailedPrecondition("render job changed concurrently").WithField("id", id)
		}
		out = j
		return nil
	})
	if err != nil {
		if _, coded := asCoded(err); coded {
			return nil, err
		}
		return nil, errors.Wrap(err, "jobstore.advance", "update render job failed")
	}
	return out, nil
}

// SetProgress only raises progress, and only while the job is running.
func (s *Store) SetProgress(ctx context.Context, id string, pct int) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE render_jobs
		SET progress = GREATEST(progress, LEAST($2, 100)), updated_at = now()
		WHERE id=$1 AND status IN ('processing','uploading') AND progress < LEAST($2, 100)
	`, id, pct)
	if err != nil {
		return errors.Wrap(err, "jobstore.set_progress", "update progress failed")
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM render_jobs WHERE id=$1)`, id).Scan(&exists); err != nil {
		return errors.Wrap(err, "jobstore.set_progress", "lookup render job failed")
	}
	if !exists {
		return errors.NotFound("render job", id)
	}
	return nil
}

func (s *Store) PurgeExpired(ctx context.Context, now time.Time) ([]*models.RenderJob, error) {
	rows, err := s.db.Query(ctx, `
		DELETE FROM render_jobs
		WHERE status IN ('done','failed') AND expires_at IS NOT NULL AND expires_at < $1
		RETURNING `+columns, now)
	if err != nil {
		if httpkit.IsUndefinedTable(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "jobstore.purge", "purge render jobs failed")
	}
	return collect(rows)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func collect(rows pgx.Rows) ([]*models.RenderJob, error) {
	defer rows.Close()
	var out []*models.RenderJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, errors.Wrap(err, "jobstore.scan", "scan render job failed")
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "jobstore.scan", "iterate render jobs failed")
	}
	return out, nil
}

func scanJob(row pgx.Row) (*models.RenderJob, error) {
	var (
		j      models.RenderJob
		status string
	)
	err := row.Scan(
		&j.ID, &status, &j.Progress, &j.PhotoKeys, &j.AudioKey, &j.Options,
		&j.VideoURL, &j.HostedVideoID, &j.ErrorCode, &j.ErrorMessage,
		&j.CreatedAt, &j.UpdatedAt, &j.StartedAt, &j.FinishedAt, &j.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	j.Status = models.Status(status)
	return &j, nil
}

func asCoded(err error) (*errors.Error, bool) {
	var e *errors.Error
	ok := errors.As(err, &e)
	return e, ok
}

// previous lists the statuses a job may hold before entering to.
func previous(to models.Status) []string {
	prev := models.PreviousStatuses(to)
	out := make([]string, len(prev))
	for i, st := range prev {
		out[i] = string(st)
	}
	return out
}
