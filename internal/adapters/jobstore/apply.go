// Package jobstore holds the JobStore adapters and the transition rules
// they share.
package jobstore

import (
	"fmt"
	"time"

	"slidecast/internal/models"
	"slidecast/internal/pkg/errors"
	"slidecast/internal/ports"
)

// Apply validates t against job and mutates job in place. ttl sets the
// expiry once the job reaches a terminal state.
func Apply(job *models.RenderJob, t ports.Transition, now time.Time, ttl time.Duration) error {
	if !job.Status.CanTransitionTo(t.To) {
		return errors.FailedPrecondition(fmt.Sprintf("render job %s cannot move from %s to %s", job.ID, job.Status, t.To)).
			WithFields(map[string]any{"id": job.ID, "from": string(job.Status), "to": string(t.To)})
	}

	job.Status = t.To
	job.UpdatedAt = now
	if t.Progress > job.Progress {
		job.Progress = clampProgress(t.Progress)
	}
	if t.VideoURL != "" {
		job.VideoURL = t.VideoURL
	}
	if t.HostedVideoID != "" {
		job.HostedVideoID = t.HostedVideoID
	}
	if t.ErrorCode != "" {
		job.ErrorCode = t.ErrorCode
	}
	if t.ErrorMessage != "" {
		job.ErrorMessage = t.ErrorMessage
	}

	switch {
	case t.To == models.StatusProcessing && job.StartedAt == nil:
		job.StartedAt = &now
	case t.To.IsTerminal():
		job.FinishedAt = &now
		if t.To == models.StatusDone {
			job.Progress = 100
		}
		if ttl > 0 {
			exp := now.Add(ttl)
			job.ExpiresAt = &exp
		}
	}
	return nil
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
