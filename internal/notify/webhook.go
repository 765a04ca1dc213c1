// Package notify tells interested parties that a render reached a
// terminal state.
package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"slidecast/internal/models"
	"slidecast/internal/pkg/logger"
)

const (
	EventCompleted = "render.completed"
	EventFailed    = "render.failed"

	SignatureHeader = "X-Slidecast-Signature"
	userAgent       = "slidecast-webhook/1"
)

// Notifier is called once per job when it finishes.
type Notifier interface {
	JobFinished(ctx context.Context, job *models.RenderJob) error
}

// Payload is the JSON body of a webhook call.
type Payload struct {
	Event      string        `json:"event"`
	JobID      string        `json:"job_id"`
	Status     models.Status `json:"status"`
	VideoURL   string        `json:"video_url,omitempty"`
	Error      *PayloadError `json:"error,omitempty"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}

type PayloadError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Options configures the webhook notifier.
type Options struct {
	URL      string
	Secret   string
	Attempts int
	Backoff  time.Duration
	Client   *http.Client
}

// New returns a webhook notifier. Jobs may carry their own webhook URL, so
// the notifier is active even without a global URL.
func New(opts Options, log *logger.Logger) *Webhook {
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Webhook{opts: opts, log: log.WithComponent("notify")}
}

type Webhook struct {
	opts Options
	log  *logger.Logger
}

// JobFinished posts the job result to the job's webhook URL or, if unset,
// the global one. Non-terminal jobs and missing URLs are ignored.
func (w *Webhook) JobFinished(ctx context.Context, job *models.RenderJob) error {
	if job == nil || !job.Status.IsTerminal() {
		return nil
	}
	target := strings.TrimSpace(job.Options.WebhookURL)
	if target == "" {
		target = w.opts.URL
	}
	if target == "" {
		return nil
	}

	body, err := json.Marshal(BuildPayload(job))
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	log := w.log.FromContext(ctx).WithJobID(job.ID)
	var lastErr error
	for attempt := 1; attempt <= w.opts.Attempts; attempt++ {
		retry, err := w.send(ctx, target, body)
		if err == nil {
			log.Info("webhook delivered", "attempt", attempt)
			return nil
		}
		lastErr = err
		if !retry || attempt == w.opts.Attempts {
			break
		}
		log.Warn("webhook attempt failed", "attempt", attempt, "error", err.Error())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.opts.Backoff * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("webhook %s: %w", target, lastErr)
}

func (w *Webhook) send(ctx context.Context, target string, body []byte) (retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if w.opts.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(w.opts.Secret, body))
	}

	resp, err := w.opts.Client.Do(req)
	if err != nil {
		return true, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return false, nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return true, fmt.Errorf("status %d", resp.StatusCode)
	default:
		return false, fmt.Errorf("status %d", resp.StatusCode)
	}
}

// BuildPayload describes a terminal job.
func BuildPayload(job *models.RenderJob) Payload {
	p := Payload{
		Event:      EventCompleted,
		JobID:      job.ID,
		Status:     job.Status,
		VideoURL:   job.VideoURL,
		FinishedAt: job.FinishedAt,
	}
	if job.Status == models.StatusFailed {
		p.Event = EventFailed
		p.Error = &PayloadError{Code: job.ErrorCode, Message: job.ErrorMessage}
	}
	return p
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Noop discards notifications.
type Noop struct{}

func (Noop) JobFinished(context.Context, *models.RenderJob) error { return nil }
