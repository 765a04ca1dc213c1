// Package apivideo publishes renders to an api.video compatible hosting
// API: create a video container, then upload the file as its source.
package apivideo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"slidecast/internal/pkg/logger"
	"slidecast/internal/ports"
)

type Options struct {
	BaseURL  string
	APIKey   string
	Attempts int
	Backoff  time.Duration
	Client   *http.Client
}

type Client struct {
	opts Options
	log  *logger.Logger
}

func New(opts Options, log *logger.Logger) *Client {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	return &Client{opts: opts, log: log.WithComponent("apivideo")}
}

func (c *Client) Name() string { return "apivideo" }

type videoResponse struct {
	VideoID string `json:"videoId"`
	Assets  struct {
		Player string `json:"player"`
		MP4    string `json:"mp4"`
	} `json:"assets"`
}

// statusError is an HTTP failure; 5xx and 429 are retried.
type statusError struct {
	Op     string
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Body)
}

func (e *statusError) retryable() bool {
	return e.Status >= 500 || e.Status == http.StatusTooManyRequests
}

func (c *Client) Upload(ctx context.Context, in ports.HostedUpload) (ports.HostedVideo, error) {
	title := in.Title
	if title == "" {
		title = in.JobID
	}

	var created videoResponse
	err := c.retry(ctx, "create video", func() error {
		body, _ := json.Marshal(map[string]any{"title": title, "public": true})
		return c.do(ctx, "create video", http.MethodPost, "/videos", "application/json", bytes.NewReader(body), &created)
	})
	if err != nil {
		return ports.HostedVideo{}, err
	}
	if created.VideoID == "" {
		return ports.HostedVideo{}, fmt.Errorf("create video: response has no videoId")
	}

	var uploaded videoResponse
	err = c.retry(ctx, "upload source", func() error {
		return c.uploadSource(ctx, created.VideoID, in, &uploaded)
	})
	if err != nil {
		return ports.HostedVideo{}, err
	}

	url := uploaded.Assets.Player
	if url == "" {
		url = created.Assets.Player
	}
	if url == "" {
		url = uploaded.Assets.MP4
	}
	if url == "" {
		return ports.HostedVideo{}, fmt.Errorf("upload source: response has no playable url")
	}
	return ports.HostedVideo{ID: created.VideoID, URL: url}, nil
}

// uploadSource streams the file as multipart without buffering it.
func (c *Client) uploadSource(ctx context.Context, videoID string, in ports.HostedUpload, out *videoResponse) error {
	f, err := os.Open(in.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", fileName(in))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	err = c.do(ctx, "upload source", http.MethodPost, "/videos/"+videoID+"/source", mw.FormDataContentType(), pr, out)
	// Unblock the writer goroutine if the request ended early.
	pr.CloseWithError(io.ErrClosedPipe)
	return err
}

func (c *Client) do(ctx context.Context, op, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.opts.BaseURL+path, body)
	if err != nil {
		return err
	}
	// The API key is the basic auth user; the password stays empty.
	req.SetBasicAuth(c.opts.APIKey, "")
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.opts.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &statusError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func (c *Client) retry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= c.opts.Attempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		var se *statusError
		if errors.As(err, &se) && !se.retryable() {
			return err
		}
		if ctx.Err() != nil || attempt == c.opts.Attempts {
			break
		}
		c.log.FromContext(ctx).Warn("hosting request failed, retrying",
			"op", op, "attempt", attempt, "error", err.Error())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.opts.Backoff * time.Duration(attempt)):
		}
	}
	return err
}

func fileName(in ports.HostedUpload) string {
	if in.FileName != "" {
		return in.FileName
	}
	return in.JobID + ".mp4"
}
