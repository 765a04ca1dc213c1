package transcode

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"slidecast/internal/pkg/errors"
	"slidecast/internal/pkg/logger"
)

// Option configures the FFmpeg runner.
type Option func(*FFmpeg)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(f *FFmpeg) {
		if exec != nil {
			f.exec = exec
		}
	}
}

// FFmpeg renders plans with the ffmpeg binary.
type FFmpeg struct {
	binary  string
	timeout time.Duration
	exec    Executor
	log     *logger.Logger
}

// New constructs a runner. timeout bounds each render; killGrace is how
// long an interrupted ffmpeg may take to exit before it is killed.
func New(binary string, timeout, killGrace time.Duration, log *logger.Logger, opts ...Option) *FFmpeg {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	f := &FFmpeg{
		binary:  binary,
		timeout: timeout,
		exec:    processExecutor{killGrace: killGrace},
		log:     log.WithComponent("transcode"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Render runs ffmpeg for p. onProgress receives 0-100 as encoding advances.
//
// A render that outlives the timeout fails with TRANSCODE_TIMEOUT; any
// other failure is TRANSCODE_FAILED.
func (f *FFmpeg) Render(ctx context.Context, p Plan, onProgress func(pct int)) error {
	const op = "transcode.render"

	if len(p.Photos) == 0 {
		return errors.New(errors.CodeInputFailed, "no photos to render")
	}

	runCtx := ctx
	if f.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	total := p.Duration()
	last := -1
	started := time.Now()
	args := BuildArgs(p)
	f.log.FromContext(ctx).Debug("starting ffmpeg", "photos", len(p.Photos), "duration_s", total, "args", len(args))

	err := f.exec.Run(runCtx, f.binary, args, func(line string) {
		pct, ok := parseProgress(line, total)
		if !ok || pct <= last {
			return
		}
		last = pct
		if onProgress != nil {
			onProgress(pct)
		}
	})
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return errors.WrapWithCode(ctx.Err(), errors.CodeTranscodeFailed, op, "render canceled")
		case runCtx.Err() == context.DeadlineExceeded:
			return errors.TranscodeTimeout(f.timeout)
		default:
			return errors.WrapWithCode(err, errors.CodeTranscodeFailed, op, "ffmpeg failed")
		}
	}

	st, statErr := os.Stat(p.Output)
	if statErr != nil || st.Size() == 0 {
		return errors.New(errors.CodeTranscodeFailed, "ffmpeg produced no output").WithField("output", p.Output)
	}

	f.log.FromContext(ctx).Info("ffmpeg finished",
		"duration_ms", time.Since(started).Milliseconds(),
		"output_bytes", st.Size(),
	)
	return nil
}

// parseProgress reads one line of ffmpeg -progress output. out_time_ms is
// in microseconds despite its name, same as out_time_us.
func parseProgress(line string, total float64) (int, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return 0, false
	}
	switch key {
	case "progress":
		if value == "end" {
			return 100, true
		}
		return 0, false
	case "out_time_us", "out_time_ms":
		if total <= 0 {
			return 0, false
		}
		us, err := strconv.ParseInt(value, 10, 64)
		if err != nil || us < 0 {
			return 0, false
		}
		pct := int(float64(us) / 1e6 / total * 100)
		if pct > 100 {
			pct = 100
		}
		return pct, true
	default:
		return 0, false
	}
}

// Check verifies the binary can be started.
func (f *FFmpeg) Check(ctx context.Context) error {
	if err := f.exec.Run(ctx, f.binary, []string{"-hide_banner", "-version"}, nil); err != nil {
		return fmt.Errorf("ffmpeg unavailable: %w", err)
	}
	return nil
}
