package transcode

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout func(string)) error
}

// RunError is a failed run together with the last lines ffmpeg printed.
type RunError struct {
	Err    error
	Stderr string
}

func (e *RunError) Error() string {
	if e.Stderr == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Stderr)
}

func (e *RunError) Unwrap() error { return e.Err }

// minKillGrace bounds a run whose grace was left unset. Without a
// WaitDelay the process would never be killed after the interrupt.
const minKillGrace = time.Second

// processExecutor runs a real subprocess. On cancellation it sends an
// interrupt so ffmpeg can close the output, and kills the process if it
// is still alive after killGrace.
type processExecutor struct {
	killGrace time.Duration
}

func (p processExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	grace := p.killGrace
	if grace <= 0 {
		grace = minKillGrace
	}
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = grace

	stdout := &lineWriter{fn: onStdout}
	stderr := &tailBuffer{max: 4096}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	stdout.flush()
	if err != nil {
		return &RunError{Err: err, Stderr: stderr.String()}
	}
	return nil
}

// lineWriter calls fn once per complete line written to it.
type lineWriter struct {
	fn  func(string)
	buf []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimRight(string(w.buf[:i]), "\r")
		w.buf = w.buf[i+1:]
		if w.fn != nil {
			w.fn(line)
		}
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	if len(w.buf) > 0 && w.fn != nil {
		w.fn(string(w.buf))
	}
	w.buf = nil
}

// tailBuffer keeps the last max bytes written.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	// The head of the buffer may be cut mid-rune.
	lines := strings.Split(strings.TrimSpace(strings.ToValidUTF8(string(t.buf), "")), "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return strings.Join(lines, " | ")
}
