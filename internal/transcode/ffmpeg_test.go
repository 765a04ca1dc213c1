package transcode

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"slidecast/internal/pkg/errors"
	"slidecast/internal/pkg/logger"
)

type fakeExecutor struct {
	lines  []string
	output string
	block  bool
	err    error
	args   []string
}

func (f *fakeExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	f.args = args
	for _, l := range f.lines {
		if onStdout != nil {
			onStdout(l)
		}
	}
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if f.err != nil {
		return f.err
	}
	if f.output != "" {
		return os.WriteFile(f.output, []byte("mp4"), 0o644)
	}
	return nil
}

func testPlan(t *testing.T) Plan {
	p := basePlan()
	p.Output = filepath.Join(t.TempDir(), "out.mp4")
	return p
}

func TestRenderReportsProgress(t *testing.T) {
	p := testPlan(t)
	fx := &fakeExecutor{
		output: p.Output,
		lines: []string{
			"frame=10",
			"out_time_us=1750000",
			"out_time_ms=1750000",
			"out_time_us=N/A",
			"out_time_us=3500000",
			"out_time_us=1000000",
			"progress=end",
		},
	}
	f := New("ffmpeg", time.Minute, time.Second, logger.Discard(), WithExecutor(fx))

	var got []int
	if err := f.Render(context.Background(), p, func(pct int) { got = append(got, pct) }); err != nil {
		t.Fatalf("Render: %v", err)
	}

	want := []int{25, 50, 100}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("progress = %v, want %v", got, want)
	}
	if len(fx.args) == 0 || fx.args[len(fx.args)-1] != p.Output {
		t.Error("executor did not receive the built args")
	}
}

func TestRenderTimeout(t *testing.T) {
	f := New("ffmpeg", 50*time.Millisecond, time.Second, logger.Discard(), WithExecutor(&fakeExecutor{block: true}))

	start := time.Now()
	err := f.Render(context.Background(), testPlan(t), nil)
	if !errors.IsCode(err, errors.CodeTranscodeTimeout) {
		t.Fatalf("expected TRANSCODE_TIMEOUT, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout took %s", elapsed)
	}
}

func TestRenderFailure(t *testing.T) {
	fx := &fakeExecutor{err: &RunError{Err: fmt.Errorf("exit status 1"), Stderr: "Invalid data found when processing input"}}
	f := New("ffmpeg", time.Minute, time.Second, logger.Discard(), WithExecutor(fx))

	err := f.Render(context.Background(), testPlan(t), nil)
	if !errors.IsCode(err, errors.CodeTranscodeFailed) {
		t.Fatalf("expected TRANSCODE_FAILED, got %v", err)
	}
	if want := "Invalid data found"; !strings.Contains(err.Error(), want) {
		t.Errorf("error should carry stderr tail, got %v", err)
	}
}

func TestRenderMissingOutput(t *testing.T) {
	f := New("ffmpeg", time.Minute, time.Second, logger.Discard(), WithExecutor(&fakeExecutor{}))
	err := f.Render(context.Background(), testPlan(t), nil)
	if !errors.IsCode(err, errors.CodeTranscodeFailed) {
		t.Errorf("expected TRANSCODE_FAILED for missing output, got %v", err)
	}
}

func TestRenderCanceledIsNotTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := New("ffmpeg", time.Minute, time.Second, logger.Discard(), WithExecutor(&fakeExecutor{block: true}))

	err := f.Render(ctx, testPlan(t), nil)
	if errors.IsCode(err, errors.CodeTranscodeTimeout) {
		t.Errorf("a canceled render is not a timeout: %v", err)
	}
}

func TestParseProgress(t *testing.T) {
	tests := []struct {
		line string
		pct  int
		ok   bool
	}{
		{"out_time_us=3500000", 50, true},
		{"out_time_ms=7000000", 100, true},
		{"out_time_us=9000000", 100, true},
		{"progress=continue", 0, false},
		{"progress=end", 100, true},
		{"bitrate=1000kbits/s", 0, false},
		{"garbage", 0, false},
	}
	for _, tt := range tests {
		pct, ok := parseProgress(tt.line, 7)
		if pct != tt.pct || ok != tt.ok {
			t.Errorf("parseProgress(%q) = %d,%v want %d,%v", tt.line, pct, ok, tt.pct, tt.ok)
		}
	}
}

func TestProcessExecutorKillsAtDeadline(t *testing.T) {
	sleep, err := exec.LookPath("sleep")
	if err != nil {
		t.Skip("sleep not available")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = processExecutor{killGrace: 200 * time.Millisecond}.Run(ctx, sleep, []string{"30"}, nil)
	if err == nil {
		t.Fatal("expected an error from a killed process")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("process outlived its deadline plus grace: %s", elapsed)
	}
}

func TestRenderTimeoutKillsIgnoringProcess(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}

	tests := []struct {
		name  string
		grace time.Duration
	}{
		{"unset grace", 0},
		{"negative grace", -time.Second},
		{"short grace", 100 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(sh, 200*time.Millisecond, tt.grace, logger.Discard())
			f.exec = scriptExecutor{inner: f.exec, script: "trap '' INT; sleep 10"}

			start := time.Now()
			err := f.Render(context.Background(), testPlan(t), nil)
			if !errors.IsCode(err, errors.CodeTranscodeTimeout) {
				t.Fatalf("expected TRANSCODE_TIMEOUT, got %v", err)
			}
			if elapsed := time.Since(start); elapsed > 5*time.Second {
				t.Errorf("interrupt-ignoring process outlived timeout plus grace: %s", elapsed)
			}
		})
	}
}

// scriptExecutor replaces the ffmpeg arguments with a shell script.
type scriptExecutor struct {
	inner  Executor
	script string
}

func (s scriptExecutor) Run(ctx context.Context, binary string, _ []string, onStdout func(string)) error {
	return s.inner.Run(ctx, binary, []string{"-c", s.script}, onStdout)
}

func TestTailBufferCutsToValidUTF8(t *testing.T) {
	tb := &tailBuffer{max: 5}
	// "é" is two bytes; keeping the last five bytes splits the first one.
	_, _ = tb.Write([]byte("\u00e9\u00e9\u00e9"))
	got := tb.String()
	if !utf8.ValidString(got) {
		t.Fatalf("tail %q is not valid UTF-8", got)
	}
	if got != "\u00e9\u00e9" {
		t.Errorf("tail = %q, want two runes", got)
	}
}

func TestProcessExecutorLines(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	var lines []string
	err = processExecutor{killGrace: time.Second}.Run(context.Background(), sh,
		[]string{"-c", "printf 'out_time_us=1\\nprogress=end'; echo boom >&2; exit 3"},
		func(l string) { lines = append(lines, l) })

	if len(lines) != 2 || lines[1] != "progress=end" {
		t.Errorf("lines = %q", lines)
	}
	var runErr *RunError
	if !errors.As(err, &runErr) || runErr.Stderr != "boom" {
		t.Errorf("expected RunError with stderr tail, got %v", err)
	}
}
