package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"slidecast/internal/adapters/jobstore/memory"
	"slidecast/internal/adapters/storage/localfs"
	"slidecast/internal/models"
	"slidecast/internal/pkg/errors"
	"slidecast/internal/pkg/logger"
	"slidecast/internal/ports"
	"slidecast/internal/transcode"
)

type fakeRenderer struct {
	err   error
	steps []int
	plan  transcode.Plan
}

func (f *fakeRenderer) Render(ctx context.Context, p transcode.Plan, onProgress func(pct int)) error {
	f.plan = p
	for _, s := range f.steps {
		onProgress(s)
	}
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(p.Output, []byte("mp4"), 0o644)
}

type fakeHost struct {
	err      error
	uploaded []ports.HostedUpload
}

func (h *fakeHost) Name() string { return "fake" }

func (h *fakeHost) Upload(ctx context.Context, in ports.HostedUpload) (ports.HostedVideo, error) {
	if h.err != nil {
		return ports.HostedVideo{}, h.err
	}
	h.uploaded = append(h.uploaded, in)
	return ports.HostedVideo{ID: "vid_" + in.JobID, URL: "https://videos.example/" + in.JobID}, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	jobs []*models.RenderJob
}

func (n *recordingNotifier) JobFinished(ctx context.Context, job *models.RenderJob) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.jobs = append(n.jobs, job.Clone())
	return nil
}

// statusRecorder wraps a store and remembers every status it was moved to.
type statusRecorder struct {
	ports.JobStore
	mu       sync.Mutex
	statuses []models.Status
	progress []int
}

func (s *statusRecorder) Advance(ctx context.Context, id string, t ports.Transition) (*models.RenderJob, error) {
	job, err := s.JobStore.Advance(ctx, id, t)
	if err == nil {
		s.mu.Lock()
		s.statuses = append(s.statuses, job.Status)
		s.mu.Unlock()
	}
	return job, err
}

func (s *statusRecorder) SetProgress(ctx context.Context, id string, pct int) error {
	s.mu.Lock()
	s.progress = append(s.progress, pct)
	s.mu.Unlock()
	return s.JobStore.SetProgress(ctx, id, pct)
}

type fixture struct {
	store    *statusRecorder
	sp       *localfs.LocalFS
	renderer *fakeRenderer
	host     *fakeHost
	notifier *recordingNotifier
	workDir  string
	proc     *Processor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		store:    &statusRecorder{JobStore: memory.New(time.Hour)},
		sp:       localfs.New(filepath.Join(root, "storage")),
		renderer: &fakeRenderer{steps: []int{10, 50, 100}},
		host:     &fakeHost{},
		notifier: &recordingNotifier{},
		workDir:  filepath.Join(root, "work"),
	}
	f.proc = New(Deps{
		Store:             f.store,
		SP:                f.sp,
		Host:              f.host,
		Renderer:          f.renderer,
		Notifier:          f.notifier,
		WorkDir:           f.workDir,
		SecondsPerImage:   3,
		TransitionSeconds: 1,
		Log:               logger.Discard(),
	})
	return f
}

func (f *fixture) seedJob(t *testing.T, id string, photos int, withAudio bool) {
	t.Helper()
	ctx := context.Background()
	job := &models.RenderJob{ID: id}
	for i := 0; i < photos; i++ {
		key := fmt.Sprintf("uploads/%s/photo_%02d.jpg", id, i)
		if _, err := f.sp.PutObject(ctx, ports.PutObjectInput{ObjectKey: key, Reader: bytes.NewReader([]byte{0xff, 0xd8, 0xff})}); err != nil {
			t.Fatalf("PutObject: %v", err)
		}
		job.PhotoKeys = append(job.PhotoKeys, key)
	}
	if withAudio {
		job.AudioKey = "uploads/" + id + "/audio.mp3"
		if _, err := f.sp.PutObject(ctx, ports.PutObjectInput{ObjectKey: job.AudioKey, Reader: bytes.NewReader([]byte("ID3"))}); err != nil {
			t.Fatalf("PutObject: %v", err)
		}
	}
	if err := f.store.Create(ctx, job); err != nil {
		t.Fatalf("Create: %v", err)
	}
}

func TestProcessJobSuccess(t *testing.T) {
	f := newFixture(t)
	f.seedJob(t, "job_ok", 3, true)

	if err := f.proc.ProcessJob(context.Background(), "job_ok"); err != nil {
		t.Fatalf("ProcessJob: %v", err)
	}

	job, _ := f.store.Get(context.Background(), "job_ok")
	if job.Status != models.StatusDone || job.Progress != 100 {
		t.Errorf("status=%s progress=%d, want done/100", job.Status, job.Progress)
	}
	if job.VideoURL != "https://videos.example/job_ok" || job.HostedVideoID != "vid_job_ok" {
		t.Errorf("unexpected video fields %q %q", job.VideoURL, job.HostedVideoID)
	}

	want := []models.Status{models.StatusProcessing, models.StatusUploading, models.StatusDone}
	if fmt.Sprint(f.store.statuses) != fmt.Sprint(want) {
		t.Errorf("statuses = %v, want %v", f.store.statuses, want)
	}
	if fmt.Sprint(f.store.progress) != "[9 45 90]" {
		t.Errorf("render progress should be scaled to 90, got %v", f.store.progress)
	}

	if len(f.renderer.plan.Photos) != 3 || f.renderer.plan.Audio == "" {
		t.Errorf("plan missing inputs: %+v", f.renderer.plan)
	}
	if len(f.host.uploaded) != 1 || f.host.uploaded[0].ContentType != "video/mp4" {
		t.Errorf("unexpected uploads %+v", f.host.uploaded)
	}
	if len(f.notifier.jobs) != 1 || f.notifier.jobs[0].Status != models.StatusDone {
		t.Errorf("expected one done notification, got %+v", f.notifier.jobs)
	}
	if _, err := os.Stat(filepath.Join(f.workDir, "jobs", "job_ok")); !os.IsNotExist(err) {
		t.Errorf("work dir should be removed, stat err=%v", err)
	}
}

func TestProcessJobLogsStatusChanges(t *testing.T) {
	f := newFixture(t)
	var buf bytes.Buffer
	f.proc = New(Deps{
		Store:    f.store,
		SP:       f.sp,
		Host:     f.host,
		Renderer: f.renderer,
		WorkDir:  f.workDir,
		Log:      logger.New(logger.Config{Level: "info", Format: "json", Output: &buf}),
	})
	f.seedJob(t, "job_logged", 3, false)

	if err := f.proc.ProcessJob(context.Background(), "job_logged"); err != nil {
		t.Fatalf("ProcessJob: %v", err)
	}

	var got []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		if entry["msg"] != "job status changed" {
			continue
		}
		if entry["job_id"] != "job_logged" {
			t.Errorf("status line without job id: %v", entry)
		}
		got = append(got, fmt.Sprint(entry["status"]))
	}
	if want := "[processing uploading done]"; fmt.Sprint(got) != want {
		t.Errorf("logged statuses = %v, want %s", got, want)
	}
}

func TestProcessJobPhotoOrderPreserved(t *testing.T) {
	f := newFixture(t)
	f.seedJob(t, "job_order", 4, false)

	if err := f.proc.ProcessJob(context.Background(), "job_order"); err != nil {
		t.Fatalf("ProcessJob: %v", err)
	}
	for i, p := range f.renderer.plan.Photos {
		if want := fmt.Sprintf("photo_%02d", i); !bytes.Contains([]byte(filepath.Base(p)), []byte(want)) {
			t.Errorf("photo %d = %s, want %s", i, p, want)
		}
	}
	if f.renderer.plan.Audio != "" {
		t.Errorf("no audio expected, got %s", f.renderer.plan.Audio)
	}
}

func TestProcessJobFailures(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(*fixture)
		wantCode  errors.Code
		wantSteps []models.Status
	}{
		{
			name:      "transcode timeout",
			setup:     func(f *fixture) { f.renderer.err = errors.TranscodeTimeout(time.Second) },
			wantCode:  errors.CodeTranscodeTimeout,
			wantSteps: []models.Status{models.StatusProcessing, models.StatusFailed},
		},
		{
			name:      "transcode crash",
			setup:     func(f *fixture) { f.renderer.err = fmt.Errorf("exit status 1") },
			wantCode:  errors.CodeTranscodeFailed,
			wantSteps: []models.Status{models.StatusProcessing, models.StatusFailed},
		},
		{
			name:      "upload failure",
			setup:     func(f *fixture) { f.host.err = fmt.Errorf("503 from host") },
			wantCode:  errors.CodeUploadFailed,
			wantSteps: []models.Status{models.StatusProcessing, models.StatusUploading, models.StatusFailed},
		},
		{
			name: "missing input",
			setup: func(f *fixture) {
				_ = f.sp.DeleteObject(context.Background(), "uploads/job_x/photo_01.jpg")
			},
			wantCode:  errors.CodeInputFailed,
			wantSteps: []models.Status{models.StatusProcessing, models.StatusFailed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seedJob(t, "job_x", 3, false)
			tt.setup(f)

			err := f.proc.ProcessJob(context.Background(), "job_x")
			if !errors.IsCode(err, tt.wantCode) {
				t.Fatalf("error = %v, want %s", err, tt.wantCode)
			}

			job, _ := f.store.Get(context.Background(), "job_x")
			if job.Status != models.StatusFailed {
				t.Fatalf("status = %s, want failed", job.Status)
			}
			if job.ErrorCode != string(tt.wantCode) || job.ErrorMessage == "" {
				t.Errorf("error fields = %q %q", job.ErrorCode, job.ErrorMessage)
			}
			if job.VideoURL != "" {
				t.Errorf("failed job must not carry a video url, got %q", job.VideoURL)
			}
			if fmt.Sprint(f.store.statuses) != fmt.Sprint(tt.wantSteps) {
				t.Errorf("statuses = %v, want %v", f.store.statuses, tt.wantSteps)
			}
			if len(f.notifier.jobs) != 1 || f.notifier.jobs[0].Status != models.StatusFailed {
				t.Errorf("expected one failed notification, got %d", len(f.notifier.jobs))
			}
		})
	}
}

func TestProcessJobCanceledStillRecordsFailure(t *testing.T) {
	f := newFixture(t)
	f.seedJob(t, "job_cancel", 3, false)

	ctx, cancel := context.WithCancel(context.Background())
	f.renderer.err = errors.WrapWithCode(context.Canceled, errors.CodeTranscodeFailed, "transcode.render", "render canceled")
	f.renderer.steps = nil
	cancel()

	_ = f.proc.ProcessJob(ctx, "job_cancel")

	job, _ := f.store.Get(context.Background(), "job_cancel")
	if job.Status == models.StatusProcessing {
		t.Fatal("canceled job left in processing")
	}
}

func TestProcessJobSkipsTakenJob(t *testing.T) {
	f := newFixture(t)
	f.seedJob(t, "job_taken", 3, false)
	if _, err := f.store.JobStore.Advance(context.Background(), "job_taken", ports.Transition{To: models.StatusProcessing}); err != nil {
		t.Fatal(err)
	}

	if err := f.proc.ProcessJob(context.Background(), "job_taken"); err != nil {
		t.Fatalf("taken job should be skipped, got %v", err)
	}
	if len(f.store.statuses) != 0 || len(f.host.uploaded) != 0 {
		t.Error("taken job must not be processed again")
	}
}

func TestProcessJobUnknownID(t *testing.T) {
	f := newFixture(t)
	if err := f.proc.ProcessJob(context.Background(), "job_missing"); err != nil {
		t.Errorf("unknown job should be dropped, got %v", err)
	}
}

func TestKeepWorkDir(t *testing.T) {
	f := newFixture(t)
	f.proc.cleanup.keepWorkDir = true
	f.seedJob(t, "job_keep", 3, false)

	if err := f.proc.ProcessJob(context.Background(), "job_keep"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(f.workDir, "jobs", "job_keep", "output.mp4")); err != nil {
		t.Errorf("work dir should be kept: %v", err)
	}
}
