package models

import (
	"testing"
	"time"
)

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusQueued, StatusProcessing, true},
		{StatusQueued, StatusUploading, false},
		{StatusQueued, StatusDone, false},
		{StatusQueued, StatusFailed, true},
		{StatusProcessing, StatusUploading, true},
		{StatusProcessing, StatusQueued, false},
		{StatusProcessing, StatusFailed, true},
		{StatusUploading, StatusDone, true},
		{StatusUploading, StatusProcessing, false},
		{StatusUploading, StatusFailed, true},
		{StatusDone, StatusFailed, false},
		{StatusFailed, StatusDone, false},
		{StatusFailed, StatusQueued, false},
		{StatusQueued, Status("paused"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTransitionsNeverRegress(t *testing.T) {
	for _, from := range AllStatuses {
		for _, to := range AllStatuses {
			if from.CanTransitionTo(to) && to.Rank() <= from.Rank() {
				t.Errorf("%s -> %s is allowed but does not move forward", from, to)
			}
		}
	}
}

func TestPreviousStatuses(t *testing.T) {
	got := PreviousStatuses(StatusFailed)
	if len(got) != 3 {
		t.Fatalf("failed should be reachable from 3 states, got %v", got)
	}
	if prev := PreviousStatuses(StatusDone); len(prev) != 1 || prev[0] != StatusUploading {
		t.Errorf("done should only follow uploading, got %v", prev)
	}
	if prev := PreviousStatuses(StatusQueued); len(prev) != 0 {
		t.Errorf("nothing moves back to queued, got %v", prev)
	}
}

func TestClone(t *testing.T) {
	now := time.Now()
	j := &RenderJob{ID: "job_1", PhotoKeys: []string{"a", "b"}, StartedAt: &now}
	c := j.Clone()
	c.PhotoKeys[0] = "z"
	*c.StartedAt = now.Add(time.Hour)

	if j.PhotoKeys[0] != "a" {
		t.Error("clone shares photo keys")
	}
	if !j.StartedAt.Equal(now) {
		t.Error("clone shares started_at")
	}
	if (*RenderJob)(nil).Clone() != nil {
		t.Error("nil clone should be nil")
	}
}
