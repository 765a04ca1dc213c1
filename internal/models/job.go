package models

import "time"

// Status is the lifecycle state of a render job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusUploading  Status = "uploading"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// AllStatuses lists the statuses in lifecycle order.
var AllStatuses = []Status{StatusQueued, StatusProcessing, StatusUploading, StatusDone, StatusFailed}

// Rank orders statuses along the lifecycle. Terminal states share the top rank.
func (s Status) Rank() int {
	switch s {
	case StatusQueued:
		return 0
	case StatusProcessing:
		return 1
	case StatusUploading:
		return 2
	case StatusDone, StatusFailed:
		return 3
	default:
		return -1
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool { return s.Rank() >= 0 }

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// CanTransitionTo reports whether a job in s may move to next.
// Transitions only move forward; failed is reachable from every
// non-terminal state and done only from uploading.
func (s Status) CanTransitionTo(next Status) bool {
	if s.IsTerminal() || !next.Valid() {
		return false
	}
	switch next {
	case StatusFailed:
		return true
	case StatusDone:
		return s == StatusUploading
	default:
		return next.Rank() == s.Rank()+1
	}
}

// PreviousStatuses returns every status from which next can be entered.
func PreviousStatuses(next Status) []Status {
	var out []Status
	for _, s := range AllStatuses {
		if s.CanTransitionTo(next) {
			out = append(out, s)
		}
	}
	return out
}

// RenderJob is a unit of work turning a set of photos into a video.
type RenderJob struct {
	ID       string `json:"id"`
	Status   Status `json:"status"`
	Progress int    `json:"progress"`

	PhotoKeys []string      `json:"photo_keys"`
	AudioKey  string        `json:"audio_key,omitempty"`
	Options   RenderOptions `json:"options"`

	VideoURL      string `json:"video_url,omitempty"`
	HostedVideoID string `json:"hosted_video_id,omitempty"`

	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// Clone returns a deep copy safe to hand out of a store.
func (j *RenderJob) Clone() *RenderJob {
	if j == nil {
		return nil
	}
	c := *j
	c.PhotoKeys = append([]string(nil), j.PhotoKeys...)
	c.StartedAt = cloneTime(j.StartedAt)
	c.FinishedAt = cloneTime(j.FinishedAt)
	c.ExpiresAt = cloneTime(j.ExpiresAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
