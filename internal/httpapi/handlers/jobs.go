package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"slidecast/internal/httpkit"
	"slidecast/internal/models"
	"slidecast/internal/pkg/errors"
	"slidecast/internal/pkg/ids"
	"slidecast/internal/ports"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type jobError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// jobView is the public shape of a render job. Storage keys stay internal.
type jobView struct {
	ID         string               `json:"id"`
	Status     models.Status        `json:"status"`
	Progress   int                  `json:"progress"`
	Photos     int                  `json:"photos"`
	HasAudio   bool                 `json:"has_audio"`
	Options    models.RenderOptions `json:"options"`
	VideoURL   string               `json:"video_url,omitempty"`
	Error      *jobError            `json:"error,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
	StartedAt  *time.Time           `json:"started_at,omitempty"`
	FinishedAt *time.Time           `json:"finished_at,omitempty"`
	ExpiresAt  *time.Time           `json:"expires_at,omitempty"`
}

func viewOf(j *models.RenderJob) jobView {
	v := jobView{
		ID:         j.ID,
		Status:     j.Status,
		Progress:   j.Progress,
		Photos:     len(j.PhotoKeys),
		HasAudio:   j.AudioKey != "",
		Options:    j.Options,
		VideoURL:   j.VideoURL,
		CreatedAt:  j.CreatedAt,
		UpdatedAt:  j.UpdatedAt,
		StartedAt:  j.StartedAt,
		FinishedAt: j.FinishedAt,
		ExpiresAt:  j.ExpiresAt,
	}
	// The webhook target may carry credentials in its query string.
	v.Options.WebhookURL = ""
	if j.Status == models.StatusFailed {
		v.Error = &jobError{Code: j.ErrorCode, Message: j.ErrorMessage}
	}
	return v
}

func (h *Handler) GetRender(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "jobId")

	if !ids.Valid(ids.JobPrefix, jobID) {
		writeJobNotFound(w, jobID)
		return
	}

	job, err := h.store.Get(ctx, jobID)
	if err != nil {
		if errors.IsNotFound(err) {
			writeJobNotFound(w, jobID)
			return
		}
		h.log.FromContext(ctx).Error("job lookup failed", "job_id", jobID, "error", err.Error())
		httpkit.WriteErr(w, http.StatusInternalServerError, string(errors.CodeInternal), "job lookup failed", nil)
		return
	}

	httpkit.WriteJSON(w, http.StatusOK, map[string]any{"job": viewOf(job)})
}

func (h *Handler) ListRenders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	f := ports.ListFilter{Limit: defaultListLimit}
	if s := strings.TrimSpace(r.URL.Query().Get("status")); s != "" {
		st := models.Status(strings.ToLower(s))
		if !st.Valid() {
			httpkit.WriteErr(w, http.StatusBadRequest, string(errors.CodeValidation), "unknown status", map[string]any{"field": "status", "value": s})
			return
		}
		f.Status = st
	}
	if s := strings.TrimSpace(r.URL.Query().Get("limit")); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 || v > maxListLimit {
			httpkit.WriteErr(w, http.StatusBadRequest, string(errors.CodeValidation), "limit must be between 1 and 200", map[string]any{"field": "limit"})
			return
		}
		f.Limit = v
	}

	jobs, err := h.store.List(ctx, f)
	if err != nil {
		h.log.FromContext(ctx).Error("job list failed", "error", err.Error())
		httpkit.WriteErr(w, http.StatusInternalServerError, string(errors.CodeInternal), "job list failed", nil)
		return
	}

	out := make([]jobView, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, viewOf(j))
	}
	httpkit.WriteJSON(w, http.StatusOK, map[string]any{
		"items": out,
		"limit": f.Limit,
	})
}

func writeJobNotFound(w http.ResponseWriter, jobID string) {
	httpkit.WriteErr(w, http.StatusNotFound, "JOB_NOT_FOUND", "job not found", map[string]any{"job_id": jobID})
}
