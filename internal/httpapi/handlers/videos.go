package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"slidecast/internal/adapters/hosting/storagehost"
	"slidecast/internal/httpkit"
	"slidecast/internal/models"
	"slidecast/internal/pkg/errors"
	"slidecast/internal/pkg/ids"
	"slidecast/internal/ports"
)

// GetVideo serves a finished video kept in the storage provider. Providers
// that can sign URLs get a redirect; the rest are streamed. Videos published
// to an external host redirect to their hosted URL.
func (h *Handler) GetVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "jobId")
	log := h.log.FromContext(ctx).WithJobID(jobID)

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
		log.Error("job lookup failed", "error", err.Error())
		httpkit.WriteErr(w, http.StatusInternalServerError, string(errors.CodeInternal), "job lookup failed", nil)
		return
	}
	if job.Status != models.StatusDone || job.HostedVideoID == "" {
		httpkit.WriteErr(w, http.StatusNotFound, "VIDEO_NOT_READY", "video not available", map[string]any{
			"job_id": jobID,
			"status": job.Status,
		})
		return
	}
	if job.HostedVideoID != storagehost.ObjectKey(job.ID) {
		if job.VideoURL == "" {
			httpkit.WriteErr(w, http.StatusNotFound, "VIDEO_NOT_READY", "video not available", map[string]any{
				"job_id": jobID,
				"status": job.Status,
			})
			return
		}
		http.Redirect(w, r, job.VideoURL, http.StatusFound)
		return
	}

	signed, err := h.sp.GetSignedURL(ctx, job.HostedVideoID, h.signedURLTTL)
	if err == nil {
		http.Redirect(w, r, signed.URL, http.StatusFound)
		return
	}
	if !errors.Is(err, ports.ErrSignedURLUnsupported) {
		log.Warn("signing failed, streaming instead", "error", err.Error())
	}

	rc, ct, size, err := h.sp.GetObject(ctx, job.HostedVideoID)
	if err != nil {
		if errors.IsNotFound(err) {
			httpkit.WriteErr(w, http.StatusNotFound, "VIDEO_FILE_MISSING", "video file missing", map[string]any{"job_id": jobID})
			return
		}
		log.Error("video read failed", "error", err.Error())
		httpkit.WriteErr(w, http.StatusInternalServerError, string(errors.CodeInternal), "video read failed", nil)
		return
	}
	defer rc.Close()

	if ct == "" {
		ct = "video/mp4"
	}
	w.Header().Set("Content-Type", ct)

	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, jobID+".mp4", job.UpdatedAt, rs)
		return
	}
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	_, _ = io.Copy(w, rc)
}
