package handlers

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"slidecast/internal/httpkit"
	"slidecast/internal/models"
	"slidecast/internal/pkg/errors"
	"slidecast/internal/pkg/ids"
	"slidecast/internal/ports"
	"slidecast/internal/slideshow"
)

// multipartMemory is how much of a multipart body is kept in memory; the
// rest spills to temp files.
const multipartMemory = 32 << 20

// PostRender accepts photos, an optional audio track and render options,
// stores the inputs and queues a render job. Everything is validated
// before the first storage write.
func (h *Handler) PostRender(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	if limit := h.maxBody(); limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return errors.New(errors.CodePayloadTooLarge, "request body too large").WithField("limit", mbe.Limit)
		}
		return errors.ValidationField("body", "invalid multipart form")
	}
	defer r.MultipartForm.RemoveAll()

	opts, err := h.parseOptions(r)
	if err != nil {
		return err
	}

	photoHeaders := r.MultipartForm.File["photos"]
	photos, err := describeAll(photoHeaders)
	if err != nil {
		return err
	}
	if err := h.limits.ValidatePhotos(photos); err != nil {
		return err
	}

	audioHeaders := r.MultipartForm.File["audio"]
	if len(audioHeaders) > 1 {
		return errors.ValidationField("audio", "at most one audio file is allowed")
	}
	var audio *slideshow.File
	if len(audioHeaders) == 1 {
		f, err := describe(audioHeaders[0])
		if err != nil {
			return err
		}
		audio = &f
	}
	if err := h.limits.ValidateAudio(audio); err != nil {
		return err
	}

	jobID := ids.NewID(ids.JobPrefix)
	log := h.log.FromContext(ctx).WithJobID(jobID)

	job := &models.RenderJob{ID: jobID, Options: opts}
	var written []string
	rollback := func() {
		for _, k := range written {
			if err := h.sp.DeleteObject(context.WithoutCancel(ctx), k); err != nil && !errors.IsNotFound(err) {
				log.Warn("input rollback failed", "object_key", k, "error", err.Error())
			}
		}
	}

	for i, fh := range photoHeaders {
		key := fmt.Sprintf("uploads/%s/photo_%02d%s", jobID, i, slideshow.Ext(photos[i].ContentType))
		stored, err := h.putPart(ctx, fh, key, photos[i].ContentType)
		if err != nil {
			rollback()
			return errors.Wrap(err, "api.upload", "failed to store photo").WithField("index", i)
		}
		written = append(written, stored)
		job.PhotoKeys = append(job.PhotoKeys, stored)
	}
	if audio != nil {
		ct := slideshow.AudioType(*audio)
		stored, err := h.putPart(ctx, audioHeaders[0], "uploads/"+jobID+"/audio"+slideshow.Ext(ct), ct)
		if err != nil {
			rollback()
			return errors.Wrap(err, "api.upload", "failed to store audio")
		}
		written = append(written, stored)
		job.AudioKey = stored
	}

	if err := h.store.Create(ctx, job); err != nil {
		rollback()
		return errors.Wrap(err, "api.create", "failed to create job")
	}

	if err := h.queue.Push(ctx, jobID); err != nil {
		fctx := context.WithoutCancel(ctx)
		if _, aerr := h.store.Advance(fctx, jobID, ports.Transition{
			To:           models.StatusFailed,
			ErrorCode:    string(errors.CodeInputFailed),
			ErrorMessage: "job could not be queued",
		}); aerr != nil {
			log.Warn("failed to mark unqueued job", "error", aerr.Error())
		}
		rollback()
		return errors.WrapWithCode(err, errors.CodeUnavailable, "api.enqueue", "render queue unavailable")
	}

	log.Info("render job queued",
		"photos", len(job.PhotoKeys),
		"audio", job.AudioKey != "",
		"transition", opts.Transition,
		"quality", opts.Quality,
	)

	w.Header().Set("Location", "/renders/"+jobID)
	httpkit.WriteJSON(w, http.StatusAccepted, map[string]any{
		"job": map[string]any{
			"id":     jobID,
			"status": models.StatusQueued,
		},
	})
	return nil
}

// parseOptions reads the optional "config" JSON part, then lets plain
// form fields override it.
func (h *Handler) parseOptions(r *http.Request) (models.RenderOptions, error) {
	var opts models.RenderOptions

	if raw := strings.TrimSpace(r.FormValue("config")); raw != "" {
		if err := httpkit.DecodeJSONBytes([]byte(raw), &opts); err != nil {
			return opts, errors.ValidationField("config", "config must be a JSON object: "+err.Error())
		}
	}
	if v := strings.TrimSpace(r.FormValue("transition")); v != "" {
		opts.Transition = v
	}
	if v := strings.TrimSpace(r.FormValue("quality")); v != "" {
		opts.Quality = v
	}
	if v := strings.TrimSpace(r.FormValue("webhook_url")); v != "" {
		opts.WebhookURL = v
	}
	if v := strings.TrimSpace(r.FormValue("seconds_per_image")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, errors.ValidationField("seconds_per_image", "seconds_per_image must be a number")
		}
		opts.SecondsPerImage = f
	}

	opts.Normalize(h.secondsPerImage, h.transitionSeconds)
	if err := opts.Validate(); err != nil {
		return opts, errors.ValidationField("config", err.Error())
	}
	return opts, nil
}

func (h *Handler) putPart(ctx context.Context, fh *multipart.FileHeader, key, contentType string) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	out, err := h.sp.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   key,
		ContentType: contentType,
		Reader:      f,
		Size:        fh.Size,
	})
	if err != nil {
		return "", err
	}
	return out.ObjectKey, nil
}

func (h *Handler) maxBody() int64 {
	l := h.limits
	if l.MaxPhotos <= 0 || l.MaxPhotoBytes <= 0 {
		return 0
	}
	return int64(l.MaxPhotos)*l.MaxPhotoBytes + l.MaxAudioBytes + 1<<20
}

func describeAll(headers []*multipart.FileHeader) ([]slideshow.File, error) {
	out := make([]slideshow.File, 0, len(headers))
	for _, fh := range headers {
		f, err := describe(fh)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// describe sniffs the part's content; the client's Content-Type is ignored.
func describe(fh *multipart.FileHeader) (slideshow.File, error) {
	f, err := fh.Open()
	if err != nil {
		return slideshow.File{}, errors.ValidationField("file", "unreadable upload part").WithField("name", fh.Filename)
	}
	defer f.Close()

	ct, err := slideshow.Sniff(f)
	if err != nil {
		return slideshow.File{}, errors.ValidationField("file", "unreadable upload part").WithField("name", fh.Filename)
	}
	return slideshow.File{Name: fh.Filename, Size: fh.Size, ContentType: ct}, nil
}
