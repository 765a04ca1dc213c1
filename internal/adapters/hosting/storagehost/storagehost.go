// Package storagehost keeps finished renders in the configured
// StorageProvider and serves them through the API.
package storagehost

import (
	"context"
	"os"
	"strings"

	"slidecast/internal/ports"
)

// Host writes videos under videos/ in the storage provider. The returned
// URL points at GET /videos/{jobId}, which streams the object or redirects
// to a signed URL when the provider supports one.
type Host struct {
	sp      ports.StorageProvider
	baseURL string
}

func New(sp ports.StorageProvider, publicBaseURL string) *Host {
	return &Host{sp: sp, baseURL: strings.TrimRight(publicBaseURL, "/")}
}

func (h *Host) Name() string { return "storage:" + h.sp.Provider() }

// ObjectKey is where the video of jobID is stored.
func ObjectKey(jobID string) string {
	return "videos/" + jobID + ".mp4"
}

func (h *Host) Upload(ctx context.Context, in ports.HostedUpload) (ports.HostedVideo, error) {
	f, err := os.Open(in.Path)
	if err != nil {
		return ports.HostedVideo{}, err
	}
	defer f.Close()

	contentType := in.ContentType
	if contentType == "" {
		contentType = "video/mp4"
	}
	out, err := h.sp.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   ObjectKey(in.JobID),
		ContentType: contentType,
		Reader:      f,
		Size:        in.Size,
	})
	if err != nil {
		return ports.HostedVideo{}, err
	}

	return ports.HostedVideo{ID: out.ObjectKey, URL: h.baseURL + "/videos/" + in.JobID}, nil
}
