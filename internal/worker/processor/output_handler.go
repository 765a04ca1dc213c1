package processor

import (
	"context"
	"os"
	"time"

	"slidecast/internal/pkg/errors"
	"slidecast/internal/ports"
)

type OutputHandler struct {
	host    ports.VideoHost
	timeout time.Duration
}

func NewOutputHandler(host ports.VideoHost, timeout time.Duration) *OutputHandler {
	return &OutputHandler{host: host, timeout: timeout}
}

// Publish uploads the rendered file to the video host. Every failure is
// UPLOAD_FAILED so clients can tell it apart from a transcode failure.
func (oh *OutputHandler) Publish(ctx context.Context, jobID, outputPath string) (ports.HostedVideo, error) {
	const op = "processor.publish"

	st, err := os.Stat(outputPath)
	if err != nil {
		return ports.HostedVideo{}, errors.WrapWithCode(err, errors.CodeUploadFailed, op, "rendered file missing")
	}

	if oh.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, oh.timeout)
		defer cancel()
	}

	hosted, err := oh.host.Upload(ctx, ports.HostedUpload{
		JobID:       jobID,
		Path:        outputPath,
		FileName:    jobID + ".mp4",
		ContentType: "video/mp4",
		Size:        st.Size(),
		Title:       "Slideshow " + jobID,
	})
	if err != nil {
		return ports.HostedVideo{}, errors.WrapWithCode(err, errors.CodeUploadFailed, op, "upload to "+oh.host.Name()+" failed")
	}
	if hosted.URL == "" {
		return ports.HostedVideo{}, errors.New(errors.CodeUploadFailed, oh.host.Name()+" returned no playback url")
	}
	return hosted, nil
}
