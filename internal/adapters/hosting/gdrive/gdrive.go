// Package gdrive publishes renders as shared Google Drive files.
package gdrive

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"slidecast/internal/ports"
)

type Host struct {
	srv      *drive.Service
	folderID string
	public   bool
}

// New returns a Drive host. When public is set every upload gets an
// "anyone with the link" reader permission.
func New(srv *drive.Service, folderID string, public bool) *Host {
	return &Host{srv: srv, folderID: folderID, public: public}
}

func (h *Host) Name() string { return "gdrive" }

func (h *Host) Upload(ctx context.Context, in ports.HostedUpload) (ports.HostedVideo, error) {
	f, err := os.Open(in.Path)
	if err != nil {
		return ports.HostedVideo{}, err
	}
	defer f.Close()

	name := in.FileName
	if name == "" {
		name = in.JobID + ".mp4"
	}
	contentType := in.ContentType
	if contentType == "" {
		contentType = "video/mp4"
	}

	file := &drive.File{Name: name, MimeType: contentType, Description: in.Title}
	if h.folderID != "" {
		file.Parents = []string{h.folderID}
	}

	created, err := h.srv.Files.Create(file).
		Media(f, googleapi.ContentType(contentType)).
		Fields("id", "webViewLink").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return ports.HostedVideo{}, fmt.Errorf("gdrive create: %w", err)
	}

	if h.public {
		_, err = h.srv.Permissions.Create(created.Id, &drive.Permission{Type: "anyone", Role: "reader"}).
			SupportsAllDrives(true).
			Context(ctx).
			Do()
		if err != nil {
			return ports.HostedVideo{}, fmt.Errorf("gdrive share: %w", err)
		}
	}

	link := created.WebViewLink
	if link == "" {
		link = "https://drive.google.com/file/d/" + created.Id + "/view"
	}
	return ports.HostedVideo{ID: created.Id, URL: link}, nil
}
