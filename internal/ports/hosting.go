package ports

import "context"

// HostedUpload is a finished render waiting to be published.
type HostedUpload struct {
	JobID       string
	Path        string
	FileName    string
	ContentType string
	Size        int64
	Title       string
}

type HostedVideo struct {
	ID  string
	URL string
}

// VideoHost publishes a finished render and returns where it plays.
type VideoHost interface {
	Name() string
	Upload(ctx context.Context, in HostedUpload) (HostedVideo, error)
}
