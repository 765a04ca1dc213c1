package ports

import "context"

// Queue carries job ids from the API to the workers.
type Queue interface {
	Push(ctx context.Context, jobID string) error
	// Pop blocks until an id is available or ctx is done.
	Pop(ctx context.Context) (string, error)
}
