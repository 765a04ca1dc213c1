package queue

import (
	"context"
	"fmt"
)

// MemoryQueue is a buffered channel for single process deployments.
type MemoryQueue struct {
	ch chan string
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 256
	}
	return &MemoryQueue{ch: make(chan string, capacity)}
}

// Push fails instead of blocking when the buffer is full so the API can
// reject the upload.
func (q *MemoryQueue) Push(ctx context.Context, jobID string) error {
	select {
	case q.ch <- jobID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("queue full (%d jobs)", cap(q.ch))
	}
}

func (q *MemoryQueue) Pop(ctx context.Context) (string, error) {
	select {
	case id := <-q.ch:
		return id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (q *MemoryQueue) Len(ctx context.Context) (int64, error) {
	return int64(len(q.ch)), nil
}
