package queue

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"slidecast/internal/ports"
)

var (
	_ ports.Queue = (*MemoryQueue)(nil)
	_ ports.Queue = (*RedisQueue)(nil)
)

func TestMemoryQueueFIFO(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(4)
	for _, id := range []string{"job_1", "job_2", "job_3"} {
		if err := q.Push(ctx, id); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}
	if n, _ := q.Len(ctx); n != 3 {
		t.Errorf("Len = %d", n)
	}
	for _, want := range []string{"job_1", "job_2", "job_3"} {
		got, err := q.Pop(ctx)
		if err != nil || got != want {
			t.Fatalf("Pop = %q, %v; want %q", got, err, want)
		}
	}
}

func TestMemoryQueueFull(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(1)
	_ = q.Push(ctx, "job_1")
	if err := q.Push(ctx, "job_2"); err == nil {
		t.Error("expected full queue error")
	}
}

func TestMemoryQueuePopHonorsContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := NewMemoryQueue(1).Pop(ctx); err == nil {
		t.Error("expected context error from empty queue")
	}
}

func TestRedisQueue(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	name := "slidecast:test:" + time.Now().Format("150405.000000")
	defer rdb.Del(ctx, name)

	q := NewRedisQueue(rdb, name)
	q.popTimeout = 100 * time.Millisecond

	if id, err := q.Pop(ctx); err != nil || id != "" {
		t.Fatalf("empty Pop = %q, %v", id, err)
	}
	_ = q.Push(ctx, "job_1")
	_ = q.Push(ctx, "job_2")
	if id, _ := q.Pop(ctx); id != "job_1" {
		t.Errorf("expected FIFO order, got %s", id)
	}
}
