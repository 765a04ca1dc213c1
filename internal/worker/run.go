package worker

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"slidecast/internal/pkg/logger"
	"slidecast/internal/ports"
	"slidecast/internal/worker/processor"
)

// HandleFunc processes one dequeued job id.
type HandleFunc func(ctx context.Context, jobID string) error

// Pool runs a fixed number of consumers against a queue. Each consumer
// handles one job at a time, so at most Concurrency jobs are in flight.
type Pool struct {
	queue       ports.Queue
	handle      HandleFunc
	concurrency int
	log         *logger.Logger

	active atomic.Int64
	// retryDelay is the pause after a failed Pop.
	retryDelay time.Duration
}

func NewPool(q ports.Queue, concurrency int, handle HandleFunc, log *logger.Logger) *Pool {
	if concurrency <= 0 {
		concurrency = 1
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &Pool{
		queue:       q,
		handle:      handle,
		concurrency: concurrency,
		log:         log.WithComponent("worker"),
		retryDelay:  time.Second,
	}
}

// Active reports how many jobs are being processed right now.
func (p *Pool) Active() int64 { return p.active.Load() }

// Run blocks until ctx is canceled. Jobs in flight at that point see the
// cancellation and are recorded as failed by the processor.
func (p *Pool) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.concurrency; i++ {
		slot := i
		g.Go(func() error {
			p.consume(gctx, slot)
			return nil
		})
	}
	p.log.Info("worker pool started", "concurrency", p.concurrency)
	err := g.Wait()
	p.log.Info("worker pool stopped")
	return err
}

func (p *Pool) consume(ctx context.Context, slot int) {
	log := p.log.WithFields(map[string]any{"slot": slot})

	for {
		if ctx.Err() != nil {
			return
		}

		jobID, err := p.queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("queue pop error, retrying", "error", err.Error())
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.retryDelay):
			}
			continue
		}
		if jobID == "" {
			continue
		}

		jobCtx := logger.ContextWithJobID(ctx, jobID)
		jobLog := log.WithJobID(jobID)
		jobLog.Info("processing job")
		start := time.Now()

		p.active.Add(1)
		err = p.handle(jobCtx, jobID)
		p.active.Add(-1)

		if err != nil {
			jobLog.Error("job failed",
				"error", err.Error(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		} else {
			jobLog.Info("job finished", "duration_ms", time.Since(start).Milliseconds())
		}
	}
}

// Run starts the worker pool and the janitor and blocks until ctx is
// canceled.
func Run(ctx context.Context, d Deps) error {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}

	p := processor.New(processor.Deps{
		Store:             d.Store,
		SP:                d.SP,
		Host:              d.Host,
		Renderer:          d.Renderer,
		Notifier:          d.Notifier,
		WorkDir:           d.WorkDir,
		KeepWorkDir:       d.KeepWorkDir,
		UploadTimeout:     d.UploadTimeout,
		SecondsPerImage:   d.SecondsPerImage,
		TransitionSeconds: d.TransitionSeconds,
		Log:               log,
	})
	pool := NewPool(d.Queue, d.Concurrency, p.ProcessJob, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return pool.Run(gctx) })
	if d.JanitorInterval > 0 {
		j := NewJanitor(d.Store, d.SP, p.Cleanup(), d.VideosOnStorage, log)
		g.Go(func() error { return j.Run(gctx, d.JanitorInterval) })
	}
	return g.Wait()
}
