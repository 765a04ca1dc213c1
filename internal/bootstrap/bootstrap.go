// Package bootstrap connects the backends selected by config. cmd/api and
// cmd/worker share it so both processes agree on store, queue and storage.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"slidecast/internal/adapters/jobstore/memory"
	"slidecast/internal/adapters/jobstore/postgres"
	"slidecast/internal/config"
	"slidecast/internal/notify"
	"slidecast/internal/pkg/logger"
	"slidecast/internal/pkg/shutdown"
	"slidecast/internal/ports"
	"slidecast/internal/storage"
	"slidecast/internal/transcode"
	"slidecast/internal/worker"
	"slidecast/internal/worker/queue"
)

// Runtime holds the connected backends.
type Runtime struct {
	Pool     *pgxpool.Pool
	RDB      *redis.Client
	Store    ports.JobStore
	Queue    ports.Queue
	SP       storage.Provider
	Host     ports.VideoHost
	FFmpeg   *transcode.FFmpeg
	Notifier notify.Notifier
}

// NewLogger builds the service logger from config.
func NewLogger(cfg config.Config, service string) *logger.Logger {
	return logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		AddSource:   cfg.LogSource,
		Output:      os.Stdout,
		ServiceName: service,
	})
}

// Open connects every backend cfg selects and registers its cleanup with
// mgr.
func Open(ctx context.Context, cfg config.Config, log *logger.Logger, mgr *shutdown.Manager) (*Runtime, error) {
	rt := &Runtime{}

	if cfg.JobStore == config.StorePostgres {
		log.Info("connecting to PostgreSQL")
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		mgr.RegisterSimple("postgres", pool.Close)
		if err := pool.Ping(ctx); err != nil {
			return nil, fmt.Errorf("postgres ping: %w", err)
		}
		store := postgres.New(pool, cfg.JobTTL)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("postgres schema: %w", err)
		}
		log.Info("PostgreSQL connected")
		rt.Pool = pool
		rt.Store = store
	} else {
		rt.Store = memory.New(cfg.JobTTL)
	}

	if cfg.NeedsRedis() {
		log.Info("connecting to Redis")
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		mgr.Register("redis", func(ctx context.Context) error { return rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		log.Info("Redis connected")
		rt.RDB = rdb
	}

	if cfg.JobQueue == config.QueueRedis {
		rt.Queue = queue.NewRedisQueue(rt.RDB, cfg.JobQueueName)
	} else {
		rt.Queue = queue.NewMemoryQueue(0)
	}

	sp, err := storage.NewProvider(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	rt.SP = sp
	log.Info("storage provider initialized", "provider", sp.Provider())

	host, err := storage.NewVideoHost(ctx, cfg, sp, log)
	if err != nil {
		return nil, fmt.Errorf("video host: %w", err)
	}
	rt.Host = host
	log.Info("video host initialized", "host", host.Name())

	rt.FFmpeg = transcode.New(cfg.FFmpegBin, cfg.JobTimeout, cfg.KillGrace, log)
	rt.Notifier = notify.New(notify.Options{
		URL:    cfg.WebhookURL,
		Secret: cfg.WebhookSecret,
		Client: &http.Client{Timeout: cfg.WebhookTimeout},
	}, log)

	return rt, nil
}

// WorkerDeps wires the runtime into the worker pool.
func (rt *Runtime) WorkerDeps(cfg config.Config, log *logger.Logger) worker.Deps {
	return worker.Deps{
		Store:             rt.Store,
		Queue:             rt.Queue,
		SP:                rt.SP,
		Host:              rt.Host,
		Renderer:          rt.FFmpeg,
		Notifier:          rt.Notifier,
		Concurrency:       cfg.WorkerConcurrency,
		WorkDir:           cfg.WorkDir,
		KeepWorkDir:       cfg.KeepWorkDir,
		UploadTimeout:     cfg.UploadTimeout,
		SecondsPerImage:   cfg.SecondsPerImage,
		TransitionSeconds: cfg.TransitionSeconds,
		JanitorInterval:   cfg.JanitorInterval,
		VideosOnStorage:   cfg.Host.Provider == config.HostStorage,
		Log:               log,
	}
}

// StartWorker runs the worker pool until shutdown. If the pool stops on
// its own the whole process is asked to stop.
func (rt *Runtime) StartWorker(cfg config.Config, log *logger.Logger, mgr *shutdown.Manager) {
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		if err := worker.Run(ctx, rt.WorkerDeps(cfg, log)); err != nil {
			log.Error("worker stopped with error", "error", err.Error())
		}
		if ctx.Err() == nil {
			mgr.Stop()
		}
	}()

	mgr.Register("worker-pool", func(sctx context.Context) error {
		cancel()
		select {
		case <-stopped:
			return nil
		case <-sctx.Done():
			return sctx.Err()
		}
	})
}
