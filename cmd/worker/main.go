package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"

	"slidecast/internal/bootstrap"
	"slidecast/internal/config"
	"slidecast/internal/pkg/logger"
	"slidecast/internal/pkg/shutdown"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault().LogFatal("invalid configuration", err)
	}
	if cfg.JobStore != config.StorePostgres || cfg.JobQueue != config.QueueRedis {
		logger.NewDefault().Error("standalone worker needs JOB_STORE=postgres and JOB_QUEUE=redis",
			"store", cfg.JobStore, "queue", cfg.JobQueue)
		os.Exit(1)
	}

	log := bootstrap.NewLogger(cfg, "slidecast-worker")
	log.Info("starting slidecast worker",
		"concurrency", cfg.WorkerConcurrency,
		"job_timeout", cfg.JobTimeout.String(),
	)

	ctx := context.Background()
	shutdownMgr := shutdown.NewManager(log, 30*time.Second+cfg.KillGrace)

	rt, err := bootstrap.Open(ctx, cfg, log, shutdownMgr)
	if err != nil {
		log.LogFatal("failed to initialize backends", err)
	}
	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		log.LogFatal("failed to create work dir", err, "dir", cfg.WorkDir)
	}
	if err := rt.FFmpeg.Check(ctx); err != nil {
		log.LogFatal("ffmpeg not usable", err, "binary", cfg.FFmpegBin)
	}

	rt.StartWorker(cfg, log, shutdownMgr)
	shutdownMgr.Wait()
}
