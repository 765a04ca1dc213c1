package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"slidecast/internal/bootstrap"
	"slidecast/internal/config"
	"slidecast/internal/httpapi"
	"slidecast/internal/httpapi/handlers"
	"slidecast/internal/pkg/logger"
	"slidecast/internal/pkg/shutdown"
	"slidecast/internal/slideshow"
)

const version = "0.1.0"

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault().LogFatal("invalid configuration", err)
	}

	log := bootstrap.NewLogger(cfg, "slidecast-api")
	log.Info("starting slidecast API",
		"version", version,
		"store", cfg.JobStore,
		"queue", cfg.JobQueue,
		"worker_inprocess", cfg.WorkerInProcess,
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
	if cfg.WorkerInProcess {
		if err := rt.FFmpeg.Check(ctx); err != nil {
			log.Warn("ffmpeg not usable, renders will fail", "error", err.Error())
		}
		rt.StartWorker(cfg, log, shutdownMgr)
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Handlers: handlers.Deps{
			Store:       rt.Store,
			Queue:       rt.Queue,
			SP:          rt.SP,
			Pool:        rt.Pool,
			RDB:         rt.RDB,
			FFmpegCheck: rt.FFmpeg.Check,
			Limits: slideshow.Limits{
				MinPhotos:     cfg.MinPhotos,
				MaxPhotos:     cfg.MaxPhotos,
				MaxPhotoBytes: cfg.MaxPhotoBytes,
				MaxAudioBytes: cfg.MaxAudioBytes,
			},
			SecondsPerImage:   cfg.SecondsPerImage,
			TransitionSeconds: cfg.TransitionSeconds,
			SignedURLTTL:      cfg.Host.SignedURLTTL,
			Version:           version,
		},
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RequestTimeout:     cfg.RequestTimeout,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RDB:                rt.RDB,
		Log:                log,
	})

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	shutdownMgr.Register("http-server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return server.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening", "addr", server.Addr, "public_base_url", cfg.PublicBaseURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogFatal("HTTP server failed", err)
		}
	}()

	shutdownMgr.Wait()
}
