package handlers

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"slidecast/internal/models"
	"slidecast/internal/pkg/logger"
	"slidecast/internal/ports"
	"slidecast/internal/slideshow"
)

type Deps struct {
	Store ports.JobStore
	Queue ports.Queue
	SP    ports.StorageProvider

	// Optional; reported by the deep health check when set.
	Pool        *pgxpool.Pool
	RDB         *redis.Client
	FFmpegCheck func(ctx context.Context) error

	Limits            slideshow.Limits
	SecondsPerImage   float64
	TransitionSeconds float64
	SignedURLTTL      time.Duration
	Version           string

	Log *logger.Logger
}

type Handler struct {
	store ports.JobStore
	queue ports.Queue
	sp    ports.StorageProvider

	pool        *pgxpool.Pool
	rdb         *redis.Client
	ffmpegCheck func(ctx context.Context) error

	limits            slideshow.Limits
	secondsPerImage   float64
	transitionSeconds float64
	signedURLTTL      time.Duration
	version           string

	log *logger.Logger
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	ttl := d.SignedURLTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	secondsPerImage, transitionSeconds := d.SecondsPerImage, d.TransitionSeconds
	if secondsPerImage <= 0 {
		secondsPerImage, transitionSeconds = models.DefaultSecondsPerImage, models.DefaultTransitionSeconds
	}
	version := d.Version
	if version == "" {
		version = "dev"
	}
	return &Handler{
		store:             d.Store,
		queue:             d.Queue,
		sp:                d.SP,
		pool:              d.Pool,
		rdb:               d.RDB,
		ffmpegCheck:       d.FFmpegCheck,
		limits:            d.Limits,
		secondsPerImage:   secondsPerImage,
		transitionSeconds: transitionSeconds,
		signedURLTTL:      ttl,
		version:           version,
		log:               log.WithComponent("api"),
	}
}
