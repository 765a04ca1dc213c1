// Package config loads the slidecast configuration from the environment.
//
// Both binaries read the same keys; cmd/api and cmd/worker call
// godotenv.Load first so a local .env file can supply them in development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"slidecast/internal/models"
)

// Job store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Queue backends.
const (
	QueueMemory = "memory"
	QueueRedis  = "redis"
)

// Storage providers for uploaded inputs.
const (
	StorageLocalFS = "localfs"
	StorageGDrive  = "gdrive"
	StorageS3      = "s3"
)

// Video hosts for finished renders.
const (
	HostAPIVideo = "apivideo"
	HostGDrive   = "gdrive"
	HostStorage  = "storage"
)

// Config is the full service configuration.
type Config struct {
	HTTPPort           string
	PublicBaseURL      string
	CORSAllowedOrigins []string
	RequestTimeout     time.Duration
	RateLimitPerMinute int

	LogLevel  string
	LogFormat string
	LogSource bool

	DatabaseURL string
	RedisAddr   string

	JobStore     string
	JobQueue     string
	JobQueueName string
	JobTTL       time.Duration

	WorkerConcurrency int
	WorkerInProcess   bool
	JobTimeout        time.Duration
	KillGrace         time.Duration
	UploadTimeout     time.Duration
	JanitorInterval   time.Duration

	MinPhotos     int
	MaxPhotos     int
	MaxPhotoBytes int64
	MaxAudioBytes int64

	SecondsPerImage   float64
	TransitionSeconds float64
	FFmpegBin         string
	WorkDir           string
	KeepWorkDir       bool

	Storage StorageConfig
	Host    HostConfig

	WebhookURL     string
	WebhookSecret  string
	WebhookTimeout time.Duration
}

// StorageConfig selects and configures the input StorageProvider.
type StorageConfig struct {
	Provider  string
	LocalRoot string

	GDriveClientID     string
	GDriveClientSecret string
	GDriveRefreshToken string
	GDriveFolderID     string

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool
	S3Region    string
}

// HostConfig selects and configures the VideoHost.
type HostConfig struct {
	Provider string

	APIVideoBaseURL string
	APIVideoKey     string
	UploadAttempts  int

	GDriveFolderID string
	GDrivePublic   bool

	SignedURLTTL time.Duration
}

// Default returns the configuration used when no variables are set.
func Default() Config {
	return Config{
		HTTPPort: "8080",
		CORSAllowedOrigins: []string{
			"http://localhost:8081",
			"http://localhost:19006",
		},
		RequestTimeout:     30 * time.Second,
		RateLimitPerMinute: 30,

		LogLevel:  "info",
		LogFormat: "json",

		JobStore:     StoreMemory,
		JobQueue:     QueueMemory,
		JobQueueName: "slidecast:renders",
		JobTTL:       24 * time.Hour,

		WorkerConcurrency: 2,
		WorkerInProcess:   true,
		JobTimeout:        5 * time.Minute,
		KillGrace:         5 * time.Second,
		UploadTimeout:     10 * time.Minute,
		JanitorInterval:   10 * time.Minute,

		MinPhotos:     3,
		MaxPhotos:     8,
		MaxPhotoBytes: 15 << 20,
		MaxAudioBytes: 25 << 20,

		SecondsPerImage:   models.DefaultSecondsPerImage,
		TransitionSeconds: models.DefaultTransitionSeconds,
		FFmpegBin:         "ffmpeg",
		WorkDir:           os.TempDir() + "/slidecast",

		Storage: StorageConfig{
			Provider:  StorageLocalFS,
			LocalRoot: "./data",
			S3Region:  "us-east-1",
		},
		Host: HostConfig{
			Provider:        HostStorage,
			APIVideoBaseURL: "https://ws.api.video",
			UploadAttempts:  3,
			GDrivePublic:    true,
			SignedURLTTL:    7 * 24 * time.Hour,
		},

		WebhookTimeout: 10 * time.Second,
	}
}

// Load reads the environment on top of Default and validates the result.
func Load() (Config, error) {
	c := Default()

	c.HTTPPort = Env("HTTP_PORT", c.HTTPPort)
	c.PublicBaseURL = strings.TrimRight(Env("PUBLIC_BASE_URL", "http://localhost:"+c.HTTPPort), "/")
	c.CORSAllowedOrigins = CSVEnv("CORS_ALLOWED_ORIGINS", c.CORSAllowedOrigins)
	c.RequestTimeout = DurationEnv("REQUEST_TIMEOUT", c.RequestTimeout)
	c.RateLimitPerMinute = IntEnv("RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute)

	c.LogLevel = Env("LOG_LEVEL", c.LogLevel)
	c.LogFormat = Env("LOG_FORMAT", c.LogFormat)
	c.LogSource = BoolEnv("LOG_SOURCE", c.LogSource)

	c.DatabaseURL = Env("DATABASE_URL", "")
	c.RedisAddr = Env("REDIS_ADDR", "")

	c.JobStore = strings.ToLower(Env("JOB_STORE", c.JobStore))
	c.JobQueue = strings.ToLower(Env("JOB_QUEUE", c.JobQueue))
	c.JobQueueName = Env("JOB_QUEUE_NAME", c.JobQueueName)
	c.JobTTL = DurationEnv("JOB_TTL", c.JobTTL)

	c.WorkerConcurrency = IntEnv("WORKER_CONCURRENCY", c.WorkerConcurrency)
	c.WorkerInProcess = BoolEnv("WORKER_INPROCESS", c.WorkerInProcess)
	c.JobTimeout = DurationEnv("JOB_TIMEOUT", c.JobTimeout)
	c.KillGrace = DurationEnv("JOB_KILL_GRACE", c.KillGrace)
	c.UploadTimeout = DurationEnv("UPLOAD_TIMEOUT", c.UploadTimeout)
	c.JanitorInterval = DurationEnv("JANITOR_INTERVAL", c.JanitorInterval)

	c.MinPhotos = IntEnv("MIN_PHOTOS", c.MinPhotos)
	c.MaxPhotos = IntEnv("MAX_PHOTOS", c.MaxPhotos)
	c.MaxPhotoBytes = int64(IntEnv("MAX_PHOTO_BYTES", int(c.MaxPhotoBytes)))
	c.MaxAudioBytes = int64(IntEnv("MAX_AUDIO_BYTES", int(c.MaxAudioBytes)))

	c.SecondsPerImage = FloatEnv("SECONDS_PER_IMAGE", c.SecondsPerImage)
	c.TransitionSeconds = FloatEnv("TRANSITION_SECONDS", c.TransitionSeconds)
	c.FFmpegBin = Env("FFMPEG_BIN", c.FFmpegBin)
	c.WorkDir = Env("WORK_DIR", c.WorkDir)
	c.KeepWorkDir = BoolEnv("KEEP_WORK_DIR", c.KeepWorkDir)

	c.Storage.Provider = strings.ToLower(Env("STORAGE_PROVIDER", c.Storage.Provider))
	c.Storage.LocalRoot = Env("STORAGE_LOCAL_ROOT", c.Storage.LocalRoot)
	c.Storage.GDriveClientID = Env("GDRIVE_CLIENT_ID", "")
	c.Storage.GDriveClientSecret = Env("GDRIVE_CLIENT_SECRET", "")
	c.Storage.GDriveRefreshToken = Env("GDRIVE_REFRESH_TOKEN", "")
	c.Storage.GDriveFolderID = Env("GDRIVE_FOLDER_ID", "")
	c.Storage.S3Endpoint = Env("S3_ENDPOINT", "")
	c.Storage.S3AccessKey = Env("S3_ACCESS_KEY", "")
	c.Storage.S3SecretKey = Env("S3_SECRET_KEY", "")
	c.Storage.S3Bucket = Env("S3_BUCKET", "")
	c.Storage.S3UseSSL = BoolEnv("S3_USE_SSL", c.Storage.S3UseSSL)
	c.Storage.S3Region = Env("S3_REGION", c.Storage.S3Region)

	c.Host.Provider = strings.ToLower(Env("VIDEO_HOST", c.Host.Provider))
	c.Host.APIVideoBaseURL = strings.TrimRight(Env("APIVIDEO_BASE_URL", c.Host.APIVideoBaseURL), "/")
	c.Host.APIVideoKey = Env("APIVIDEO_API_KEY", "")
	c.Host.UploadAttempts = IntEnv("UPLOAD_ATTEMPTS", c.Host.UploadAttempts)
	c.Host.GDriveFolderID = Env("GDRIVE_VIDEO_FOLDER_ID", c.Storage.GDriveFolderID)
	c.Host.GDrivePublic = BoolEnv("GDRIVE_VIDEO_PUBLIC", c.Host.GDrivePublic)
	c.Host.SignedURLTTL = DurationEnv("SIGNED_URL_TTL", c.Host.SignedURLTTL)

	c.WebhookURL = Env("WEBHOOK_URL", "")
	c.WebhookSecret = Env("WEBHOOK_SECRET", "")
	c.WebhookTimeout = DurationEnv("WEBHOOK_TIMEOUT", c.WebhookTimeout)

	return c, c.Validate()
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	switch c.JobStore {
	case StoreMemory:
		if !c.WorkerInProcess {
			return fmt.Errorf("JOB_STORE=memory requires WORKER_INPROCESS=true")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("JOB_STORE=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown JOB_STORE: %s", c.JobStore)
	}

	switch c.JobQueue {
	case QueueMemory:
		if !c.WorkerInProcess {
			return fmt.Errorf("JOB_QUEUE=memory requires WORKER_INPROCESS=true")
		}
	case QueueRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("JOB_QUEUE=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unknown JOB_QUEUE: %s", c.JobQueue)
	}

	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be >= 1, got %d", c.WorkerConcurrency)
	}
	if c.MinPhotos < 1 || c.MaxPhotos < c.MinPhotos {
		return fmt.Errorf("photo bounds invalid: min=%d max=%d", c.MinPhotos, c.MaxPhotos)
	}
	if c.JobTimeout <= 0 {
		return fmt.Errorf("JOB_TIMEOUT must be positive")
	}
	if c.KillGrace <= 0 {
		return fmt.Errorf("JOB_KILL_GRACE must be positive")
	}
	if c.SecondsPerImage <= 0 {
		return fmt.Errorf("SECONDS_PER_IMAGE must be positive")
	}
	if c.TransitionSeconds < 0 || c.TransitionSeconds >= c.SecondsPerImage {
		return fmt.Errorf("TRANSITION_SECONDS must be in [0, SECONDS_PER_IMAGE)")
	}

	switch c.Storage.Provider {
	case StorageLocalFS:
		if c.Storage.LocalRoot == "" {
			return fmt.Errorf("STORAGE_LOCAL_ROOT is required for localfs")
		}
	case StorageGDrive:
		if c.Storage.GDriveClientID == "" || c.Storage.GDriveClientSecret == "" || c.Storage.GDriveRefreshToken == "" {
			return fmt.Errorf("gdrive storage requires GDRIVE_CLIENT_ID, GDRIVE_CLIENT_SECRET and GDRIVE_REFRESH_TOKEN")
		}
	case StorageS3:
		if c.Storage.S3Endpoint == "" || c.Storage.S3Bucket == "" {
			return fmt.Errorf("s3 storage requires S3_ENDPOINT and S3_BUCKET")
		}
	default:
		return fmt.Errorf("unknown STORAGE_PROVIDER: %s", c.Storage.Provider)
	}

	switch c.Host.Provider {
	case HostAPIVideo:
		if c.Host.APIVideoKey == "" {
			return fmt.Errorf("VIDEO_HOST=apivideo requires APIVIDEO_API_KEY")
		}
	case HostGDrive:
		if c.Storage.GDriveClientID == "" || c.Storage.GDriveRefreshToken == "" {
			return fmt.Errorf("VIDEO_HOST=gdrive requires the GDRIVE_* credentials")
		}
	case HostStorage:
	default:
		return fmt.Errorf("unknown VIDEO_HOST: %s", c.Host.Provider)
	}

	return nil
}

// NeedsRedis reports whether any component talks to Redis.
func (c Config) NeedsRedis() bool {
	return c.JobQueue == QueueRedis || c.RedisAddr != ""
}

// Env gets an environment variable with a default value.
func Env(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

// BoolEnv reads an env var as bool. If empty or invalid, returns def.
func BoolEnv(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// IntEnv reads an env var as int. If empty or invalid, returns def.
func IntEnv(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// FloatEnv reads an env var as float64. If empty or invalid, returns def.
func FloatEnv(k string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// DurationEnv reads an env var as a Go duration ("90s", "5m"). A bare
// integer is taken as seconds.
func DurationEnv(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// CSVEnv splits a comma separated env var, dropping empty items.
func CSVEnv(k string, def []string) []string {
	raw := strings.TrimSpace(os.Getenv(k))
	if raw == "" {
		return def
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
