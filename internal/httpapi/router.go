package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"slidecast/internal/httpapi/handlers"
	"slidecast/internal/httpkit"
	"slidecast/internal/pkg/logger"
	"slidecast/internal/pkg/middleware"
)

type Deps struct {
	Handlers handlers.Deps

	CORSAllowedOrigins []string
	RequestTimeout     time.Duration
	// RateLimitPerMinute caps POST /renders per client; needs RDB.
	RateLimitPerMinute int
	RDB                *redis.Client

	Log *logger.Logger
}

func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	if d.Handlers.Log == nil {
		d.Handlers.Log = log
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(middleware.Recovery(log))
	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins: d.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		MaxAgeSeconds:  600,
	}))

	h := handlers.New(d.Handlers)

	// Uploads stream large bodies and are left out of the request timeout.
	r.With(middleware.RateLimit(middleware.RateLimitConfig{
		Redis:     d.RDB,
		Limit:     d.RateLimitPerMinute,
		Window:    time.Minute,
		KeyPrefix: "slidecast:rl:renders:",
	}, log)).Post("/renders", middleware.WrapHandler(log, h.PostRender))

	r.Group(func(r chi.Router) {
		if d.RequestTimeout > 0 {
			r.Use(middleware.Timeout(d.RequestTimeout))
		}

		// ---- HEALTH ----
		r.Get("/health", h.Health)

		// ---- RENDERS ----
		r.Get("/renders", h.ListRenders)
		r.Get("/renders/{jobId}", h.GetRender)
	})

	// ---- VIDEOS ----
	r.Get("/videos/{jobId}", h.GetVideo)

	return r
}
