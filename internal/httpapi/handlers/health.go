package handlers

import (
	"context"
	"net/http"
	"time"

	"slidecast/internal/httpkit"
)

const healthCheckTimeout = 5 * time.Second

// queueLen is implemented by queues that can report their depth.
type queueLen interface {
	Len(ctx context.Context) (int64, error)
}

// Health performs a health check of the service.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.log.FromContext(ctx)

	health := map[string]any{
		"status":  "ok",
		"service": "slidecast",
		"version": h.version,
	}

	if r.URL.Query().Get("deep") == "true" {
		checks := h.deepHealthCheck(ctx)
		health["checks"] = checks

		for name, check := range checks {
			if check["status"] != "ok" {
				health["status"] = "degraded"
				log.Warn("health check degraded", "check", name, "result", check)
				break
			}
		}
	}

	httpkit.WriteJSON(w, http.StatusOK, health)
}

func (h *Handler) deepHealthCheck(ctx context.Context) map[string]map[string]any {
	checks := map[string]map[string]any{
		"store":   h.timed(ctx, h.store.Ping),
		"storage": {"status": "ok", "provider": h.sp.Provider()},
	}

	if h.pool != nil {
		pg := h.timed(ctx, h.pool.Ping)
		if pg["status"] == "ok" {
			stats := h.pool.Stat()
			pg["total_conns"] = stats.TotalConns()
			pg["idle_conns"] = stats.IdleConns()
			pg["acquired_conns"] = stats.AcquiredConns()
		}
		checks["postgres"] = pg
	}

	if h.rdb != nil {
		checks["redis"] = h.timed(ctx, func(ctx context.Context) error {
			return h.rdb.Ping(ctx).Err()
		})
	}

	if ql, ok := h.queue.(queueLen); ok {
		q := map[string]any{"status": "ok"}
		if n, err := ql.Len(ctx); err != nil {
			q["status"] = "error"
			q["error"] = err.Error()
		} else {
			q["depth"] = n
		}
		checks["queue"] = q
	}

	if h.ffmpegCheck != nil {
		checks["ffmpeg"] = h.timed(ctx, h.ffmpegCheck)
	}

	return checks
}

func (h *Handler) timed(ctx context.Context, check func(ctx context.Context) error) map[string]any {
	start := time.Now()
	result := map[string]any{"status": "ok"}

	checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := check(checkCtx); err != nil {
		result["status"] = "error"
		result["error"] = err.Error()
	}
	result["latency_ms"] = time.Since(start).Milliseconds()
	return result
}
