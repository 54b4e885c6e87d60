package handlers

import (
	"context"
	"net/http"
	"time"

	"lienzo/internal/httpkit"
	"lienzo/internal/storage"
)

const checkTimeout = 5 * time.Second

// Health performs a health check of the service.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.log.FromContext(ctx)

	health := map[string]any{
		"status":  "ok",
		"service": "lienzo-api",
		"version": "0.1.0",
	}

	if r.URL.Query().Get("deep") == "true" {
		checks := h.deepHealthCheck(ctx)
		health["checks"] = checks

		for _, check := range checks {
			if check["status"] != "ok" {
				health["status"] = "degraded"
				log.Warn("health check degraded", "checks", checks)
				break
			}
		}
	}

	httpkit.WriteJSON(w, 200, health)
}

func (h *Handler) deepHealthCheck(ctx context.Context) map[string]map[string]any {
	checks := make(map[string]map[string]any)

	if h.pool != nil {
		checks["postgres"] = h.checkPostgres(ctx)
	}
	if h.rdb != nil {
		checks["redis"] = h.checkRedis(ctx)
	}
	if p, ok := h.queue.(storage.Pinger); ok {
		checks["queue"] = timedCheck(ctx, p.Ping)
	}
	checks["storage"] = h.checkStorage(ctx)

	return checks
}

func (h *Handler) checkPostgres(ctx context.Context) map[string]any {
	result := timedCheck(ctx, h.pool.Ping)
	if result["status"] == "ok" {
		stats := h.pool.Stat()
		result["total_conns"] = stats.TotalConns()
		result["idle_conns"] = stats.IdleConns()
		result["acquired_conns"] = stats.AcquiredConns()
	}
	return result
}

func (h *Handler) checkRedis(ctx context.Context) map[string]any {
	return timedCheck(ctx, func(ctx context.Context) error {
		return h.rdb.Ping(ctx).Err()
	})
}

func (h *Handler) checkStorage(ctx context.Context) map[string]any {
	result := map[string]any{"status": "ok"}
	if p, ok := h.sp.(storage.Pinger); ok {
		result = timedCheck(ctx, p.Ping)
	}
	result["provider"] = h.sp.Provider()
	return result
}

func timedCheck(ctx context.Context, ping func(context.Context) error) map[string]any {
	start := time.Now()
	result := map[string]any{"status": "ok"}

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if err := ping(checkCtx); err != nil {
		result["status"] = "error"
		result["error"] = err.Error()
	}

	result["latency_ms"] = time.Since(start).Milliseconds()
	return result
}
