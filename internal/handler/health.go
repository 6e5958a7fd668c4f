package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"mediahub-credits-api/pkg/response"

	"github.com/redis/go-redis/v9"
)

// Version is the API version reported by the status endpoints.
const Version = "1.0.0"

// HealthHandler reports process liveness and dependency readiness.
type HealthHandler struct {
	db        *sql.DB
	redis     *redis.Client
	startedAt time.Time
}

// NewHealthHandler creates a new health handler. redisClient may be nil when
// the instance runs without Redis.
func NewHealthHandler(db *sql.DB, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{
		db:        db,
		redis:     redisClient,
		startedAt: time.Now(),
	}
}

// Status handles GET /api/status
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]interface{}{
		"service": "mediahub-credits-api",
		"version": Version,
		"uptime":  time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// Health handles GET /api/v1/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{"status": "ok"})
}

// Ready handles GET /api/v1/ready and checks the backing stores.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := h.db.PingContext(ctx); err != nil {
		checks["ledger"] = "unavailable: " + err.Error()
		healthy = false
	} else {
		checks["ledger"] = "ok"
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = "unavailable: " + err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	} else {
		checks["redis"] = "disabled"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	response.JSON(w, status, map[string]interface{}{
		"ready":  healthy,
		"checks": checks,
	})
}
