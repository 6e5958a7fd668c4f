package handler

import (
	"net/http"

	"mediahub-credits-api/internal/repository"
	"mediahub-credits-api/internal/service"
	"mediahub-credits-api/pkg/apierror"
	"mediahub-credits-api/pkg/response"
)

// AdminHandler exposes operational endpoints. All routes require an API key.
type AdminHandler struct {
	stats   repository.StatsProvider
	cleanup *service.CleanupScheduler
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(stats repository.StatsProvider, cleanup *service.CleanupScheduler) *AdminHandler {
	return &AdminHandler{
		stats:   stats,
		cleanup: cleanup,
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.GetStats(r.Context())
	if err != nil {
		response.Error(w, apierror.InternalError("failed to collect stats"))
		return
	}

	response.OK(w, stats)
}

// TriggerCleanup handles POST /api/v1/admin/cleanup and runs the idempotency
// key sweep immediately instead of waiting for the next scheduled pass.
func (h *AdminHandler) TriggerCleanup(w http.ResponseWriter, r *http.Request) {
	removed, err := h.cleanup.RunNow()
	if err != nil {
		response.Error(w, apierror.InternalError("cleanup failed"))
		return
	}

	response.OK(w, map[string]interface{}{
		"removed": removed,
	})
}
