package handler

import (
	"net/http"

	"mediahub-credits-api/internal/service"
	"mediahub-credits-api/pkg/apierror"
	"mediahub-credits-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// MediaHandler serves catalog reads (price and owner of a media item).
type MediaHandler struct {
	catalog *service.CatalogService
}

// NewMediaHandler creates a new media handler.
func NewMediaHandler(catalog *service.CatalogService) *MediaHandler {
	return &MediaHandler{
		catalog: catalog,
	}
}

// GetMedia handles GET /api/v1/media/{media_id}
func (h *MediaHandler) GetMedia(w http.ResponseWriter, r *http.Request) {
	mediaID := chi.URLParam(r, "media_id")
	if mediaID == "" {
		response.Error(w, apierror.BadRequest("media_id is required"))
		return
	}

	item, err := h.catalog.GetMedia(r.Context(), mediaID)
	if err != nil {
		response.Error(w, settlementError(err))
		return
	}

	response.OK(w, item)
}
