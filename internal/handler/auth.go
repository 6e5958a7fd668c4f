package handler

import (
	"encoding/json"
	"net/http"

	"mediahub-credits-api/internal/model"
	"mediahub-credits-api/internal/service"
	"mediahub-credits-api/pkg/apierror"
	"mediahub-credits-api/pkg/response"
)

// AuthHandler manages session tokens. Identity itself comes from an
// upstream auth system; this surface only mints, refreshes and revokes
// the opaque tokens the settlement API trusts.
type AuthHandler struct {
	sessions *service.SessionService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(sessions *service.SessionService) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
	}
}

// SessionRequest represents the request body for creating a session.
type SessionRequest struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// CreateSession handles POST /api/v1/auth/sessions
func (h *AuthHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		response.Error(w, apierror.ServiceUnavailable("session store is not available"))
		return
	}

	var req SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if req.UserID == "" {
		response.Error(w, apierror.BadRequest("user_id is required"))
		return
	}

	token, err := h.sessions.GenerateToken(r.Context(), model.SessionData{
		UserID:      req.UserID,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		response.Error(w, apierror.InternalError("failed to create session"))
		return
	}

	response.OK(w, map[string]string{
		"token":   token,
		"user_id": req.UserID,
	})
}

// RefreshSession handles POST /api/v1/auth/sessions/refresh
func (h *AuthHandler) RefreshSession(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("X-Token")
	if token == "" {
		response.Error(w, apierror.Unauthorized("X-Token header is required"))
		return
	}
	if h.sessions == nil {
		response.Error(w, apierror.ServiceUnavailable("session store is not available"))
		return
	}

	if err := h.sessions.RefreshToken(r.Context(), token); err != nil {
		response.Error(w, apierror.Unauthorized("session not found or expired"))
		return
	}

	response.OK(w, map[string]string{"status": "refreshed"})
}

// RevokeSession handles DELETE /api/v1/auth/sessions
func (h *AuthHandler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("X-Token")
	if token == "" {
		response.Error(w, apierror.Unauthorized("X-Token header is required"))
		return
	}
	if h.sessions == nil {
		response.Error(w, apierror.ServiceUnavailable("session store is not available"))
		return
	}

	if err := h.sessions.RevokeToken(r.Context(), token); err != nil {
		response.Error(w, apierror.InternalError("failed to revoke session"))
		return
	}

	response.OK(w, map[string]string{"status": "revoked"})
}
