package middleware

import (
	"context"
	"net/http"
	"os"
	"strings"

	"mediahub-credits-api/internal/model"
	"mediahub-credits-api/internal/service"
	"mediahub-credits-api/pkg/apierror"
)

// SessionKey is the key for storing session data in request context.
const SessionKey contextKey = "session"

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Sessions *service.SessionService
	// APIKeys allow trusted service-to-service callers to act on behalf of
	// a user via the X-User-ID header.
	APIKeys []string
}

// NewAuthMiddleware creates an authentication middleware with injected
// dependencies. The acting user is resolved from an X-Token session or,
// for trusted internal callers, from X-API-Key plus X-User-ID.
func NewAuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Session token first
			token := r.Header.Get("X-Token")
			if token != "" && cfg.Sessions != nil {
				session, err := cfg.Sessions.ValidateToken(r.Context(), token)
				if err != nil {
					writeError(w, apierror.Unauthorized("Invalid or expired session"))
					return
				}

				ctx := context.WithValue(r.Context(), SessionKey, session)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			// Trusted internal caller fallback
			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				auth := r.Header.Get("Authorization")
				if strings.HasPrefix(auth, "Bearer ") {
					apiKey = strings.TrimPrefix(auth, "Bearer ")
				}
			}

			if apiKey != "" {
				validKeys := cfg.APIKeys
				if len(validKeys) == 0 {
					validKeys = apiKeysFromEnv()
				}
				if !isValidKey(apiKey, validKeys) {
					writeError(w, apierror.Unauthorized("Invalid API key"))
					return
				}

				userID := r.Header.Get("X-User-ID")
				if userID != "" {
					ctx := context.WithValue(r.Context(), SessionKey, &model.SessionData{UserID: userID})
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			// No identity: read-only collaborators are handled per-route,
			// mutating handlers reject with Unauthenticated.
			next.ServeHTTP(w, r)
		})
	}
}

// writeError writes an API error response.
func writeError(w http.ResponseWriter, err *apierror.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	w.Write(err.ToJSON())
}

// apiKeysFromEnv returns API keys from environment variables.
func apiKeysFromEnv() []string {
	keysEnv := os.Getenv("API_KEYS")
	if keysEnv == "" {
		singleKey := os.Getenv("API_KEY")
		if singleKey != "" {
			return []string{singleKey}
		}
		return nil
	}

	keys := strings.Split(keysEnv, ",")
	for i := range keys {
		keys[i] = strings.TrimSpace(keys[i])
	}
	return keys
}

// isValidKey checks if the provided key is in the valid keys list.
func isValidKey(key string, validKeys []string) bool {
	for _, valid := range validKeys {
		if key == valid {
			return true
		}
	}
	return false
}

// CurrentUserID returns the acting user's id from request context, or ""
// when the request is unauthenticated.
func CurrentUserID(ctx context.Context) string {
	if data, ok := ctx.Value(SessionKey).(*model.SessionData); ok {
		return data.UserID
	}
	return ""
}
