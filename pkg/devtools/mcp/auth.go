package mcp

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
)

// AuthHandler provides bearer-token authentication for the HTTP
// transport, grounded on the teacher's identical AuthHandler
// (auth.go): constant-time comparison to resist timing attacks, and a
// pass-through when disabled.
type AuthHandler struct {
	token   string
	enabled bool
}

// NewAuthHandler validates token/enabled and returns a ready handler.
func NewAuthHandler(token string, enabled bool) (*AuthHandler, error) {
	if enabled && strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("mcp: auth token cannot be empty when authentication is enabled")
	}
	return &AuthHandler{token: token, enabled: enabled}, nil
}

// Middleware wraps next with bearer-token validation.
func (a *AuthHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.enabled {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		supplied := strings.TrimPrefix(header, prefix)
		if subtle.ConstantTimeCompare([]byte(supplied), []byte(a.token)) != 1 {
			http.Error(w, "invalid bearer token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
