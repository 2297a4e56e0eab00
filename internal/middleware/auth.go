package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mtlprog/wbstatus/internal/domain"
)

// AuthMiddleware handles Bearer token authentication against a single API token.
type AuthMiddleware struct {
	token string
}

// NewAuthMiddleware creates a new AuthMiddleware. An empty token disables authentication.
func NewAuthMiddleware(token string) *AuthMiddleware {
	return &AuthMiddleware{token: token}
}

// Enabled reports whether requests must carry a token.
func (m *AuthMiddleware) Enabled() bool {
	return m.token != ""
}

// Authenticate validates the Bearer token before calling next.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "missing authorization header", http.StatusUnauthorized)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			http.Error(w, "invalid authorization header format", http.StatusUnauthorized)
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(m.token)) != 1 {
			slog.Warn("rejected request with invalid token", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
			http.Error(w, domain.ErrInvalidToken.Error(), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
