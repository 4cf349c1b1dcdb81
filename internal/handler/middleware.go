package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"page-reader/internal/domain"
	apperrors "page-reader/pkg/errors"
)

// AuthMiddleware checks the shared API token sent as a Bearer credential.
type AuthMiddleware struct {
	token  string
	logger domain.Logger
}

// NewAuthMiddleware creates the middleware. An empty token disables the check,
// which suits a server bound to localhost.
func NewAuthMiddleware(token string, logger domain.Logger) *AuthMiddleware {
	return &AuthMiddleware{token: token, logger: logger}
}

func (m *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.token == "" {
			next.ServeHTTP(w, r)
			return
		}

		// Get token from Authorization header
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeAppError(w, m.logger, "Unauthorized request", apperrors.NewUnauthorizedError("Authorization header required"))
			return
		}

		// Extract token from "Bearer <token>" format
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeAppError(w, m.logger, "Unauthorized request", apperrors.NewUnauthorizedError("Invalid authorization header format"))
			return
		}

		token := parts[1]
		if token == "" {
			writeAppError(w, m.logger, "Unauthorized request", apperrors.NewUnauthorizedError("Token required"))
			return
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(m.token)) != 1 {
			m.logger.Warn("Rejected request with invalid API token", "path", r.URL.Path, "remote", r.RemoteAddr)
			writeAppError(w, m.logger, "Unauthorized request", apperrors.NewUnauthorizedError("Invalid token"))
			return
		}

		next.ServeHTTP(w, r)
	})
}
