package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrorResponse is the error body shared with the handlers package
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// CheckSecret compares a presented credential with the configured secret in constant time
func CheckSecret(secret, presented string) bool {
	if secret == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(presented)) == 1
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header
func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireSecret refuses requests that do not carry the shared admin secret.
// With no secret configured every request is refused.
func RequireSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				log.Error().Str("path", r.URL.Path).Msg("Admin secret is not configured, refusing mutation")
				respondError(w, "server_misconfigured", "Admin access is not configured", http.StatusInternalServerError)
				return
			}

			token := BearerToken(r)
			if token == "" {
				respondError(w, "unauthorized", "Authorization header required", http.StatusUnauthorized)
				return
			}

			if !CheckSecret(secret, token) {
				log.Warn().Str("path", r.URL.Path).Str("remote", r.RemoteAddr).Msg("Rejected admin credential")
				respondError(w, "unauthorized", "Invalid credentials", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// respondError sends an error response
func respondError(w http.ResponseWriter, category, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: category, Message: message})
}
