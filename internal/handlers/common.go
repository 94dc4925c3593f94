package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"bandsite-backend/internal/services"

	"github.com/rs/zerolog/log"
)

const maxJSONBody = 1 << 20

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// SuccessResponse acknowledges a mutation with no other payload
type SuccessResponse struct {
	Success bool `json:"success"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, category, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Error: category, Message: message})
}

// respondJSON sends v as a JSON body
func respondJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// decodeJSON reads a bounded JSON body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return errors.New("invalid JSON body")
	}
	return nil
}

// respondServiceError maps service errors onto the error taxonomy.
// Unexpected errors are logged and reported without detail.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, action string) {
	var validationErr *services.ValidationError
	var uploadErr *services.UploadError

	switch {
	case errors.As(err, &validationErr):
		respondError(w, "validation_error", validationErr.Message, http.StatusBadRequest)
	case errors.As(err, &uploadErr):
		respondError(w, "upload_rejected", uploadErr.Message, http.StatusBadRequest)
	case errors.Is(err, services.ErrNotFound):
		respondError(w, "not_found", "Resource not found", http.StatusNotFound)
	default:
		log.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Failed to " + action)
		respondError(w, "internal_error", "Internal server error", http.StatusInternalServerError)
	}
}
