package handlers

import (
	"net/http"

	"bandsite-backend/internal/models"
	"bandsite-backend/internal/services"
)

// CountdownResponse wraps the countdown as the desktop client expects it
type CountdownResponse struct {
	Release models.Countdown `json:"release"`
}

// CountdownHandler handles the release countdown
type CountdownHandler struct {
	countdownService *services.CountdownService
}

// NewCountdownHandler creates a new countdown handler
func NewCountdownHandler(countdownService *services.CountdownService) *CountdownHandler {
	return &CountdownHandler{countdownService: countdownService}
}

// GetCountdown handles GET /api/countdown
func (h *CountdownHandler) GetCountdown(w http.ResponseWriter, r *http.Request) {
	c, err := h.countdownService.Get(r.Context())
	if err != nil {
		respondServiceError(w, r, err, "get countdown")
		return
	}
	respondJSON(w, http.StatusOK, CountdownResponse{Release: c})
}

// UpdateCountdown handles POST /api/countdown. Omitted fields keep their stored values.
func (h *CountdownHandler) UpdateCountdown(w http.ResponseWriter, r *http.Request) {
	var in models.CountdownInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, "validation_error", err.Error(), http.StatusBadRequest)
		return
	}

	c, err := h.countdownService.Update(r.Context(), in)
	if err != nil {
		respondServiceError(w, r, err, "update countdown")
		return
	}
	respondJSON(w, http.StatusOK, CountdownResponse{Release: c})
}
