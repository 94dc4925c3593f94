package handlers

import (
	"net/http"
	"strconv"

	"bandsite-backend/internal/models"
	"bandsite-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// TourHandler handles tour-related HTTP requests
type TourHandler struct {
	tourService *services.TourService
}

// NewTourHandler creates a new tour handler
func NewTourHandler(tourService *services.TourService) *TourHandler {
	return &TourHandler{
		tourService: tourService,
	}
}

// ListTours handles GET /api/tours
func (h *TourHandler) ListTours(w http.ResponseWriter, r *http.Request) {
	tours, err := h.tourService.List(r.Context())
	if err != nil {
		respondServiceError(w, r, err, "list tours")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"tours": tours})
}

// CreateTour handles POST /api/tours
func (h *TourHandler) CreateTour(w http.ResponseWriter, r *http.Request) {
	var in models.TourInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, "validation_error", err.Error(), http.StatusBadRequest)
		return
	}

	tour, err := h.tourService.Create(r.Context(), in)
	if err != nil {
		respondServiceError(w, r, err, "create tour")
		return
	}

	log.Info().Int64("tour_id", tour.ID).Str("city", tour.City).Msg("Tour created")
	respondJSON(w, http.StatusCreated, tour)
}

// UpdateTour handles PUT /api/tours/{id}
func (h *TourHandler) UpdateTour(w http.ResponseWriter, r *http.Request) {
	id, ok := tourID(w, r)
	if !ok {
		return
	}

	var in models.TourInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, "validation_error", err.Error(), http.StatusBadRequest)
		return
	}

	tour, err := h.tourService.Update(r.Context(), id, in)
	if err != nil {
		respondServiceError(w, r, err, "update tour")
		return
	}

	respondJSON(w, http.StatusOK, tour)
}

// DeleteTour handles DELETE /api/tours/{id}
func (h *TourHandler) DeleteTour(w http.ResponseWriter, r *http.Request) {
	id, ok := tourID(w, r)
	if !ok {
		return
	}

	if err := h.tourService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, r, err, "delete tour")
		return
	}

	log.Info().Int64("tour_id", id).Msg("Tour deleted")
	respondJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

func tourID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, "validation_error", "tour id must be a positive integer", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
