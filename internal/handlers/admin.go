package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"bandsite-backend/internal/middleware"
	"bandsite-backend/internal/models"
	"bandsite-backend/internal/services"

	"github.com/rs/zerolog/log"
)

//go:embed templates/admin.html
var templateFS embed.FS

var adminTemplate = template.Must(template.ParseFS(templateFS, "templates/admin.html"))

type adminPage struct {
	Token     string
	Tours     []models.Tour
	Countdown models.Countdown
	Gallery   models.Gallery
}

// AdminHandler serves the admin page
type AdminHandler struct {
	secret           string
	tourService      *services.TourService
	countdownService *services.CountdownService
	galleryService   *services.GalleryService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(secret string, tours *services.TourService, countdown *services.CountdownService, gallery *services.GalleryService) *AdminHandler {
	return &AdminHandler{
		secret:           secret,
		tourService:      tours,
		countdownService: countdown,
		galleryService:   gallery,
	}
}

// Page handles GET /admin?password=...
func (h *AdminHandler) Page(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" {
		respondError(w, "server_misconfigured", "Admin access is not configured", http.StatusInternalServerError)
		return
	}

	password := r.URL.Query().Get("password")
	if !middleware.CheckSecret(h.secret, password) {
		respondError(w, "unauthorized", "Invalid credentials", http.StatusUnauthorized)
		return
	}

	ctx := r.Context()
	page := adminPage{Token: password}

	var err error
	if page.Tours, err = h.tourService.List(ctx); err != nil {
		respondServiceError(w, r, err, "load admin tours")
		return
	}
	if page.Countdown, err = h.countdownService.Get(ctx); err != nil {
		respondServiceError(w, r, err, "load admin countdown")
		return
	}
	if page.Gallery, err = h.galleryService.Gallery(ctx); err != nil {
		respondServiceError(w, r, err, "load admin gallery")
		return
	}

	var buf bytes.Buffer
	if err := adminTemplate.Execute(&buf, page); err != nil {
		log.Error().Err(err).Msg("Failed to render admin page")
		respondError(w, "internal_error", "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Write(buf.Bytes())
}
