package handlers

import (
	"net/http"
	"path/filepath"
	"strings"

	"bandsite-backend/internal/metrics"
	"bandsite-backend/internal/middleware"
	"bandsite-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig carries everything the HTTP routes are built from
type RouterConfig struct {
	Tours     *services.TourService
	Countdown *services.CountdownService
	Gallery   *services.GalleryService
	Backup    *services.BackupService
	Hub       *services.WSHub
	DB        Pinger
	Metrics   *metrics.Metrics
	Limiter   *middleware.RateLimiter

	AdminPassword  string
	MediaDir       string
	MaxUploadBytes int64
	// TrustProxy takes the client address from forwarding headers
	TrustProxy bool
}

// NewRouter builds the chi router for the whole API
func NewRouter(cfg RouterConfig) http.Handler {
	tourHandler := NewTourHandler(cfg.Tours)
	countdownHandler := NewCountdownHandler(cfg.Countdown)
	galleryHandler := NewGalleryHandler(cfg.Gallery, cfg.Metrics, cfg.MaxUploadBytes)
	backupHandler := NewBackupHandler(cfg.Backup, cfg.Metrics)
	adminHandler := NewAdminHandler(cfg.AdminPassword, cfg.Tours, cfg.Countdown, cfg.Gallery)
	wsHandler := NewWebSocketHandler(cfg.Hub)
	healthHandler := NewHealthHandler(cfg.DB)

	requireSecret := middleware.RequireSecret(cfg.AdminPassword)

	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	if cfg.TrustProxy {
		r.Use(chiMiddleware.RealIP)
	}
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", wsHandler.HandleWebSocket)
	r.Get("/media/*", mediaFiles(cfg.MediaDir))

	r.Route("/api", func(r chi.Router) {
		r.Use(cfg.Limiter.Middleware)

		// Public routes
		r.Get("/tours", tourHandler.ListTours)
		r.Get("/countdown", countdownHandler.GetCountdown)
		r.Get("/gallery", galleryHandler.GetGallery)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(requireSecret)
			r.Post("/tours", tourHandler.CreateTour)
			r.Put("/tours/{id}", tourHandler.UpdateTour)
			r.Delete("/tours/{id}", tourHandler.DeleteTour)
			r.Post("/countdown", countdownHandler.UpdateCountdown)
			r.Post("/backup", backupHandler.CreateBackup)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(cfg.Limiter.Middleware)

		r.Get("/", adminHandler.Page)

		r.Group(func(r chi.Router) {
			r.Use(requireSecret)
			r.Post("/add-photo", galleryHandler.AddPhoto)
			r.Put("/update-photo", galleryHandler.UpdatePhoto)
			r.Delete("/delete-photo", galleryHandler.DeletePhoto)
			r.Post("/reorder-photos", galleryHandler.ReorderPhotos)
			r.Post("/gallery-settings", galleryHandler.UpdateSettings)
			r.Get("/orphans", galleryHandler.ListOrphans)
		})
	})

	return r
}

// mediaFiles serves files from the flat media directory without directory listings
func mediaFiles(dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "*")
		if name == "" || strings.Contains(name, "/") || strings.HasPrefix(name, ".") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=86400")
		http.ServeFile(w, r, filepath.Join(dir, name))
	}
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
