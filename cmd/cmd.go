package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bandsite-backend/internal/config"
	"bandsite-backend/internal/handlers"
	"bandsite-backend/internal/media"
	"bandsite-backend/internal/metrics"
	"bandsite-backend/internal/middleware"
	"bandsite-backend/internal/repository"
	"bandsite-backend/internal/services"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level, cfg.IsProduction())

	if cfg.Admin.Password == "" {
		log.Warn().Msg("ADMIN_PASSWORD is not set, all mutations will be refused")
	}

	// Open database
	db, err := repository.Open(context.Background(), cfg.Storage.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}()
	log.Info().Str("path", cfg.Storage.DBPath).Msg("Database ready")

	files, err := media.NewStorage(cfg.Storage.MediaDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare media directory")
	}

	m := metrics.New()

	// Initialize repositories
	tourRepo := repository.NewTourRepository(db)
	galleryRepo := repository.NewGalleryRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	// Initialize services
	wsHub := services.NewWSHub(func(clients int) {
		m.LiveClients.Set(float64(clients))
	})
	tourService := services.NewTourService(tourRepo, wsHub)
	countdownService := services.NewCountdownService(settingsRepo, wsHub)
	galleryService := services.NewGalleryService(galleryRepo, settingsRepo, files, wsHub, cfg.Upload.ThumbnailSize)

	var uploader services.ObjectUploader
	if cfg.Backup.S3.Enabled() {
		s3Cfg := cfg.Backup.S3
		client, err := services.NewS3Client(context.Background(), s3Cfg.Region, s3Cfg.Endpoint, s3Cfg.AccessKey, s3Cfg.SecretKey)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create S3 client")
		}
		uploader = client
		log.Info().Str("bucket", s3Cfg.Bucket).Msg("Backups will be mirrored to S3")
	}
	backupService := services.NewBackupService(db, cfg.Storage.BackupDir, uploader, cfg.Backup.S3.Bucket, cfg.Backup.S3.Prefix)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, time.Now)
	limiter.OnLimited(m.RateLimitedTotal.Inc)

	router := handlers.NewRouter(handlers.RouterConfig{
		Tours:          tourService,
		Countdown:      countdownService,
		Gallery:        galleryService,
		Backup:         backupService,
		Hub:            wsHub,
		DB:             db,
		Metrics:        m,
		Limiter:        limiter,
		AdminPassword:  cfg.Admin.Password,
		MediaDir:       files.Dir(),
		MaxUploadBytes: cfg.Upload.MaxBytes(),
		TrustProxy:     cfg.Server.TrustProxy,
	})

	// Uploads may be hundreds of MB, so reads get more time than the API needs
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Hijacked WebSocket connections are not tracked by Shutdown
	wsHub.Close()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string, production bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if !production {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
