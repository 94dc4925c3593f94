package handlers

import (
	"net/http"

	"bandsite-backend/internal/metrics"
	"bandsite-backend/internal/services"
)

// BackupHandler triggers database backups
type BackupHandler struct {
	backupService *services.BackupService
	metrics       *metrics.Metrics
}

// NewBackupHandler creates a new backup handler
func NewBackupHandler(backupService *services.BackupService, m *metrics.Metrics) *BackupHandler {
	return &BackupHandler{backupService: backupService, metrics: m}
}

// CreateBackup handles POST /api/backup
func (h *BackupHandler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	result, err := h.backupService.Run(r.Context())
	if err != nil {
		h.count("failed")
		respondServiceError(w, r, err, "back up database")
		return
	}

	h.count("ok")
	respondJSON(w, http.StatusOK, result)
}

func (h *BackupHandler) count(status string) {
	if h.metrics != nil {
		h.metrics.BackupTotal.WithLabelValues(status).Inc()
	}
}
