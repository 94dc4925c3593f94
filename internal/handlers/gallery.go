package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"bandsite-backend/internal/metrics"
	"bandsite-backend/internal/models"
	"bandsite-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// multipartMemory is how much of an upload is held in memory before spilling to temp files
const multipartMemory = 32 << 20

var uploadFileFields = map[string]bool{
	"media":     true,
	"photo":     true,
	"thumbnail": true,
}

// GalleryHandler handles gallery reads and admin gallery mutations
type GalleryHandler struct {
	galleryService *services.GalleryService
	metrics        *metrics.Metrics
	maxUploadBytes int64
}

// NewGalleryHandler creates a new gallery handler
func NewGalleryHandler(galleryService *services.GalleryService, m *metrics.Metrics, maxUploadBytes int64) *GalleryHandler {
	return &GalleryHandler{
		galleryService: galleryService,
		metrics:        m,
		maxUploadBytes: maxUploadBytes,
	}
}

// GetGallery handles GET /api/gallery
func (h *GalleryHandler) GetGallery(w http.ResponseWriter, r *http.Request) {
	g, err := h.galleryService.Gallery(r.Context())
	if err != nil {
		respondServiceError(w, r, err, "get gallery")
		return
	}
	respondJSON(w, http.StatusOK, map[string]models.Gallery{"gallery": g})
}

func (h *GalleryHandler) countUpload(result string) {
	if h.metrics != nil {
		h.metrics.UploadTotal.WithLabelValues(result).Inc()
	}
}

func (h *GalleryHandler) rejectTooLarge(w http.ResponseWriter) {
	h.countUpload("too_large")
	respondError(w, "payload_too_large",
		fmt.Sprintf("Upload exceeds the %d MB limit", h.maxUploadBytes>>20), http.StatusRequestEntityTooLarge)
}

// AddPhoto handles POST /admin/add-photo
func (h *GalleryHandler) AddPhoto(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxUploadBytes {
		h.rejectTooLarge(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.rejectTooLarge(w)
			return
		}
		h.countUpload("rejected")
		respondError(w, "upload_rejected", "Request must be multipart/form-data", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	in, closeFiles, err := uploadInput(r.MultipartForm)
	defer closeFiles()
	if err != nil {
		h.countUpload("rejected")
		respondServiceError(w, r, err, "read upload")
		return
	}

	item, err := h.galleryService.Upload(r.Context(), in)
	if err != nil {
		if services.IsValidation(err) || isUploadError(err) {
			h.countUpload("rejected")
		} else {
			h.countUpload("failed")
		}
		respondServiceError(w, r, err, "upload gallery item")
		return
	}

	h.countUpload("stored")
	if h.metrics != nil {
		h.metrics.UploadBytes.Add(float64(uploadedBytes(r.MultipartForm)))
	}
	respondJSON(w, http.StatusCreated, item)
}

// uploadedBytes sums the file parts as received. Chunked requests carry no Content-Length.
func uploadedBytes(form *multipart.Form) int64 {
	var total int64
	for _, headers := range form.File {
		for _, fh := range headers {
			if fh.Size > 0 {
				total += fh.Size
			}
		}
	}
	return total
}

func isUploadError(err error) bool {
	var uploadErr *services.UploadError
	return errors.As(err, &uploadErr)
}

// uploadInput turns a parsed form into an upload. The returned func closes opened files.
func uploadInput(form *multipart.Form) (services.UploadInput, func(), error) {
	var opened []multipart.File
	closeFiles := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	var in services.UploadInput

	for field := range form.File {
		if !uploadFileFields[field] {
			return in, closeFiles, &services.UploadError{Message: fmt.Sprintf("unexpected file field %q", field)}
		}
	}

	primary := append([]*multipart.FileHeader{}, form.File["media"]...)
	primary = append(primary, form.File["photo"]...)
	if len(primary) == 0 {
		return in, closeFiles, &services.UploadError{Message: "a media file is required"}
	}
	if len(primary) > 1 || len(form.File["thumbnail"]) > 1 {
		return in, closeFiles, &services.UploadError{Message: "only one media file and one thumbnail are allowed"}
	}

	open := func(fh *multipart.FileHeader) (services.UploadFile, error) {
		f, err := fh.Open()
		if err != nil {
			return services.UploadFile{}, fmt.Errorf("failed to open upload part: %w", err)
		}
		opened = append(opened, f)
		return services.UploadFile{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Content:     f,
		}, nil
	}

	var err error
	if in.Media, err = open(primary[0]); err != nil {
		return in, closeFiles, err
	}
	if thumbs := form.File["thumbnail"]; len(thumbs) == 1 {
		thumb, err := open(thumbs[0])
		if err != nil {
			return in, closeFiles, err
		}
		in.Thumbnail = &thumb
	}

	in.Title = formValue(form, "title")
	in.Description = formValue(form, "description")
	in.MediaType = strings.ToLower(formValue(form, "mediaType"))

	if v := formValue(form, "order"); v != "" {
		order, err := strconv.Atoi(v)
		if err != nil {
			return in, closeFiles, &services.ValidationError{Message: "order must be an integer"}
		}
		in.Order = &order
	}

	return in, closeFiles, nil
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

// UpdatePhotoRequest edits gallery item metadata
type UpdatePhotoRequest struct {
	PhotoID string `json:"photoId"`
	services.GalleryUpdate
}

// UpdatePhoto handles PUT /admin/update-photo
func (h *GalleryHandler) UpdatePhoto(w http.ResponseWriter, r *http.Request) {
	var req UpdatePhotoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, "validation_error", err.Error(), http.StatusBadRequest)
		return
	}
	if req.PhotoID == "" {
		respondError(w, "validation_error", "photoId is required", http.StatusBadRequest)
		return
	}

	item, err := h.galleryService.Update(r.Context(), req.PhotoID, req.GalleryUpdate)
	if err != nil {
		respondServiceError(w, r, err, "update gallery item")
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// DeletePhotoRequest names the gallery item to delete
type DeletePhotoRequest struct {
	PhotoID string `json:"photoId"`
}

// DeletePhoto handles DELETE /admin/delete-photo
func (h *GalleryHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	var req DeletePhotoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, "validation_error", err.Error(), http.StatusBadRequest)
		return
	}
	if req.PhotoID == "" {
		respondError(w, "validation_error", "photoId is required", http.StatusBadRequest)
		return
	}

	if err := h.galleryService.Delete(r.Context(), req.PhotoID); err != nil {
		respondServiceError(w, r, err, "delete gallery item")
		return
	}

	log.Info().Str("photo_id", req.PhotoID).Msg("Gallery item deleted")
	respondJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// ReorderRequest moves one gallery item to a new position
type ReorderRequest struct {
	PhotoID     string `json:"photoId"`
	TargetIndex *int   `json:"targetIndex"`
}

// ReorderPhotos handles POST /admin/reorder-photos
func (h *GalleryHandler) ReorderPhotos(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, "validation_error", err.Error(), http.StatusBadRequest)
		return
	}
	if req.PhotoID == "" || req.TargetIndex == nil {
		respondError(w, "validation_error", "photoId and targetIndex are required", http.StatusBadRequest)
		return
	}

	items, err := h.galleryService.Reorder(r.Context(), req.PhotoID, *req.TargetIndex)
	if err != nil {
		respondServiceError(w, r, err, "reorder gallery")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true, "photos": items})
}

// GallerySettingsRequest toggles gallery visibility
type GallerySettingsRequest struct {
	Enabled *bool `json:"enabled"`
}

// UpdateSettings handles POST /admin/gallery-settings
func (h *GalleryHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req GallerySettingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, "validation_error", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Enabled == nil {
		respondError(w, "validation_error", "enabled is required", http.StatusBadRequest)
		return
	}

	if err := h.galleryService.SetEnabled(r.Context(), *req.Enabled); err != nil {
		respondServiceError(w, r, err, "update gallery settings")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"enabled": *req.Enabled})
}

// ListOrphans handles GET /admin/orphans
func (h *GalleryHandler) ListOrphans(w http.ResponseWriter, r *http.Request) {
	orphans, err := h.galleryService.Orphans(r.Context())
	if err != nil {
		respondServiceError(w, r, err, "list orphaned media")
		return
	}
	respondJSON(w, http.StatusOK, map[string][]string{"orphans": orphans})
}
