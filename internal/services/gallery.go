package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"bandsite-backend/internal/media"
	"bandsite-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// DefaultThumbnailSize bounds generated thumbnails, in pixels
const DefaultThumbnailSize = 480

// GalleryStore is the persistence the gallery service needs
type GalleryStore interface {
	List(ctx context.Context) ([]models.GalleryItem, error)
	GetByID(ctx context.Context, id string) (*models.GalleryItem, error)
	Create(ctx context.Context, item *models.GalleryItem) error
	Update(ctx context.Context, item *models.GalleryItem) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	NextOrder(ctx context.Context) (int, error)
	Reorder(ctx context.Context, ids []string) error
	Filenames(ctx context.Context) ([]string, error)
}

// GallerySettingsStore stores the gallery visibility flag
type GallerySettingsStore interface {
	GalleryEnabled(ctx context.Context) (bool, error)
	SetGalleryEnabled(ctx context.Context, enabled bool) error
}

// MediaStore holds the uploaded files
type MediaStore interface {
	Save(name string, r io.Reader) (int64, error)
	Open(name string) (io.ReadCloser, error)
	Remove(name string) error
	List() ([]string, error)
}

// UploadInput is a parsed add-photo request
type UploadInput struct {
	Media       UploadFile
	Thumbnail   *UploadFile
	Title       string
	Description string
	Order       *int   `validate:"omitempty,gte=0"`
	MediaType   string `validate:"omitempty,oneof=photo video"`
}

// GalleryUpdate carries editable gallery item metadata. Nil fields are left alone.
type GalleryUpdate struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Order       *int    `json:"order" validate:"omitempty,gte=0"`
	MediaType   *string `json:"mediaType" validate:"omitempty,oneof=photo video"`
}

// GalleryService handles gallery uploads, ordering and deletion
type GalleryService struct {
	items     GalleryStore
	settings  GallerySettingsStore
	files     MediaStore
	notifier  Notifier
	newID     func() string
	now       func() time.Time
	thumbSize uint
}

// NewGalleryService creates a new gallery service
func NewGalleryService(items GalleryStore, settings GallerySettingsStore, files MediaStore, notifier Notifier, thumbSize uint) *GalleryService {
	if thumbSize == 0 {
		thumbSize = DefaultThumbnailSize
	}
	return &GalleryService{
		items:     items,
		settings:  settings,
		files:     files,
		notifier:  notifierOrNop(notifier),
		newID:     newUUID,
		now:       time.Now,
		thumbSize: thumbSize,
	}
}

// Gallery returns the visibility flag and all items in display order
func (s *GalleryService) Gallery(ctx context.Context) (models.Gallery, error) {
	enabled, err := s.settings.GalleryEnabled(ctx)
	if err != nil {
		return models.Gallery{}, fmt.Errorf("failed to get gallery settings: %w", err)
	}

	items, err := s.items.List(ctx)
	if err != nil {
		return models.Gallery{}, fmt.Errorf("failed to list gallery: %w", err)
	}

	return models.Gallery{Enabled: enabled, Photos: items}, nil
}

// SetEnabled shows or hides the gallery
func (s *GalleryService) SetEnabled(ctx context.Context, enabled bool) error {
	if err := s.settings.SetGalleryEnabled(ctx, enabled); err != nil {
		return fmt.Errorf("failed to save gallery settings: %w", err)
	}
	s.notifier.Broadcast(ResourceGallery)
	return nil
}

// Upload checks and stores the media (and thumbnail) and registers a gallery item.
// Nothing is left in the media directory when the upload fails.
func (s *GalleryService) Upload(ctx context.Context, in UploadInput) (*models.GalleryItem, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	primary, err := sniffUpload("media", in.Media, true)
	if err != nil {
		return nil, err
	}

	var thumb *sniffedFile
	if in.Thumbnail != nil {
		if thumb, err = sniffUpload("thumbnail", *in.Thumbnail, false); err != nil {
			return nil, err
		}
	}

	mediaType := in.MediaType
	if mediaType == "" {
		mediaType = models.MediaTypePhoto
		if strings.HasPrefix(primary.mimeType, "video/") {
			mediaType = models.MediaTypeVideo
		}
	}

	order := 0
	if in.Order != nil {
		order = *in.Order
	} else if order, err = s.items.NextOrder(ctx); err != nil {
		return nil, fmt.Errorf("failed to get next order: %w", err)
	}

	var written []string
	cleanup := func() {
		for _, name := range written {
			if err := s.files.Remove(name); err != nil {
				log.Error().Err(err).Str("file", name).Msg("Failed to remove file of failed upload")
			}
		}
	}

	filename := media.NewName(primary.ext)
	if _, err := s.files.Save(filename, primary.body); err != nil {
		return nil, fmt.Errorf("failed to store media: %w", err)
	}
	written = append(written, filename)

	var thumbnail string
	switch {
	case thumb != nil:
		thumbnail = media.ThumbnailName(filename, thumb.ext)
		if _, err := s.files.Save(thumbnail, thumb.body); err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to store thumbnail: %w", err)
		}
		written = append(written, thumbnail)
	case mediaType == models.MediaTypePhoto:
		if name, ok := s.generateThumbnail(filename); ok {
			thumbnail = name
			written = append(written, name)
		}
	}

	item := &models.GalleryItem{
		Filename:    filename,
		Title:       SanitizeString(in.Title, DefaultMaxLength),
		Description: SanitizeString(in.Description, DescriptionMaxLength),
		Order:       order,
		MediaType:   mediaType,
		Thumbnail:   thumbnail,
		MimeType:    primary.mimeType,
		CreatedAt:   s.now().UTC(),
	}

	_, err = insertWithFreshID(ctx, s.newID, func(ctx context.Context, id string) error {
		item.ID = id
		return s.items.Create(ctx, item)
	})
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to create gallery item: %w", err)
	}

	log.Info().
		Str("photo_id", item.ID).
		Str("filename", item.Filename).
		Str("media_type", item.MediaType).
		Msg("Gallery item uploaded")

	s.notifier.Broadcast(ResourceGallery)
	return item, nil
}

// generateThumbnail writes a JPEG preview next to a stored photo. Failure is not fatal.
func (s *GalleryService) generateThumbnail(filename string) (string, bool) {
	src, err := s.files.Open(filename)
	if err != nil {
		log.Warn().Err(err).Str("file", filename).Msg("Failed to open photo for thumbnail")
		return "", false
	}
	defer src.Close()

	var buf bytes.Buffer
	if err := media.CreateThumb(s.thumbSize, src, &buf); err != nil {
		log.Warn().Err(err).Str("file", filename).Msg("Thumbnail generation skipped")
		return "", false
	}

	name := media.ThumbnailName(filename, media.ThumbnailExt)
	if _, err := s.files.Save(name, &buf); err != nil {
		log.Warn().Err(err).Str("file", name).Msg("Failed to store thumbnail")
		return "", false
	}

	return name, true
}

// Update edits the metadata of a gallery item
func (s *GalleryService) Update(ctx context.Context, id string, in GalleryUpdate) (*models.GalleryItem, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		item.Title = SanitizeString(*in.Title, DefaultMaxLength)
	}
	if in.Description != nil {
		item.Description = SanitizeString(*in.Description, DescriptionMaxLength)
	}
	if in.Order != nil {
		item.Order = *in.Order
	}
	if in.MediaType != nil {
		item.MediaType = *in.MediaType
	}

	ok, err := s.items.Update(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("failed to update gallery item: %w", err)
	}
	if !ok {
		return nil, ErrNotFound
	}

	s.notifier.Broadcast(ResourceGallery)
	return item, nil
}

// Delete removes a gallery item, then its files. File removal failures are only logged.
func (s *GalleryService) Delete(ctx context.Context, id string) error {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return err
	}

	ok, err := s.items.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete gallery item: %w", err)
	}
	if !ok {
		return ErrNotFound
	}

	files := []string{item.Filename}
	if item.Thumbnail != "" && item.Thumbnail != item.Filename {
		files = append(files, item.Thumbnail)
	}
	for _, name := range files {
		if err := s.files.Remove(name); err != nil {
			log.Warn().Err(err).Str("photo_id", id).Str("file", name).Msg("Failed to remove media file, leaving orphan")
		}
	}

	s.notifier.Broadcast(ResourceGallery)
	return nil
}

// Reorder moves one item to targetIndex and renumbers the whole gallery from 0
func (s *GalleryService) Reorder(ctx context.Context, id string, targetIndex int) ([]models.GalleryItem, error) {
	items, err := s.items.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list gallery: %w", err)
	}

	from := slices.IndexFunc(items, func(item models.GalleryItem) bool { return item.ID == id })
	if from < 0 {
		return nil, ErrNotFound
	}
	if targetIndex < 0 || targetIndex >= len(items) {
		return nil, invalid(fmt.Sprintf("targetIndex must be between 0 and %d", len(items)-1))
	}

	moved := items[from]
	items = slices.Delete(items, from, from+1)
	items = slices.Insert(items, targetIndex, moved)

	ids := make([]string, len(items))
	for i := range items {
		items[i].Order = i
		ids[i] = items[i].ID
	}

	if err := s.items.Reorder(ctx, ids); err != nil {
		return nil, fmt.Errorf("failed to reorder gallery: %w", err)
	}

	s.notifier.Broadcast(ResourceGallery)
	return items, nil
}

// Orphans lists media files no gallery item refers to
func (s *GalleryService) Orphans(ctx context.Context) ([]string, error) {
	referenced, err := s.items.Filenames(ctx)
	if err != nil {
		return nil, err
	}

	stored, err := s.files.List()
	if err != nil {
		return nil, err
	}

	orphans := make([]string, 0)
	for _, name := range stored {
		if !slices.Contains(referenced, name) {
			orphans = append(orphans, name)
		}
	}
	return orphans, nil
}
