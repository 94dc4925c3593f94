package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bandsite-backend/internal/models"

	"github.com/Masterminds/squirrel"
)

var galleryColumns = []string{
	"id", "filename", "title", "description", "order_num",
	"media_type", "thumbnail", "mime_type", "created_at",
}

// GalleryRepository handles database operations for gallery items
type GalleryRepository struct {
	db *DB
	sb squirrel.StatementBuilderType
}

// NewGalleryRepository creates a new gallery repository
func NewGalleryRepository(db *DB) *GalleryRepository {
	return &GalleryRepository{
		db: db,
		sb: newStatementBuilder(),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGalleryItem(s rowScanner) (models.GalleryItem, error) {
	var item models.GalleryItem
	err := s.Scan(
		&item.ID, &item.Filename, &item.Title, &item.Description, &item.Order,
		&item.MediaType, &item.Thumbnail, &item.MimeType, &item.CreatedAt,
	)
	return item, err
}

// List returns every item by display order. Equal orders fall back to upload time.
func (r *GalleryRepository) List(ctx context.Context) ([]models.GalleryItem, error) {
	query, args, err := r.sb.Select(galleryColumns...).
		From("gallery").
		OrderBy("order_num ASC", "created_at ASC", "rowid ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build gallery query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list gallery: %w", err)
	}
	defer rows.Close()

	items := make([]models.GalleryItem, 0)
	for rows.Next() {
		item, err := scanGalleryItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan gallery item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating gallery: %w", err)
	}

	return items, nil
}

// GetByID retrieves a gallery item by ID
func (r *GalleryRepository) GetByID(ctx context.Context, id string) (*models.GalleryItem, error) {
	query, args, err := r.sb.Select(galleryColumns...).
		From("gallery").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build gallery query: %w", err)
	}

	item, err := scanGalleryItem(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get gallery item: %w", err)
	}

	return &item, nil
}

// Create inserts a gallery item. A colliding ID yields ErrDuplicateID.
func (r *GalleryRepository) Create(ctx context.Context, item *models.GalleryItem) error {
	query, args, err := r.sb.Insert("gallery").
		Columns(galleryColumns...).
		Values(
			item.ID, item.Filename, item.Title, item.Description, item.Order,
			item.MediaType, item.Thumbnail, item.MimeType, item.CreatedAt.UTC(),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build gallery insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("gallery item %s: %w", item.ID, ErrDuplicateID)
		}
		return fmt.Errorf("failed to create gallery item: %w", err)
	}

	return nil
}

// Update replaces the metadata of a gallery item. It reports false when the ID does not exist.
func (r *GalleryRepository) Update(ctx context.Context, item *models.GalleryItem) (bool, error) {
	query, args, err := r.sb.Update("gallery").
		Set("title", item.Title).
		Set("description", item.Description).
		Set("order_num", item.Order).
		Set("media_type", item.MediaType).
		Where(squirrel.Eq{"id": item.ID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build gallery update: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update gallery item: %w", err)
	}

	return affected(result)
}

// Delete removes a gallery item. It reports false when the ID does not exist.
func (r *GalleryRepository) Delete(ctx context.Context, id string) (bool, error) {
	query, args, err := r.sb.Delete("gallery").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build gallery delete: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to delete gallery item: %w", err)
	}

	return affected(result)
}

// NextOrder returns one past the highest order in use, or 1 for an empty gallery
func (r *GalleryRepository) NextOrder(ctx context.Context) (int, error) {
	query, args, err := r.sb.Select("COALESCE(MAX(order_num) + 1, 1)").From("gallery").ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build next order query: %w", err)
	}

	var next int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to get next order: %w", err)
	}

	return next, nil
}

// Reorder sets each listed item's order to its position in ids, atomically
func (r *GalleryRepository) Reorder(ctx context.Context, ids []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin reorder: %w", err)
	}
	defer tx.Rollback()

	for i, id := range ids {
		query, args, err := r.sb.Update("gallery").
			Set("order_num", i).
			Where(squirrel.Eq{"id": id}).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build reorder update: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to reorder gallery item %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reorder: %w", err)
	}

	return nil
}

// Filenames returns every media file referenced by the gallery, thumbnails included
func (r *GalleryRepository) Filenames(ctx context.Context) ([]string, error) {
	query, args, err := r.sb.Select("filename", "thumbnail").From("gallery").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build filenames query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list filenames: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var filename, thumbnail string
		if err := rows.Scan(&filename, &thumbnail); err != nil {
			return nil, fmt.Errorf("failed to scan filenames: %w", err)
		}
		names = append(names, filename)
		if thumbnail != "" {
			names = append(names, thumbnail)
		}
	}

	return names, rows.Err()
}
