package repository

import (
	"context"
	"database/sql"
	"time"

	"bandsite-backend/internal/models"
)

type gallerySettings struct {
	Enabled   bool
	UpdatedAt time.Time
}

// SettingsRepository holds the countdown and gallery visibility singletons
type SettingsRepository struct {
	countdown *Singleton[models.Countdown]
	gallery   *Singleton[gallerySettings]
	now       func() time.Time
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *DB) *SettingsRepository {
	countdown := NewSingleton(db, "countdown",
		[]string{"title", "description", "release_date", "enabled", "completed_title", "completed_description", "updated_at"},
		func(c models.Countdown) []any {
			var release sql.NullTime
			if c.ReleaseDate != nil {
				release = sql.NullTime{Time: c.ReleaseDate.UTC(), Valid: true}
			}
			return []any{c.Title, c.Description, release, c.Enabled, c.CompletedTitle, c.CompletedDescription, c.UpdatedAt.UTC()}
		},
		func(s rowScanner) (models.Countdown, error) {
			var c models.Countdown
			var release sql.NullTime
			err := s.Scan(&c.Title, &c.Description, &release, &c.Enabled, &c.CompletedTitle, &c.CompletedDescription, &c.UpdatedAt)
			if release.Valid {
				t := release.Time
				c.ReleaseDate = &t
			}
			return c, err
		},
	)

	gallery := NewSingleton(db, "gallery_settings",
		[]string{"enabled", "updated_at"},
		func(g gallerySettings) []any {
			return []any{g.Enabled, g.UpdatedAt.UTC()}
		},
		func(s rowScanner) (gallerySettings, error) {
			var g gallerySettings
			err := s.Scan(&g.Enabled, &g.UpdatedAt)
			return g, err
		},
	)

	return &SettingsRepository{
		countdown: countdown,
		gallery:   gallery,
		now:       time.Now,
	}
}

// Countdown returns the stored countdown, or the zero value if none was saved
func (r *SettingsRepository) Countdown(ctx context.Context) (models.Countdown, error) {
	c, _, err := r.countdown.Get(ctx)
	return c, err
}

// SaveCountdown replaces the countdown and returns what was stored
func (r *SettingsRepository) SaveCountdown(ctx context.Context, c models.Countdown) (models.Countdown, error) {
	c.UpdatedAt = r.now().UTC()
	if err := r.countdown.Upsert(ctx, c); err != nil {
		return models.Countdown{}, err
	}
	return r.Countdown(ctx)
}

// GalleryEnabled reports whether the gallery is public. It defaults to true.
func (r *SettingsRepository) GalleryEnabled(ctx context.Context) (bool, error) {
	g, found, err := r.gallery.Get(ctx)
	if err != nil {
		return false, err
	}
	if !found {
		return true, nil
	}
	return g.Enabled, nil
}

// SetGalleryEnabled stores the gallery visibility flag
func (r *SettingsRepository) SetGalleryEnabled(ctx context.Context, enabled bool) error {
	return r.gallery.Upsert(ctx, gallerySettings{Enabled: enabled, UpdatedAt: r.now().UTC()})
}
