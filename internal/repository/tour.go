package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bandsite-backend/internal/models"

	"github.com/Masterminds/squirrel"
)

var tourColumns = []string{"id", "date", "city", "venue", "ticket_link", "created_at", "updated_at"}

// TourRepository handles database operations for tours
type TourRepository struct {
	db  *DB
	sb  squirrel.StatementBuilderType
	now func() time.Time
}

// NewTourRepository creates a new tour repository
func NewTourRepository(db *DB) *TourRepository {
	return &TourRepository{
		db:  db,
		sb:  newStatementBuilder(),
		now: time.Now,
	}
}

// List returns all tours, latest date first. Dates are compared as plain text.
func (r *TourRepository) List(ctx context.Context) ([]models.Tour, error) {
	query, args, err := r.sb.Select(tourColumns...).
		From("tours").
		OrderBy("date DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build tours query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tours: %w", err)
	}
	defer rows.Close()

	tours := make([]models.Tour, 0)
	for rows.Next() {
		var t models.Tour
		if err := rows.Scan(&t.ID, &t.Date, &t.City, &t.Venue, &t.TicketLink, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tour: %w", err)
		}
		tours = append(tours, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tours: %w", err)
	}

	return tours, nil
}

// GetByID retrieves a tour by ID
func (r *TourRepository) GetByID(ctx context.Context, id int64) (*models.Tour, error) {
	query, args, err := r.sb.Select(tourColumns...).
		From("tours").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build tour query: %w", err)
	}

	var t models.Tour
	err = r.db.QueryRowContext(ctx, query, args...).
		Scan(&t.ID, &t.Date, &t.City, &t.Venue, &t.TicketLink, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tour: %w", err)
	}

	return &t, nil
}

// Create inserts a tour and fills in its ID and timestamps
func (r *TourRepository) Create(ctx context.Context, tour *models.Tour) error {
	now := r.now().UTC()
	tour.CreatedAt = now
	tour.UpdatedAt = now

	query, args, err := r.sb.Insert("tours").
		Columns("date", "city", "venue", "ticket_link", "created_at", "updated_at").
		Values(tour.Date, tour.City, tour.Venue, tour.TicketLink, tour.CreatedAt, tour.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build tour insert: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to create tour: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read tour id: %w", err)
	}
	tour.ID = id

	return nil
}

// Update replaces the writable fields of a tour. It reports false when the ID does not exist.
func (r *TourRepository) Update(ctx context.Context, tour *models.Tour) (bool, error) {
	tour.UpdatedAt = r.now().UTC()

	query, args, err := r.sb.Update("tours").
		Set("date", tour.Date).
		Set("city", tour.City).
		Set("venue", tour.Venue).
		Set("ticket_link", tour.TicketLink).
		Set("updated_at", tour.UpdatedAt).
		Where(squirrel.Eq{"id": tour.ID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build tour update: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update tour: %w", err)
	}

	return affected(result)
}

// Delete removes a tour. It reports false when the ID does not exist.
func (r *TourRepository) Delete(ctx context.Context, id int64) (bool, error) {
	query, args, err := r.sb.Delete("tours").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build tour delete: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to delete tour: %w", err)
	}

	return affected(result)
}

func affected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}
