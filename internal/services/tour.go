package services

import (
	"context"
	"fmt"
	"strings"

	"bandsite-backend/internal/models"
)

// TourStore is the persistence the tour service needs
type TourStore interface {
	List(ctx context.Context) ([]models.Tour, error)
	GetByID(ctx context.Context, id int64) (*models.Tour, error)
	Create(ctx context.Context, tour *models.Tour) error
	Update(ctx context.Context, tour *models.Tour) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// TourService handles tour-related business logic
type TourService struct {
	repo     TourStore
	notifier Notifier
}

// NewTourService creates a new tour service
func NewTourService(repo TourStore, notifier Notifier) *TourService {
	return &TourService{
		repo:     repo,
		notifier: notifierOrNop(notifier),
	}
}

// List returns all tours
func (s *TourService) List(ctx context.Context) ([]models.Tour, error) {
	return s.repo.List(ctx)
}

// Create validates, sanitizes and stores a new tour
func (s *TourService) Create(ctx context.Context, in models.TourInput) (*models.Tour, error) {
	tour, err := prepareTour(in)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, tour); err != nil {
		return nil, fmt.Errorf("failed to create tour: %w", err)
	}

	s.notifier.Broadcast(ResourceTours)
	return tour, nil
}

// Update replaces a tour's fields
func (s *TourService) Update(ctx context.Context, id int64, in models.TourInput) (*models.Tour, error) {
	tour, err := prepareTour(in)
	if err != nil {
		return nil, err
	}
	tour.ID = id

	ok, err := s.repo.Update(ctx, tour)
	if err != nil {
		return nil, fmt.Errorf("failed to update tour: %w", err)
	}
	if !ok {
		return nil, ErrNotFound
	}

	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.notifier.Broadcast(ResourceTours)
	return updated, nil
}

// Delete removes a tour
func (s *TourService) Delete(ctx context.Context, id int64) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete tour: %w", err)
	}
	if !ok {
		return ErrNotFound
	}

	s.notifier.Broadcast(ResourceTours)
	return nil
}

func prepareTour(in models.TourInput) (*models.Tour, error) {
	if msg := ValidateTour(in); msg != "" {
		return nil, invalid(msg)
	}

	tour := &models.Tour{
		Date:       SanitizeString(in.Date, DefaultMaxLength),
		City:       SanitizeString(in.City, DefaultMaxLength),
		Venue:      SanitizeString(in.Venue, DefaultMaxLength),
		TicketLink: SanitizeString(in.TicketLink, TicketLinkMaxLength),
	}

	required := []struct{ field, value string }{
		{"date", tour.Date},
		{"city", tour.City},
		{"venue", tour.Venue},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return nil, invalid(r.field + " is empty after removing markup")
		}
	}

	return tour, nil
}
