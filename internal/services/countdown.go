package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bandsite-backend/internal/models"
)

var releaseDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// CountdownStore is the persistence the countdown service needs
type CountdownStore interface {
	Countdown(ctx context.Context) (models.Countdown, error)
	SaveCountdown(ctx context.Context, c models.Countdown) (models.Countdown, error)
}

// CountdownService handles the release countdown
type CountdownService struct {
	repo     CountdownStore
	notifier Notifier
	now      func() time.Time
}

// NewCountdownService creates a new countdown service
func NewCountdownService(repo CountdownStore, notifier Notifier) *CountdownService {
	return &CountdownService{
		repo:     repo,
		notifier: notifierOrNop(notifier),
		now:      time.Now,
	}
}

// Get returns the countdown with its released flag computed against the current time
func (s *CountdownService) Get(ctx context.Context) (models.Countdown, error) {
	c, err := s.repo.Countdown(ctx)
	if err != nil {
		return models.Countdown{}, fmt.Errorf("failed to get countdown: %w", err)
	}
	return s.withReleased(c), nil
}

// Update merges the provided fields into the stored countdown and writes the result
func (s *CountdownService) Update(ctx context.Context, in models.CountdownInput) (models.Countdown, error) {
	current, err := s.repo.Countdown(ctx)
	if err != nil {
		return models.Countdown{}, fmt.Errorf("failed to get countdown: %w", err)
	}

	if in.Enabled != nil {
		current.Enabled = *in.Enabled
	}
	if in.ReleaseDate != nil {
		release, err := parseReleaseDate(*in.ReleaseDate)
		if err != nil {
			return models.Countdown{}, err
		}
		current.ReleaseDate = release
	}
	if in.Title != nil {
		current.Title = SanitizeString(*in.Title, DefaultMaxLength)
	}
	if in.Description != nil {
		current.Description = SanitizeString(*in.Description, DescriptionMaxLength)
	}
	if in.CompletedTitle != nil {
		current.CompletedTitle = SanitizeString(*in.CompletedTitle, DefaultMaxLength)
	}
	if in.CompletedDescription != nil {
		current.CompletedDescription = SanitizeString(*in.CompletedDescription, DescriptionMaxLength)
	}

	saved, err := s.repo.SaveCountdown(ctx, current)
	if err != nil {
		return models.Countdown{}, fmt.Errorf("failed to save countdown: %w", err)
	}

	s.notifier.Broadcast(ResourceCountdown)
	return s.withReleased(saved), nil
}

func (s *CountdownService) withReleased(c models.Countdown) models.Countdown {
	c.Released = c.ReleaseDate != nil && !c.ReleaseDate.After(s.now())
	return c
}

func parseReleaseDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range releaseDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, invalid("releaseDate must be an ISO 8601 date or timestamp")
}
