package services

import (
	"context"
	"errors"

	"bandsite-backend/internal/repository"

	"github.com/google/uuid"
)

func newUUID() string {
	return uuid.New().String()
}

// insertWithFreshID runs insert with a generated id. On an id collision the id is
// regenerated and the insert retried once.
func insertWithFreshID(ctx context.Context, newID func() string, insert func(ctx context.Context, id string) error) (string, error) {
	id := newID()
	err := insert(ctx, id)
	if errors.Is(err, repository.ErrDuplicateID) {
		id = newID()
		err = insert(ctx, id)
	}
	if err != nil {
		return "", err
	}
	return id, nil
}
