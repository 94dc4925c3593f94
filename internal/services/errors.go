package services

import (
	"errors"

	"bandsite-backend/internal/repository"
)

// ErrNotFound is returned when the addressed record does not exist
var ErrNotFound = repository.ErrNotFound

// ValidationError describes input that failed validation
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// UploadError describes a rejected upload
type UploadError struct {
	Message string
}

func (e *UploadError) Error() string {
	return e.Message
}

func invalid(message string) error {
	return &ValidationError{Message: message}
}

func rejected(message string) error {
	return &UploadError{Message: message}
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
