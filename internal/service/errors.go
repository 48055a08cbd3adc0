package service

import (
	"errors"
	"fmt"

	"github.com/dashkit/admin-dashboard/internal/repository"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrOnboardingDone     = errors.New("onboarding already completed")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrTodoListNotFound) ||
		errors.Is(err, repository.ErrTaskNotFound) ||
		errors.Is(err, repository.ErrUserNotFound)
}
