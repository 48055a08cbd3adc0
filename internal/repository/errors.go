package repository

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionCorrupt      = errors.New("session record is corrupt")
	ErrUserNotFound        = errors.New("user not found")
	ErrTodoListNotFound    = errors.New("todo list not found")
	ErrTaskNotFound        = errors.New("task not found")
	ErrPositionConflict    = errors.New("task positions collide")
	ErrOnboardingCompleted = errors.New("onboarding already completed")
	ErrUsernameTaken       = errors.New("username already taken")
	errSessionExpired      = errors.New("session expires before it is stored")
)

// StoreError marks a failure of the backing store itself (connectivity,
// transaction abort) as opposed to a lookup that simply found nothing.
type StoreError struct {
	Store string
	Op    string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Store, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

func storeErr(store, op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Store: store, Op: op, Err: err}
}
