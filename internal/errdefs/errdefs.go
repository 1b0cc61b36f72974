// Package errdefs defines the error kinds shared by Switchboard's packages.
//
// Operations wrap one of the sentinel errors with context using fmt.Errorf
// and %w; the HTTP layer maps them to status codes with errors.Is.
// PersistenceError and DeliveryError are recovered kinds: they are logged
// and aggregated, never returned to the caller of the operation that hit them.
package errdefs

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input: a missing field or an unknown enum value.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a referenced session, lead or inquiry that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized marks a QA write the actor's capabilities do not allow.
	ErrUnauthorized = errors.New("not authorized")
	// ErrInvalidTransition marks a QA transition absent from the transition table.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrConflict marks a QA write whose observed prior state no longer matches storage.
	ErrConflict = errors.New("conflict")
)

// Validationf returns an error wrapping ErrValidation.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

// NotFoundf returns an error wrapping ErrNotFound.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// Unauthorizedf returns an error wrapping ErrUnauthorized.
func Unauthorizedf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrUnauthorized)
}

// InvalidTransitionf returns an error wrapping ErrInvalidTransition.
func InvalidTransitionf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidTransition)
}

// Conflictf returns an error wrapping ErrConflict.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConflict)
}

// PersistenceError records a failed write of one session during a batch sync.
type PersistenceError struct {
	SessionID string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist session %s: %v", e.SessionID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// DeliveryError records a notification that could not be delivered after a
// QA transition was committed.
type DeliveryError struct {
	SessionID string
	Channel   string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver %s notification for session %s: %v", e.Channel, e.SessionID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
