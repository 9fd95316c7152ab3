// Package apperror defines the domain error taxonomy shared by every layer.
//
// SENTINELS + ONE CONCRETE TYPE:
// Each failure class has a sentinel (ErrNotFound, ErrValidation, ...).
// Services return *AppError values that wrap a sentinel and carry the
// human-readable message the client sees. Callers classify with errors.Is
// and read the message with errors.As:
//
//	err := svc.SendRequest(ctx, "ann", "ann")
//	errors.Is(err, apperror.ErrValidation) // true
//
// Only the HTTP layer turns a class into a status code, so the same service
// can answer 400 on one endpoint and 404 on another.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")

	// ErrFanout marks a notification side effect that failed after the
	// primary mutation committed. It is logged, never surfaced to clients.
	ErrFanout = errors.New("notification fan-out failed")
)

// AppError is a classified error with a client-facing message.
type AppError struct {
	Err     error  // sentinel class
	Message string // shown to the client as-is
	Field   string // optional: offending request field
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports a missing entity. The message is used verbatim,
// e.g. "Question not found" or "User not found.".
func NotFound(message string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: message,
	}
}

// ValidationFailed reports a malformed request.
func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a state clash such as a duplicate friend request.
func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Fanout wraps a secondary-effect failure so it can be told apart from a
// failure of the primary mutation.
func Fanout(step string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrFanout, step, err)
}
