package xerrors

import (
	"errors"
	"fmt"
)

// Common reusable application errors
var (
	ErrNotFound       = errors.New("resource not found")
	ErrUnauthorized   = errors.New("unauthorized access")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidInput   = errors.New("invalid input")
	ErrConflict       = errors.New("conflict: resource already exists")
	ErrInternal       = errors.New("internal server error")
	ErrSessionExpired = errors.New("session expired or invalid")
	ErrBadRequest     = errors.New("bad request")
	ErrUpstream       = errors.New("upstream service error")
)

// Live class action errors
var (
	ErrConfirmationRequired = errors.New("explicit confirmation required")
	ErrStatusUnverified     = errors.New("could not verify live class status")
	ErrNotDeletable         = errors.New("live class cannot be deleted right now")
	ErrNotEditable          = errors.New("live class cannot be edited right now")
	ErrNoJoinLink           = errors.New("no join link available for live class")
)

// ErrPartialSubmit is returned when at least one installment row failed to save.
var ErrPartialSubmit = errors.New("some installment plans were not saved")

// Wrap adds context to an error (similar to fmt.Errorf("%w")).
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Unwrap extracts the underlying wrapped error.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// MessageOrDefault returns err.Error() or a fallback message if err is nil.
func MessageOrDefault(err error, fallback string) string {
	if err != nil {
		return err.Error()
	}
	return fallback
}
