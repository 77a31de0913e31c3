package garage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the backend has no such record.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when the token is missing or rejected.
	ErrUnauthorized = errors.New("not logged in")

	// ErrForbidden is returned when the current user may not perform the action.
	ErrForbidden = errors.New("permission denied")

	// ErrValidation marks input rejected before any request is sent.
	ErrValidation = errors.New("invalid input")

	// ErrDeclined is returned when the user refuses a confirmation prompt.
	ErrDeclined = errors.New("not confirmed")

	// ErrInvalidTransition is returned for a todo status change the
	// lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrNoFilesystem, ErrNoDatabase and ErrNoArchive are returned when an
	// operation needs a collaborator the Service was built without.
	ErrNoFilesystem = errors.New("no filesystem configured")
	ErrNoDatabase   = errors.New("no database configured")
	ErrNoArchive    = errors.New("no archive configured")
)

// validationError wraps ErrValidation with a field-level message.
func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
