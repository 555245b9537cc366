package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain layer operations.
var (
	// ErrInvalidTimestamp indicates a feed item timestamp equal to the UNIX epoch
	// (or unset), which signals a date parsing defect upstream.
	ErrInvalidTimestamp = errors.New("feed item timestamp may not be the UNIX epoch")

	// ErrEmptyGUID indicates a feed item without an identity.
	ErrEmptyGUID = errors.New("feed item GUID is required")

	// ErrValidationFailed indicates that validation checks have failed
	ErrValidationFailed = errors.New("validation failed")
)

// ValidationError represents a validation error with detailed field information.
// It implements the error interface and provides context about which field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrValidationFailed.
func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}
