package xerrors

import (
	"errors"
	"fmt"
	"strings"
)

// Common reusable application errors
var (
	ErrNotFound       = errors.New("resource not found")
	ErrUnauthorized   = errors.New("unauthorized access")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidInput   = errors.New("invalid input")
	ErrDuplicateEntry = errors.New("duplicate entry")
)

// Ingestion and segmentation errors
var (
	// ErrDuplicateMessage marks a redelivered webhook whose message id is already stored.
	ErrDuplicateMessage = fmt.Errorf("%w: message already recorded", ErrDuplicateEntry)
	// ErrInvalidSender marks a sender id that does not normalize to a usable phone number.
	ErrInvalidSender = errors.New("invalid sender identifier")
	// ErrClassifierUnavailable wraps every transport failure of the segmentation classifier.
	ErrClassifierUnavailable = errors.New("classifier unavailable")
	// ErrBatchInProgress is returned when another batch run holds the batch lock.
	ErrBatchInProgress = errors.New("segmentation batch already running")
)

// ValidationError carries field-level details for a rejected payload.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for field, reason := range e.Fields {
		parts = append(parts, field+": "+reason)
	}
	return e.Message + " (" + strings.Join(parts, ", ") + ")"
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError builds a ValidationError without field details.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
