package tracker

import (
	"errors"
	"fmt"

	"github.com/kittclouds/babylog/internal/store"
)

// ValidationError reports malformed or missing caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError reports an update or delete of an unknown event id.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("event %d not found", e.ID)
}

// ConsistencyViolation reports more than one open interval of a type.
// Toggles repair it in place; it is only returned by CheckIntervals.
type ConsistencyViolation struct {
	Type store.EventType
	Open int
}

func (e *ConsistencyViolation) Error() string {
	return fmt.Sprintf("%d open %s intervals, expected at most 1", e.Open, e.Type)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
