// Package apperr defines the error taxonomy shared by the ledger services.
//
// Callers classify failures with errors.Is against the sentinels below; the
// HTTP layer maps each class to a status code.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("conflict")
	ErrNotFound        = errors.New("not found")
	ErrLinkFailure     = errors.New("account link failed")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// ValidationError reports an invalid or missing field. It is raised before
// any write reaches the store.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}

	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError for field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// LinkError wraps the store error of a failed account link. Compensated is set
// when the primary row was removed again.
type LinkError struct {
	Err         error
	Compensated bool
}

func (e *LinkError) Error() string {
	if e.Compensated {
		return fmt.Sprintf("linking account (rolled back): %v", e.Err)
	}

	return fmt.Sprintf("linking account: %v", e.Err)
}

func (e *LinkError) Unwrap() []error { return []error{ErrLinkFailure, e.Err} }

// NotFound wraps ErrNotFound with the entity name.
func NotFound(entity string) error {
	return fmt.Errorf("%s %w", entity, ErrNotFound)
}

// Conflict wraps ErrConflict with a human readable reason.
func Conflict(reason string) error {
	return fmt.Errorf("%w: %s", ErrConflict, reason)
}
