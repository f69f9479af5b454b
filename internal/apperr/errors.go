// Package apperr defines the error categories surfaced by the service layer.
// Handlers map each category to an HTTP status; storage detail never reaches
// the client.
package apperr

import (
	"errors"
	"fmt"
)

// ValidationError rejects a malformed payload or a cross-field rule
// violation before any write happens.
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

// Validation builds a ValidationError for a field.
func Validation(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports that the target resource does not exist or does not
// belong to the expected plan.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// NotFound builds a NotFoundError.
func NotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ConflictError reports an operation blocked by current state, e.g. deleting
// a task that still has children or adding a member twice.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// Conflict builds a ConflictError.
func Conflict(format string, args ...any) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// AccessError reports that the actor lacks the role an operation requires.
type AccessError struct {
	Required string
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("requires %s role", e.Required)
}

// Access builds an AccessError for the minimum required role.
func Access(required string) *AccessError {
	return &AccessError{Required: required}
}

// StorageError wraps a persistence failure. The wrapped error is logged with
// operation context and never shown to the caller.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure in %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Storage wraps err with the failing operation name. Returns nil when err is
// nil so repository calls can be wrapped unconditionally.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// Category helpers used by the HTTP layer.

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

func IsAccess(err error) bool {
	var e *AccessError
	return errors.As(err, &e)
}
