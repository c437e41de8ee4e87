// Package errors provides custom error types for the People Connect service.
//
// Each type maps to one class of failure the HTTP layer reacts to
// differently: validation problems are rendered inline next to the form,
// authentication problems get a generic message, and everything else is an
// internal failure that aborts the current request.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ValidationError indicates that a submission was rejected before any write.
//
// Key is a locale key (for example "fill_all" or "bad_mobile") so the
// presentation layer can show the message in the visitor's language.
//
// Recovery strategy: fix the input and resubmit
type ValidationError struct {
	Key   string
	Field string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed: %s (%s)", e.Key, e.Field)
	}
	return fmt.Sprintf("validation failed: %s", e.Key)
}

// NewValidationError creates a validation error for a locale key
func NewValidationError(key, field string) *ValidationError {
	return &ValidationError{Key: key, Field: field}
}

// AuthError indicates that a credential check failed.
//
// The message shown to the user is always generic; Reason is only logged.
//
// Recovery strategy: retry with the right credentials
type AuthError struct {
	Key    string // locale key shown to the user
	Reason string // internal detail for logs
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

// NewAuthError creates an authentication error
func NewAuthError(key, reason string) *AuthError {
	return &AuthError{Key: key, Reason: reason}
}

// StorageError wraps failures of the database or the attachment directory.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("storage error: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage error: %s", e.Op)
}

// Unwrap returns the wrapped error for error chain inspection
func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a storage error for the named operation
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

// IsValidation reports whether err is (or wraps) a ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return stderrors.As(err, &v)
}

// ValidationKey returns the locale key of a wrapped ValidationError, or "".
func ValidationKey(err error) string {
	var v *ValidationError
	if stderrors.As(err, &v) {
		return v.Key
	}
	return ""
}

// IsAuth reports whether err is (or wraps) an AuthError
func IsAuth(err error) bool {
	var a *AuthError
	return stderrors.As(err, &a)
}

// AuthKey returns the locale key of a wrapped AuthError, or "".
func AuthKey(err error) string {
	var a *AuthError
	if stderrors.As(err, &a) {
		return a.Key
	}
	return ""
}

// IsStorage reports whether err is (or wraps) a StorageError
func IsStorage(err error) bool {
	var s *StorageError
	return stderrors.As(err, &s)
}
