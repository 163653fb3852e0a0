package domain

import (
	"errors"
	"fmt"
)

// Error codes for domain errors
const (
	ErrCodeInvalidPayload = "INVALID_PAYLOAD"
	ErrCodeScopeMismatch  = "SCOPE_MISMATCH"
	ErrCodePatchApply     = "PATCH_APPLY_FAILED"
	ErrCodeChangeState    = "CHANGE_STATE_INVALID"
	ErrCodeChangeNotFound = "CHANGE_NOT_FOUND"
	ErrCodeFileNotFound   = "FILE_NOT_FOUND"
	ErrCodeConfigError    = "CONFIG_ERROR"
	ErrCodeOutputError    = "OUTPUT_ERROR"
	ErrCodePersistence    = "PERSISTENCE_ERROR"
)

// DomainError represents a structured error with a stable code
type DomainError struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface
func (e DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e DomainError) Unwrap() error {
	return e.Cause
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, cause error) error {
	return DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewInvalidPayloadError creates an error for malformed analyzer or fix payloads
func NewInvalidPayloadError(message string, cause error) error {
	return NewDomainError(ErrCodeInvalidPayload, message, cause)
}

// NewScopeMismatchError creates an error for paths outside the workspace
func NewScopeMismatchError(path string) error {
	return NewDomainError(ErrCodeScopeMismatch, fmt.Sprintf("path outside workspace: %s", path), nil)
}

// NewPatchApplyError creates an error for a diff that could not be applied
func NewPatchApplyError(uri string, cause error) error {
	return NewDomainError(ErrCodePatchApply, fmt.Sprintf("cannot apply diff to %s", uri), cause)
}

// NewChangeStateError creates an error for an invalid change state transition
func NewChangeStateError(id string, from, to ChangeState) error {
	return NewDomainError(ErrCodeChangeState, fmt.Sprintf("change %s cannot move from %s to %s", id, from, to), nil)
}

// NewChangeNotFoundError creates an error for an unknown change reference
func NewChangeNotFoundError(ref string) error {
	return NewDomainError(ErrCodeChangeNotFound, fmt.Sprintf("no change matches: %s", ref), nil)
}

// NewFileNotFoundError creates a file not found error
func NewFileNotFoundError(path string, cause error) error {
	return NewDomainError(ErrCodeFileNotFound, fmt.Sprintf("file not found: %s", path), cause)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) error {
	return NewDomainError(ErrCodeConfigError, message, cause)
}

// NewOutputError creates an output error
func NewOutputError(message string, cause error) error {
	return NewDomainError(ErrCodeOutputError, message, cause)
}

// NewPersistenceError creates an error for snapshot or journal failures
func NewPersistenceError(message string, cause error) error {
	return NewDomainError(ErrCodePersistence, message, cause)
}

// IsErrorCode reports whether err is a DomainError carrying the given code
func IsErrorCode(err error, code string) bool {
	var de DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
