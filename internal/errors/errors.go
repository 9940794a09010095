package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents an annot error code.
type ErrorCode string

const (
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"   // 400
	ErrUnsupportedType ErrorCode = "UNSUPPORTED_TYPE"  // 400
	ErrNotFound        ErrorCode = "NOT_FOUND"         // 404
	ErrFileNotFound    ErrorCode = "FILE_NOT_FOUND"    // 404
	ErrPayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE" // 413
	ErrInternal        ErrorCode = "INTERNAL"          // 500
)

// AnnotError represents a structured error with code, status, and details.
type AnnotError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	// cause is the wrapped storage error for internal failures; never sent to clients.
	cause error
}

// Error implements the error interface.
func (e *AnnotError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *AnnotError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for malformed input.
func NewInvalidRequest(msg string) *AnnotError {
	return &AnnotError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewUnsupportedType creates a 400 error for an upload whose extension is not accepted.
func NewUnsupportedType(filename string, allowed []string) *AnnotError {
	return &AnnotError{
		Code:    ErrUnsupportedType,
		Status:  400,
		Message: fmt.Sprintf("unsupported file type: %q (allowed: %v)", filename, allowed),
		Details: map[string]any{"filename": filename, "allowed": allowed},
	}
}

// NewNotFound creates a 404 error. kind names the resource ("note", "document").
func NewNotFound(kind, identifier string) *AnnotError {
	return &AnnotError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s with ID %s not found", kind, identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a local file path given to import or upload.
func NewFileNotFound(path string) *AnnotError {
	return &AnnotError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewPayloadTooLarge creates a 413 error when an upload exceeds the size limit.
func NewPayloadTooLarge(max int64) *AnnotError {
	return &AnnotError{
		Code:    ErrPayloadTooLarge,
		Status:  413,
		Message: fmt.Sprintf("upload exceeds maximum size of %d bytes", max),
		Details: map[string]any{"max_bytes": max},
	}
}

// NewInternal creates a 500 error for storage and other unexpected failures.
func NewInternal(err error) *AnnotError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &AnnotError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// As extracts an *AnnotError from err's chain.
func As(err error) (*AnnotError, bool) {
	var aErr *AnnotError
	if stderrors.As(err, &aErr) {
		return aErr, true
	}
	return nil, false
}

// Is checks if an error is an AnnotError with the given code.
func Is(err error, code ErrorCode) bool {
	if aErr, ok := As(err); ok {
		return aErr.Code == code
	}
	return false
}

// StatusOf returns the HTTP status for err, 500 for anything that is not an AnnotError.
func StatusOf(err error) int {
	if aErr, ok := As(err); ok {
		return aErr.Status
	}
	return 500
}
