// -----------------------------------------------------------------------
// Typed Errors - Stable machine-readable error codes for the API surface
// -----------------------------------------------------------------------

package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is a stable machine-readable code carried on API error bodies
// and failed tasks.
type ErrorCode string

const (
	ErrCodeInputError        ErrorCode = "input_error"        // Missing, malformed, or empty input
	ErrCodeInputTooLarge     ErrorCode = "input_too_large"    // Input exceeds the configured size limit
	ErrCodeUnsupportedFormat ErrorCode = "unsupported_format" // MIME outside the supported set
	ErrCodeFetchError        ErrorCode = "fetch_error"        // URL-mode download failure
	ErrCodeExtractionError   ErrorCode = "extraction_error"   // Extractor failed to produce text
	ErrCodeNotFound          ErrorCode = "not_found"          // Unknown task, or expired result
	ErrCodeConflict          ErrorCode = "conflict"           // Operation invalid for current state
	ErrCodeInternal          ErrorCode = "internal_error"     // Unrecoverable processing failure
)

// AppError is a typed error that maps onto the API error body. Per-citation
// verification failures never use this type; they degrade to unverified
// citations instead.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error // wrapped cause, not serialized
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error code to its response status.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeInputError:
		return http.StatusBadRequest
	case ErrCodeInputTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrCodeUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case ErrCodeFetchError:
		return http.StatusBadGateway
	case ErrCodeExtractionError:
		return http.StatusUnprocessableEntity
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// NewAppError creates a typed error wrapping an optional cause.
func NewAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Err: cause}
}

// NewInputError flags malformed or empty input.
func NewInputError(message string) *AppError {
	return &AppError{Code: ErrCodeInputError, Message: message}
}

// NewNotFoundError flags an unknown or expired resource.
func NewNotFoundError(message string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message}
}

// AsAppError extracts an AppError from an error chain. Unmatched errors are
// wrapped as internal errors so the API never leaks raw error strings
// without a code.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{Code: ErrCodeInternal, Message: err.Error(), Err: err}
}

// ErrorBody is the JSON error envelope returned by every endpoint.
type ErrorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ToBody renders the error as its API envelope.
func (e *AppError) ToBody() ErrorBody {
	return ErrorBody{
		Error:   http.StatusText(e.HTTPStatus()),
		Code:    string(e.Code),
		Message: e.Message,
	}
}
