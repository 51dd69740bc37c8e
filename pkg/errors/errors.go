// Package errors provides structured error types for captioner.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, batch runner and HTTP API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The engine-level taxonomy is small:
//   - DECODE_ERROR: input bytes are not a valid image (fatal to one request)
//   - FONT_LOAD_ERROR: the configured font cannot be loaded (fatal to startup)
//   - ANIMATION_FRAME_ERROR: one frame failed, so the whole animation failed
//   - ENCODE_ERROR: the composed output could not be encoded
//
// Layout never fails: the wrap policy always terminates with every word placed.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidOption, "unknown flag: %s", flag)
//	if errors.Is(err, errors.ErrCodeInvalidOption) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeDecode, origErr, "decode %s", name)
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Engine errors
	ErrCodeDecode         Code = "DECODE_ERROR"
	ErrCodeFontLoad       Code = "FONT_LOAD_ERROR"
	ErrCodeAnimationFrame Code = "ANIMATION_FRAME_ERROR"
	ErrCodeEncode         Code = "ENCODE_ERROR"

	// Input validation errors
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidOption  Code = "INVALID_OPTION"
	ErrCodeInvalidFormat  Code = "INVALID_FORMAT"
	ErrCodeInvalidProfile Code = "INVALID_PROFILE"
	ErrCodeInvalidConfig  Code = "INVALID_CONFIG"
	ErrCodeInvalidPath    Code = "INVALID_PATH"

	// Resource errors
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"
	ErrCodeTimeout      Code = "TIMEOUT"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// HTTPStatus maps an error code to the status the HTTP API answers with.
// Unknown and empty codes map to 500.
func HTTPStatus(code Code) int {
	switch code {
	case ErrCodeDecode, ErrCodeInvalidInput, ErrCodeInvalidOption,
		ErrCodeInvalidFormat, ErrCodeInvalidProfile, ErrCodeInvalidPath:
		return http.StatusBadRequest
	case ErrCodeAnimationFrame:
		return http.StatusUnprocessableEntity
	case ErrCodeFileNotFound:
		return http.StatusNotFound
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeUnsupported:
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}
