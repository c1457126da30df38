// Package errors provides unified error handling with structured error codes.
// Codes map to HTTP statuses at the API boundary and drive retry decisions.
package errors

import (
	"fmt"
	"net/http"
)

// Code classifies an error for API mapping and retry decisions.
type Code int

const (
	Unknown Code = iota
	Internal
	InvalidArgument
	NotFound
	Unavailable
	Timeout
	Cancelled
	RateLimited
	Unauthorized

	// Domain-specific codes.
	InvalidDistance
	InvalidDisplayProfile
	InvalidTrace
	ScorerUnavailable
	ConfigInvalid
)

var codeNames = map[Code]string{
	Unknown:               "UNKNOWN",
	Internal:              "INTERNAL",
	InvalidArgument:       "INVALID_ARGUMENT",
	NotFound:              "NOT_FOUND",
	Unavailable:           "UNAVAILABLE",
	Timeout:               "TIMEOUT",
	Cancelled:             "CANCELLED",
	RateLimited:           "RATE_LIMITED",
	Unauthorized:          "UNAUTHORIZED",
	InvalidDistance:       "INVALID_DISTANCE",
	InvalidDisplayProfile: "INVALID_DISPLAY_PROFILE",
	InvalidTrace:          "INVALID_TRACE",
	ScorerUnavailable:     "SCORER_UNAVAILABLE",
	ConfigInvalid:         "CONFIG_INVALID",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}

// httpStatusMap maps error codes to HTTP status codes.
var httpStatusMap = map[Code]int{
	Unknown:               http.StatusInternalServerError,
	Internal:              http.StatusInternalServerError,
	InvalidArgument:       http.StatusBadRequest,
	NotFound:              http.StatusNotFound,
	Unavailable:           http.StatusServiceUnavailable,
	Timeout:               http.StatusGatewayTimeout,
	Cancelled:             499, // client closed request
	RateLimited:           http.StatusTooManyRequests,
	Unauthorized:          http.StatusUnauthorized,
	InvalidDistance:       http.StatusBadRequest,
	InvalidDisplayProfile: http.StatusBadRequest,
	InvalidTrace:          http.StatusBadRequest,
	ScorerUnavailable:     http.StatusBadGateway,
	ConfigInvalid:         http.StatusInternalServerError,
}

// AppError is the base error type with structured error code and metadata.
type AppError struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// HTTPStatus returns the corresponding HTTP status code.
func (e *AppError) HTTPStatus() int {
	if s, ok := httpStatusMap[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New creates a new AppError with the given code and message.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates a new AppError with formatted message.
func Newf(code Code, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code Code) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}

// StatusOf returns the HTTP status for any error, defaulting to 500.
func StatusOf(err error) int {
	if appErr, ok := err.(*AppError); ok {
		return appErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// IsRetryable returns true if the error is potentially retryable.
func IsRetryable(err error) bool {
	appErr, ok := err.(*AppError)
	if !ok {
		return false
	}
	switch appErr.Code {
	case Unavailable, Timeout, RateLimited, ScorerUnavailable:
		return true
	default:
		return false
	}
}
