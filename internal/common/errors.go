package common

import (
	"errors"
	"net/http"
)

// Error codes surfaced in the canonical error body.
const (
	CodeNotFound    = "NOT_FOUND"
	CodeValidation  = "VALIDATION_ERROR"
	CodeUpstream    = "UPSTREAM_ERROR"
	CodeInvalidJSON = "INVALID_JSON"
	CodeInternal    = "INTERNAL"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// NotFound reports that no catalog record or price matched a request.
func NotFound(message string, err error) *AppError {
	return NewAppError(CodeNotFound, message, http.StatusNotFound, err)
}

// Validation reports missing or malformed caller input.
func Validation(message string, details any) *AppError {
	appErr := NewAppError(CodeValidation, message, http.StatusBadRequest, nil)
	appErr.Details = details
	return appErr
}

// Upstream wraps a pricing catalog failure. The message carries the
// underlying error text.
func Upstream(err error) *AppError {
	message := "upstream catalog error"
	if err != nil {
		message = err.Error()
	}
	return NewAppError(CodeUpstream, message, http.StatusInternalServerError, err)
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// IsNotFound reports whether err carries the NOT_FOUND code.
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsUpstream reports whether err carries the UPSTREAM_ERROR code.
func IsUpstream(err error) bool {
	return hasCode(err, CodeUpstream)
}

func hasCode(err error, code string) bool {
	var target *AppError
	if !errors.As(err, &target) {
		return false
	}
	return target.Code == code
}
