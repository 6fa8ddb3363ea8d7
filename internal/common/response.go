package common

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrorBody represents a consistent error payload returned by the API.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON writes the provided value to the response writer as JSON.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSONError renders an error response using the canonical error shape.
func JSONError(w http.ResponseWriter, status int, code, message string, details any) {
	JSON(w, status, map[string]any{
		"error": ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// WriteError maps err onto the canonical error response. AppErrors keep their
// status and code, JSON syntax errors become 400 and anything else is a 500
// carrying the error text.
func WriteError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	var syntaxErr *json.SyntaxError
	var appErr *AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		code := appErr.Code
		if code == "" {
			code = CodeInternal
		}
		message := appErr.Error()
		if message == "" {
			message = "internal error"
		}
		var details any
		if appErr.Details != nil {
			details = appErr.Details
		}
		if appErr.Err != nil && errors.As(appErr.Err, &syntaxErr) {
			details = map[string]any{"offset": syntaxErr.Offset}
		}
		JSONError(w, status, code, message, details)
		return
	}
	if errors.Is(err, ErrEmptyBody) {
		JSONError(w, http.StatusBadRequest, CodeValidation, "No data provided", nil)
		return
	}
	if errors.As(err, &syntaxErr) {
		JSONError(w, http.StatusBadRequest, CodeInvalidJSON, "invalid JSON body", map[string]any{"offset": syntaxErr.Offset})
		return
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		JSONError(w, http.StatusBadRequest, CodeInvalidJSON, "invalid JSON body", map[string]any{"field": typeErr.Field, "expected": typeErr.Type.String()})
		return
	}
	JSONError(w, http.StatusInternalServerError, CodeInternal, err.Error(), nil)
}
