// Package httputil is the single choke point for writing JSON responses and
// mapping domain error codes to HTTP statuses.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "quizforge/pkg/domain-errors"
)

type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteJSON writes a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// WriteError maps a domain error to its HTTP shape. Internal details never
// leave the process: internal and invariant failures write a bare code.
func WriteError(w http.ResponseWriter, err error) {
	status, code := statusOf(err)
	body := errorBody{Error: code}
	if status < http.StatusInternalServerError {
		body.Description = dErrors.MessageOf(err)
	}
	WriteJSON(w, status, body)
}

func statusOf(err error) (int, string) {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeValidation:
		return http.StatusBadRequest, "validation_error"
	case dErrors.CodeBadRequest:
		return http.StatusBadRequest, "bad_request"
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized, "unauthorized"
	case dErrors.CodeForbidden:
		return http.StatusForbidden, "forbidden"
	case dErrors.CodeNotFound:
		return http.StatusNotFound, "not_found"
	case dErrors.CodeConflict:
		return http.StatusConflict, "conflict"
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable, "service_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
