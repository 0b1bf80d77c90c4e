package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nao1215/scriptorium/internal/runner"
	"github.com/nao1215/scriptorium/internal/script"
)

// ErrorResponse is the JSON body returned for every failed request.
type ErrorResponse struct {
	// Error is a short description of what went wrong.
	Error string `json:"error"`
	// Details carries the underlying error text when it adds information.
	Details string `json:"details,omitempty"`
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an ErrorResponse with the given status code.
func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Details: details})
}

// writeDomainError maps err onto an HTTP status and writes it out.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFromError(err), err.Error(), "")
}

// statusFromError translates domain errors into HTTP status codes.
// Anything unrecognized is an internal server error.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, script.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, script.ErrScriptNotFound):
		return http.StatusNotFound
	case errors.Is(err, script.ErrScriptExists):
		return http.StatusConflict
	case errors.Is(err, runner.ErrRunTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
