// Package httpx writes JSON and RFC7807 problem responses for the API
// endpoints served next to the HTML pages.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Errors understood by RespondError.
var (
	ErrUnauthorized = errors.New("sign in required")
	ErrForbidden    = errors.New("capability not granted")
	ErrNotFound     = errors.New("resource not found")
)

// ProblemDetail is an RFC7807 problem document.
type ProblemDetail struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// RespondError maps err to a problem response. Unknown errors become a 500
// without detail so internals never leak.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "")
	}
}

// JSON writes data with the given status.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, "application/json", status, data)
}

// Problem writes a problem document titled after status.
func Problem(w http.ResponseWriter, status int, detail string) {
	write(w, "application/problem+json", status, ProblemDetail{
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	})
}

func write(w http.ResponseWriter, contentType string, status int, data any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
