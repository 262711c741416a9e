package rest

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels for the error classes callers branch on.
var (
	ErrUnauthorized = errors.New("authorization expired or missing")
	ErrNotFound     = errors.New("resource not found")
	ErrValidation   = errors.New("request rejected by validation")
)

// APIError represents a non-2xx response from the game backend.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s (http %d)", e.Code, e.Message, e.Status)
}

// Is maps HTTP status classes onto the sentinel errors so callers can use
// errors.Is without inspecting status codes.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrValidation:
		return e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity
	}
	return false
}
