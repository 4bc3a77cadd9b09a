package services

import (
	"fmt"

	"github.com/desertthunder/mustx/internal/shared"
)

// APIError describes a non-2xx response from MustApp.
type APIError struct {
	StatusCode int
	URL        string
	Message    string
	notFound   bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

// Unwrap maps the response onto the shared sentinel errors.
func (e *APIError) Unwrap() error {
	if e.notFound {
		return shared.ErrUserNotFound
	}
	return shared.ErrAPIRequest
}

// errorBody is the error envelope MustApp returns: {"error": {"message": "..."}}.
type errorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}
