package bunq

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned when the API key is missing or rejected
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrRateLimited is returned when the API rate limits us
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout is returned on timeout
	ErrTimeout = errors.New("request timeout")

	// ErrNotFound is returned when a resource does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrServerError is returned for server-side errors
	ErrServerError = errors.New("server error")
)

// Error represents an API error response.
type Error struct {
	StatusCode  int    `json:"statusCode"`
	Description string `json:"description"`
	Err         error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("bunq: %d: %s", e.StatusCode, e.Description)
	}
	return fmt.Sprintf("bunq: HTTP %d", e.StatusCode)
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}
