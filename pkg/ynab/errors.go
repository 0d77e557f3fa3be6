package ynab

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned when the token is missing or rejected
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrRateLimited is returned when the API rate limits us
	ErrRateLimited = errors.New("rate limited")

	// ErrNotFound is returned when a resource does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrServerError is returned for server-side errors
	ErrServerError = errors.New("server error")

	// ErrAccountNotFound is returned when no budget account matches an IBAN
	ErrAccountNotFound = errors.New("no budget account found for iban")

	// ErrCategoryNotFound is returned when a predicted category name does
	// not exist in the budget
	ErrCategoryNotFound = errors.New("no category found by name")
)

// Error represents an API error response.
type Error struct {
	StatusCode int    `json:"statusCode"`
	ID         string `json:"id"`
	Name       string `json:"name"`
	Detail     string `json:"detail"`
	Err        error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("ynab: %s: %s", e.Name, e.Detail)
	}
	return fmt.Sprintf("ynab: HTTP %d", e.StatusCode)
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}
