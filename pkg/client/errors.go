package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/naveenspark/stepdeck/pkg/domain"
)

// HTTPError represents a non-2xx HTTP response from the API.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsStatus returns true if err (or any wrapped error) is an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}

// asDomain tags err with the domain error kind matching its status so
// callers can branch with errors.Is without knowing about HTTP.
func asDomain(err error) error {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return &domain.Error{Kind: domain.ErrPersistence, Err: err}
	}
	switch httpErr.StatusCode {
	case http.StatusNotFound:
		return &domain.Error{Kind: domain.ErrNotFound, Err: err}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return &domain.Error{Kind: domain.ErrValidation, Err: err}
	default:
		return &domain.Error{Kind: domain.ErrPersistence, Err: err}
	}
}
