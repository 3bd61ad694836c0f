package telephony

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is returned by FindByName when no account matches.
	ErrNotFound = errors.New("telephony account not found")
	// ErrInvalidResponse is returned when a successful response lacks required fields.
	ErrInvalidResponse = errors.New("invalid response from telephony provider")
)

const maxErrorBody = 512

// APIError is a non-2xx response from the provider.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s %s: API error %d (status %d): %s", e.Method, e.Path, e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: API error (status %d): %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// IsRateLimited checks if an error indicates rate limiting.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}
