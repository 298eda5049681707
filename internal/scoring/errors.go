package scoring

import (
	"errors"
	"fmt"
)

// Common errors carried in failed results.
var (
	// ErrUnavailable indicates a transport failure reaching the service.
	ErrUnavailable = errors.New("scoring service unavailable")

	// ErrInvalidResponse indicates a response body that could not be decoded.
	ErrInvalidResponse = errors.New("invalid response from scoring service")

	// ErrNoEndpoint indicates the endpoint URL was not configured.
	ErrNoEndpoint = errors.New("scoring endpoint not configured")
)

// APIError represents a non-2xx response from the scoring service.
type APIError struct {
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("scoring API error (status %d, %s): %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("scoring API error (status %d, %s)", e.StatusCode, e.Endpoint)
}

// IsUnavailable returns true if the error means the service could not be
// used at all, as opposed to a well-formed empty answer.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrNoEndpoint) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode >= 500
}
