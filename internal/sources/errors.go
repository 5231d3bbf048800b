package sources

import (
	"errors"
	"fmt"
)

// Common errors returned by the metadata provider clients.
//
// Provider unavailability (non-2xx status, malformed body) is NOT an
// error: it is reported as zero candidates so the caller falls through
// to the next source tier. Only transport-level faults surface as errors.
var (
	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = errors.New("network error communicating with provider")

	// ErrRateLimited indicates the client-side rate limiter was
	// cancelled before a permit became available.
	ErrRateLimited = errors.New("provider rate limit wait aborted")
)

// APIError represents an unexpected error from a provider API.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// IsNetworkError returns true if the error indicates a transport fault.
func IsNetworkError(err error) bool {
	return errors.Is(err, ErrNetworkError)
}
