package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotConfigured is returned when no onboarding API base URL has been set
var ErrNotConfigured = errors.New("onboarding API is not configured")

// RemoteError describes a failed call to the onboarding API
type RemoteError struct {
	StatusCode int
	Endpoint   string
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("onboarding API error (status %d) on %s: %s: %v", e.StatusCode, e.Endpoint, e.Message, e.Err)
	}
	return fmt.Sprintf("onboarding API error (status %d) on %s: %s", e.StatusCode, e.Endpoint, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt could succeed. Only transport failures and
// server errors are retried; every 4xx is surfaced immediately.
func (e *RemoteError) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode >= http.StatusInternalServerError
}

// NewRemoteError creates a new RemoteError
func NewRemoteError(statusCode int, endpoint, message string, err error) error {
	return &RemoteError{
		StatusCode: statusCode,
		Endpoint:   endpoint,
		Message:    message,
		Err:        err,
	}
}
