package platform

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrServiceNotFound is returned when the service does not exist.
	ErrServiceNotFound = errors.New("service not found")

	// ErrRejected is returned when the platform refuses a request.
	ErrRejected = errors.New("request rejected by platform")

	// ErrConflict is returned when the service changed since it was read.
	ErrConflict = errors.New("service generation conflict")

	// ErrUnauthorized is returned when credentials are missing or invalid.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTimeout is returned when the platform does not answer in time.
	ErrTimeout = errors.New("operation timed out")

	// ErrInvalidResponse is returned when a response cannot be decoded.
	ErrInvalidResponse = errors.New("invalid platform response")

	// ErrConnectionFailed is returned when the platform cannot be reached.
	ErrConnectionFailed = errors.New("platform connection failed")
)

// PlatformError wraps errors with additional context.
type PlatformError struct {
	Op         string // Operation that failed (e.g., "UpdateTraffic")
	Service    string
	StatusCode int // HTTP status, 0 when no response was received
	Message    string
	Err        error
}

func (e *PlatformError) Error() string {
	if e.Service != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Service, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *PlatformError) Unwrap() error {
	return e.Err
}

// NewPlatformError creates a new PlatformError.
func NewPlatformError(op, service string, statusCode int, message string, err error) *PlatformError {
	return &PlatformError{
		Op:         op,
		Service:    service,
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}
