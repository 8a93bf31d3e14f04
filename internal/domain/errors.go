package domain

import (
	"errors"
	"fmt"
)

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// NetworkError represents a transport-level failure (dial, read, handshake).
// The socket reconnects on its own; callers only log it.
type NetworkError struct {
	Op        string // Operation that failed (e.g., "dial", "read", "identify")
	Err       error  // Underlying error
	Retriable bool   // Whether this error is retriable
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) IsRetriable() bool {
	return e.Retriable
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new retriable network error
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: true}
}

// NewFatalNetworkError creates a non-retriable network error
func NewFatalNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: false}
}

// RequestError is a rejected or failed REST call. The operation it
// describes must be treated as not having happened.
type RequestError struct {
	Op     string // e.g. "delistDeposit"
	Status int    // HTTP status, 0 when the request never got a response
	Body   string
	Err    error
}

func (e *RequestError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Body != "":
		return fmt.Sprintf("%s: status=%d body=%s", e.Op, e.Status, e.Body)
	default:
		return fmt.Sprintf("%s: status=%d", e.Op, e.Status)
	}
}

// IsRetriable treats transport failures, throttling and 5xx as retriable.
func (e *RequestError) IsRetriable() bool {
	return e.Status == 0 || e.Status == 429 || e.Status >= 500
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrMissingSecurityToken is returned when the marketplace did not issue a security token.
	ErrMissingSecurityToken = errors.New("missing security token")

	// ErrNotConnected is returned when writing to a socket that is down.
	ErrNotConnected = errors.New("not connected")

	// ErrRejected is returned when the API answered but reported success=false.
	ErrRejected = errors.New("rejected by marketplace")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")
)
