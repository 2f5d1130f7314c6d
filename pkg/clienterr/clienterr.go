// Package clienterr defines the error taxonomy shared by the API client
// and the UI controllers. Callers branch with errors.Is / errors.As.
package clienterr

import (
	"errors"
	"fmt"
)

// ErrNotFound marks a referenced question id that no longer exists
// server-side (deleted concurrently, stale catalog).
var ErrNotFound = errors.New("not found")

// ErrBusy marks a state-mutating call issued while another request on the
// same session is still in flight.
var ErrBusy = errors.New("request already in flight")

// ValidationError is a local input failure. It never reaches the network
// and leaves all state unchanged.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validation builds a ValidationError.
func Validation(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a local validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NetworkError means the request could not be completed at all.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("%s: network error: %v", e.Op, e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError means the server answered with an explicit error payload or
// an unexpected status.
type ServerError struct {
	Op      string
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: server error (status %d): %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: server error (status %d)", e.Op, e.Status)
}

// MalformedResponseError means the response body did not match the
// documented shape.
type MalformedResponseError struct {
	Op  string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Op, e.Err)
}
func (e *MalformedResponseError) Unwrap() error { return e.Err }
