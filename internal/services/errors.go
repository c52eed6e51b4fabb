package services

import (
	"context"
	"errors"
	"fmt"
)

// ValidationError represents bad local input, such as a missing upload file.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// TransportError is any failed call to the backend: network failure or a
// non-2xx response. Status is zero when no response was received.
type TransportError struct {
	Endpoint string
	Status   int
	Message  string
	Err      error
}

func (e *TransportError) Error() string {
	if e.Status > 0 {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ErrAborted marks an operation that was superseded or cancelled. It is never
// a user-facing failure.
var ErrAborted = errors.New("operation aborted")

// IsAborted reports whether err is a cancellation rather than a failure.
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted) || errors.Is(err, context.Canceled)
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
