package agent

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrMalformedResponse is matched by MalformedResponseError.
	ErrMalformedResponse = errors.New("malformed model response")

	// ErrIterationLimit is returned when a turn needs more model calls
	// than Config.MaxIterations allows.
	ErrIterationLimit = errors.New("iteration limit reached")

	// ErrSessionClosed is returned for turns on a closed session.
	ErrSessionClosed = fmt.Errorf("session closed: %w", context.Canceled)
)

// MalformedResponseError reports a model reply the loop cannot act on:
// an unknown tool, unparsable arguments, or neither text nor a tool call.
type MalformedResponseError struct {
	Tool   string
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	msg := "malformed model response"
	if e.Tool != "" {
		msg += fmt.Sprintf(" (tool %q)", e.Tool)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedResponseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedResponse}
	}
	return []error{ErrMalformedResponse, e.Err}
}
