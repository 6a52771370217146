package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/richinex/anko/llm"
)

// ErrToolNotFound is matched by NotFoundError.
var ErrToolNotFound = errors.New("tool not found")

// NotFoundError reports a tool name or kind with no registered tool.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tool '%s' not found", e.Name)
}

func (e *NotFoundError) Unwrap() error { return ErrToolNotFound }

// ExecutionError reports a tool that failed on every attempt.
type ExecutionError struct {
	Tool     string
	Attempts int
	Err      error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool '%s' failed after %d attempts: %v", e.Tool, e.Attempts, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying, e.g. invalid input.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// modelError classifies a failed model call made by a tool. Failures the
// provider reports as lasting are permanent; an attempt cut off by its own
// timeout is left for the executor to retry.
func modelError(ctx context.Context, err error) error {
	if ctx.Err() == nil && !llm.IsRetryable(err) {
		return Permanent(err)
	}
	return err
}
