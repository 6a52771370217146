package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrModelUnavailable is matched by every ModelUnavailableError.
var ErrModelUnavailable = errors.New("model unavailable")

// ErrContentFiltered is returned when the provider's content filter
// withheld the reply.
var ErrContentFiltered = errors.New("reply withheld by content filter")

// ModelUnavailableError reports a failed call to a hosted model.
// Retryable is false for failures that will not go away on their own
// (bad credentials, unknown deployment, rejected request).
type ModelUnavailableError struct {
	Provider  string
	Err       error
	Retryable bool
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("%s: model unavailable: %v", e.Provider, e.Err)
}

func (e *ModelUnavailableError) Unwrap() []error {
	return []error{ErrModelUnavailable, e.Err}
}

// unavailable wraps a provider error, classifying it by HTTP status when known.
func unavailable(provider string, err error, status int) error {
	return &ModelUnavailableError{
		Provider:  provider,
		Err:       err,
		Retryable: retryableStatus(err, status),
	}
}

func retryableStatus(err error, status int) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch status {
	case 400, 401, 403, 404, 422:
		return false
	}
	return true
}

// IsRetryable reports whether err is a transient model failure.
func IsRetryable(err error) bool {
	var mu *ModelUnavailableError
	if errors.As(err, &mu) {
		return mu.Retryable
	}
	return false
}
