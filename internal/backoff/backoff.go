// Package backoff runs an operation with bounded exponential-backoff retries.
//
// Information Hiding:
// - Delay schedule (base * 2^attempt, capped)
// - Cancellation while waiting between attempts
package backoff

import (
	"context"
	"time"
)

const (
	DefaultAttempts  = 3
	DefaultBaseDelay = 100 * time.Millisecond
	DefaultMaxDelay  = 5 * time.Second
)

// Policy bounds a retry loop. Zero fields take the defaults.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// Default returns the policy used for tool and model calls.
func Default() Policy {
	return Policy{Attempts: DefaultAttempts, BaseDelay: DefaultBaseDelay, MaxDelay: DefaultMaxDelay}
}

func (p Policy) normalized() Policy {
	if p.Attempts <= 0 {
		p.Attempts = DefaultAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	return p
}

// Delay returns the wait before the given retry (1 is the first retry).
func (p Policy) Delay(retry int) time.Duration {
	p = p.normalized()
	if retry <= 0 {
		return 0
	}
	delay := p.BaseDelay
	for i := 1; i < retry; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return min(delay, p.MaxDelay)
}

// Do calls op until it succeeds, retry reports false for its error, the
// attempts run out or ctx is done. It returns the number of attempts made
// and the last error.
func Do(ctx context.Context, p Policy, retry func(error) bool, op func(ctx context.Context, attempt int) error) (int, error) {
	p = p.normalized()
	var err error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if attempt > 1 {
			timer := time.NewTimer(p.Delay(attempt - 1))
			select {
			case <-ctx.Done():
				timer.Stop()
				return attempt - 1, ctx.Err()
			case <-timer.C:
			}
		}
		err = op(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		if ctx.Err() != nil {
			return attempt, err
		}
		if retry != nil && !retry(err) {
			return attempt, err
		}
	}
	return p.Attempts, err
}
