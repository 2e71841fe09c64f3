// Package retry holds the timeout and retry policy applied to backend requests.
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy bounds a single backend request. The zero value performs one attempt
// with no timeout.
type Policy struct {
	Timeout     time.Duration // per attempt, 0 means the backend SDK default
	MaxAttempts int           // values below 1 mean a single attempt
	Backoff     time.Duration // multiplied by the attempt number
	Retryable   func(error) bool
}

// IsTemporary reports whether err says it is temporary
func IsTemporary(err error) bool {
	var temp interface{ Temporary() bool }
	if errors.As(err, &temp) {
		return temp.Temporary()
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// Do runs op under the policy. Context cancellation of the parent is never retried.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsTemporary
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = p.attempt(ctx, op); err == nil {
			return nil
		}
		if ctx.Err() != nil || !retryable(err) || i == attempts-1 {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Backoff * time.Duration(i+1)):
		}
	}
	return err
}

func (p Policy) attempt(ctx context.Context, op func(ctx context.Context) error) error {
	if p.Timeout <= 0 {
		return op(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	return op(ctx)
}
