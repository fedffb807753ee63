package api

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RetryPolicy configures exponential backoff for transient failures: network
// errors, 5xx and 429 responses.
type RetryPolicy struct {
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.InitialDelay
	for range attempt {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return min(d, p.MaxDelay)
}

func isRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Retryable
	}
	var pe *permanentError
	return !errors.As(err, &pe)
}

// permanentError marks local failures (bad request construction, decoding)
// which repeating cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// retry calls fn until it succeeds, fails permanently or attempts are
// exhausted.
func (p RetryPolicy) retry(ctx context.Context, onRetry func(attempt int, err error, wait time.Duration), fn func() error) error {
	attempts := max(p.Attempts, 1)

	var err error
	for attempt := range attempts {
		if err = fn(); err == nil || !isRetryable(err) {
			return err
		}
		if attempt == attempts-1 {
			break
		}
		wait := p.delay(attempt)
		if onRetry != nil {
			onRetry(attempt+1, err, wait)
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("%w (last error: %w)", ctx.Err(), err)
		case <-t.C:
		}
	}
	if attempts == 1 {
		return err
	}
	return fmt.Errorf("%w (%d): %w", ErrMaxAttempts, attempts, err)
}
