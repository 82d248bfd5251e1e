package middleware

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/hupe1980/agentware/model"
)

// ErrExceedMaxRetries is returned when the maximum number of retries has
// been exceeded. Use errors.Is to detect it and errors.As with
// *RetryExhaustedError to inspect the last underlying error.
var ErrExceedMaxRetries = errors.New("exceeds max retries")

// RetryExhaustedError is returned when all retry attempts have been
// exhausted. It wraps the last error that occurred.
type RetryExhaustedError struct {
	LastErr  error
	Attempts int
}

func (e *RetryExhaustedError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("exceeds max retries after %d attempts: last error: %v", e.Attempts, e.LastErr)
	}
	return "exceeds max retries"
}

func (e *RetryExhaustedError) Unwrap() error {
	return ErrExceedMaxRetries
}

// RetryOptions configures the model retry middleware.
type RetryOptions struct {
	// BaseDelay is the delay before the first retry; doubled per attempt.
	BaseDelay time.Duration
	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration
	// Jitter randomizes each delay within [delay/2, delay) to avoid
	// thundering herds.
	Jitter bool
	// Retryable decides whether an error is worth retrying. All errors are
	// retryable by default.
	Retryable func(error) bool
}

// ModelRetry returns a middleware that retries the inner model call up to
// maxRetries times with exponential backoff. It demonstrates the wrap-chain
// retry contract: the engine provides no implicit retry, a wrap hook that
// wants one catches the inner error and re-invokes the next handler itself.
func ModelRetry(maxRetries int, optFns ...func(o *RetryOptions)) *Middleware {
	opts := RetryOptions{
		BaseDelay: 200 * time.Millisecond,
		MaxDelay:  10 * time.Second,
		Jitter:    true,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Middleware{
		Name: "model_retry",
		WrapModel: func(next ModelHandler) ModelHandler {
			return func(ctx context.Context, req *model.Request) (*model.Response, error) {
				var lastErr error
				delay := opts.BaseDelay
				for attempt := 0; attempt <= maxRetries; attempt++ {
					if attempt > 0 {
						if err := sleepCtx(ctx, withJitter(delay, opts.Jitter)); err != nil {
							return nil, err
						}
						delay *= 2
						if delay > opts.MaxDelay {
							delay = opts.MaxDelay
						}
					}
					resp, err := next(ctx, req)
					if err == nil {
						return resp, nil
					}
					lastErr = err
					if opts.Retryable != nil && !opts.Retryable(err) {
						return nil, err
					}
				}
				return nil, &RetryExhaustedError{LastErr: lastErr, Attempts: maxRetries + 1}
			}
		},
	}
}

func withJitter(d time.Duration, jitter bool) time.Duration {
	if !jitter || d <= 0 {
		return d
	}
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
