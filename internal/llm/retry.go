package llm

import (
	"context"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/fantomftfw/bankParse/internal/engineerrors"
)

// RetryConfig bounds a retry loop's attempt count and backoff curve.
type RetryConfig struct {
	MaxRetries     int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	BackoffFactor  float64
	JitterFraction float64 // fraction of the computed delay to randomize, 0.0-1.0
}

// DefaultCompletionRetryConfig allows up to two retries of a transient
// LlmTransportError, doubling the delay each time and capping it at 10s.
var DefaultCompletionRetryConfig = RetryConfig{
	MaxRetries:     2,
	InitialDelay:   1 * time.Second,
	MaxDelay:       10 * time.Second,
	BackoffFactor:  2.0,
	JitterFraction: 0.2,
}

// backoffDelay returns the delay before the given retry attempt (0-indexed),
// exponential in attempt and capped at cfg.MaxDelay, then jittered by up to
// +/- cfg.JitterFraction of itself. A negative result after jitter falls
// back to the configured initial delay rather than firing immediately.
func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.BackoffFactor, float64(attempt))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	if cfg.JitterFraction > 0 {
		delay += delay * cfg.JitterFraction * (rand.Float64()*2 - 1)
		if delay < 0 {
			delay = float64(cfg.InitialDelay)
		}
	}
	return time.Duration(delay)
}

// permanentFailure reports whether err is an *engineerrors.Error explicitly
// marked non-retryable. Any other error (including one of an unrecognized
// type) is treated as worth retrying.
func permanentFailure(err error) bool {
	engErr, ok := err.(*engineerrors.Error)
	return ok && !engErr.Retryable
}

// WithRetry calls fn up to cfg.MaxRetries+1 times, waiting out an
// exponential backoff between attempts. It gives up early when fn
// succeeds, when its error is a permanent failure, or when ctx is
// cancelled while waiting for the next attempt.
func WithRetry[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if permanentFailure(err) || attempt >= cfg.MaxRetries {
			return zero, lastErr
		}

		wait := backoffDelay(cfg, attempt)
		log.Printf("[llm] retrying after transient error (attempt %d/%d, wait=%s): %v", attempt+1, cfg.MaxRetries, wait, err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}
