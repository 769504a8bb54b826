package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fantomftfw/bankParse/internal/engineerrors"
)

func TestWithRetry_NonRetryableErrorStopsImmediately(t *testing.T) {
	calls := 0
	_, err := WithRetry(context.Background(), DefaultCompletionRetryConfig, func(ctx context.Context) (string, error) {
		calls++
		return "", engineerrors.ForPage(engineerrors.LlmResponseShapeInvalid, 0, "bad shape", false, nil)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_RetryableErrorRetriesUntilMaxThenFails(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 2, InitialDelay: 0, MaxDelay: 0, BackoffFactor: 2, JitterFraction: 0}
	calls := 0
	_, err := WithRetry(context.Background(), cfg, func(ctx context.Context) (string, error) {
		calls++
		return "", engineerrors.ForPage(engineerrors.LlmTransportError, 0, "down", true, nil)
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls) // initial attempt + 2 retries
}

func TestWithRetry_SucceedsOnSecondAttempt(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 2, InitialDelay: 0, MaxDelay: 0, BackoffFactor: 2, JitterFraction: 0}
	calls := 0
	result, err := WithRetry(context.Background(), cfg, func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", engineerrors.ForPage(engineerrors.LlmTransportError, 0, "down", true, nil)
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestWithRetry_ContextCancelledDuringBackoff(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, InitialDelay: 50 * time.Millisecond, MaxDelay: 50 * time.Millisecond, BackoffFactor: 1, JitterFraction: 0}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()
	_, err := WithRetry(ctx, cfg, func(ctx context.Context) (string, error) {
		calls++
		return "", engineerrors.ForPage(engineerrors.LlmTransportError, 0, "down", true, nil)
	})
	require.Error(t, err)
}
