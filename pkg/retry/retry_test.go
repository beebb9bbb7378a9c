package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(), func() error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("boom: %w", ErrTransient)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(), func() error {
		attempts++
		return fmt.Errorf("boom: %w", ErrTransient)
	})

	assert.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	cfg := fastConfig()
	cfg.RetryableErrors = []error{ErrTransient}

	attempts := 0
	err := Do(context.Background(), cfg, func() error {
		attempts++
		return errors.New("permanent")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, attempts, "non-retryable errors fail immediately")
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, fastConfig(), func() error {
		return fmt.Errorf("boom: %w", ErrTransient)
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStatusErrorIsTransient(t *testing.T) {
	err := fmt.Errorf("request failed: %w", &StatusError{Code: 503})
	assert.True(t, errors.Is(err, ErrTransient))
}

func TestRetryableStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		assert.True(t, RetryableStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 400, 401, 404} {
		assert.False(t, RetryableStatus(code), "status %d", code)
	}
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	got, err := DoWithResult(context.Background(), fastConfig(), func() (string, error) {
		attempts++
		if attempts == 1 {
			return "", fmt.Errorf("boom: %w", ErrTransient)
		}
		return "value", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "value", got)
}
