package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), RetryConfig{MaxAttempts: 3, Delay: time.Millisecond, Backoff: true}, func() error {
		calls++
		if calls < 3 {
			return errors.New("boom")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	var retried []int
	err := WithRetry(context.Background(), RetryConfig{
		MaxAttempts: 3,
		Delay:       time.Millisecond,
		Backoff:     true,
		OnRetry:     func(attempt int, err error) { retried = append(retried, attempt) },
	}, func() error {
		calls++
		return errors.New("upstream down")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestWithRetry_PermanentStopsImmediately(t *testing.T) {
	sentinel := errors.New("quota")
	calls := 0
	err := WithRetry(context.Background(), RetryConfig{MaxAttempts: 3, Delay: time.Millisecond}, func() error {
		calls++
		return Permanent(sentinel)
	})
	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
	assert.True(t, IsPermanent(err))
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WithRetry(ctx, RetryConfig{MaxAttempts: 3, Delay: time.Hour}, func() error {
		return errors.New("fail")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithRetry_LinearBackoffDelays(t *testing.T) {
	var delays []time.Duration
	err := WithRetry(context.Background(), RetryConfig{
		MaxAttempts: 3,
		Delay:       time.Second,
		Backoff:     true,
		Sleep: func(ctx context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		},
	}, func() error {
		return errors.New("busy")
	})
	require.Error(t, err)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
}

func TestWithRetry_FixedDelayWithoutBackoff(t *testing.T) {
	var delays []time.Duration
	calls := 0
	err := WithRetry(context.Background(), RetryConfig{
		MaxAttempts: 3,
		Delay:       500 * time.Millisecond,
		Sleep: func(ctx context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		},
	}, func() error {
		calls++
		if calls < 3 {
			return errors.New("busy")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{500 * time.Millisecond, 500 * time.Millisecond}, delays)
}

func TestWithRetry_SleepErrorStops(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), RetryConfig{
		MaxAttempts: 5,
		Delay:       time.Second,
		Sleep:       func(ctx context.Context, d time.Duration) error { return context.DeadlineExceeded },
	}, func() error {
		calls++
		return errors.New("busy")
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, calls)
}
