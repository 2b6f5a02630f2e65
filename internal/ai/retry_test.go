package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medinsight/medinsight/internal/common"
)

func fastRetry(max int) RetryConfig {
	return RetryConfig{
		MaxRetries:    max,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

func TestWithRetrySucceedsFirstTry(t *testing.T) {
	calls := 0
	got, err := WithRetry(context.Background(), fastRetry(2), func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, calls)
}

func TestWithRetryRecoversFromTransient(t *testing.T) {
	calls := 0
	got, err := WithRetry(context.Background(), fastRetry(3), func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, common.AnalysisUnavailable(errors.New("backend status 503"))
		}
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, got)
	assert.Equal(t, 3, calls)
}

func TestWithRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	_, err := WithRetry(context.Background(), fastRetry(5), func(ctx context.Context) (string, error) {
		calls++
		return "", common.EmptyExtraction()
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrEmptyExtraction))
	assert.Equal(t, 1, calls, "non-retryable errors must not be retried")
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := WithRetry(context.Background(), fastRetry(2), func(ctx context.Context) (string, error) {
		calls++
		return "", common.AnalysisUnavailable(errors.New("still down"))
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrAnalysisUnavailable))
	assert.Equal(t, 3, calls, "initial attempt plus MaxRetries")
}

func TestWithRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := WithRetry(ctx, RetryConfig{MaxRetries: 3, InitialDelay: time.Hour, BackoffFactor: 2.0},
		func(ctx context.Context) (string, error) {
			return "", common.AnalysisUnavailable(errors.New("down"))
		})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
