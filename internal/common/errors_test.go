package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorSentinelMatching(t *testing.T) {
	tests := []struct {
		err      error
		sentinel error
	}{
		{UnsupportedFormat("bad type"), ErrUnsupportedFormat},
		{EmptyExtraction(), ErrEmptyExtraction},
		{ExtractionFailed("broken", false, errors.New("cause")), ErrExtractionFailed},
		{AnalysisUnavailable(errors.New("503")), ErrAnalysisUnavailable},
		{Forbidden(), ErrForbidden},
		{NotFound("report"), ErrNotFound},
		{InvalidDecision("nope"), ErrInvalidDecision},
	}
	for _, tt := range tests {
		assert.True(t, errors.Is(tt.err, tt.sentinel), "%v should match %v", tt.err, tt.sentinel)
	}
}

func TestAppErrorSurvivesWrapping(t *testing.T) {
	wrapped := fmt.Errorf("submit: %w", AnalysisUnavailable(errors.New("down")))
	assert.True(t, errors.Is(wrapped, ErrAnalysisUnavailable))
	assert.True(t, IsRetryable(wrapped))

	var ae *AppError
	assert.True(t, errors.As(wrapped, &ae))
	assert.Equal(t, "ANALYSIS_UNAVAILABLE", ae.Code)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(AnalysisUnavailable(errors.New("x"))))
	assert.True(t, IsRetryable(ExtractionFailed("io", true, errors.New("x"))))
	assert.False(t, IsRetryable(ExtractionFailed("corrupt", false, nil)))
	assert.False(t, IsRetryable(EmptyExtraction()))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.False(t, IsRetryable(nil))
}

func TestErrorMessageNeverLeaksCause(t *testing.T) {
	err := AnalysisUnavailable(errors.New("api key sk-123 rejected"))
	assert.Equal(t, "failed to analyze report with AI", err.Message)
	assert.Contains(t, err.Error(), "sk-123", "full chain is for logs")
}

func TestNotFoundMessage(t *testing.T) {
	assert.Equal(t, "report not found", NotFound("report").Message)
}
