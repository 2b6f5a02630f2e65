package extract

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunnerCapturesOutput(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r := execRunner{logger: logger}

	out, errb, err := r.Run(context.Background(), "echo", "recognized text")
	require.NoError(t, err)
	assert.Equal(t, "recognized text\n", string(out))
	assert.Empty(t, errb)

	assert.Contains(t, logs.String(), "extract.exec.ok")
	assert.Contains(t, logs.String(), "bin=echo")
}

func TestExecRunnerFailure(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	r := execRunner{logger: logger}

	_, _, err := r.Run(context.Background(), "false")
	require.Error(t, err)
	assert.Contains(t, logs.String(), "extract.exec.failed")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "ab...(truncated)", truncate("abcdef", 2))
}
