package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/pkg/logger/slogx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelName(t *testing.T) {
	tests := []struct {
		level    slog.Level
		expected string
	}{
		{slog.LevelInfo, "INFO"},
		{LevelCritical, "CRITICAL"},
		{LevelCritical + 1, "CRITICAL+1"},
		{LevelPanic, "PANIC"},
		{LevelFatal, "FATAL"},
		{LevelFatal + 2, "FATAL+2"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, levelName(tt.level))
		})
	}
}

func TestErrorDetailsMiddleware(t *testing.T) {
	var buf bytes.Buffer
	h := newMiddlewareHandler(slog.NewJSONHandler(&buf, nil), errorDetailsMiddleware(true))
	l := slog.New(h)

	ctx := NewContext(context.Background(), l)
	ctx = WithContext(ctx, slogx.String("module", "doginals"))
	ErrorContext(ctx, "failed", slogx.Error(errors.New("boom")))

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "failed", out["msg"])
	assert.Equal(t, "doginals", out["module"])
	assert.Equal(t, "boom", out[slogx.ErrorKey])
	assert.Contains(t, out[slogx.ErrorVerboseKey], "boom")
	assert.NotEmpty(t, out[slogx.ErrorStackTraceKey])
}

func TestFromContextDefault(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
	assert.NotNil(t, FromContext(nil)) //nolint:staticcheck
}
