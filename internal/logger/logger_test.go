package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelInfo)
	log.Info("primitive created", "kind", "convolution")

	output := buf.String()
	assert.Contains(t, output, "primitive created")
	assert.Contains(t, output, `"kind":"convolution"`)
	assert.Contains(t, output, `"level":"INFO"`)
}

func TestJSONLevelFiltering(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelWarn)
	log.Info("should not appear")
	log.Debug("also should not appear")
	assert.Zero(t, buf.Len())

	log.Warn("should appear")
	assert.Contains(t, buf.String(), "should appear")
}

func TestPretty(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := Pretty(&buf, slog.LevelDebug)
	log.With("engine", "cpu:0").Debug("job done", "name", "reorder src")

	output := buf.String()
	assert.Contains(t, output, "job done")
	assert.Contains(t, output, "engine=cpu:0")
	assert.Contains(t, output, `name="reorder src"`)
}

func TestPrettyGroup(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := Pretty(&buf, slog.LevelInfo).WithGroup("stream")
	log.Info("wait", "pending", 3)

	assert.Contains(t, buf.String(), "stream.pending=3")
}

func TestNop(t *testing.T) {
	t.Parallel()
	log := Nop()
	log.Error("dropped")
	log.With("a", 1).WithGroup("g").Info("dropped")
}

func TestBuild(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer

	for _, format := range []string{"pretty", "json", "text", ""} {
		log, err := Build(format, slog.LevelInfo, &buf)
		require.NoError(t, err, format)
		log.Info("hello " + format)
	}
	assert.Equal(t, 4, strings.Count(buf.String(), "hello"))

	_, err := Build("xml", slog.LevelInfo, &buf)
	assert.Error(t, err)
}

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelInfo)

	ctx := WithContext(context.Background(), log)
	FromContext(ctx).Info("roundtrip test")
	assert.Contains(t, buf.String(), "roundtrip test")

	require.NotNil(t, FromContext(context.Background()))
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expected, ParseLevel(tc.input), tc.input)
	}
}
