package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"trace", LevelTrace, false},
		{"DEBUG", LevelDebug, false},
		{"info", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarning, false},
		{"WARN", LevelWarning, false},
		{"error", LevelError, false},
		{"fatal", LevelFatal, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLevelName(t *testing.T) {
	assert.Equal(t, "TRACE", LevelName(LevelTrace))
	assert.Equal(t, "INFO", LevelName(LevelInfo))
	assert.Equal(t, "WARN", LevelName(LevelWarning))
	assert.Equal(t, "FATAL", LevelName(LevelFatal))
}

func TestSetupJSON(t *testing.T) {
	defaultLogger := slog.Default()
	t.Cleanup(func() { slog.SetDefault(defaultLogger) })

	var buf bytes.Buffer
	l, err := Setup(context.Background(), Config{Level: "debug", Output: &buf})
	require.NoError(t, err)
	assert.Equal(t, LevelDebug, GetLevel())

	l.Debug("validation started", "suite", "expectation")
	l.Log(context.Background(), LevelTrace, "hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "DEBUG", rec["level"])
	assert.Equal(t, "validation started", rec["msg"])
	assert.Equal(t, "expectation", rec["suite"])
}

func TestSetupText(t *testing.T) {
	defaultLogger := slog.Default()
	t.Cleanup(func() { slog.SetDefault(defaultLogger) })

	var buf bytes.Buffer
	l, err := Setup(context.Background(), Config{Level: "trace", Format: "text", Output: &buf})
	require.NoError(t, err)

	l.Log(context.Background(), LevelTrace, "rule evaluated")
	assert.Contains(t, buf.String(), "level=TRACE")
	assert.Contains(t, buf.String(), `msg="rule evaluated"`)
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	_, err := Setup(context.Background(), Config{Level: "loud"})
	assert.Error(t, err)
}

func TestCountersIgnoreSampling(t *testing.T) {
	defaultLogger := slog.Default()
	t.Cleanup(func() { slog.SetDefault(defaultLogger) })

	var buf bytes.Buffer
	l, err := Setup(context.Background(), Config{Output: &buf, SampleRate: 1_000_000_000})
	require.NoError(t, err)

	errorsBefore, warningsBefore := TotalErrors.Load(), TotalWarnings.Load()
	for i := 0; i < 10; i++ {
		l.Error("sink unavailable")
		l.Warn("slow source")
	}
	assert.Equal(t, int64(10), TotalErrors.Load()-errorsBefore)
	assert.Equal(t, int64(10), TotalWarnings.Load()-warningsBefore)
	// With a rate this high, virtually nothing reaches the output.
	assert.Less(t, strings.Count(buf.String(), "\n"), 20)
}

func TestShutdownWithoutOTEL(t *testing.T) {
	assert.NoError(t, Shutdown(context.Background()))
}
