package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"trace", LevelTrace},
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"fatal", LevelFatal},
		{"nonsense", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestForServiceAddsAttribute(t *testing.T) {
	var structured, human bytes.Buffer
	Init()
	SetOutput(&structured, &human)
	t.Cleanup(Init)

	logger := ForService("dispatch")
	require.NotNil(t, logger)
	logger.Info("worker started", "workers", 5)

	var record map[string]any
	require.NoError(t, json.Unmarshal(structured.Bytes(), &record))
	assert.Equal(t, "dispatch", record["service"])
	assert.Equal(t, "worker started", record["msg"])
	assert.EqualValues(t, 5, record["workers"])
}

func TestSetLevelFiltersRecords(t *testing.T) {
	var structured, human bytes.Buffer
	Init()
	SetOutput(&structured, &human)
	t.Cleanup(Init)

	SetLevel(slog.LevelError)
	Structured().Info("should be filtered")
	assert.Empty(t, structured.Bytes())

	Structured().Error("should appear")
	assert.Contains(t, structured.String(), "should appear")
}
