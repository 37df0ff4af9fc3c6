package log_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.nomadlab.dev/datacleaner/log"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input       string
		expected    log.Level
		expectError bool
	}{
		"error level": {
			input:    "error",
			expected: log.LevelError,
		},
		"warn level": {
			input:    "warn",
			expected: log.LevelWarn,
		},
		"warning level": {
			input:    "warning",
			expected: log.LevelWarn,
		},
		"info level": {
			input:    "info",
			expected: log.LevelInfo,
		},
		"debug level": {
			input:    "debug",
			expected: log.LevelDebug,
		},
		"case insensitive": {
			input:    "INFO",
			expected: log.LevelInfo,
		},
		"unknown level": {
			input:       "unknown",
			expectError: true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			lvl, err := log.ParseLevel(tc.input)
			if tc.expectError {
				require.Error(t, err)
				require.ErrorIs(t, err, log.ErrUnknownLogLevel)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.expected, lvl)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input       string
		expected    log.Format
		expectError bool
	}{
		"json format": {
			input:    "json",
			expected: log.FormatJSON,
		},
		"logfmt format": {
			input:    "logfmt",
			expected: log.FormatLogfmt,
		},
		"text format": {
			input:    "text",
			expected: log.FormatText,
		},
		"case insensitive": {
			input:    "JSON",
			expected: log.FormatJSON,
		},
		"unknown format": {
			input:       "unknown",
			expectError: true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			format, err := log.ParseFormat(tc.input)
			if tc.expectError {
				require.Error(t, err)
				require.ErrorIs(t, err, log.ErrUnknownLogFormat)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.expected, format)
			}
		})
	}
}

func TestNewHandlerJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	handler := log.NewHandler(&buf, log.LevelInfo, log.FormatJSON)
	require.NotNil(t, handler)

	logger := slog.New(handler)
	logger.Info("hello", "key", "value")

	var entry map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "value", entry["key"])
}

func TestNewHandlerLevelFilter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	handler := log.NewHandler(&buf, log.LevelWarn, log.FormatLogfmt)
	logger := slog.New(handler)

	logger.Info("dropped")
	assert.Empty(t, buf.String())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestNewHandlerFromStrings(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	_, err := log.NewHandlerFromStrings(&buf, "nope", "json")
	require.ErrorIs(t, err, log.ErrInvalidArgument)

	_, err = log.NewHandlerFromStrings(&buf, "info", "nope")
	require.ErrorIs(t, err, log.ErrInvalidArgument)

	handler, err := log.NewHandlerFromStrings(&buf, "info", "text")
	require.NoError(t, err)
	assert.NotNil(t, handler)
}

func TestConfigRegisterFlags(t *testing.T) {
	t.Parallel()

	cfg := log.NewConfig()
	cmd := &cobra.Command{Use: "test"}

	cfg.RegisterFlags(cmd.Flags())
	require.NoError(t, cfg.RegisterCompletions(cmd))

	require.NoError(t, cmd.Flags().Set("log-level", "debug"))
	require.NoError(t, cmd.Flags().Set("log-format", "json"))

	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "json", cfg.Format)

	var buf bytes.Buffer

	handler, err := cfg.NewHandler(&buf)
	require.NoError(t, err)
	assert.NotNil(t, handler)
}
