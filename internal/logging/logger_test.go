package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/nhle/swapdesk/internal/model"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
		{" WARN ", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("chatty")
	assert.Error(t, err)
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "swapdesk.log")
	cfg := &model.AppConfig{Log: model.LogConfig{File: path, Level: "warn"}}

	logger, flush, err := New(cfg, false)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	flush()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "shown")
	assert.NotContains(t, string(data), "hidden")
}

func TestNew_VerboseEnablesDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swapdesk.log")
	cfg := &model.AppConfig{Log: model.LogConfig{File: path, Level: "error"}}

	logger, flush, err := New(cfg, true)
	require.NoError(t, err)
	logger.Debug("details")
	flush()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "details")
}

func TestNew_NoFileIsNop(t *testing.T) {
	logger, flush, err := New(&model.AppConfig{}, false)
	require.NoError(t, err)
	logger.Info("dropped")
	flush()
}

func TestNew_InvalidLevel(t *testing.T) {
	_, _, err := New(&model.AppConfig{Log: model.LogConfig{Level: "loud"}}, false)
	assert.Error(t, err)
}
