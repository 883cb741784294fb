package logger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"WARN", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"info", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestZapWrapper_Fields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core))

	log.With(map[string]interface{}{"component": "aggregator"}).
		WithError(errors.New("refused")).
		Warn("sub-request failed", map[string]interface{}{"name": "bob", "status": 404})

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "sub-request failed", entries[0].Message)
	assert.Equal(t, "aggregator", fields["component"])
	assert.Equal(t, "refused", fields["error"])
	assert.Equal(t, "bob", fields["name"])
	assert.EqualValues(t, 404, fields["status"])
}

func TestNewWithOptions_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.log")

	l := NewWithOptions(Options{Level: "info", Format: "json", Output: path})
	l.Info("started", zap.String("addr", ":3000"))
	l.Debug("hidden")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, `"msg":"started"`)
	assert.Contains(t, content, `"addr":":3000"`)
	assert.False(t, strings.Contains(content, "hidden"))
}

func TestNoOpLogger(t *testing.T) {
	log := NewNoOpLogger()
	log.Info("ignored", map[string]interface{}{"k": "v"})
	log.WithFields(nil).Error("ignored", nil)
}
