package utils

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/ls1intum/hades/hadesLogForwarder/fluentd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLogging(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	var buf bytes.Buffer
	closeFn, err := SetupLogging(LogConfig{Format: "json"}, &buf)
	require.NoError(t, err)
	defer closeFn()

	slog.Debug("hidden")
	ComponentLogger("forwarder").Info("Batch submitted", "lines", 3)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "Batch submitted", record["msg"])
	assert.Equal(t, "forwarder", record["component"])
	assert.EqualValues(t, 3, record["lines"])
}

func TestSetupLogging_Debug(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	var buf bytes.Buffer
	_, err := SetupLogging(LogConfig{Debug: true}, &buf)
	require.NoError(t, err)

	slog.Debug("visible")
	assert.Contains(t, buf.String(), "DEBUG MODE ENABLED")
	assert.Contains(t, buf.String(), "msg=visible")
}

func TestSetupLogging_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  LogConfig
	}{
		{"unknown format", LogConfig{Format: "xml"}},
		{"fluentd address without port", LogConfig{Fluentd: fluentd.FluentdOptions{Addr: "fluentd"}}},
		{"fluentd port not numeric", LogConfig{Fluentd: fluentd.FluentdOptions{Addr: "fluentd:http"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SetupLogging(tt.cfg, &bytes.Buffer{})
			assert.Error(t, err)
		})
	}
}
