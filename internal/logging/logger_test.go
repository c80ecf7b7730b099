package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogrusLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"DEBUG", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"warning", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{" error ", logrus.ErrorLevel},
		{"", logrus.InfoLevel},
		{"verbose", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLogrusLevel(tt.input))
		})
	}
}

func TestNewStandardLogger_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStandardLoggerWithOutput("info", "production", &buf)

	logger.WithComponent("report").Info("built")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "report", line["component"])
	assert.Equal(t, "built", line["msg"])
	assert.Equal(t, "info", line["level"])
}

func TestNewStandardLogger_DevelopmentWritesText(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStandardLoggerWithOutput("debug", "development", &buf)

	logger.WithEntity("Azuki").Debug("classified")

	out := buf.String()
	assert.Contains(t, out, "entity=Azuki")
	assert.Contains(t, out, "classified")
	assert.Equal(t, logrus.DebugLevel, logger.Logger().GetLevel())
}

func TestStandardLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStandardLoggerWithOutput("error", "development", &buf)

	logger.WithOperation("build").Info("hidden")
	logger.WithOperation("build").Warn("hidden too")
	assert.Empty(t, buf.String())

	logger.WithError(errors.New("boom")).Error("shown")
	assert.Contains(t, buf.String(), "boom")
}

func TestStandardLogger_Events(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStandardLoggerWithOutput("info", "production", &buf)

	logger.LogBusinessEvent("report_built", map[string]interface{}{"records": 3})

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "report_built", line["event_type"])
	assert.Equal(t, "business", line["event"])
	assert.Equal(t, float64(3), line["records"])

	buf.Reset()
	logger.LogStartup("nftpulse", "1.0.0")
	assert.Contains(t, buf.String(), `"event":"startup"`)

	buf.Reset()
	logger.LogShutdown("nftpulse", "done")
	assert.Contains(t, buf.String(), `"reason":"done"`)

	buf.Reset()
	logger.WithService("nftpulse").Info("x")
	assert.Contains(t, buf.String(), `"service":"nftpulse"`)

	buf.Reset()
	logger.WithMetrics(map[string]interface{}{"entities": 2}).Info("x")
	assert.Contains(t, buf.String(), `"entities":2`)
}
