package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/nftpulse/internal/classify"
	"github.com/irfndi/nftpulse/internal/utils"
)

func TestLoad_WithDefaults(t *testing.T) {
	config, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, config)

	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, "info", config.LogLevel)
	assert.False(t, config.Telemetry.Enabled)
	assert.Equal(t, "nftpulse", config.Telemetry.ServiceName)
	assert.Equal(t, "", config.Source.APIKey)
	assert.Equal(t, 30*time.Second, config.Source.TimeoutDuration())

	e := config.Engine
	assert.Equal(t, 0.0, e.TrendEpsilon)
	assert.Equal(t, 30, e.TrendWindow)
	assert.Equal(t, 7, e.MovingAverageWindow)
	assert.Equal(t, 0.3, e.SmoothingAlpha)
	assert.Equal(t, 14, e.RSIPeriod)
	assert.Equal(t, 1.5, e.IQRMultiplier)
	assert.Equal(t, "volume", e.CorrelationMetric)

	assert.Equal(t, classify.DefaultWashTradeThresholds(), e.WashTradeThresholds())
	assert.Equal(t, classify.DefaultActivityThresholds(), e.ActivityThresholds())
	assert.Equal(t, classify.DefaultTraderPatternThresholds(), e.TraderPatternThresholds())
	assert.Equal(t, classify.DefaultMarketTrendOptions(), e.MarketTrendOptions())
	assert.Equal(t, []classify.Label{classify.LabelHigh, classify.LabelMedium, classify.LabelLow},
		e.Priority()[:3])
}

func TestDefault_MatchesLoad(t *testing.T) {
	loaded, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, loaded.Engine, Default().Engine)
	assert.NoError(t, Default().Engine.Validate())
}

func TestLoad_WithEnvironmentVariables(t *testing.T) {
	t.Setenv("NFTPULSE_ENVIRONMENT", "Production")
	t.Setenv("NFTPULSE_LOG_LEVEL", "error")
	t.Setenv("NFTPULSE_SOURCE_API_KEY", "secret-key")
	t.Setenv("NFTPULSE_SOURCE_TIMEOUT", "5s")
	t.Setenv("NFTPULSE_ENGINE_TREND_WINDOW", "60")
	t.Setenv("NFTPULSE_ENGINE_WASH_TRADE_HIGH_VOLUME", "250000")
	t.Setenv("NFTPULSE_ENGINE_LABEL_PRIORITY", "Low,High")

	config, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "production", config.Environment)
	assert.Equal(t, "error", config.LogLevel)
	assert.Equal(t, "secret-key", config.Source.APIKey)
	assert.Equal(t, 5*time.Second, config.Source.TimeoutDuration())
	assert.Equal(t, 60, config.Engine.TrendWindow)
	assert.Equal(t, 250000.0, config.Engine.WashTradeThresholds().HighVolume)
	assert.Equal(t, []classify.Label{classify.LabelLow, classify.LabelHigh}, config.Engine.Priority())
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nftpulse.yaml")
	content := `
environment: test
log_level: debug
engine:
  rsi_period: 21
  activity:
    high_count: 5000
    high_change: 20
  market_trend:
    window: 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test", config.Environment)
	assert.Equal(t, "debug", config.LogLevel)
	assert.Equal(t, 21, config.Engine.RSIPeriod)
	assert.Equal(t, 5000.0, config.Engine.Activity.HighCount)
	assert.Equal(t, 20.0, config.Engine.Activity.HighChange)
	// untouched keys keep defaults
	assert.Equal(t, 100.0, config.Engine.Activity.ModerateCount)
	assert.Equal(t, 4, config.Engine.MarketTrendOptions().Window)
	assert.Equal(t, 1.2, config.Engine.MarketTrendOptions().Increase)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidTimeout(t *testing.T) {
	t.Setenv("NFTPULSE_SOURCE_TIMEOUT", "soon")

	_, err := Load("")
	require.Error(t, err)
	assert.True(t, utils.IsValidationError(err))
}

func TestEngineConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(e *EngineConfig)
	}{
		{"negative epsilon", func(e *EngineConfig) { e.TrendEpsilon = -0.1 }},
		{"trend window too small", func(e *EngineConfig) { e.TrendWindow = 1 }},
		{"zero moving average window", func(e *EngineConfig) { e.MovingAverageWindow = 0 }},
		{"alpha zero", func(e *EngineConfig) { e.SmoothingAlpha = 0 }},
		{"alpha above one", func(e *EngineConfig) { e.SmoothingAlpha = 1.5 }},
		{"rsi period one", func(e *EngineConfig) { e.RSIPeriod = 1 }},
		{"iqr multiplier zero", func(e *EngineConfig) { e.IQRMultiplier = 0 }},
		{"market window zero", func(e *EngineConfig) { e.MarketTrend.Window = 0 }},
		{"market cutoffs inverted", func(e *EngineConfig) { e.MarketTrend.Decrease = 1.3 }},
		{"wash trade bands not decreasing", func(e *EngineConfig) { e.WashTrade.MediumVolume = e.WashTrade.HighVolume }},
		{"activity bands not decreasing", func(e *EngineConfig) { e.Activity.ModerateChange = 50 }},
		{"trader cutoffs inverted", func(e *EngineConfig) { e.TraderPattern.SellerDominated = 2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Default().Engine
			tt.mutate(&e)
			err := e.Validate()
			require.Error(t, err)
			assert.True(t, utils.IsValidationError(err))
		})
	}
}

func TestLoad_RejectsInvalidEngine(t *testing.T) {
	t.Setenv("NFTPULSE_ENGINE_SMOOTHING_ALPHA", "2")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smoothing_alpha")
}

func TestSourceConfig_TimeoutDuration(t *testing.T) {
	assert.Equal(t, 10*time.Second, SourceConfig{Timeout: "10s"}.TimeoutDuration())
	assert.Equal(t, 30*time.Second, SourceConfig{Timeout: ""}.TimeoutDuration())
	assert.Equal(t, 30*time.Second, SourceConfig{Timeout: "-1s"}.TimeoutDuration())
}
