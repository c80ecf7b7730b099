package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/irfndi/nftpulse/internal/classify"
	"github.com/irfndi/nftpulse/internal/trend"
	"github.com/irfndi/nftpulse/internal/utils"
)

// EnvPrefix prefixes every environment override, e.g. NFTPULSE_LOG_LEVEL.
const EnvPrefix = "NFTPULSE"

type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
	Source      SourceConfig    `mapstructure:"source"`
	Engine      EngineConfig    `mapstructure:"engine"`
}

type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
}

// SourceConfig describes the remote metrics API. The key is handed to the
// data-fetch collaborator explicitly and never read by the engine.
type SourceConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key" json:"-" yaml:"-"`
	Timeout string `mapstructure:"timeout"`
}

// TimeoutDuration parses Timeout, falling back to 30s.
func (s SourceConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(s.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

type EngineConfig struct {
	TrendEpsilon        float64 `mapstructure:"trend_epsilon"`
	TrendWindow         int     `mapstructure:"trend_window"`
	MovingAverageWindow int     `mapstructure:"moving_average_window"`
	SmoothingAlpha      float64 `mapstructure:"smoothing_alpha"`
	RSIPeriod           int     `mapstructure:"rsi_period"`
	IQRMultiplier       float64 `mapstructure:"iqr_multiplier"`
	CorrelationMetric   string  `mapstructure:"correlation_metric"`

	MarketTrend   MarketTrendConfig   `mapstructure:"market_trend"`
	WashTrade     WashTradeConfig     `mapstructure:"wash_trade"`
	Activity      ActivityConfig      `mapstructure:"activity"`
	TraderPattern TraderPatternConfig `mapstructure:"trader_pattern"`

	// LabelPriority breaks ties when voting for a dominant label.
	LabelPriority []string `mapstructure:"label_priority"`
}

type MarketTrendConfig struct {
	Window   int     `mapstructure:"window"`
	Increase float64 `mapstructure:"increase"`
	Decrease float64 `mapstructure:"decrease"`
}

type WashTradeConfig struct {
	HighVolume   float64 `mapstructure:"high_volume"`
	HighRatio    float64 `mapstructure:"high_ratio"`
	MediumVolume float64 `mapstructure:"medium_volume"`
	MediumRatio  float64 `mapstructure:"medium_ratio"`
}

type ActivityConfig struct {
	HighCount      float64 `mapstructure:"high_count"`
	HighChange     float64 `mapstructure:"high_change"`
	ModerateCount  float64 `mapstructure:"moderate_count"`
	ModerateChange float64 `mapstructure:"moderate_change"`
}

type TraderPatternConfig struct {
	BuyerDominated  float64 `mapstructure:"buyer_dominated"`
	SellerDominated float64 `mapstructure:"seller_dominated"`
}

// WashTradeThresholds converts to the classifier parameters.
func (e EngineConfig) WashTradeThresholds() classify.WashTradeThresholds {
	return classify.WashTradeThresholds{
		HighVolume:   e.WashTrade.HighVolume,
		HighRatio:    e.WashTrade.HighRatio,
		MediumVolume: e.WashTrade.MediumVolume,
		MediumRatio:  e.WashTrade.MediumRatio,
	}
}

func (e EngineConfig) ActivityThresholds() classify.ActivityThresholds {
	return classify.ActivityThresholds{
		HighCount:      e.Activity.HighCount,
		HighChange:     e.Activity.HighChange,
		ModerateCount:  e.Activity.ModerateCount,
		ModerateChange: e.Activity.ModerateChange,
	}
}

func (e EngineConfig) TraderPatternThresholds() classify.TraderPatternThresholds {
	return classify.TraderPatternThresholds{
		BuyerDominated:  e.TraderPattern.BuyerDominated,
		SellerDominated: e.TraderPattern.SellerDominated,
	}
}

func (e EngineConfig) MarketTrendOptions() classify.MarketTrendOptions {
	return classify.MarketTrendOptions{
		Window:   e.MarketTrend.Window,
		Increase: e.MarketTrend.Increase,
		Decrease: e.MarketTrend.Decrease,
	}
}

func (e EngineConfig) TrendOptions() trend.Options {
	return trend.Options{Epsilon: e.TrendEpsilon}
}

// Priority returns LabelPriority as labels.
func (e EngineConfig) Priority() []classify.Label {
	out := make([]classify.Label, len(e.LabelPriority))
	for i, l := range e.LabelPriority {
		out[i] = classify.Label(strings.TrimSpace(l))
	}
	return out
}

// Validate rejects windows and cutoffs the analyzers cannot work with.
func (e EngineConfig) Validate() error {
	var errs []error
	if e.TrendEpsilon < 0 {
		errs = append(errs, utils.NewValidationErrorf("engine.trend_epsilon must not be negative, got %v", e.TrendEpsilon))
	}
	if e.TrendWindow < 2 {
		errs = append(errs, utils.NewValidationErrorf("engine.trend_window must be at least 2, got %d", e.TrendWindow))
	}
	if e.MovingAverageWindow < 1 {
		errs = append(errs, utils.NewValidationErrorf("engine.moving_average_window must be at least 1, got %d", e.MovingAverageWindow))
	}
	if e.SmoothingAlpha <= 0 || e.SmoothingAlpha > 1 {
		errs = append(errs, utils.NewValidationErrorf("engine.smoothing_alpha must be in (0, 1], got %v", e.SmoothingAlpha))
	}
	if e.RSIPeriod < 2 {
		errs = append(errs, utils.NewValidationErrorf("engine.rsi_period must be at least 2, got %d", e.RSIPeriod))
	}
	if e.IQRMultiplier <= 0 {
		errs = append(errs, utils.NewValidationErrorf("engine.iqr_multiplier must be positive, got %v", e.IQRMultiplier))
	}
	if e.MarketTrend.Window < 1 {
		errs = append(errs, utils.NewValidationErrorf("engine.market_trend.window must be at least 1, got %d", e.MarketTrend.Window))
	}
	if !(e.MarketTrend.Decrease < e.MarketTrend.Increase) {
		errs = append(errs, utils.NewValidationErrorf("engine.market_trend.decrease %v must be below increase %v",
			e.MarketTrend.Decrease, e.MarketTrend.Increase))
	}
	for _, err := range []error{
		e.WashTradeThresholds().Validate(),
		e.ActivityThresholds().Validate(),
		e.TraderPatternThresholds().Validate(),
	} {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Load reads configuration from path, or from config.yaml in ./configs or the
// working directory when path is empty. Missing default files fall back to
// defaults; environment variables override both.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Set default values
	setDefaults(v)

	// Enable environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	config.Environment = strings.ToLower(strings.TrimSpace(config.Environment))

	if config.Source.Timeout != "" {
		if _, err := time.ParseDuration(config.Source.Timeout); err != nil {
			return nil, utils.NewValidationErrorf("invalid source timeout %q: %v", config.Source.Timeout, err)
		}
	}
	if err := config.Engine.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Default returns the configuration Load produces with no file and no
// environment overrides.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	// Defaults always decode.
	_ = v.Unmarshal(&config)
	return &config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	// Telemetry
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "nftpulse")
	v.SetDefault("telemetry.service_version", "1.0.0")

	// Source
	v.SetDefault("source.base_url", "")
	v.SetDefault("source.api_key", "")
	v.SetDefault("source.timeout", "30s")

	// Engine
	v.SetDefault("engine.trend_epsilon", 0.0)
	v.SetDefault("engine.trend_window", trend.DefaultWindow)
	v.SetDefault("engine.moving_average_window", 7)
	v.SetDefault("engine.smoothing_alpha", 0.3)
	v.SetDefault("engine.rsi_period", 14)
	v.SetDefault("engine.iqr_multiplier", 1.5)
	v.SetDefault("engine.correlation_metric", "volume")

	mt := classify.DefaultMarketTrendOptions()
	v.SetDefault("engine.market_trend.window", mt.Window)
	v.SetDefault("engine.market_trend.increase", mt.Increase)
	v.SetDefault("engine.market_trend.decrease", mt.Decrease)

	wt := classify.DefaultWashTradeThresholds()
	v.SetDefault("engine.wash_trade.high_volume", wt.HighVolume)
	v.SetDefault("engine.wash_trade.high_ratio", wt.HighRatio)
	v.SetDefault("engine.wash_trade.medium_volume", wt.MediumVolume)
	v.SetDefault("engine.wash_trade.medium_ratio", wt.MediumRatio)

	act := classify.DefaultActivityThresholds()
	v.SetDefault("engine.activity.high_count", act.HighCount)
	v.SetDefault("engine.activity.high_change", act.HighChange)
	v.SetDefault("engine.activity.moderate_count", act.ModerateCount)
	v.SetDefault("engine.activity.moderate_change", act.ModerateChange)

	tp := classify.DefaultTraderPatternThresholds()
	v.SetDefault("engine.trader_pattern.buyer_dominated", tp.BuyerDominated)
	v.SetDefault("engine.trader_pattern.seller_dominated", tp.SellerDominated)

	v.SetDefault("engine.label_priority", []string{
		string(classify.LabelHigh), string(classify.LabelMedium), string(classify.LabelLow),
		string(classify.LabelModerate),
		string(classify.LabelBuyerDominated), string(classify.LabelBalanced), string(classify.LabelSellerDominated),
	})
}
