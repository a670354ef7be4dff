// Package config provides configuration management for the trading bot.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// Config represents the complete application configuration.
type Config struct {
	Environment EnvironmentConfig `yaml:"environment"`
	Trading     TradingConfig     `yaml:"trading"`
	Providers   ProvidersConfig   `yaml:"providers"`
	News        NewsConfig        `yaml:"news"`
	Calendar    CalendarConfig    `yaml:"calendar"`
	Model       ModelConfig       `yaml:"model"`
	Storage     StorageConfig     `yaml:"storage"`
	Schedule    ScheduleConfig    `yaml:"schedule"`
	Dashboard   DashboardConfig   `yaml:"dashboard"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Tracing     TracingConfig     `yaml:"tracing"`
}

// EnvironmentConfig defines the environment settings.
type EnvironmentConfig struct {
	Mode      string `yaml:"mode"`       // paper | mock
	LogLevel  string `yaml:"log_level"`  // debug | info | warn | error
	LogFormat string `yaml:"log_format"` // text | json
}

// TradingConfig defines the ticker universe and decision strategy.
type TradingConfig struct {
	Tickers         []string `yaml:"tickers"`
	StartingBalance float64  `yaml:"starting_balance"`
	Strategy        string   `yaml:"strategy"` // rules | model
}

// ProviderConfig holds credentials and endpoint for one data provider.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// BreakerConfig configures the per-provider circuit breaker.
type BreakerConfig struct {
	Enabled      bool    `yaml:"enabled"`
	MaxRequests  uint32  `yaml:"max_requests"`
	Interval     string  `yaml:"interval"`
	Timeout      string  `yaml:"timeout"`
	MinRequests  uint32  `yaml:"min_requests"`
	FailureRatio float64 `yaml:"failure_ratio"`
}

// ProvidersConfig defines market data, news and calendar providers.
type ProvidersConfig struct {
	Timeout string `yaml:"timeout"`
	// PriceOrder is the fallback chain used for current prices.
	PriceOrder []string `yaml:"price_order"`
	// SeriesOrder is the fallback chain used for the intraday momentum series.
	SeriesOrder      []string       `yaml:"series_order"`
	Finnhub          ProviderConfig `yaml:"finnhub"`
	Polygon          ProviderConfig `yaml:"polygon"`
	TwelveData       ProviderConfig `yaml:"twelvedata"`
	AlphaVantage     ProviderConfig `yaml:"alphavantage"`
	NewsAPI          ProviderConfig `yaml:"newsapi"`
	TradingEconomics ProviderConfig `yaml:"tradingeconomics"`
	Breaker          BreakerConfig  `yaml:"breaker"`
}

// NewsConfig defines article retrieval bounds.
type NewsConfig struct {
	LookbackDays int    `yaml:"lookback_days"`
	PageSize     int    `yaml:"page_size"`
	Language     string `yaml:"language"`
}

// CalendarConfig defines the economic calendar look-ahead.
type CalendarConfig struct {
	Window string `yaml:"window"`
}

// ModelConfig defines the classifier artifact and its feature profile.
type ModelConfig struct {
	Path        string `yaml:"path"`
	Profile     string `yaml:"profile"` // sma_10_30 | sma_10_50
	WindowBars  int    `yaml:"window_bars"`
	LibraryPath string `yaml:"library_path"`
	InputName   string `yaml:"input_name"`
	OutputName  string `yaml:"output_name"`
}

// StorageConfig defines where balance and portfolio state is persisted.
type StorageConfig struct {
	BalancePath   string `yaml:"balance_path"`
	PortfolioPath string `yaml:"portfolio_path"`
}

// ScheduleConfig defines how often passes run and the optional trading window.
type ScheduleConfig struct {
	Interval     string `yaml:"interval"`
	Timezone     string `yaml:"timezone"`      // e.g., "America/New_York"
	TradingStart string `yaml:"trading_start"` // "HH:MM"
	TradingEnd   string `yaml:"trading_end"`   // "HH:MM"
	EnforceHours bool   `yaml:"enforce_hours"`
}

// DashboardConfig defines the read-only status server.
type DashboardConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Port      int    `yaml:"port"`
	AuthToken string `yaml:"auth_token"`
}

// MetricsConfig defines the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// TracingConfig toggles OpenTelemetry stdout tracing.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads and parses the configuration file from the specified path.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- configPath is a user-provided config file path
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration bytes, expanding environment variables first.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var config Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	config.Normalize()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// IsMockData returns true if every provider is served by the offline mock.
func (c *Config) IsMockData() bool {
	return c.Environment.Mode == ModeMock
}

// UsesModel returns true if the classifier strategy is selected.
func (c *Config) UsesModel() bool {
	return c.Trading.Strategy == StrategyModel
}

// GetInterval returns the configured pass interval.
func (c *Config) GetInterval() time.Duration {
	return parseDurationOr(c.Schedule.Interval, defaultInterval)
}

// GetProviderTimeout returns the HTTP timeout for provider calls.
func (c *Config) GetProviderTimeout() time.Duration {
	return parseDurationOr(c.Providers.Timeout, defaultProviderTimeout)
}

// GetCalendarWindow returns how far ahead the calendar filter looks.
func (c *Config) GetCalendarWindow() time.Duration {
	return parseDurationOr(c.Calendar.Window, defaultCalendarWindow)
}

// GetBreakerInterval returns the breaker count-reset interval.
func (c *Config) GetBreakerInterval() time.Duration {
	return parseDurationOr(c.Providers.Breaker.Interval, defaultBreakerInterval)
}

// GetBreakerTimeout returns how long an open breaker stays open.
func (c *Config) GetBreakerTimeout() time.Duration {
	return parseDurationOr(c.Providers.Breaker.Timeout, defaultBreakerTimeout)
}

// Location returns the schedule timezone, falling back to a fixed ET offset for minimal
// containers without tzdata.
func (c *Config) Location() *time.Location {
	tz := c.Schedule.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.FixedZone("ET", -5*60*60)
	}
	return loc
}

// IsWithinTradingHours checks if the given time falls within configured trading hours.
// It always returns true when hours are not enforced.
func (c *Config) IsWithinTradingHours(now time.Time) bool {
	if !c.Schedule.EnforceHours {
		return true
	}
	loc := c.Location()
	today := now.In(loc)

	// Only allow Monday–Friday trading
	if today.Weekday() == time.Saturday || today.Weekday() == time.Sunday {
		return false
	}

	startClock, err1 := time.ParseInLocation("15:04", c.Schedule.TradingStart, loc)
	endClock, err2 := time.ParseInLocation("15:04", c.Schedule.TradingEnd, loc)
	if err1 != nil || err2 != nil {
		// Safe defaults if misconfigured
		startClock = time.Date(0, 1, 1, 9, 30, 0, 0, loc)
		endClock = time.Date(0, 1, 1, 16, 0, 0, 0, loc)
	}
	start := time.Date(today.Year(), today.Month(), today.Day(),
		startClock.Hour(), startClock.Minute(), 0, 0, loc)
	end := time.Date(today.Year(), today.Month(), today.Day(),
		endClock.Hour(), endClock.Minute(), 0, 0, loc)

	// Inclusive start, exclusive end
	return !today.Before(start) && today.Before(end)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
