package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("FINNHUB_KEY", "f")
	t.Setenv("POLYGON_KEY", "p")
	t.Setenv("TWELVEDATA_KEY", "t")
	t.Setenv("ALPHAVANTAGE_KEY", "a")

	configPath := filepath.Join("..", "..", "config.yaml.example")
	cfg, err := Load(configPath)
	require.NoError(t, err, "example config should load")
	assert.Equal(t, "f", cfg.Providers.Finnhub.APIKey)
	assert.NotEmpty(t, cfg.Trading.Tickers)
}

func TestLoad_InvalidPath(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	assert.Error(t, err)
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("environment:\n  mode: mock\n"))
	require.NoError(t, err)

	assert.Equal(t, DefaultTickers, cfg.Trading.Tickers)
	assert.Equal(t, 10000.0, cfg.Trading.StartingBalance)
	assert.Equal(t, StrategyRules, cfg.Trading.Strategy)
	assert.Equal(t, []string{"finnhub", "polygon", "twelvedata"}, cfg.Providers.PriceOrder)
	assert.Equal(t, []string{"alphavantage"}, cfg.Providers.SeriesOrder)
	assert.Equal(t, 3, cfg.News.LookbackDays)
	assert.Equal(t, 5, cfg.News.PageSize)
	assert.Equal(t, "en", cfg.News.Language)
	assert.Equal(t, 24*time.Hour, cfg.GetCalendarWindow())
	assert.Equal(t, 15*time.Minute, cfg.GetInterval())
	assert.Equal(t, "balance.txt", cfg.Storage.BalancePath)
	assert.Equal(t, "portfolio.json", cfg.Storage.PortfolioPath)
	assert.Equal(t, ProfileSMA10x30, cfg.Model.Profile)
	assert.Equal(t, 60, cfg.Model.WindowBars)
	assert.Equal(t, "https://finnhub.io/api/v1", cfg.Providers.Finnhub.BaseURL)
	assert.True(t, cfg.IsMockData())
	assert.False(t, cfg.UsesModel())
}

func TestParse_UnknownFieldRejected(t *testing.T) {
	_, err := Parse([]byte("environment:\n  mode: mock\n  colour: blue\n"))
	assert.Error(t, err)
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("BOT_TEST_KEY", "secret")
	cfg, err := Parse([]byte("environment:\n  mode: mock\nproviders:\n  newsapi:\n    api_key: ${BOT_TEST_KEY}\n"))
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.Providers.NewsAPI.APIKey)
}

func TestNormalize_Tickers(t *testing.T) {
	cfg := &Config{Trading: TradingConfig{Tickers: []string{" aapl ", "btc-usd"}}}
	cfg.Normalize()
	assert.Equal(t, []string{"AAPL", "BTC-USD"}, cfg.Trading.Tickers)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		c := &Config{
			Environment: EnvironmentConfig{Mode: ModePaper},
			Trading:     TradingConfig{Tickers: []string{"AAPL", "MSFT"}},
			Providers: ProvidersConfig{
				Finnhub:      ProviderConfig{APIKey: "f"},
				Polygon:      ProviderConfig{APIKey: "p"},
				TwelveData:   ProviderConfig{APIKey: "t"},
				AlphaVantage: ProviderConfig{APIKey: "a"},
			},
		}
		c.Normalize()
		return c
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"bad mode", func(c *Config) { c.Environment.Mode = "live" }, "environment.mode"},
		{"bad log level", func(c *Config) { c.Environment.LogLevel = "loud" }, "environment.log_level"},
		{"duplicate ticker", func(c *Config) { c.Trading.Tickers = []string{"AAPL", "AAPL"} }, "duplicate"},
		{"empty ticker", func(c *Config) { c.Trading.Tickers = []string{"AAPL", ""} }, "trading.tickers[1]"},
		{"negative balance", func(c *Config) { c.Trading.StartingBalance = -1 }, "trading.starting_balance"},
		{"bad strategy", func(c *Config) { c.Trading.Strategy = "vibes" }, "trading.strategy"},
		{"unknown price provider", func(c *Config) { c.Providers.PriceOrder = []string{"yahoo"} }, "unknown provider"},
		{"duplicate price provider", func(c *Config) {
			c.Providers.PriceOrder = []string{"finnhub", "finnhub"}
		}, "duplicate provider"},
		{"missing key", func(c *Config) { c.Providers.Polygon.APIKey = "" }, "providers.polygon.api_key"},
		{"bad interval", func(c *Config) { c.Schedule.Interval = "soon" }, "schedule.interval"},
		{"zero window", func(c *Config) { c.Calendar.Window = "0s" }, "calendar.window must be > 0"},
		{"bad profile", func(c *Config) { c.Model.Profile = "sma_5_20" }, "model.profile"},
		{"short window", func(c *Config) {
			c.Model.Profile = ProfileSMA10x50
			c.Model.WindowBars = 40
		}, "model.window_bars"},
		{"model without path", func(c *Config) { c.Trading.Strategy = StrategyModel }, "model.path"},
		{"same storage paths", func(c *Config) { c.Storage.PortfolioPath = c.Storage.BalancePath }, "must differ"},
		{"inverted hours", func(c *Config) {
			c.Schedule.TradingStart = "16:00"
			c.Schedule.TradingEnd = "09:30"
		}, "schedule.trading_start must be before"},
		{"bad dashboard port", func(c *Config) {
			c.Dashboard.Enabled = true
			c.Dashboard.Port = 70000
		}, "dashboard.port"},
		{"breaker ratio", func(c *Config) { c.Providers.Breaker.FailureRatio = 1.5 }, "failure_ratio"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("mock mode needs no keys", func(t *testing.T) {
		c := base()
		c.Environment.Mode = ModeMock
		c.Providers = ProvidersConfig{}
		c.Normalize()
		assert.NoError(t, c.Validate())
	})
}

func TestIsWithinTradingHours(t *testing.T) {
	cfg := &Config{Schedule: ScheduleConfig{
		Timezone:     "America/New_York",
		TradingStart: "09:30",
		TradingEnd:   "16:00",
		EnforceHours: true,
	}}
	loc := cfg.Location()

	assert.True(t, cfg.IsWithinTradingHours(time.Date(2025, 3, 12, 10, 0, 0, 0, loc)))
	assert.True(t, cfg.IsWithinTradingHours(time.Date(2025, 3, 12, 9, 30, 0, 0, loc)), "start is inclusive")
	assert.False(t, cfg.IsWithinTradingHours(time.Date(2025, 3, 12, 16, 0, 0, 0, loc)), "end is exclusive")
	assert.False(t, cfg.IsWithinTradingHours(time.Date(2025, 3, 15, 12, 0, 0, 0, loc)), "saturday")

	cfg.Schedule.EnforceHours = false
	assert.True(t, cfg.IsWithinTradingHours(time.Date(2025, 3, 15, 12, 0, 0, 0, loc)))
}

func TestDurationFallbacks(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, 15*time.Minute, cfg.GetInterval())
	assert.Equal(t, 10*time.Second, cfg.GetProviderTimeout())
	assert.Equal(t, 60*time.Second, cfg.GetBreakerInterval())
	assert.Equal(t, 30*time.Second, cfg.GetBreakerTimeout())
}
