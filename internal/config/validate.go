package config

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Validate checks that the configuration is complete and consistent.
func (c *Config) Validate() error {
	// Environment validation
	if c.Environment.Mode != ModePaper && c.Environment.Mode != ModeMock {
		return fmt.Errorf("environment.mode must be 'paper' or 'mock'")
	}
	switch strings.ToLower(c.Environment.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("environment.log_level must be one of debug, info, warn, error")
	}
	if c.Environment.LogFormat != "text" && c.Environment.LogFormat != "json" {
		return fmt.Errorf("environment.log_format must be 'text' or 'json'")
	}

	// Trading validation
	seen := make(map[string]bool, len(c.Trading.Tickers))
	for i, t := range c.Trading.Tickers {
		if t == "" {
			return fmt.Errorf("trading.tickers[%d] must not be empty", i)
		}
		if seen[t] {
			return fmt.Errorf("trading.tickers contains duplicate %q", t)
		}
		seen[t] = true
	}
	if c.Trading.StartingBalance < 0 {
		return fmt.Errorf("trading.starting_balance must be >= 0")
	}
	if c.Trading.Strategy != StrategyRules && c.Trading.Strategy != StrategyModel {
		return fmt.Errorf("trading.strategy must be 'rules' or 'model'")
	}

	// Provider validation
	if err := validateDuration("providers.timeout", c.Providers.Timeout); err != nil {
		return err
	}
	if err := c.validateOrder("providers.price_order", c.Providers.PriceOrder,
		ProviderFinnhub, ProviderPolygon, ProviderTwelveData); err != nil {
		return err
	}
	if err := c.validateOrder("providers.series_order", c.Providers.SeriesOrder,
		ProviderAlphaVantage, ProviderTwelveData); err != nil {
		return err
	}
	b := c.Providers.Breaker
	if b.FailureRatio <= 0 || b.FailureRatio > 1 {
		return fmt.Errorf("providers.breaker.failure_ratio must be in (0,1]")
	}
	if err := validateDuration("providers.breaker.interval", b.Interval); err != nil {
		return err
	}
	if err := validateDuration("providers.breaker.timeout", b.Timeout); err != nil {
		return err
	}

	// News validation
	if c.News.LookbackDays < 0 {
		return fmt.Errorf("news.lookback_days must be >= 0")
	}
	if c.News.PageSize <= 0 || c.News.PageSize > 100 {
		return fmt.Errorf("news.page_size must be between 1 and 100")
	}

	if err := validateDuration("calendar.window", c.Calendar.Window); err != nil {
		return err
	}

	// Model validation
	if c.Model.Profile != ProfileSMA10x30 && c.Model.Profile != ProfileSMA10x50 {
		return fmt.Errorf("model.profile must be 'sma_10_30' or 'sma_10_50'")
	}
	if c.Model.WindowBars < minWindowBars(c.Model.Profile) {
		return fmt.Errorf("model.window_bars must be >= %d for profile %s",
			minWindowBars(c.Model.Profile), c.Model.Profile)
	}
	if c.UsesModel() && c.Model.Path == "" {
		return fmt.Errorf("model.path is required when trading.strategy is 'model'")
	}

	// Storage validation
	if c.Storage.BalancePath == c.Storage.PortfolioPath {
		return fmt.Errorf("storage.balance_path and storage.portfolio_path must differ")
	}

	// Schedule validation
	if err := validateDuration("schedule.interval", c.Schedule.Interval); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone %q is invalid: %w", c.Schedule.Timezone, err)
	}
	start, err := time.Parse("15:04", c.Schedule.TradingStart)
	if err != nil {
		return fmt.Errorf("schedule.trading_start must be HH:MM")
	}
	end, err := time.Parse("15:04", c.Schedule.TradingEnd)
	if err != nil {
		return fmt.Errorf("schedule.trading_end must be HH:MM")
	}
	if !start.Before(end) {
		return fmt.Errorf("schedule.trading_start must be before schedule.trading_end")
	}

	// Dashboard validation
	if c.Dashboard.Enabled && (c.Dashboard.Port <= 0 || c.Dashboard.Port > 65535) {
		return fmt.Errorf("dashboard.port must be between 1 and 65535")
	}

	return nil
}

func (c *Config) validateOrder(field string, order []string, allowed ...string) error {
	if len(order) == 0 {
		return fmt.Errorf("%s must not be empty", field)
	}
	seen := make(map[string]bool, len(order))
	for _, name := range order {
		if !slices.Contains(allowed, name) {
			return fmt.Errorf("%s: unknown provider %q (allowed: %s)", field, name, strings.Join(allowed, ", "))
		}
		if seen[name] {
			return fmt.Errorf("%s: duplicate provider %q", field, name)
		}
		seen[name] = true
		if !c.IsMockData() && c.Provider(name).APIKey == "" {
			return fmt.Errorf("providers.%s.api_key is required when listed in %s", name, field)
		}
	}
	return nil
}

// Provider returns the settings block for a price or series provider name.
func (c *Config) Provider(name string) ProviderConfig {
	switch name {
	case ProviderFinnhub:
		return c.Providers.Finnhub
	case ProviderPolygon:
		return c.Providers.Polygon
	case ProviderTwelveData:
		return c.Providers.TwelveData
	case ProviderAlphaVantage:
		return c.Providers.AlphaVantage
	}
	return ProviderConfig{}
}

func minWindowBars(profile string) int {
	// the later of the long SMA and the MACD signal line (26+9-1) warm-ups
	if profile == ProfileSMA10x50 {
		return 50
	}
	return 34
}

func validateDuration(field, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s must be a valid duration: %w", field, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be > 0", field)
	}
	return nil
}
