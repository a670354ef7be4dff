package config

import (
	"strings"
	"time"
)

// Environment modes.
const (
	ModePaper = "paper"
	ModeMock  = "mock"
)

// Strategy selectors.
const (
	StrategyRules = "rules"
	StrategyModel = "model"
)

// Feature profiles understood by the model strategy.
const (
	ProfileSMA10x30 = "sma_10_30"
	ProfileSMA10x50 = "sma_10_50"
)

// Provider names usable in price_order and series_order.
const (
	ProviderFinnhub      = "finnhub"
	ProviderPolygon      = "polygon"
	ProviderTwelveData   = "twelvedata"
	ProviderAlphaVantage = "alphavantage"
)

const (
	defaultStartingBalance = 10000.0
	defaultInterval        = 15 * time.Minute
	defaultProviderTimeout = 10 * time.Second
	defaultCalendarWindow  = 24 * time.Hour
	defaultBreakerInterval = 60 * time.Second
	defaultBreakerTimeout  = 30 * time.Second
	defaultTimezone        = "America/New_York"
)

// DefaultTickers is the universe traded when trading.tickers is omitted.
var DefaultTickers = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "META", "TSLA", "NVDA", "NFLX",
	"AMD", "INTC", "SPY", "QQQ", "DIA", "IWM", "VTI", "VOO",
	"ARKK", "XLK", "XLF", "XLY", "XLE", "XLI", "XLB", "XLV",
	"XLC", "XLU", "BTC-USD", "ETH-USD", "SOL-USD", "ADA-USD",
	"DOGE-USD", "XRP-USD", "LTC-USD", "AVAX-USD", "DOT-USD",
	"BNB-USD", "BRK-B", "JNJ", "V", "MA", "JPM", "UNH", "HD",
	"PG", "DIS", "BAC", "KO", "PFE", "PEP", "T", "CSCO",
	"ORCL", "IBM", "CRM", "BABA", "TM", "NSRGY", "VWAGY",
	"TSM", "NIO",
}

var defaultBaseURLs = map[string]string{
	ProviderFinnhub:      "https://finnhub.io/api/v1",
	ProviderPolygon:      "https://api.polygon.io",
	ProviderTwelveData:   "https://api.twelvedata.com",
	ProviderAlphaVantage: "https://www.alphavantage.co",
	"newsapi":            "https://newsapi.org/v2",
	"tradingeconomics":   "https://api.tradingeconomics.com",
}

// Normalize fills in defaults for unset fields and canonicalizes tickers and enum values.
func (c *Config) Normalize() {
	c.Environment.Mode = strings.ToLower(strings.TrimSpace(c.Environment.Mode))
	if c.Environment.Mode == "" {
		c.Environment.Mode = ModePaper
	}
	if c.Environment.LogLevel == "" {
		c.Environment.LogLevel = "info"
	}
	if c.Environment.LogFormat == "" {
		c.Environment.LogFormat = "text"
	}

	if len(c.Trading.Tickers) == 0 {
		c.Trading.Tickers = append([]string(nil), DefaultTickers...)
	}
	for i, t := range c.Trading.Tickers {
		c.Trading.Tickers[i] = strings.ToUpper(strings.TrimSpace(t))
	}
	if c.Trading.StartingBalance == 0 {
		c.Trading.StartingBalance = defaultStartingBalance
	}
	c.Trading.Strategy = strings.ToLower(strings.TrimSpace(c.Trading.Strategy))
	if c.Trading.Strategy == "" {
		c.Trading.Strategy = StrategyRules
	}

	p := &c.Providers
	if p.Timeout == "" {
		p.Timeout = defaultProviderTimeout.String()
	}
	if len(p.PriceOrder) == 0 {
		p.PriceOrder = []string{ProviderFinnhub, ProviderPolygon, ProviderTwelveData}
	}
	if len(p.SeriesOrder) == 0 {
		p.SeriesOrder = []string{ProviderAlphaVantage}
	}
	for i := range p.PriceOrder {
		p.PriceOrder[i] = strings.ToLower(strings.TrimSpace(p.PriceOrder[i]))
	}
	for i := range p.SeriesOrder {
		p.SeriesOrder[i] = strings.ToLower(strings.TrimSpace(p.SeriesOrder[i]))
	}
	setBaseURL(&p.Finnhub, ProviderFinnhub)
	setBaseURL(&p.Polygon, ProviderPolygon)
	setBaseURL(&p.TwelveData, ProviderTwelveData)
	setBaseURL(&p.AlphaVantage, ProviderAlphaVantage)
	setBaseURL(&p.NewsAPI, "newsapi")
	setBaseURL(&p.TradingEconomics, "tradingeconomics")

	b := &p.Breaker
	if b.MaxRequests == 0 {
		b.MaxRequests = 3
	}
	if b.MinRequests == 0 {
		b.MinRequests = 5
	}
	if b.FailureRatio == 0 {
		b.FailureRatio = 0.6
	}
	if b.Interval == "" {
		b.Interval = defaultBreakerInterval.String()
	}
	if b.Timeout == "" {
		b.Timeout = defaultBreakerTimeout.String()
	}

	if c.News.LookbackDays == 0 {
		c.News.LookbackDays = 3
	}
	if c.News.PageSize == 0 {
		c.News.PageSize = 5
	}
	if c.News.Language == "" {
		c.News.Language = "en"
	}

	if c.Calendar.Window == "" {
		c.Calendar.Window = defaultCalendarWindow.String()
	}

	if c.Model.Profile == "" {
		c.Model.Profile = ProfileSMA10x30
	}
	if c.Model.WindowBars == 0 {
		c.Model.WindowBars = 60
	}
	if c.Model.InputName == "" {
		c.Model.InputName = "input"
	}
	if c.Model.OutputName == "" {
		c.Model.OutputName = "label"
	}

	if c.Storage.BalancePath == "" {
		c.Storage.BalancePath = "balance.txt"
	}
	if c.Storage.PortfolioPath == "" {
		c.Storage.PortfolioPath = "portfolio.json"
	}

	if c.Schedule.Interval == "" {
		c.Schedule.Interval = defaultInterval.String()
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = defaultTimezone
	}
	if c.Schedule.TradingStart == "" {
		c.Schedule.TradingStart = "09:30"
	}
	if c.Schedule.TradingEnd == "" {
		c.Schedule.TradingEnd = "16:00"
	}

	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8080
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9090"
	}
}

func setBaseURL(pc *ProviderConfig, name string) {
	if pc.BaseURL == "" {
		pc.BaseURL = defaultBaseURLs[name]
	}
	pc.BaseURL = strings.TrimRight(pc.BaseURL, "/")
}
