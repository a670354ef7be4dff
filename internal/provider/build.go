package provider

import (
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/NoCodeNomad/bot/internal/config"
)

// FromConfig builds the live provider set in the configured fallback order. News and
// calendar providers without an api key are left nil, which callers treat as "no data".
func FromConfig(cfg *config.Config, log logrus.FieldLogger) (Set, error) {
	hc := &http.Client{Timeout: cfg.GetProviderTimeout()}
	opts := func(pc config.ProviderConfig) Options {
		return Options{APIKey: pc.APIKey, BaseURL: pc.BaseURL, HTTPClient: hc, Logger: log}
	}

	var twelve *TwelveData
	getTwelve := func() *TwelveData {
		if twelve == nil {
			twelve = NewTwelveData(opts(cfg.Providers.TwelveData))
		}
		return twelve
	}
	var alpha *AlphaVantage
	getAlpha := func() *AlphaVantage {
		if alpha == nil {
			alpha = NewAlphaVantage(opts(cfg.Providers.AlphaVantage))
		}
		return alpha
	}

	var set Set
	for _, name := range cfg.Providers.PriceOrder {
		switch name {
		case config.ProviderFinnhub:
			set.Prices = append(set.Prices, NewFinnhub(opts(cfg.Providers.Finnhub)))
		case config.ProviderPolygon:
			set.Prices = append(set.Prices, NewPolygon(opts(cfg.Providers.Polygon)))
		case config.ProviderTwelveData:
			set.Prices = append(set.Prices, getTwelve())
		default:
			return Set{}, fmt.Errorf("unknown price provider %q", name)
		}
	}
	for _, name := range cfg.Providers.SeriesOrder {
		switch name {
		case config.ProviderAlphaVantage:
			set.Series = append(set.Series, getAlpha())
		case config.ProviderTwelveData:
			set.Series = append(set.Series, getTwelve())
		default:
			return Set{}, fmt.Errorf("unknown series provider %q", name)
		}
	}

	// Daily bars follow the first key-bearing series source.
	switch {
	case cfg.Providers.AlphaVantage.APIKey != "":
		set.Bars = getAlpha()
	case cfg.Providers.TwelveData.APIKey != "":
		set.Bars = getTwelve()
	}

	if cfg.Providers.NewsAPI.APIKey != "" {
		set.News = NewNewsAPI(opts(cfg.Providers.NewsAPI), cfg.News.PageSize, cfg.News.Language)
	}
	if cfg.Providers.TradingEconomics.APIKey != "" {
		set.Calendar = NewTradingEconomics(opts(cfg.Providers.TradingEconomics))
	}

	if cfg.Providers.Breaker.Enabled {
		set = set.WithBreakers(BreakerSettings{
			MaxRequests:  cfg.Providers.Breaker.MaxRequests,
			Interval:     cfg.GetBreakerInterval(),
			Timeout:      cfg.GetBreakerTimeout(),
			MinRequests:  cfg.Providers.Breaker.MinRequests,
			FailureRatio: cfg.Providers.Breaker.FailureRatio,
		}, log)
	}
	return set, nil
}
