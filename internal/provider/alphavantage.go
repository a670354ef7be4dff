package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/NoCodeNomad/bot/internal/models"
)

// AlphaVantageBaseURL is the public Alpha Vantage endpoint.
const AlphaVantageBaseURL = "https://www.alphavantage.co"

const (
	intradayKey = "Time Series (15min)"
	dailyKey    = "Time Series (Daily)"
	// compact output holds the latest 100 points
	compactPoints = 100
)

// AlphaVantage implements SeriesProvider and BarsProvider.
type AlphaVantage struct {
	client
}

// NewAlphaVantage creates an Alpha Vantage client.
func NewAlphaVantage(opts Options) *AlphaVantage {
	return &AlphaVantage{client: newClient("alphavantage", AlphaVantageBaseURL, opts)}
}

type alphaVantagePoint struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// IntradaySeries returns the compact 15 minute intraday series.
func (a *AlphaVantage) IntradaySeries(ctx context.Context, ticker string) ([]models.Bar, error) {
	params := url.Values{}
	params.Set("function", "TIME_SERIES_INTRADAY")
	params.Set("symbol", ticker)
	params.Set("interval", "15min")
	params.Set("outputsize", "compact")
	return a.query(ctx, params, intradayKey, "2006-01-02 15:04:05")
}

// DailyBars returns daily bars; n above the compact size requests the full history.
func (a *AlphaVantage) DailyBars(ctx context.Context, ticker string, n int) ([]models.Bar, error) {
	params := url.Values{}
	params.Set("function", "TIME_SERIES_DAILY")
	params.Set("symbol", ticker)
	if n > compactPoints {
		params.Set("outputsize", "full")
	} else {
		params.Set("outputsize", "compact")
	}
	return a.query(ctx, params, dailyKey, "2006-01-02")
}

// query decodes one "Time Series (...)" object. Alpha Vantage reports rate limits and bad
// symbols with HTTP 200 and a Note/Information/Error Message field instead of the series.
func (a *AlphaVantage) query(ctx context.Context, params url.Values, seriesKey, layout string) ([]models.Bar, error) {
	if err := a.requireKey(); err != nil {
		return nil, err
	}
	params.Set("apikey", a.apiKey)

	var resp map[string]json.RawMessage
	if err := a.getJSON(ctx, "/query", params, &resp); err != nil {
		return nil, err
	}
	raw, ok := resp[seriesKey]
	if !ok {
		for _, k := range []string{"Note", "Information", "Error Message"} {
			if msg, found := resp[k]; found {
				var text string
				_ = json.Unmarshal(msg, &text)
				return nil, &APIError{Provider: a.name, Status: 200, Body: text}
			}
		}
		return nil, fmt.Errorf("alphavantage: response missing %q", seriesKey)
	}

	var points map[string]alphaVantagePoint
	if err := json.Unmarshal(raw, &points); err != nil {
		return nil, fmt.Errorf("alphavantage: decoding %s: %w", seriesKey, err)
	}
	bars := make([]models.Bar, 0, len(points))
	for stamp, p := range points {
		ts, err := time.Parse(layout, stamp)
		if err != nil {
			return nil, fmt.Errorf("alphavantage: bad timestamp %q: %w", stamp, err)
		}
		bar, err := parseBar(ts, p.Open, p.High, p.Low, p.Close, p.Volume)
		if err != nil {
			return nil, fmt.Errorf("alphavantage %s: %w", stamp, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}
