package provider

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/NoCodeNomad/bot/internal/models"
)

// TwelveData implements PriceProvider, SeriesProvider and BarsProvider.
type TwelveData struct {
	client
}

// NewTwelveData creates a Twelve Data client.
func NewTwelveData(opts Options) *TwelveData {
	return &TwelveData{client: newClient("twelvedata", TwelveDataBaseURL, opts)}
}

// twelveDataStatus is embedded in every response; errors come back with HTTP 200.
type twelveDataStatus struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s twelveDataStatus) err() error {
	if s.Status == "error" {
		return &APIError{Provider: "twelvedata", Status: s.Code, Body: s.Message}
	}
	return nil
}

type twelveDataPrice struct {
	twelveDataStatus
	Price *string `json:"price"`
}

type twelveDataSeries struct {
	twelveDataStatus
	Values []struct {
		Datetime string `json:"datetime"`
		Open     string `json:"open"`
		High     string `json:"high"`
		Low      string `json:"low"`
		Close    string `json:"close"`
		Volume   string `json:"volume"`
	} `json:"values"`
}

// LatestPrice returns the /price value, which Twelve Data sends as a string.
func (t *TwelveData) LatestPrice(ctx context.Context, ticker string) (float64, error) {
	if err := t.requireKey(); err != nil {
		return 0, err
	}
	params := url.Values{}
	params.Set("symbol", ticker)
	params.Set("apikey", t.apiKey)

	var resp twelveDataPrice
	if err := t.getJSON(ctx, "/price", params, &resp); err != nil {
		return 0, err
	}
	if err := resp.err(); err != nil {
		return 0, err
	}
	if resp.Price == nil {
		return 0, fmt.Errorf("twelvedata: %w (missing field price)", ErrBadPrice)
	}
	p, err := parseFloatField("price", *resp.Price)
	if err != nil {
		return 0, fmt.Errorf("twelvedata: %w: %v", ErrBadPrice, err)
	}
	return checkPrice(t.name, p)
}

// IntradaySeries returns recent 15 minute bars.
func (t *TwelveData) IntradaySeries(ctx context.Context, ticker string) ([]models.Bar, error) {
	return t.series(ctx, ticker, "15min", 30, "2006-01-02 15:04:05")
}

// DailyBars returns up to n daily bars.
func (t *TwelveData) DailyBars(ctx context.Context, ticker string, n int) ([]models.Bar, error) {
	return t.series(ctx, ticker, "1day", n, "2006-01-02")
}

func (t *TwelveData) series(ctx context.Context, ticker, interval string, n int, layout string) ([]models.Bar, error) {
	if err := t.requireKey(); err != nil {
		return nil, err
	}
	if n <= 0 {
		n = 30
	}
	params := url.Values{}
	params.Set("symbol", ticker)
	params.Set("interval", interval)
	params.Set("outputsize", strconv.Itoa(n))
	params.Set("apikey", t.apiKey)

	var resp twelveDataSeries
	if err := t.getJSON(ctx, "/time_series", params, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, err
	}

	bars := make([]models.Bar, 0, len(resp.Values))
	for _, v := range resp.Values {
		ts, err := time.Parse(layout, v.Datetime)
		if err != nil {
			return nil, fmt.Errorf("twelvedata: bad datetime %q: %w", v.Datetime, err)
		}
		bar, err := parseBar(ts, v.Open, v.High, v.Low, v.Close, v.Volume)
		if err != nil {
			return nil, fmt.Errorf("twelvedata %s: %w", v.Datetime, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// parseBar converts string OHLCV fields. Volume may be absent (forex, some crypto pairs).
func parseBar(ts time.Time, open, high, low, closeRaw, volume string) (models.Bar, error) {
	bar := models.Bar{Time: ts}
	var err error
	if bar.Close, err = parseFloatField("close", closeRaw); err != nil {
		return bar, err
	}
	if bar.Open, err = parseFloatField("open", open); err != nil {
		return bar, err
	}
	if bar.High, err = parseFloatField("high", high); err != nil {
		return bar, err
	}
	if bar.Low, err = parseFloatField("low", low); err != nil {
		return bar, err
	}
	if volume != "" {
		if bar.Volume, err = parseFloatField("volume", volume); err != nil {
			return bar, err
		}
	}
	return bar, nil
}
