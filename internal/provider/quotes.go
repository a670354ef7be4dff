package provider

import (
	"context"
	"fmt"
	"math"
	"net/url"
)

// Default public endpoints.
const (
	FinnhubBaseURL    = "https://finnhub.io/api/v1"
	PolygonBaseURL    = "https://api.polygon.io"
	TwelveDataBaseURL = "https://api.twelvedata.com"
)

func checkPrice(name string, p float64) (float64, error) {
	if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
		return 0, fmt.Errorf("%s: %w (%v)", name, ErrBadPrice, p)
	}
	return p, nil
}

// Finnhub implements PriceProvider via the /quote endpoint.
type Finnhub struct {
	client
}

// NewFinnhub creates a Finnhub client.
func NewFinnhub(opts Options) *Finnhub {
	return &Finnhub{client: newClient("finnhub", FinnhubBaseURL, opts)}
}

type finnhubQuote struct {
	Current       *float64 `json:"c"`
	PreviousClose float64  `json:"pc"`
	Timestamp     int64    `json:"t"`
}

// LatestPrice returns the current price ("c") of the quote.
func (f *Finnhub) LatestPrice(ctx context.Context, ticker string) (float64, error) {
	if err := f.requireKey(); err != nil {
		return 0, err
	}
	params := url.Values{}
	params.Set("symbol", ticker)
	params.Set("token", f.apiKey)

	var resp finnhubQuote
	if err := f.getJSON(ctx, "/quote", params, &resp); err != nil {
		return 0, err
	}
	if resp.Current == nil {
		return 0, fmt.Errorf("finnhub: %w (missing field c)", ErrBadPrice)
	}
	return checkPrice(f.name, *resp.Current)
}

// Polygon implements PriceProvider via the last-trade endpoint.
type Polygon struct {
	client
}

// NewPolygon creates a Polygon client.
func NewPolygon(opts Options) *Polygon {
	return &Polygon{client: newClient("polygon", PolygonBaseURL, opts)}
}

type polygonLast struct {
	Status string `json:"status"`
	Last   *struct {
		Price     float64 `json:"price"`
		Size      float64 `json:"size"`
		Timestamp int64   `json:"timestamp"`
	} `json:"last"`
}

// LatestPrice returns last.price for the ticker.
func (p *Polygon) LatestPrice(ctx context.Context, ticker string) (float64, error) {
	if err := p.requireKey(); err != nil {
		return 0, err
	}
	params := url.Values{}
	params.Set("apiKey", p.apiKey)

	var resp polygonLast
	if err := p.getJSON(ctx, "/v1/last/stocks/"+url.PathEscape(ticker), params, &resp); err != nil {
		return 0, err
	}
	if resp.Last == nil {
		return 0, fmt.Errorf("polygon: %w (missing field last, status %q)", ErrBadPrice, resp.Status)
	}
	return checkPrice(p.name, resp.Last.Price)
}
